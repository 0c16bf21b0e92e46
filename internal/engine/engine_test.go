package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/internal/assert/helpers"
	"github.com/kimhons/lumina-ai-sub002/internal/collab"
	"github.com/kimhons/lumina-ai-sub002/internal/engine"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// startInstance creates and starts an instance of the definition, returning
// the running instance and the execution of its START step
func startInstance(
	t *testing.T, env *helpers.TestEnv, def *api.WorkflowDefinition,
) (*api.WorkflowInstance, *api.StepExecution) {
	t.Helper()
	ctx := context.Background()

	created, err := env.Engine.CreateDefinition(ctx, def)
	assert.NoError(t, err)

	inst, err := env.Engine.CreateInstance(
		ctx, created.ID, "", "alice", nil, 0,
	)
	assert.NoError(t, err)

	running, err := env.Engine.StartWorkflow(ctx, inst.ID)
	assert.NoError(t, err)
	assert.Equal(t, api.WorkflowRunning, running.Status)
	assert.Len(t, running.ExecutionIDs, 1)

	exec, err := env.Engine.GetExecution(ctx, running.ExecutionIDs[0])
	assert.NoError(t, err)
	return running, exec
}

// latestExecution returns the most recently opened execution of an instance
func latestExecution(
	t *testing.T, env *helpers.TestEnv, id api.InstanceID,
) *api.StepExecution {
	t.Helper()
	inst, err := env.Engine.GetInstance(context.Background(), id)
	assert.NoError(t, err)
	assert.NotEmpty(t, inst.ExecutionIDs)
	exec, err := env.Engine.GetExecution(
		context.Background(), inst.ExecutionIDs[len(inst.ExecutionIDs)-1],
	)
	assert.NoError(t, err)
	return exec
}

func TestLinearWorkflowRunsToCompletion(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		env.Collab.RegisterAgent("worker", "agent-1")

		inst, startExec := startInstance(t, env, helpers.LinearDefinition())
		assert.Equal(t, api.StepID("start"), inst.CurrentStepID)

		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		work := latestExecution(t, env, inst.ID)
		assert.Equal(t, api.StepID("work"), work.StepID)
		assert.Equal(t, api.StepAssigned, work.Status)
		assert.Equal(t, api.AgentID("agent-1"), work.AgentID)

		_, err = env.Engine.CompleteStep(ctx, work.ID, api.Data{
			"result": "done",
		})
		assert.NoError(t, err)

		final, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowCompleted, final.Status)
		assert.Equal(t, api.StepID("end"), final.CurrentStepID)
		assert.False(t, final.CompletedAt.IsZero())

		ec, err := env.Engine.GetContext(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, "done", ec.GetOrDefault("result", nil))
	})
}

func TestStartRequiresCreated(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		inst, _ := startInstance(t, env, helpers.LinearDefinition())

		_, err := env.Engine.StartWorkflow(context.Background(), inst.ID)
		assert.ErrorIs(t, err, api.ErrIllegalTransition)
	})
}

func TestCreateInstanceInactiveDefinition(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		def, err := env.Engine.CreateDefinition(
			ctx, helpers.LinearDefinition(),
		)
		assert.NoError(t, err)
		_, err = env.Engine.DeactivateDefinition(ctx, def.ID)
		assert.NoError(t, err)

		_, err = env.Engine.CreateInstance(ctx, def.ID, "", "alice", nil, 0)
		assert.ErrorIs(t, err, engine.ErrDefinitionInactive)
	})
}

func TestPauseHoldsCompletionUntilResume(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, startExec := startInstance(t, env, helpers.LinearDefinition())

		paused, err := env.Engine.PauseWorkflow(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowPaused, paused.Status)

		// step finishes while paused; the workflow must not advance
		_, err = env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		held, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowPaused, held.Status)
		assert.Equal(t, api.StepID("start"), held.CurrentStepID)

		resumed, err := env.Engine.ResumeWorkflow(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowRunning, resumed.Status)

		after, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.StepID("work"), after.CurrentStepID)
	})
}

func TestPauseRequiresRunning(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		def, err := env.Engine.CreateDefinition(
			ctx, helpers.LinearDefinition(),
		)
		assert.NoError(t, err)
		inst, err := env.Engine.CreateInstance(
			ctx, def.ID, "", "alice", nil, 0,
		)
		assert.NoError(t, err)

		_, err = env.Engine.PauseWorkflow(ctx, inst.ID)
		assert.ErrorIs(t, err, api.ErrIllegalTransition)
	})
}

func TestCancelSkipsOpenExecutions(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, startExec := startInstance(t, env, helpers.LinearDefinition())

		cancelled, err := env.Engine.CancelWorkflow(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowCancelled, cancelled.Status)

		exec, err := env.Engine.GetExecution(ctx, startExec.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.StepSkipped, exec.Status)

		// terminal instances cannot be cancelled again
		_, err = env.Engine.CancelWorkflow(ctx, inst.ID)
		assert.ErrorIs(t, err, api.ErrIllegalTransition)
	})
}

func TestConditionalTransitionApproved(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		env.Collab.RegisterAgent("reviewer", "agent-1")
		env.Collab.RegisterAgent("worker", "agent-2")

		inst, startExec := startInstance(
			t, env, helpers.ConditionalDefinition(),
		)
		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		review := latestExecution(t, env, inst.ID)
		assert.Equal(t, api.StepID("review"), review.StepID)

		_, err = env.Engine.CompleteStep(ctx, review.ID, api.Data{
			"approved": true,
		})
		assert.NoError(t, err)

		final, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowCompleted, final.Status)
	})
}

func TestConditionalTransitionRejected(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		env.Collab.RegisterAgent("reviewer", "agent-1")
		env.Collab.RegisterAgent("worker", "agent-2")

		inst, startExec := startInstance(
			t, env, helpers.ConditionalDefinition(),
		)
		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		review := latestExecution(t, env, inst.ID)
		_, err = env.Engine.CompleteStep(ctx, review.ID, api.Data{
			"approved": false,
		})
		assert.NoError(t, err)

		after, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowRunning, after.Status)
		assert.Equal(t, api.StepID("rework"), after.CurrentStepID)
	})
}

func TestTransitionPriorityAndTieBreak(t *testing.T) {
	def := &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    "Race",
		Version: 1,
		Active:  true,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "a", Name: "A", Type: api.StepTypeTask},
			{ID: "b", Name: "B", Type: api.StepTypeTask},
			{ID: "c", Name: "C", Type: api.StepTypeTask},
			{ID: "end", Name: "End", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{
			{ID: "t-c", FromStepID: "start", ToStepID: "c",
				Type: api.TransitionAutomatic, Priority: 5},
			{ID: "t-b", FromStepID: "start", ToStepID: "b",
				Type: api.TransitionAutomatic, Priority: 10},
			{ID: "t-a", FromStepID: "start", ToStepID: "a",
				Type: api.TransitionAutomatic, Priority: 10},
			{ID: "t-done-a", FromStepID: "a", ToStepID: "end",
				Type: api.TransitionAutomatic},
			{ID: "t-done-b", FromStepID: "b", ToStepID: "end",
				Type: api.TransitionAutomatic},
			{ID: "t-done-c", FromStepID: "c", ToStepID: "end",
				Type: api.TransitionAutomatic},
		},
	}

	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, startExec := startInstance(t, env, def)

		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		// highest priority wins; lexical transition ID breaks the tie
		after, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.StepID("a"), after.CurrentStepID)
	})
}

func TestNoEligibleTransitionFailsWorkflow(t *testing.T) {
	def := &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    "DeadEnd",
		Version: 1,
		Active:  true,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "end", Name: "End", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{
			{ID: "t-cond", FromStepID: "start", ToStepID: "end",
				Type: api.TransitionConditional, Condition: "approved"},
		},
	}

	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, startExec := startInstance(t, env, def)

		// condition is false and there is no fallback
		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		final, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowFailed, final.Status)
		assert.Contains(t, final.Error, "no eligible transition")
	})
}

func TestErrorTransitionOnStepFailure(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, startExec := startInstance(t, env, helpers.ErrorPathDefinition())

		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		work := latestExecution(t, env, inst.ID)
		_, err = env.Engine.FailStep(ctx, work.ID, "agent crashed")
		assert.NoError(t, err)

		after, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowRunning, after.Status)
		assert.Equal(t, api.StepID("compensate"), after.CurrentStepID)

		compensate := latestExecution(t, env, inst.ID)
		_, err = env.Engine.CompleteStep(ctx, compensate.ID, nil)
		assert.NoError(t, err)

		final, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowCompleted, final.Status)
	})
}

func TestStepFailureWithoutErrorPathFailsWorkflow(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, startExec := startInstance(t, env, helpers.LinearDefinition())

		_, err := env.Engine.FailStep(ctx, startExec.ID, "boom")
		assert.NoError(t, err)

		final, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowFailed, final.Status)
	})
}

func TestNegotiationFailureFailsWorkflow(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		env.Collab.SetNegotiationError("work", collab.ErrNegotiationFailed)

		inst, startExec := startInstance(t, env, helpers.LinearDefinition())

		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		final, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowFailed, final.Status)
		assert.Contains(t, final.Error, "negotiation failed")
	})
}

func TestLaunchWorkflowRunsImmediately(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		env.Collab.RegisterAgent("worker", "agent-1")

		def, err := env.Engine.CreateDefinition(
			ctx, helpers.LinearDefinition(),
		)
		assert.NoError(t, err)

		inst, err := env.Engine.LaunchWorkflow(
			ctx, def.ID, "", "alice", api.Data{"customer": "acme"}, 0,
		)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowRunning, inst.Status)
		assert.Equal(t, api.StepID("start"), inst.CurrentStepID)
		assert.Len(t, inst.ExecutionIDs, 1)

		// the first persisted record is RUNNING; a reload never sees CREATED
		fetched, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowRunning, fetched.Status)

		ec, err := env.Engine.GetContext(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, "acme", ec.GetOrDefault("customer", nil))
	})
}

func TestLaunchWorkflowNegotiationFailure(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		env.Collab.SetNegotiationError("start", collab.ErrNegotiationFailed)

		def, err := env.Engine.CreateDefinition(
			ctx, helpers.LinearDefinition(),
		)
		assert.NoError(t, err)

		inst, err := env.Engine.LaunchWorkflow(ctx, def.ID, "", "alice", nil, 0)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowFailed, inst.Status)
		assert.Contains(t, inst.Error, "negotiation failed")

		fetched, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowFailed, fetched.Status)
	})
}

func TestStepWithoutAgentStaysPending(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		env.Collab.RegisterAgent("worker", "agent-1")

		inst, startExec := startInstance(t, env, helpers.LinearDefinition())

		// the pool empties out before the work step opens
		env.Collab.SetSelectionError("worker", collab.ErrNoAgentAvailable)

		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		work := latestExecution(t, env, inst.ID)
		assert.Equal(t, api.StepID("work"), work.StepID)
		assert.Equal(t, api.StepPending, work.Status)
		assert.Empty(t, work.AgentID)

		// the workflow keeps running, waiting for a later claim
		after, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowRunning, after.Status)
	})
}

func TestDecisionSuspendsUntilRecorded(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, startExec := startInstance(t, env, helpers.DecisionDefinition())

		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		gate := latestExecution(t, env, inst.ID)
		assert.Equal(t, api.StepID("gate"), gate.StepID)

		// finishing the gate without a decision suspends the workflow
		_, err = env.Engine.CompleteStep(ctx, gate.ID, nil)
		assert.NoError(t, err)

		waiting, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.WorkflowRunning, waiting.Status)
		assert.Equal(t, api.StepID("gate"), waiting.CurrentStepID)

		_, err = env.Engine.RecordDecision(ctx, inst.ID, "gate", "t-accept")
		assert.NoError(t, err)

		after, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.StepID("accepted"), after.CurrentStepID)

		// the consumed decision is cleared
		assert.Empty(t, after.Decisions)
	})
}

func TestRecordDecisionValidation(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, _ := startInstance(t, env, helpers.DecisionDefinition())

		_, err := env.Engine.RecordDecision(ctx, inst.ID, "gate", "t-bogus")
		assert.ErrorIs(t, err, engine.ErrUnknownTransition)

		_, err = env.Engine.RecordDecision(ctx, inst.ID, "start", "t-start")
		assert.ErrorIs(t, err, engine.ErrNotDecision)
	})
}

func TestRetryStepAfterFailure(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		inst, startExec := startInstance(t, env, helpers.ErrorPathDefinition())

		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		work := latestExecution(t, env, inst.ID)
		failed, err := env.Engine.FailStep(ctx, work.ID, "transient")
		assert.NoError(t, err)

		retry, err := env.Engine.RetryStep(ctx, failed.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.StepID("work"), retry.StepID)
		assert.Equal(t, 2, retry.AttemptCount)
		assert.NotEqual(t, failed.ID, retry.ID)

		after, err := env.Engine.GetInstance(ctx, inst.ID)
		assert.NoError(t, err)
		assert.Equal(t, api.StepID("work"), after.CurrentStepID)
		assert.Equal(t, 1, after.AttemptCount)

		// retrying a completed execution is rejected
		_, err = env.Engine.RetryStep(ctx, retry.ID)
		assert.ErrorIs(t, err, api.ErrIllegalTransition)
	})
}

func TestWorkflowEvents(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		ctx := context.Background()
		cons := env.Bus.NewConsumer()
		defer cons.Close()

		inst, startExec := startInstance(t, env, helpers.LinearDefinition())
		_, err := env.Engine.CompleteStep(ctx, startExec.ID, nil)
		assert.NoError(t, err)

		want := []api.EventType{
			api.EventWorkflowStarted,
			api.EventStepCreated,
			api.EventStepCompleted,
			api.EventStepCreated,
		}
		for _, expected := range want {
			select {
			case ev := <-cons.Receive():
				assert.Equal(t, expected, ev.Type)
				assert.Equal(t, inst.ID, ev.InstanceID)
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out waiting for %s", expected)
			}
		}
	})
}
