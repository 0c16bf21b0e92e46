package engine

import (
	"context"
	"errors"
	"time"

	"github.com/kimhons/lumina-ai-sub002/internal/collab"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

// StartStep marks a pending or assigned execution RUNNING. From this moment
// the step's timeout clock is ticking
func (e *Engine) StartStep(
	ctx context.Context, id api.ExecutionID,
) (*api.StepExecution, error) {
	exec, err := e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.lock(exec.InstanceID)
	defer unlock()

	exec, err = e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	started, err := exec.Start(e.Now())
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveExecution(ctx, started); err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventStepStarted,
		InstanceID: started.InstanceID,
		StepID:     started.StepID,
		AgentID:    started.AgentID,
	})
	return started, nil
}

// CompleteStep finishes a step execution with its output data. The output is
// folded into the execution context and, if the instance is RUNNING, the
// engine immediately evaluates outgoing transitions. Completions arriving
// while the instance is PAUSED are held; the advance happens on resume
func (e *Engine) CompleteStep(
	ctx context.Context, id api.ExecutionID, output api.Data,
) (*api.StepExecution, error) {
	exec, err := e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.lock(exec.InstanceID)
	defer unlock()

	exec, err = e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	now := e.Now()
	running := exec
	if running.Status != api.StepRunning {
		if running, err = running.Start(now); err != nil {
			return nil, err
		}
	}
	completed, err := running.Complete(output, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveExecution(ctx, completed); err != nil {
		return nil, err
	}
	if len(output) > 0 {
		if err := e.mergeOutput(ctx, completed.InstanceID, output); err != nil {
			return nil, err
		}
	}
	e.publish(&api.Event{
		Type:       api.EventStepCompleted,
		InstanceID: completed.InstanceID,
		StepID:     completed.StepID,
		AgentID:    completed.AgentID,
		Data:       output,
	})
	if err := e.advanceLocked(
		ctx, completed.InstanceID, completed.StepID, api.StepCompleted,
	); err != nil {
		return nil, err
	}
	return completed, nil
}

// FailStep finishes a step execution with an error. ERROR-typed transitions
// out of the step are evaluated; if none applies the workflow fails
func (e *Engine) FailStep(
	ctx context.Context, id api.ExecutionID, reason string,
) (*api.StepExecution, error) {
	exec, err := e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.lock(exec.InstanceID)
	defer unlock()

	exec, err = e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	failed, err := exec.Fail(reason, e.Now())
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveExecution(ctx, failed); err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventStepFailed,
		InstanceID: failed.InstanceID,
		StepID:     failed.StepID,
		AgentID:    failed.AgentID,
		Data:       api.Data{"error": reason},
	})
	if err := e.advanceLocked(
		ctx, failed.InstanceID, failed.StepID, api.StepFailed,
	); err != nil {
		return nil, err
	}
	return failed, nil
}

// SkipStep bypasses a step by operator override. Transition evaluation
// proceeds as if the step had completed
func (e *Engine) SkipStep(
	ctx context.Context, id api.ExecutionID,
) (*api.StepExecution, error) {
	exec, err := e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.lock(exec.InstanceID)
	defer unlock()

	exec, err = e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	skipped, err := exec.Skip(e.Now())
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveExecution(ctx, skipped); err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventStepSkipped,
		InstanceID: skipped.InstanceID,
		StepID:     skipped.StepID,
		AgentID:    skipped.AgentID,
	})
	if err := e.advanceLocked(
		ctx, skipped.InstanceID, skipped.StepID, api.StepSkipped,
	); err != nil {
		return nil, err
	}
	return skipped, nil
}

// RetryStep opens a fresh attempt at a step whose last execution ended in
// failure or timeout. The instance's attempt counter advances
func (e *Engine) RetryStep(
	ctx context.Context, id api.ExecutionID,
) (*api.StepExecution, error) {
	prev, err := e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.lock(prev.InstanceID)
	defer unlock()

	prev, err = e.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if prev.Status != api.StepFailed && prev.Status != api.StepTimedOut {
		return nil, api.ErrIllegalTransition
	}

	inst, err := e.GetInstance(ctx, prev.InstanceID)
	if err != nil {
		return nil, err
	}
	now := e.Now()
	retry := prev.Retry(now)
	retry, err = e.assignExecution(ctx, teamOf(inst), retry, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveExecution(ctx, retry); err != nil {
		return nil, err
	}
	_, err = e.updateInstance(ctx, prev.InstanceID,
		func(inst *api.WorkflowInstance) (*api.WorkflowInstance, error) {
			moved, err := inst.MoveTo(retry.StepID, now)
			if err != nil {
				return nil, err
			}
			return moved.AddExecution(retry.ID, now).
				IncrementAttempt(now), nil
		})
	if err != nil {
		return nil, err
	}
	e.publish(&api.Event{
		Type:       api.EventStepCreated,
		InstanceID: retry.InstanceID,
		StepID:     retry.StepID,
		Data:       api.Data{"execution_id": string(retry.ID)},
	})
	return retry, nil
}

// openExecution creates a PENDING execution for a step, negotiates its
// resources on behalf of the workflow's team, attempts agent assignment,
// and persists the result
func (e *Engine) openExecution(
	ctx context.Context, inst *api.WorkflowInstance,
	step *api.WorkflowStep, now time.Time,
) (*api.StepExecution, error) {
	team := teamOf(inst)
	exec := api.NewStepExecution(inst.ID, step, now)
	if err := e.collab.NegotiateResourcesForStep(ctx, team, exec); err != nil {
		return nil, err
	}
	exec, err := e.assignExecution(ctx, team, exec, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// assignExecution tries to bind an execution to an agent. When no agent is
// available for the role the execution stays PENDING for a later claim
// rather than failing the workflow
func (e *Engine) assignExecution(
	ctx context.Context, team api.TeamID,
	exec *api.StepExecution, now time.Time,
) (*api.StepExecution, error) {
	assigned, err := e.collab.AssignStepToAgent(ctx, team, exec, now)
	if errors.Is(err, collab.ErrNoAgentAvailable) {
		e.logger.Warn("No agent available, step stays pending",
			log.InstanceID(exec.InstanceID),
			log.StepID(exec.StepID))
		return exec, nil
	}
	if err != nil {
		return nil, err
	}
	return assigned, nil
}
