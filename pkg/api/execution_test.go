package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func makeExecution() *api.StepExecution {
	step := &api.WorkflowStep{
		ID: "review", Name: "Review", Type: api.StepTypeTask,
		AgentRole: "reviewer", TimeoutSeconds: 60,
	}
	return api.NewStepExecution("inst-1", step, now)
}

func TestExecutionLifecycle(t *testing.T) {
	exec := makeExecution()
	assert.Equal(t, api.StepPending, exec.Status)
	assert.Equal(t, int64(60), exec.TimeoutSeconds)
	assert.Equal(t, 1, exec.AttemptCount)

	assigned, err := exec.Assign("agent-1", "reviewer", now)
	assert.NoError(t, err)
	assert.Equal(t, api.StepAssigned, assigned.Status)
	assert.Equal(t, api.AgentID("agent-1"), assigned.AgentID)

	running, err := assigned.Start(now)
	assert.NoError(t, err)
	assert.Equal(t, api.StepRunning, running.Status)
	assert.Equal(t, now, running.StartedAt)

	done, err := running.Complete(api.Data{"result": "ok"}, now)
	assert.NoError(t, err)
	assert.Equal(t, api.StepCompleted, done.Status)
	assert.Equal(t, "ok", done.Output["result"])
	assert.True(t, done.IsTerminal())
}

func TestExecutionDefaultTimeout(t *testing.T) {
	step := &api.WorkflowStep{ID: "s", Name: "S", Type: api.StepTypeTask}
	exec := api.NewStepExecution("inst-1", step, now)
	assert.Equal(t, int64(300), exec.TimeoutSeconds)
}

func TestExecutionTimeoutFromRunning(t *testing.T) {
	exec := makeExecution()
	running, _ := exec.Start(now)

	timedOut, err := running.Timeout(now.Add(time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, api.StepTimedOut, timedOut.Status)

	// timing out an execution that never started is illegal
	_, err = exec.Timeout(now)
	assert.ErrorIs(t, err, api.ErrIllegalTransition)
}

func TestExecutionDeadline(t *testing.T) {
	exec := makeExecution()
	assert.True(t, exec.Deadline().IsZero())

	running, _ := exec.Start(now)
	assert.Equal(t, now.Add(60*time.Second), running.Deadline())
}

func TestExecutionSkipOverride(t *testing.T) {
	exec := makeExecution()

	skipped, err := exec.Skip(now)
	assert.NoError(t, err)
	assert.Equal(t, api.StepSkipped, skipped.Status)

	done, _ := exec.Start(now)
	done, _ = done.Complete(nil, now)
	_, err = done.Skip(now)
	assert.ErrorIs(t, err, api.ErrIllegalTransition)
}

func TestExecutionRetry(t *testing.T) {
	exec := makeExecution()
	running, _ := exec.Start(now)
	failed, _ := running.Fail("boom", now)

	retry := failed.Retry(now.Add(time.Second))
	assert.Equal(t, api.StepPending, retry.Status)
	assert.Equal(t, 2, retry.AttemptCount)
	assert.NotEqual(t, failed.ID, retry.ID)
	assert.Empty(t, retry.Error)
	assert.True(t, retry.StartedAt.IsZero())
}
