package api

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

type (
	// WorkflowStatus represents the current state of a workflow instance
	WorkflowStatus string

	// WorkflowInstance is one runtime execution of a workflow definition.
	// Instances are owned by the execution engine and move between statuses
	// only through the typed transition methods below
	WorkflowInstance struct {
		ID            InstanceID              `json:"id"`
		DefinitionID  DefinitionID            `json:"definition_id"`
		Name          string                  `json:"name"`
		Status        WorkflowStatus          `json:"status"`
		CurrentStepID StepID                  `json:"current_step_id,omitempty"`
		ExecutionIDs  []ExecutionID           `json:"execution_ids,omitempty"`
		ContextID     ContextID               `json:"context_id,omitempty"`
		Decisions     map[StepID]TransitionID `json:"decisions,omitempty"`
		Metadata      Metadata                `json:"metadata,omitempty"`
		Priority      int                     `json:"priority,omitempty"`
		AttemptCount  int                     `json:"attempt_count,omitempty"`
		Error         string                  `json:"error,omitempty"`
		CreatedBy     string                  `json:"created_by,omitempty"`
		CreatedAt     time.Time               `json:"created_at,omitzero"`
		UpdatedAt     time.Time               `json:"updated_at,omitzero"`
		StartedAt     time.Time               `json:"started_at,omitzero"`
		CompletedAt   time.Time               `json:"completed_at,omitzero"`

		// Revision is the optimistic concurrency token checked by the
		// instance store on every write
		Revision int64 `json:"revision"`
	}
)

const (
	WorkflowCreated   WorkflowStatus = "CREATED"
	WorkflowRunning   WorkflowStatus = "RUNNING"
	WorkflowPaused    WorkflowStatus = "PAUSED"
	WorkflowCompleted WorkflowStatus = "COMPLETED"
	WorkflowFailed    WorkflowStatus = "FAILED"
	WorkflowCancelled WorkflowStatus = "CANCELLED"
)

// WorkflowStatuses lists every instance status, in lifecycle order
var WorkflowStatuses = []WorkflowStatus{
	WorkflowCreated, WorkflowRunning, WorkflowPaused,
	WorkflowCompleted, WorkflowFailed, WorkflowCancelled,
}

// ErrIllegalTransition is returned when a lifecycle method is invoked from a
// status that forbids it
var ErrIllegalTransition = errors.New("illegal status transition")

// NewWorkflowInstance creates an instance in status CREATED for the given
// definition
func NewWorkflowInstance(
	defID DefinitionID, name, createdBy string, at time.Time,
) *WorkflowInstance {
	return &WorkflowInstance{
		ID:           NewID[InstanceID](),
		DefinitionID: defID,
		Name:         name,
		Status:       WorkflowCreated,
		CreatedBy:    createdBy,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

// IsTerminal returns true once the instance has reached a final status
func (w *WorkflowInstance) IsTerminal() bool {
	return InstanceTransitions.IsTerminal(w.Status)
}

// Start moves a CREATED instance to RUNNING, positioned at the given first
// step
func (w *WorkflowInstance) Start(
	firstStep StepID, at time.Time,
) (*WorkflowInstance, error) {
	res, err := w.moveStatus(WorkflowRunning, at)
	if err != nil {
		return nil, err
	}
	if w.Status != WorkflowCreated {
		return nil, w.illegal(WorkflowRunning)
	}
	res.CurrentStepID = firstStep
	res.StartedAt = at
	return res, nil
}

// Pause suspends a RUNNING instance
func (w *WorkflowInstance) Pause(at time.Time) (*WorkflowInstance, error) {
	if w.Status != WorkflowRunning {
		return nil, w.illegal(WorkflowPaused)
	}
	return w.moveStatus(WorkflowPaused, at)
}

// Resume returns a PAUSED instance to RUNNING
func (w *WorkflowInstance) Resume(at time.Time) (*WorkflowInstance, error) {
	if w.Status != WorkflowPaused {
		return nil, w.illegal(WorkflowRunning)
	}
	return w.moveStatus(WorkflowRunning, at)
}

// Complete marks a RUNNING instance COMPLETED and stamps the completion time
func (w *WorkflowInstance) Complete(at time.Time) (*WorkflowInstance, error) {
	if w.Status != WorkflowRunning {
		return nil, w.illegal(WorkflowCompleted)
	}
	res, err := w.moveStatus(WorkflowCompleted, at)
	if err != nil {
		return nil, err
	}
	res.CompletedAt = at
	return res, nil
}

// Fail marks a non-terminal instance FAILED and records the error message
func (w *WorkflowInstance) Fail(
	msg string, at time.Time,
) (*WorkflowInstance, error) {
	res, err := w.moveStatus(WorkflowFailed, at)
	if err != nil {
		return nil, err
	}
	res.Error = msg
	return res, nil
}

// Cancel marks any non-terminal instance CANCELLED
func (w *WorkflowInstance) Cancel(at time.Time) (*WorkflowInstance, error) {
	return w.moveStatus(WorkflowCancelled, at)
}

// MoveTo advances the current step of a RUNNING instance
func (w *WorkflowInstance) MoveTo(
	step StepID, at time.Time,
) (*WorkflowInstance, error) {
	if w.Status != WorkflowRunning {
		return nil, fmt.Errorf("%w: cannot advance step in status %s",
			ErrIllegalTransition, w.Status)
	}
	res := w.clone()
	res.CurrentStepID = step
	res.UpdatedAt = at
	return res, nil
}

// AddExecution appends a step execution reference to the ordered history
func (w *WorkflowInstance) AddExecution(
	id ExecutionID, at time.Time,
) *WorkflowInstance {
	res := w.clone()
	res.ExecutionIDs = append(
		slices.Clone(w.ExecutionIDs), id,
	)
	res.UpdatedAt = at
	return res
}

// SetDecision records an external decision input for the given step
func (w *WorkflowInstance) SetDecision(
	step StepID, tr TransitionID, at time.Time,
) *WorkflowInstance {
	res := w.clone()
	res.Decisions = maps.Clone(w.Decisions)
	if res.Decisions == nil {
		res.Decisions = map[StepID]TransitionID{}
	}
	res.Decisions[step] = tr
	res.UpdatedAt = at
	return res
}

// ClearDecision removes a consumed decision input for the given step
func (w *WorkflowInstance) ClearDecision(
	step StepID, at time.Time,
) *WorkflowInstance {
	res := w.clone()
	res.Decisions = maps.Clone(w.Decisions)
	delete(res.Decisions, step)
	res.UpdatedAt = at
	return res
}

// IncrementAttempt bumps the attempt counter
func (w *WorkflowInstance) IncrementAttempt(at time.Time) *WorkflowInstance {
	res := w.clone()
	res.AttemptCount++
	res.UpdatedAt = at
	return res
}

func (w *WorkflowInstance) moveStatus(
	to WorkflowStatus, at time.Time,
) (*WorkflowInstance, error) {
	if !InstanceTransitions.CanTransition(w.Status, to) {
		return nil, w.illegal(to)
	}
	res := w.clone()
	res.Status = to
	res.UpdatedAt = at
	return res, nil
}

func (w *WorkflowInstance) illegal(to WorkflowStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, w.Status, to)
}

func (w *WorkflowInstance) clone() *WorkflowInstance {
	res := *w
	return &res
}
