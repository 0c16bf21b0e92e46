package api

import (
	"fmt"
	"time"
)

type (
	// StepStatus represents the current state of a step execution
	StepStatus string

	// StepExecution is the runtime record of one attempt at one step within
	// a workflow instance
	StepExecution struct {
		ID             ExecutionID `json:"id"`
		InstanceID     InstanceID  `json:"instance_id"`
		StepID         StepID      `json:"step_id"`
		StepName       string      `json:"step_name,omitempty"`
		Status         StepStatus  `json:"status"`
		AgentID        AgentID     `json:"agent_id,omitempty"`
		AgentRole      string      `json:"agent_role,omitempty"`
		Input          Data        `json:"input,omitempty"`
		Output         Data        `json:"output,omitempty"`
		TimeoutSeconds int64       `json:"timeout_seconds"`
		AttemptCount   int         `json:"attempt_count"`
		Error          string      `json:"error,omitempty"`
		Metadata       Metadata    `json:"metadata,omitempty"`
		CreatedAt      time.Time   `json:"created_at,omitzero"`
		UpdatedAt      time.Time   `json:"updated_at,omitzero"`
		StartedAt      time.Time   `json:"started_at,omitzero"`
		CompletedAt    time.Time   `json:"completed_at,omitzero"`
	}
)

const (
	StepPending   StepStatus = "PENDING"
	StepAssigned  StepStatus = "ASSIGNED"
	StepRunning   StepStatus = "RUNNING"
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
	StepSkipped   StepStatus = "SKIPPED"
	StepTimedOut  StepStatus = "TIMEOUT"
)

// StepStatuses lists every step execution status, in lifecycle order
var StepStatuses = []StepStatus{
	StepPending, StepAssigned, StepRunning,
	StepCompleted, StepFailed, StepSkipped, StepTimedOut,
}

// NewStepExecution creates a PENDING execution record for one attempt at the
// given definition step
func NewStepExecution(
	instance InstanceID, step *WorkflowStep, at time.Time,
) *StepExecution {
	timeout := int64(step.Timeout() / time.Second)
	return &StepExecution{
		ID:             NewID[ExecutionID](),
		InstanceID:     instance,
		StepID:         step.ID,
		StepName:       step.Name,
		Status:         StepPending,
		AgentRole:      step.AgentRole,
		TimeoutSeconds: timeout,
		Metadata:       step.Metadata.Clone(),
		AttemptCount:   1,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}

// IsTerminal returns true once the execution has reached a final status
func (s *StepExecution) IsTerminal() bool {
	return StepTransitions.IsTerminal(s.Status)
}

// Deadline returns the moment the execution times out once running. The zero
// time is returned for executions that have not started
func (s *StepExecution) Deadline() time.Time {
	if s.StartedAt.IsZero() {
		return time.Time{}
	}
	return s.StartedAt.Add(time.Duration(s.TimeoutSeconds) * time.Second)
}

// Assign binds a PENDING execution to an agent
func (s *StepExecution) Assign(
	agent AgentID, role string, at time.Time,
) (*StepExecution, error) {
	res, err := s.moveStatus(StepAssigned, at)
	if err != nil {
		return nil, err
	}
	res.AgentID = agent
	res.AgentRole = role
	return res, nil
}

// Start marks the execution RUNNING and stamps the start time
func (s *StepExecution) Start(at time.Time) (*StepExecution, error) {
	res, err := s.moveStatus(StepRunning, at)
	if err != nil {
		return nil, err
	}
	res.StartedAt = at
	return res, nil
}

// Complete marks a RUNNING execution COMPLETED with its output data
func (s *StepExecution) Complete(
	output Data, at time.Time,
) (*StepExecution, error) {
	res, err := s.moveStatus(StepCompleted, at)
	if err != nil {
		return nil, err
	}
	res.Output = output.Clone()
	res.CompletedAt = at
	return res, nil
}

// Fail marks a non-terminal execution FAILED and records the error message
func (s *StepExecution) Fail(msg string, at time.Time) (*StepExecution, error) {
	res, err := s.moveStatus(StepFailed, at)
	if err != nil {
		return nil, err
	}
	res.Error = msg
	res.CompletedAt = at
	return res, nil
}

// Timeout marks a RUNNING execution TIMEOUT
func (s *StepExecution) Timeout(at time.Time) (*StepExecution, error) {
	res, err := s.moveStatus(StepTimedOut, at)
	if err != nil {
		return nil, err
	}
	res.Error = "step execution timed out"
	res.CompletedAt = at
	return res, nil
}

// Skip marks a non-terminal execution SKIPPED. Operator override; no
// precondition beyond the execution not having finished
func (s *StepExecution) Skip(at time.Time) (*StepExecution, error) {
	res, err := s.moveStatus(StepSkipped, at)
	if err != nil {
		return nil, err
	}
	res.CompletedAt = at
	return res, nil
}

// Retry produces a fresh PENDING execution for the same step with an
// incremented attempt count
func (s *StepExecution) Retry(at time.Time) *StepExecution {
	res := *s
	res.ID = NewID[ExecutionID]()
	res.Status = StepPending
	res.AgentID = ""
	res.Output = nil
	res.Error = ""
	res.AttemptCount = s.AttemptCount + 1
	res.CreatedAt = at
	res.UpdatedAt = at
	res.StartedAt = time.Time{}
	res.CompletedAt = time.Time{}
	return &res
}

func (s *StepExecution) moveStatus(
	to StepStatus, at time.Time,
) (*StepExecution, error) {
	if !StepTransitions.CanTransition(s.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s",
			ErrIllegalTransition, s.Status, to)
	}
	res := *s
	res.Status = to
	res.UpdatedAt = at
	return &res, nil
}
