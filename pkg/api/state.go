package api

import "github.com/kimhons/lumina-ai-sub002/pkg/util"

// StateTransitions maps states to their set of valid next states
type StateTransitions[T comparable] map[T]util.Set[T]

// CanTransition returns whether transition from one state to another is valid
func (st StateTransitions[T]) CanTransition(from, to T) bool {
	allowed, ok := st[from]
	if !ok {
		return false
	}
	return allowed.Contains(to)
}

// IsTerminal returns true if the state has no valid transitions
func (st StateTransitions[T]) IsTerminal(state T) bool {
	allowed, ok := st[state]
	return ok && allowed.IsEmpty()
}

// InstanceTransitions is the valid status graph for workflow instances
var InstanceTransitions = StateTransitions[WorkflowStatus]{
	WorkflowCreated: util.SetOf(WorkflowRunning, WorkflowCancelled,
		WorkflowFailed),
	WorkflowRunning: util.SetOf(WorkflowPaused, WorkflowCompleted,
		WorkflowFailed, WorkflowCancelled),
	WorkflowPaused: util.SetOf(WorkflowRunning, WorkflowFailed,
		WorkflowCancelled),
	WorkflowCompleted: util.Set[WorkflowStatus]{},
	WorkflowFailed:    util.Set[WorkflowStatus]{},
	WorkflowCancelled: util.Set[WorkflowStatus]{},
}

// StepTransitions is the valid status graph for step executions
var StepTransitions = StateTransitions[StepStatus]{
	StepPending: util.SetOf(StepAssigned, StepRunning, StepFailed,
		StepSkipped),
	StepAssigned: util.SetOf(StepRunning, StepFailed, StepSkipped),
	StepRunning: util.SetOf(StepCompleted, StepFailed, StepTimedOut,
		StepSkipped),
	StepCompleted: util.Set[StepStatus]{},
	StepFailed:    util.Set[StepStatus]{},
	StepSkipped:   util.Set[StepStatus]{},
	StepTimedOut:  util.Set[StepStatus]{},
}
