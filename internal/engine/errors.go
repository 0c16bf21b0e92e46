package engine

import "errors"

var (
	// ErrInstanceNotFound is returned when an operation references an
	// unknown workflow instance
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrDefinitionNotFound is returned when an operation references an
	// unknown workflow definition
	ErrDefinitionNotFound = errors.New("workflow definition not found")

	// ErrExecutionNotFound is returned when an operation references an
	// unknown step execution
	ErrExecutionNotFound = errors.New("step execution not found")

	// ErrTemplateNotFound is returned when an operation references an
	// unknown workflow template
	ErrTemplateNotFound = errors.New("workflow template not found")

	// ErrDefinitionInactive is returned when starting a workflow from a
	// definition that has been deactivated
	ErrDefinitionInactive = errors.New("workflow definition is inactive")

	// ErrNoEligibleTransition is produced internally when a completed step
	// has outgoing transitions but none of them is eligible. The workflow
	// fails rather than stall silently
	ErrNoEligibleTransition = errors.New("no eligible transition")

	// ErrUnknownTransition is returned when a decision references a
	// transition that does not leave the decided step
	ErrUnknownTransition = errors.New("unknown transition for step")

	// ErrNotDecision is returned when a decision is recorded against a
	// transition that does not take decision input
	ErrNotDecision = errors.New("transition does not take a decision")

	// ErrConflictRetryBudget is returned when an instance write kept losing
	// optimistic concurrency races and the retry budget ran out
	ErrConflictRetryBudget = errors.New("conflict retries exhausted")
)
