package api

import (
	"errors"
	"fmt"
	"time"
)

type (
	// StepType categorizes a step within a workflow definition
	StepType string

	// WorkflowStep is a single node in a workflow definition graph
	WorkflowStep struct {
		ID             StepID   `json:"id"`
		Name           string   `json:"name"`
		Description    string   `json:"description,omitempty"`
		Type           StepType `json:"type"`
		AgentRole      string   `json:"agent_role,omitempty"`
		TimeoutSeconds int64    `json:"timeout_seconds,omitempty"`
		Metadata       Metadata `json:"metadata,omitempty"`
	}

	// WorkflowDefinition is an immutable-per-version graph of steps and
	// transitions that workflow instances are started from
	WorkflowDefinition struct {
		ID          DefinitionID          `json:"id"`
		Name        string                `json:"name"`
		Description string                `json:"description,omitempty"`
		Version     int                   `json:"version"`
		Steps       []*WorkflowStep       `json:"steps"`
		Transitions []*WorkflowTransition `json:"transitions,omitempty"`
		Metadata    Metadata              `json:"metadata,omitempty"`
		Active      bool                  `json:"active"`
		Template    bool                  `json:"template,omitempty"`
		CreatedAt   time.Time             `json:"created_at,omitzero"`
		UpdatedAt   time.Time             `json:"updated_at,omitzero"`
		CreatedBy   string                `json:"created_by,omitempty"`
		UpdatedBy   string                `json:"updated_by,omitempty"`
	}
)

const (
	StepTypeStart    StepType = "START"
	StepTypeTask     StepType = "TASK"
	StepTypeDecision StepType = "DECISION"
	StepTypeEnd      StepType = "END"
)

// DefaultStepTimeout is applied to steps that declare no timeout
const DefaultStepTimeout = 300 * time.Second

var (
	ErrNoSteps            = errors.New("definition must contain at least one step")
	ErrNoStartStep        = errors.New("definition has no start step")
	ErrMultipleStartSteps = errors.New("definition has multiple start steps")
	ErrDuplicateStepID    = errors.New("duplicate step id")
	ErrUnknownStepType    = errors.New("unknown step type")
	ErrDanglingTransition = errors.New("transition references unknown step")
)

var stepTypes = map[StepType]struct{}{
	StepTypeStart:    {},
	StepTypeTask:     {},
	StepTypeDecision: {},
	StepTypeEnd:      {},
}

// Timeout returns the step's timeout as a duration, falling back to the
// default when none is declared
func (s *WorkflowStep) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return DefaultStepTimeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Validate checks the structural integrity of a workflow definition: at
// least one step, exactly one START step, unique step IDs, known step types,
// and no transition referencing a step outside the definition
func (d *WorkflowDefinition) Validate() error {
	if len(d.Steps) == 0 {
		return ErrNoSteps
	}

	ids := make(map[StepID]struct{}, len(d.Steps))
	starts := 0
	for _, step := range d.Steps {
		if _, ok := ids[step.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateStepID, step.ID)
		}
		ids[step.ID] = struct{}{}

		if _, ok := stepTypes[step.Type]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStepType, step.Type)
		}
		if step.Type == StepTypeStart {
			starts++
		}
	}

	if starts == 0 {
		return ErrNoStartStep
	}
	if starts > 1 {
		return ErrMultipleStartSteps
	}

	for _, tr := range d.Transitions {
		if _, ok := ids[tr.FromStepID]; !ok {
			return fmt.Errorf("%w: %s -> %s (from)",
				ErrDanglingTransition, tr.FromStepID, tr.ToStepID)
		}
		if _, ok := ids[tr.ToStepID]; !ok {
			return fmt.Errorf("%w: %s -> %s (to)",
				ErrDanglingTransition, tr.FromStepID, tr.ToStepID)
		}
	}

	return nil
}

// GetStep returns the step with the given ID, or nil if not present
func (d *WorkflowDefinition) GetStep(id StepID) *WorkflowStep {
	for _, step := range d.Steps {
		if step.ID == id {
			return step
		}
	}
	return nil
}

// StartStep returns the single START-typed step of the definition, or nil
// if the definition has none
func (d *WorkflowDefinition) StartStep() *WorkflowStep {
	for _, step := range d.Steps {
		if step.Type == StepTypeStart {
			return step
		}
	}
	return nil
}

// TransitionsFrom returns the outgoing transitions of the given step in
// evaluation order: priority descending, transition ID ascending on ties
func (d *WorkflowDefinition) TransitionsFrom(id StepID) []*WorkflowTransition {
	var out []*WorkflowTransition
	for _, tr := range d.Transitions {
		if tr.FromStepID == id {
			out = append(out, tr)
		}
	}
	SortTransitions(out)
	return out
}
