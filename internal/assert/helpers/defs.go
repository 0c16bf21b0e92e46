package helpers

import "github.com/kimhons/lumina-ai-sub002/pkg/api"

// LinearDefinition builds a start -> work -> end graph wired with automatic
// transitions
func LinearDefinition() *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    "Linear",
		Version: 1,
		Active:  true,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "work", Name: "Work", Type: api.StepTypeTask,
				AgentRole: "worker"},
			{ID: "end", Name: "End", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{
			{ID: "t-start", FromStepID: "start", ToStepID: "work",
				Type: api.TransitionAutomatic},
			{ID: "t-work", FromStepID: "work", ToStepID: "end",
				Type: api.TransitionAutomatic},
		},
	}
}

// ConditionalDefinition builds a review graph where approval is decided by
// a context condition: approved work completes, everything else loops
// through rework
func ConditionalDefinition() *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    "Review",
		Version: 1,
		Active:  true,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "review", Name: "Review", Type: api.StepTypeTask,
				AgentRole: "reviewer"},
			{ID: "rework", Name: "Rework", Type: api.StepTypeTask,
				AgentRole: "worker"},
			{ID: "end", Name: "End", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{
			{ID: "t-start", FromStepID: "start", ToStepID: "review",
				Type: api.TransitionAutomatic},
			{ID: "t-approve", FromStepID: "review", ToStepID: "end",
				Type: api.TransitionConditional, Condition: "approved",
				Priority: 10},
			{ID: "t-rework", FromStepID: "review", ToStepID: "rework",
				Type: api.TransitionAutomatic},
			{ID: "t-resubmit", FromStepID: "rework", ToStepID: "review",
				Type: api.TransitionAutomatic},
		},
	}
}

// DecisionDefinition builds a graph where a user decision routes the
// workflow to acceptance or rejection
func DecisionDefinition() *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    "Approval",
		Version: 1,
		Active:  true,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "gate", Name: "Gate", Type: api.StepTypeDecision},
			{ID: "accepted", Name: "Accepted", Type: api.StepTypeTask},
			{ID: "end", Name: "End", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{
			{ID: "t-start", FromStepID: "start", ToStepID: "gate",
				Type: api.TransitionAutomatic},
			{ID: "t-accept", FromStepID: "gate", ToStepID: "accepted",
				Type: api.TransitionUserDecision},
			{ID: "t-reject", FromStepID: "gate", ToStepID: "end",
				Type: api.TransitionUserDecision},
			{ID: "t-done", FromStepID: "accepted", ToStepID: "end",
				Type: api.TransitionAutomatic},
		},
	}
}

// ErrorPathDefinition builds a graph with a compensation path taken when
// the work step fails
func ErrorPathDefinition() *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    "Compensated",
		Version: 1,
		Active:  true,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "work", Name: "Work", Type: api.StepTypeTask},
			{ID: "compensate", Name: "Compensate", Type: api.StepTypeTask},
			{ID: "end", Name: "End", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{
			{ID: "t-start", FromStepID: "start", ToStepID: "work",
				Type: api.TransitionAutomatic},
			{ID: "t-done", FromStepID: "work", ToStepID: "end",
				Type: api.TransitionAutomatic},
			{ID: "t-error", FromStepID: "work", ToStepID: "compensate",
				Type: api.TransitionError},
			{ID: "t-compensated", FromStepID: "compensate", ToStepID: "end",
				Type: api.TransitionAutomatic},
		},
	}
}

// TimeoutDefinition builds a graph where an overdue work step escalates
// through a TIMEOUT transition
func TimeoutDefinition(timeoutSeconds int64) *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		ID:      api.NewID[api.DefinitionID](),
		Name:    "Escalating",
		Version: 1,
		Active:  true,
		Steps: []*api.WorkflowStep{
			{ID: "start", Name: "Start", Type: api.StepTypeStart},
			{ID: "work", Name: "Work", Type: api.StepTypeTask,
				TimeoutSeconds: timeoutSeconds},
			{ID: "escalate", Name: "Escalate", Type: api.StepTypeTask},
			{ID: "end", Name: "End", Type: api.StepTypeEnd},
		},
		Transitions: []*api.WorkflowTransition{
			{ID: "t-start", FromStepID: "start", ToStepID: "work",
				Type: api.TransitionAutomatic},
			{ID: "t-done", FromStepID: "work", ToStepID: "end",
				Type: api.TransitionAutomatic},
			{ID: "t-late", FromStepID: "work", ToStepID: "escalate",
				Type: api.TransitionTimeout},
			{ID: "t-escalated", FromStepID: "escalate", ToStepID: "end",
				Type: api.TransitionAutomatic},
		},
	}
}
