package api

import "sort"

type (
	// TransitionType categorizes how a transition becomes eligible
	TransitionType string

	// WorkflowTransition is a directed, typed edge between two steps of a
	// definition, optionally conditioned on execution context data
	WorkflowTransition struct {
		ID         TransitionID   `json:"id"`
		Name       string         `json:"name,omitempty"`
		FromStepID StepID         `json:"from_step_id"`
		ToStepID   StepID         `json:"to_step_id"`
		Type       TransitionType `json:"type"`
		Condition  string         `json:"condition,omitempty"`
		Priority   int            `json:"priority,omitempty"`
		Metadata   Metadata       `json:"metadata,omitempty"`
	}
)

const (
	TransitionAutomatic     TransitionType = "AUTOMATIC"
	TransitionConditional   TransitionType = "CONDITIONAL"
	TransitionUserDecision  TransitionType = "USER_DECISION"
	TransitionAgentDecision TransitionType = "AGENT_DECISION"
	TransitionError         TransitionType = "ERROR"
	TransitionTimeout       TransitionType = "TIMEOUT"
)

// IsDecision returns true for transitions that require an external decision
// input before they become eligible
func (t *WorkflowTransition) IsDecision() bool {
	return t.Type == TransitionUserDecision || t.Type == TransitionAgentDecision
}

// SortTransitions orders transitions by priority descending, breaking ties
// by transition ID in lexical order
func SortTransitions(trs []*WorkflowTransition) {
	sort.SliceStable(trs, func(i, j int) bool {
		if trs[i].Priority != trs[j].Priority {
			return trs[i].Priority > trs[j].Priority
		}
		return trs[i].ID < trs[j].ID
	})
}
