package builder

import (
	"fmt"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// Transition accumulates the attributes of a workflow transition
type Transition struct {
	tr api.WorkflowTransition
}

// NewTransition creates a transition builder between two steps. Transitions
// default to the AUTOMATIC type with a sanitized derived ID
func NewTransition(from, to api.StepID) *Transition {
	return &Transition{
		tr: api.WorkflowTransition{
			ID: api.SanitizeID(
				api.TransitionID(fmt.Sprintf("%s-to-%s", from, to)),
			),
			FromStepID: from,
			ToStepID:   to,
			Type:       api.TransitionAutomatic,
		},
	}
}

// WithID overrides the derived transition ID
func (t *Transition) WithID(id api.TransitionID) *Transition {
	res := *t
	res.tr.ID = id
	return &res
}

// OfType sets the transition type
func (t *Transition) OfType(tt api.TransitionType) *Transition {
	res := *t
	res.tr.Type = tt
	return &res
}

// When sets a condition and marks the transition CONDITIONAL
func (t *Transition) When(condition string) *Transition {
	res := *t
	res.tr.Type = api.TransitionConditional
	res.tr.Condition = condition
	return &res
}

// OnError marks the transition as the error path
func (t *Transition) OnError() *Transition {
	res := *t
	res.tr.Type = api.TransitionError
	return &res
}

// OnTimeout marks the transition as the timeout path
func (t *Transition) OnTimeout() *Transition {
	res := *t
	res.tr.Type = api.TransitionTimeout
	return &res
}

// OnDecision marks the transition as requiring a user decision
func (t *Transition) OnDecision() *Transition {
	res := *t
	res.tr.Type = api.TransitionUserDecision
	return &res
}

// WithPriority sets the transition's selection priority
func (t *Transition) WithPriority(priority int) *Transition {
	res := *t
	res.tr.Priority = priority
	return &res
}

func (t *Transition) build() *api.WorkflowTransition {
	cp := t.tr
	cp.Metadata = t.tr.Metadata.Clone()
	return &cp
}
