package api

import (
	"errors"
	"time"
)

// WorkflowTemplate stores a canonical workflow definition that new
// definitions can be instantiated from
type WorkflowTemplate struct {
	ID          TemplateID          `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	Definition  *WorkflowDefinition `json:"definition"`
	Public      bool                `json:"public"`
	Metadata    Metadata            `json:"metadata,omitempty"`
	CreatedAt   time.Time           `json:"created_at,omitzero"`
	UpdatedAt   time.Time           `json:"updated_at,omitzero"`
	CreatedBy   string              `json:"created_by,omitempty"`
	UpdatedBy   string              `json:"updated_by,omitempty"`
}

// ErrNoDefinition is returned when a template carries no canonical definition
var ErrNoDefinition = errors.New("template has no definition")

// Validate checks that the template carries a structurally valid definition
func (t *WorkflowTemplate) Validate() error {
	if t.Definition == nil {
		return ErrNoDefinition
	}
	return t.Definition.Validate()
}

// NewDefinition instantiates a fresh workflow definition from the template's
// canonical definition: the graph is copied, a new identity is assigned, and
// audit fields are cleared for the new author to fill
func (t *WorkflowTemplate) NewDefinition(
	name, description string, at time.Time,
) *WorkflowDefinition {
	src := t.Definition

	steps := make([]*WorkflowStep, len(src.Steps))
	for i, s := range src.Steps {
		cp := *s
		cp.Metadata = s.Metadata.Clone()
		steps[i] = &cp
	}

	transitions := make([]*WorkflowTransition, len(src.Transitions))
	for i, tr := range src.Transitions {
		cp := *tr
		cp.Metadata = tr.Metadata.Clone()
		transitions[i] = &cp
	}

	return &WorkflowDefinition{
		ID:          NewID[DefinitionID](),
		Name:        name,
		Description: description,
		Version:     1,
		Steps:       steps,
		Transitions: transitions,
		Metadata:    src.Metadata.Clone(),
		Active:      true,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}
