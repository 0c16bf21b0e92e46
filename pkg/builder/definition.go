package builder

import (
	"slices"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// Definition accumulates steps and transitions toward a workflow definition
type Definition struct {
	name        string
	description string
	metadata    api.Metadata
	steps       []*api.WorkflowStep
	transitions []*api.WorkflowTransition
}

// NewDefinition creates a definition builder with the given workflow name
func NewDefinition(name string) *Definition {
	return &Definition{
		name:     name,
		metadata: api.Metadata{},
	}
}

// WithDescription sets the definition's description
func (d *Definition) WithDescription(description string) *Definition {
	res := *d
	res.description = description
	return &res
}

// WithMetadata adds a metadata annotation to the definition
func (d *Definition) WithMetadata(key string, value any) *Definition {
	res := *d
	res.metadata = d.metadata.Clone()
	res.metadata[key] = value
	return &res
}

// AddStep appends a built step to the definition
func (d *Definition) AddStep(step *Step) *Definition {
	res := *d
	res.steps = append(slices.Clone(d.steps), step.build())
	return &res
}

// Start appends a START step with the given ID
func (d *Definition) Start(id api.StepID) *Definition {
	return d.AddStep(NewStep(id).OfType(api.StepTypeStart))
}

// Task appends a TASK step with the given ID
func (d *Definition) Task(id api.StepID) *Definition {
	return d.AddStep(NewStep(id).OfType(api.StepTypeTask))
}

// Decision appends a DECISION step with the given ID
func (d *Definition) Decision(id api.StepID) *Definition {
	return d.AddStep(NewStep(id).OfType(api.StepTypeDecision))
}

// End appends an END step with the given ID
func (d *Definition) End(id api.StepID) *Definition {
	return d.AddStep(NewStep(id).OfType(api.StepTypeEnd))
}

// AddTransition appends a built transition to the definition
func (d *Definition) AddTransition(tr *Transition) *Definition {
	res := *d
	res.transitions = append(slices.Clone(d.transitions), tr.build())
	return &res
}

// Connect appends an automatic transition between two steps
func (d *Definition) Connect(from, to api.StepID) *Definition {
	return d.AddTransition(NewTransition(from, to))
}

// Build assembles and validates the workflow definition
func (d *Definition) Build() (*api.WorkflowDefinition, error) {
	def := &api.WorkflowDefinition{
		ID:          api.NewID[api.DefinitionID](),
		Name:        d.name,
		Description: d.description,
		Version:     1,
		Steps:       slices.Clone(d.steps),
		Transitions: slices.Clone(d.transitions),
		Metadata:    d.metadata.Clone(),
		Active:      true,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// MustBuild assembles the definition and panics on validation failure. Only
// for use with statically known graphs
func (d *Definition) MustBuild() *api.WorkflowDefinition {
	def, err := d.Build()
	if err != nil {
		panic(err)
	}
	return def
}
