package builder

import (
	"time"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// Step accumulates the attributes of a workflow step
type Step struct {
	step api.WorkflowStep
}

// NewStep creates a step builder. Steps default to the TASK type and take
// their name from the ID until one is set. The ID is sanitized
func NewStep(id api.StepID) *Step {
	id = api.SanitizeID(id)
	return &Step{
		step: api.WorkflowStep{
			ID:   id,
			Name: string(id),
			Type: api.StepTypeTask,
		},
	}
}

// OfType sets the step type
func (s *Step) OfType(t api.StepType) *Step {
	res := *s
	res.step.Type = t
	return &res
}

// WithName sets the step's display name
func (s *Step) WithName(name string) *Step {
	res := *s
	res.step.Name = name
	return &res
}

// WithDescription sets the step's description
func (s *Step) WithDescription(description string) *Step {
	res := *s
	res.step.Description = description
	return &res
}

// WithAgentRole sets the agent role the step is assigned to
func (s *Step) WithAgentRole(role string) *Step {
	res := *s
	res.step.AgentRole = role
	return &res
}

// WithTimeout sets the step's execution deadline
func (s *Step) WithTimeout(timeout time.Duration) *Step {
	res := *s
	res.step.TimeoutSeconds = int64(timeout / time.Second)
	return &res
}

// WithMetadata adds a metadata annotation to the step
func (s *Step) WithMetadata(key string, value any) *Step {
	res := *s
	res.step.Metadata = s.step.Metadata.Clone()
	res.step.Metadata[key] = value
	return &res
}

func (s *Step) build() *api.WorkflowStep {
	cp := s.step
	cp.Metadata = s.step.Metadata.Clone()
	return &cp
}
