package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type (
	// DefinitionID is a unique identifier for a workflow definition
	DefinitionID string

	// TemplateID is a unique identifier for a workflow template
	TemplateID string

	// InstanceID is a unique identifier for a workflow instance
	InstanceID string

	// StepID identifies a step within a workflow definition
	StepID string

	// TransitionID identifies a transition within a workflow definition
	TransitionID string

	// ExecutionID is a unique identifier for a step execution record
	ExecutionID string

	// ContextID is a unique identifier for an execution context
	ContextID string

	// TeamID identifies a team in the external collaboration subsystem
	TeamID string

	// AgentID identifies an agent in the external collaboration subsystem
	AgentID string
)

// InvalidIDChars matches characters not permitted in workflow and step IDs.
// Valid characters are: letters, digits, underscore, dot, hyphen, plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// NewID generates a fresh random identifier of the requested type
func NewID[T ~string]() T {
	return T(uuid.NewString())
}

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
