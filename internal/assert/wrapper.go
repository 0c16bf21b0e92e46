// Package assert wraps testify with workflow-specific assertion helpers.
package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/internal/config"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// Wrapper wraps testify assertions with workflow-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
	}
}

// DefinitionValid asserts that a workflow definition passes validation
func (w *Wrapper) DefinitionValid(def *api.WorkflowDefinition) {
	w.Helper()
	w.NoError(def.Validate())
	w.NotNil(def.StartStep())
}

// DefinitionInvalid asserts that validation fails with the expected error
func (w *Wrapper) DefinitionInvalid(
	def *api.WorkflowDefinition, expected error,
) {
	w.Helper()
	w.ErrorIs(def.Validate(), expected)
}

// InstanceStatus asserts the status of a workflow instance
func (w *Wrapper) InstanceStatus(
	inst *api.WorkflowInstance, expected api.WorkflowStatus,
) {
	w.Helper()
	w.Equal(expected, inst.Status)
}

// ExecutionStatus asserts the status of a step execution
func (w *Wrapper) ExecutionStatus(
	exec *api.StepExecution, expected api.StepStatus,
) {
	w.Helper()
	w.Equal(expected, exec.Status)
}

// ContextVersion asserts the version of an execution context
func (w *Wrapper) ContextVersion(ec *api.ExecutionContext, expected int64) {
	w.Helper()
	w.Equal(expected, ec.Version)
}

// ContextValue asserts that a context key holds the expected value
func (w *Wrapper) ContextValue(
	ec *api.ExecutionContext, key string, expected any,
) {
	w.Helper()
	val, ok := ec.Get(key)
	w.True(ok, "context should have key: %s", key)
	w.Equal(expected, val)
}

// ConfigValid asserts that a configuration passes validation
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= config.MaxTCPPort)
	w.True(cfg.StepTimeout > 0)
}

// ConfigInvalid asserts that configuration validation fails with the
// expected error
func (w *Wrapper) ConfigInvalid(cfg *config.Config, expected error) {
	w.Helper()
	w.ErrorIs(cfg.Validate(), expected)
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
