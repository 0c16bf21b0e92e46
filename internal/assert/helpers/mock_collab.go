package helpers

import (
	"context"
	"sync"

	"github.com/kimhons/lumina-ai-sub002/internal/collab"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// MockCollab is an in-process collaborator with failure injection for
// engine tests. Selection and shared context behave like collab.Local;
// negotiation can be made to decline specific steps and selection can be
// made to fail for specific roles
type MockCollab struct {
	*collab.Local
	mu            sync.Mutex
	negotiateErrs map[api.StepID]error
	selectErrs    map[string]error
	negotiated    []api.StepID
}

// NewMockCollab creates an empty mock collaborator
func NewMockCollab() *MockCollab {
	return &MockCollab{
		Local:         collab.NewLocal(),
		negotiateErrs: map[api.StepID]error{},
		selectErrs:    map[string]error{},
	}
}

// SetNegotiationError configures negotiation to decline a step
func (m *MockCollab) SetNegotiationError(step api.StepID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.negotiateErrs[step] = err
}

// SetSelectionError configures agent selection to fail for a role
func (m *MockCollab) SetSelectionError(role string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectErrs[role] = err
}

// SelectAgent returns any configured error for the role before falling back
// to round-robin selection
func (m *MockCollab) SelectAgent(
	ctx context.Context, role string, requirements api.Data,
) (api.AgentID, error) {
	m.mu.Lock()
	err, ok := m.selectErrs[role]
	m.mu.Unlock()
	if ok {
		return "", err
	}
	return m.Local.SelectAgent(ctx, role, requirements)
}

// NegotiateResources records the negotiation and returns any configured
// error for the step named in the requirements
func (m *MockCollab) NegotiateResources(
	ctx context.Context, team api.TeamID,
	exec api.ExecutionID, requirements api.Data,
) error {
	step, _ := requirements["step_id"].(string)
	m.mu.Lock()
	m.negotiated = append(m.negotiated, api.StepID(step))
	err, ok := m.negotiateErrs[api.StepID(step)]
	m.mu.Unlock()
	if ok {
		return err
	}
	return m.Local.NegotiateResources(ctx, team, exec, requirements)
}

// Negotiated returns the steps that went through resource negotiation
func (m *MockCollab) Negotiated() []api.StepID {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]api.StepID, len(m.negotiated))
	copy(res, m.negotiated)
	return res
}
