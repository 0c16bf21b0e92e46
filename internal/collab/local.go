package collab

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// Local is an in-process collaborator used when no collaboration service is
// configured. Agents are registered per role and selected round-robin, teams
// live in memory, negotiation always grants, and the shared context view is
// a process-local map keyed by team
type Local struct {
	mu            sync.Mutex
	agents        map[string][]api.AgentID
	cursor        map[string]int
	teams         map[api.TeamID][]api.AgentID
	contexts      map[api.TeamID]api.Data
	notifications []api.Data
}

var _ Collaborator = (*Local)(nil)

// NewLocal creates an empty in-process collaborator
func NewLocal() *Local {
	return &Local{
		agents:   map[string][]api.AgentID{},
		cursor:   map[string]int{},
		teams:    map[api.TeamID][]api.AgentID{},
		contexts: map[api.TeamID]api.Data{},
	}
}

// RegisterAgent makes an agent selectable for a role
func (l *Local) RegisterAgent(role string, agent api.AgentID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.agents[role] = append(l.agents[role], agent)
}

// SelectAgent returns the next agent registered for the role, round-robin.
// Capability requirements are not consulted locally
func (l *Local) SelectAgent(
	_ context.Context, role string, _ api.Data,
) (api.AgentID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	agents := l.agents[role]
	if len(agents) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoAgentAvailable, role)
	}
	agent := agents[l.cursor[role]%len(agents)]
	l.cursor[role]++
	return agent, nil
}

// CreateTeam records a team of agents in memory
func (l *Local) CreateTeam(
	_ context.Context, _ string, members []api.AgentID, _ api.Data,
) (api.TeamID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := api.NewID[api.TeamID]()
	l.teams[id] = append([]api.AgentID{}, members...)
	return id, nil
}

// TeamMembers returns the agents belonging to a team
func (l *Local) TeamMembers(team api.TeamID) []api.AgentID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]api.AgentID{}, l.teams[team]...)
}

// NegotiateResources grants every request
func (l *Local) NegotiateResources(
	_ context.Context, _ api.TeamID, _ api.ExecutionID, _ api.Data,
) error {
	return nil
}

// Fetch returns the shared view for a team, empty if none exists
func (l *Local) Fetch(
	_ context.Context, team api.TeamID,
) (api.Data, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.contexts[team]
	if !ok {
		return api.Data{}, nil
	}
	return maps.Clone(data), nil
}

// Store replaces the shared view for a team
func (l *Local) Store(
	_ context.Context, team api.TeamID, data api.Data,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contexts[team] = maps.Clone(data)
	return nil
}

// Broadcast records the notification so tests can observe delivery
func (l *Local) Broadcast(
	_ context.Context, _ api.TeamID, notification api.Data,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifications = append(l.notifications, maps.Clone(notification))
	return nil
}

// Notifications returns every notification broadcast so far
func (l *Local) Notifications() []api.Data {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]api.Data{}, l.notifications...)
}
