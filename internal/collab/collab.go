// Package collab integrates the workflow engine with the collaboration
// service that manages agents, teams, resource negotiation, and shared
// context. The engine talks to the service through the Collaborator
// interface; an HTTP client and an in-process fallback are provided.
package collab

import (
	"context"
	"errors"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

type (
	// TeamFormation selects agents for roles and assembles them into teams.
	// Selection weighs the capability requirements of the work the agent is
	// being picked for
	TeamFormation interface {
		SelectAgent(
			ctx context.Context, role string, requirements api.Data,
		) (api.AgentID, error)
		CreateTeam(
			ctx context.Context, name string,
			members []api.AgentID, metadata api.Data,
		) (api.TeamID, error)
	}

	// Negotiation acquires the resources a step execution needs before it
	// can start, on behalf of the workflow's team
	Negotiation interface {
		NegotiateResources(
			ctx context.Context, team api.TeamID,
			exec api.ExecutionID, requirements api.Data,
		) error
	}

	// SharedContext is the collaboration side of context synchronization
	// and agent notification. Fetch returns the team's shared view; Store
	// publishes the merged view back; Broadcast pushes a notification to
	// every agent on the team
	SharedContext interface {
		Fetch(ctx context.Context, team api.TeamID) (api.Data, error)
		Store(ctx context.Context, team api.TeamID, data api.Data) error
		Broadcast(
			ctx context.Context, team api.TeamID, notification api.Data,
		) error
	}

	// Collaborator is the full capability surface of the collaboration
	// service
	Collaborator interface {
		TeamFormation
		Negotiation
		SharedContext
	}
)

var (
	// ErrNoAgentAvailable is returned when no agent can take a role
	ErrNoAgentAvailable = errors.New("no agent available for role")

	// ErrNegotiationFailed is returned when the collaboration service
	// declines the resources a step requested
	ErrNegotiationFailed = errors.New("resource negotiation failed")
)
