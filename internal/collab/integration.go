package collab

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/kimhons/lumina-ai-sub002/internal/events"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

// Integration bridges workflow execution and the collaboration service. It
// assigns agents to step executions, assembles workflow teams, synchronizes
// execution context with the shared collaboration view, and broadcasts
// lifecycle events to agents
type Integration struct {
	collab Collaborator
	bus    *events.Bus
	logger *slog.Logger
}

// NewIntegration creates a collaboration integration around the given
// collaborator
func NewIntegration(
	c Collaborator, bus *events.Bus, logger *slog.Logger,
) *Integration {
	return &Integration{
		collab: c,
		bus:    bus,
		logger: logger,
	}
}

// AssignStepToAgent selects an agent for the execution's role and binds the
// execution to it. Selection is driven by a capability-requirement map built
// from the execution. Executions without an agent role are returned
// unchanged and stay PENDING
func (i *Integration) AssignStepToAgent(
	ctx context.Context, team api.TeamID,
	exec *api.StepExecution, at time.Time,
) (*api.StepExecution, error) {
	if exec.AgentRole == "" {
		return exec, nil
	}
	agent, err := i.collab.SelectAgent(
		ctx, exec.AgentRole, capabilityRequirements(exec),
	)
	if err != nil {
		i.logger.Warn("Agent selection failed",
			log.InstanceID(exec.InstanceID),
			log.StepID(exec.StepID),
			slog.String("role", exec.AgentRole),
			log.Error(err))
		return nil, err
	}
	assigned, err := exec.Assign(agent, exec.AgentRole, at)
	if err != nil {
		return nil, err
	}
	i.NotifyAgents(ctx, team, &api.Event{
		Type:       api.EventStepAssigned,
		InstanceID: exec.InstanceID,
		StepID:     exec.StepID,
		AgentID:    agent,
		Time:       at,
	})
	return assigned, nil
}

// CreateTeamForWorkflow assembles a team covering every agent role the
// definition requires and registers it with the collaboration service. The
// team is named after the instance and carries the instance's identity as
// metadata
func (i *Integration) CreateTeamForWorkflow(
	ctx context.Context,
	inst *api.WorkflowInstance, def *api.WorkflowDefinition,
) (api.TeamID, error) {
	roles := agentRoles(def)
	members := make([]api.AgentID, 0, len(roles))
	for _, role := range roles {
		agent, err := i.collab.SelectAgent(ctx, role, nil)
		if err != nil {
			// unfilled roles leave their steps pending for a later claim
			i.logger.Warn("No agent for team role",
				log.InstanceID(inst.ID),
				slog.String("role", role),
				log.Error(err))
			continue
		}
		members = append(members, agent)
	}
	team, err := i.collab.CreateTeam(
		ctx, TeamName(inst.Name), members, teamMetadata(inst),
	)
	if err != nil {
		return "", err
	}
	i.logger.Info("Workflow team created",
		log.InstanceID(inst.ID),
		log.TeamID(team),
		slog.Int("members", len(members)))
	return team, nil
}

// TeamName derives the collaboration team name for a workflow instance
func TeamName(workflow string) string {
	return "Workflow-" + workflow + "-Team"
}

// SynchronizeContext merges the team's shared view into the execution
// context and publishes the merged result back to the collaboration service.
// Local values win on conflicting keys; the context version advances by one
func (i *Integration) SynchronizeContext(
	ctx context.Context, team api.TeamID,
	ec *api.ExecutionContext, at time.Time,
) (*api.ExecutionContext, error) {
	remote, err := i.collab.Fetch(ctx, team)
	if err != nil {
		return nil, err
	}
	merged := ec.Merge(remote, at)
	if err := i.collab.Store(ctx, team, merged.ContextData); err != nil {
		return nil, err
	}
	i.NotifyAgents(ctx, team, &api.Event{
		Type:       api.EventContextSynced,
		InstanceID: ec.InstanceID,
		Time:       at,
	})
	return merged, nil
}

// NegotiateResourcesForStep acquires the resources an execution needs before
// it starts, negotiating on behalf of the workflow's team
func (i *Integration) NegotiateResourcesForStep(
	ctx context.Context, team api.TeamID, exec *api.StepExecution,
) error {
	err := i.collab.NegotiateResources(
		ctx, team, exec.ID, resourceRequirements(exec),
	)
	if err != nil {
		i.logger.Warn("Resource negotiation declined",
			log.InstanceID(exec.InstanceID),
			log.StepID(exec.StepID),
			log.TeamID(team),
			log.Error(err))
		return err
	}
	return nil
}

// NotifyAgents publishes a workflow lifecycle event on the in-process bus
// and broadcasts it to the workflow's team through the collaboration
// service. Broadcast failures are logged, never propagated
func (i *Integration) NotifyAgents(
	ctx context.Context, team api.TeamID, ev *api.Event,
) {
	i.bus.Publish(ev)
	if team == "" {
		return
	}
	if err := i.collab.Broadcast(ctx, team, notification(ev)); err != nil {
		i.logger.Warn("Agent notification broadcast failed",
			log.TeamID(team),
			log.InstanceID(ev.InstanceID),
			log.Error(err))
	}
}

// capabilityRequirements builds the requirement map agent selection is
// driven by: the step's identity plus any capability hints carried in the
// execution's metadata
func capabilityRequirements(exec *api.StepExecution) api.Data {
	req := api.Data{
		"step_id":   string(exec.StepID),
		"step_name": exec.StepName,
	}
	if caps, ok := exec.Metadata["required_capabilities"]; ok {
		req["capabilities"] = caps
	}
	if priority, ok := exec.Metadata["priority"]; ok {
		req["priority"] = priority
	}
	return req
}

// resourceRequirements builds the requirement map resource negotiation is
// driven by
func resourceRequirements(exec *api.StepExecution) api.Data {
	req := api.Data{
		"step_id":            string(exec.StepID),
		"step_name":          exec.StepName,
		"agent_role":         exec.AgentRole,
		"estimated_duration": exec.TimeoutSeconds,
	}
	if exec.AgentID != "" {
		req["agent_id"] = string(exec.AgentID)
	}
	if res, ok := exec.Metadata["required_resources"]; ok {
		req["resources"] = res
	}
	if priority, ok := exec.Metadata["priority"]; ok {
		req["priority"] = priority
	}
	return req
}

// teamMetadata describes the workflow instance a team is formed for
func teamMetadata(inst *api.WorkflowInstance) api.Data {
	return api.Data{
		"workflow_instance_id":   string(inst.ID),
		"workflow_definition_id": string(inst.DefinitionID),
		"workflow_name":          inst.Name,
		"created_by":             inst.CreatedBy,
		"priority":               inst.Priority,
	}
}

// notification flattens an event into the payload broadcast to agents
func notification(ev *api.Event) api.Data {
	data := api.Data{
		"workflow_instance_id": string(ev.InstanceID),
		"event_type":           string(ev.Type),
		"event_time":           ev.Time,
	}
	if ev.StepID != "" {
		data["step_id"] = string(ev.StepID)
	}
	if ev.AgentID != "" {
		data["agent_id"] = string(ev.AgentID)
	}
	if len(ev.Data) > 0 {
		data["event_data"] = map[string]any(ev.Data)
	}
	return data
}

func agentRoles(def *api.WorkflowDefinition) []string {
	seen := map[string]struct{}{}
	var res []string
	for _, step := range def.Steps {
		if step.AgentRole == "" {
			continue
		}
		if _, ok := seen[step.AgentRole]; ok {
			continue
		}
		seen[step.AgentRole] = struct{}{}
		res = append(res, step.AgentRole)
	}
	sort.Strings(res)
	return res
}
