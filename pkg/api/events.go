package api

import "time"

type (
	// EventType identifies a workflow lifecycle event
	EventType string

	// Event is a workflow lifecycle notification published on the internal
	// event bus and broadcast to interested agents and websocket clients
	Event struct {
		Type       EventType   `json:"type"`
		InstanceID InstanceID  `json:"instance_id,omitempty"`
		StepID     StepID      `json:"step_id,omitempty"`
		AgentID    AgentID     `json:"agent_id,omitempty"`
		Data       Data        `json:"data,omitempty"`
		Time       time.Time   `json:"time"`
	}
)

const (
	EventWorkflowStarted   EventType = "workflow.started"
	EventWorkflowPaused    EventType = "workflow.paused"
	EventWorkflowResumed   EventType = "workflow.resumed"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowFailed    EventType = "workflow.failed"
	EventWorkflowCancelled EventType = "workflow.cancelled"
	EventStepCreated       EventType = "step.created"
	EventStepAssigned      EventType = "step.assigned"
	EventStepStarted       EventType = "step.started"
	EventStepCompleted     EventType = "step.completed"
	EventStepFailed        EventType = "step.failed"
	EventStepSkipped       EventType = "step.skipped"
	EventStepTimedOut      EventType = "step.timed_out"
	EventContextUpdated    EventType = "context.updated"
	EventContextSynced     EventType = "context.synced"
	EventDecisionRecorded  EventType = "decision.recorded"
)
