package api

type (
	// ErrorResponse is the standard error payload returned by the HTTP API
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// StartWorkflowRequest asks the engine to create an instance from a
	// definition. With Start set the instance launches immediately and is
	// first visible as RUNNING
	StartWorkflowRequest struct {
		DefinitionID DefinitionID `json:"definition_id"`
		Name         string       `json:"name"`
		UserID       string       `json:"user_id,omitempty"`
		Context      Data         `json:"context,omitempty"`
		Priority     int          `json:"priority,omitempty"`
		Start        bool         `json:"start,omitempty"`
	}

	// FailWorkflowRequest carries the error message for a manual failure
	FailWorkflowRequest struct {
		Error string `json:"error"`
	}

	// UpdateContextRequest applies key/value updates to an instance's
	// execution context
	UpdateContextRequest struct {
		Updates Data `json:"updates"`
	}

	// RecordDecisionRequest records an external decision input for a
	// decision-typed transition
	RecordDecisionRequest struct {
		TransitionID TransitionID `json:"transition_id"`
	}

	// CompleteStepRequest reports a step execution finished with output data
	CompleteStepRequest struct {
		Output Data `json:"output,omitempty"`
	}

	// FailStepRequest reports a step execution failed
	FailStepRequest struct {
		Error string `json:"error"`
	}

	// InstantiateTemplateRequest creates a definition from a template
	InstantiateTemplateRequest struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		UserID      string `json:"user_id,omitempty"`
	}

	// InstanceListResponse is a paginated listing of workflow instances
	InstanceListResponse struct {
		Instances []*WorkflowInstance `json:"instances"`
		Count     int                 `json:"count"`
		Offset    int                 `json:"offset"`
	}

	// DefinitionListResponse lists workflow definitions
	DefinitionListResponse struct {
		Definitions []*WorkflowDefinition `json:"definitions"`
		Count       int                   `json:"count"`
	}

	// TemplateListResponse lists workflow templates
	TemplateListResponse struct {
		Templates []*WorkflowTemplate `json:"templates"`
		Count     int                 `json:"count"`
	}

	// ExecutionListResponse lists step executions
	ExecutionListResponse struct {
		Executions []*StepExecution `json:"executions"`
		Count      int              `json:"count"`
	}

	// ClientSubscription narrows the event stream delivered to a websocket
	// client. An empty subscription matches every event
	ClientSubscription struct {
		InstanceID InstanceID  `json:"instance_id,omitempty"`
		EventTypes []EventType `json:"event_types,omitempty"`
	}

	// SubscribeRequest is the websocket message installing a client's event
	// subscription
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// HealthResponse reports service liveness and the state of the backing
	// store connection
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
		Store   string `json:"store"`
	}
)
