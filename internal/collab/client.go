package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

type (
	// HTTPCollaborator talks to the collaboration service over its REST API
	HTTPCollaborator struct {
		httpClient *http.Client
		baseURL    string
	}

	selectAgentRequest struct {
		Role         string   `json:"role"`
		Requirements api.Data `json:"requirements,omitempty"`
	}

	selectAgentResponse struct {
		AgentID api.AgentID `json:"agent_id"`
	}

	createTeamRequest struct {
		Name     string        `json:"name"`
		Members  []api.AgentID `json:"members"`
		Metadata api.Data      `json:"metadata,omitempty"`
	}

	createTeamResponse struct {
		TeamID api.TeamID `json:"team_id"`
	}

	negotiateRequest struct {
		TeamID       api.TeamID      `json:"team_id"`
		ExecutionID  api.ExecutionID `json:"step_execution_id"`
		Requirements api.Data        `json:"requirements,omitempty"`
	}

	negotiateResponse struct {
		Granted bool   `json:"granted"`
		Reason  string `json:"reason,omitempty"`
	}

	broadcastRequest struct {
		TeamID       api.TeamID `json:"team_id"`
		Notification api.Data   `json:"notification"`
	}

	sharedContextDoc struct {
		Data api.Data `json:"data"`
	}
)

// ErrCollabUnavailable is returned when the collaboration service responds
// with an unexpected HTTP status
var ErrCollabUnavailable = errors.New("collaboration service error")

var _ Collaborator = (*HTTPCollaborator)(nil)

// NewHTTPCollaborator creates a collaboration service client for the given
// base URL
func NewHTTPCollaborator(
	baseURL string, timeout time.Duration,
) *HTTPCollaborator {
	return &HTTPCollaborator{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// SelectAgent asks the collaboration service for the agent most suited to
// take the given role under the capability requirements
func (c *HTTPCollaborator) SelectAgent(
	ctx context.Context, role string, requirements api.Data,
) (api.AgentID, error) {
	var res selectAgentResponse
	status, err := c.post(
		ctx, "/api/v1/agents/select",
		selectAgentRequest{Role: role, Requirements: requirements}, &res,
	)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrNoAgentAvailable, role)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrCollabUnavailable, status)
	}
	return res.AgentID, nil
}

// CreateTeam registers a named team of agents with the collaboration service
func (c *HTTPCollaborator) CreateTeam(
	ctx context.Context, name string,
	members []api.AgentID, metadata api.Data,
) (api.TeamID, error) {
	var res createTeamResponse
	status, err := c.post(
		ctx, "/api/v1/teams",
		createTeamRequest{Name: name, Members: members, Metadata: metadata},
		&res,
	)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("%w: HTTP %d", ErrCollabUnavailable, status)
	}
	return res.TeamID, nil
}

// NegotiateResources requests the resources a step execution needs on
// behalf of a team. A declined negotiation yields ErrNegotiationFailed with
// the service's reason
func (c *HTTPCollaborator) NegotiateResources(
	ctx context.Context, team api.TeamID,
	exec api.ExecutionID, requirements api.Data,
) error {
	req := negotiateRequest{
		TeamID:       team,
		ExecutionID:  exec,
		Requirements: requirements,
	}
	var res negotiateResponse
	status, err := c.post(ctx, "/api/v1/negotiations", req, &res)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrCollabUnavailable, status)
	}
	if !res.Granted {
		if res.Reason == "" {
			return ErrNegotiationFailed
		}
		return fmt.Errorf("%w: %s", ErrNegotiationFailed, res.Reason)
	}
	return nil
}

// Fetch retrieves the shared context view for a team. An unknown team yields
// an empty view
func (c *HTTPCollaborator) Fetch(
	ctx context.Context, team api.TeamID,
) (api.Data, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.contextURL(team), nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return api.Data{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"%w: HTTP %d", ErrCollabUnavailable, resp.StatusCode,
		)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var doc sharedContextDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc.Data == nil {
		return api.Data{}, nil
	}
	return doc.Data, nil
}

// Store publishes the merged context view for a team
func (c *HTTPCollaborator) Store(
	ctx context.Context, team api.TeamID, data api.Data,
) error {
	body, err := json.Marshal(sharedContextDoc{Data: data})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut, c.contextURL(team), bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf(
			"%w: HTTP %d", ErrCollabUnavailable, resp.StatusCode,
		)
	}
	return nil
}

// Broadcast pushes a notification payload to every agent on a team
func (c *HTTPCollaborator) Broadcast(
	ctx context.Context, team api.TeamID, notification api.Data,
) error {
	req := broadcastRequest{TeamID: team, Notification: notification}
	status, err := c.post(ctx, "/api/v1/notifications", req, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusAccepted &&
		status != http.StatusNoContent {
		return fmt.Errorf("%w: HTTP %d", ErrCollabUnavailable, status)
	}
	return nil
}

func (c *HTTPCollaborator) contextURL(team api.TeamID) string {
	return c.baseURL + "/api/v1/context/" + url.PathEscape(string(team))
}

func (c *HTTPCollaborator) post(
	ctx context.Context, path string, payload, result any,
) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body),
	)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if result != nil && len(respBody) > 0 &&
		resp.StatusCode >= http.StatusOK &&
		resp.StatusCode < http.StatusMultipleChoices {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
