package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

const defaultPageSize = 50

func (s *Server) listWorkflows(c *gin.Context) {
	offset := intQuery(c, "offset", 0)
	limit := intQuery(c, "limit", defaultPageSize)
	reqCtx := c.Request.Context()

	var (
		instances []*api.WorkflowInstance
		err       error
	)
	switch {
	case c.Query("status") != "":
		status := api.WorkflowStatus(c.Query("status"))
		instances, err = s.store.ListInstancesByStatus(
			reqCtx, status, offset, limit,
		)
	case c.Query("created_by") != "":
		instances, err = s.store.ListInstancesByCreator(
			reqCtx, c.Query("created_by"), offset, limit,
		)
	case c.Query("definition_id") != "":
		defID := api.DefinitionID(c.Query("definition_id"))
		instances, err = s.store.ListInstancesByDefinition(
			reqCtx, defID, offset, limit,
		)
	default:
		instances, err = s.store.ListInstances(reqCtx, offset, limit)
	}
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.InstanceListResponse{
		Instances: instances,
		Count:     len(instances),
		Offset:    offset,
	})
}

func (s *Server) createWorkflow(c *gin.Context) {
	var req api.StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}
	if req.DefinitionID == "" {
		abortBadRequest(c, fmt.Errorf(
			"%w: definition_id is required", ErrInvalidJSON,
		))
		return
	}

	create := s.engine.CreateInstance
	if req.Start {
		create = s.engine.LaunchWorkflow
	}
	inst, err := create(
		c.Request.Context(), req.DefinitionID, req.Name,
		req.UserID, req.Context, req.Priority,
	)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inst)
}

func (s *Server) getWorkflow(c *gin.Context) {
	id := api.InstanceID(c.Param("instanceID"))
	inst, err := s.engine.GetInstance(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) deleteWorkflow(c *gin.Context) {
	id := api.InstanceID(c.Param("instanceID"))
	if err := s.store.DeleteInstance(c.Request.Context(), id); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) startWorkflow(c *gin.Context) {
	s.transitionWorkflow(c, s.engine.StartWorkflow)
}

func (s *Server) pauseWorkflow(c *gin.Context) {
	s.transitionWorkflow(c, s.engine.PauseWorkflow)
}

func (s *Server) resumeWorkflow(c *gin.Context) {
	s.transitionWorkflow(c, s.engine.ResumeWorkflow)
}

func (s *Server) cancelWorkflow(c *gin.Context) {
	s.transitionWorkflow(c, s.engine.CancelWorkflow)
}

func (s *Server) failWorkflow(c *gin.Context) {
	var req api.FailWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	id := api.InstanceID(c.Param("instanceID"))
	inst, err := s.engine.FailWorkflow(c.Request.Context(), id, req.Error)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) recordDecision(c *gin.Context) {
	var req api.RecordDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	inst, err := s.engine.RecordDecision(
		c.Request.Context(),
		api.InstanceID(c.Param("instanceID")),
		api.StepID(c.Param("stepID")),
		req.TransitionID,
	)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) getContext(c *gin.Context) {
	id := api.InstanceID(c.Param("instanceID"))
	ec, err := s.engine.GetContext(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec)
}

func (s *Server) updateContext(c *gin.Context) {
	var req api.UpdateContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}
	if len(req.Updates) == 0 {
		abortBadRequest(c, fmt.Errorf(
			"%w: updates must not be empty", ErrInvalidJSON,
		))
		return
	}

	id := api.InstanceID(c.Param("instanceID"))
	ec, err := s.engine.UpdateContext(c.Request.Context(), id, req.Updates)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec)
}

func (s *Server) syncContext(c *gin.Context) {
	id := api.InstanceID(c.Param("instanceID"))
	ec, err := s.engine.SynchronizeContext(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec)
}

func (s *Server) transitionWorkflow(
	c *gin.Context,
	fn func(ctx context.Context, id api.InstanceID) (
		*api.WorkflowInstance, error,
	),
) {
	id := api.InstanceID(c.Param("instanceID"))
	inst, err := fn(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
