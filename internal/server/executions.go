package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func (s *Server) listExecutions(c *gin.Context) {
	id := api.InstanceID(c.Param("instanceID"))
	if _, err := s.engine.GetInstance(c.Request.Context(), id); err != nil {
		abortError(c, err)
		return
	}

	execs, err := s.store.ListExecutionsByInstance(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ExecutionListResponse{
		Executions: execs,
		Count:      len(execs),
	})
}

func (s *Server) getExecution(c *gin.Context) {
	id := api.ExecutionID(c.Param("executionID"))
	exec, err := s.engine.GetExecution(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (s *Server) startExecution(c *gin.Context) {
	s.transitionExecution(c, s.engine.StartStep)
}

func (s *Server) skipExecution(c *gin.Context) {
	s.transitionExecution(c, s.engine.SkipStep)
}

func (s *Server) retryExecution(c *gin.Context) {
	s.transitionExecution(c, s.engine.RetryStep)
}

func (s *Server) completeExecution(c *gin.Context) {
	var req api.CompleteStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	id := api.ExecutionID(c.Param("executionID"))
	exec, err := s.engine.CompleteStep(c.Request.Context(), id, req.Output)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (s *Server) failExecution(c *gin.Context) {
	var req api.FailStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	id := api.ExecutionID(c.Param("executionID"))
	exec, err := s.engine.FailStep(c.Request.Context(), id, req.Error)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (s *Server) transitionExecution(
	c *gin.Context,
	fn func(ctx context.Context, id api.ExecutionID) (
		*api.StepExecution, error,
	),
) {
	id := api.ExecutionID(c.Param("executionID"))
	exec, err := fn(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}
