package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

const (
	defaultLongRunning = time.Hour
	defaultStallIdle   = 15 * time.Minute
)

func (s *Server) listActive(c *gin.Context) {
	offset := intQuery(c, "offset", 0)
	limit := intQuery(c, "limit", defaultPageSize)
	instances, err := s.monitor.ActiveInstances(
		c.Request.Context(), offset, limit,
	)
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

func (s *Server) listLongRunning(c *gin.Context) {
	olderThan := durationQuery(c, "older_than", defaultLongRunning)
	instances, err := s.monitor.LongRunning(c.Request.Context(), olderThan)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.InstanceListResponse{
		Instances: instances,
		Count:     len(instances),
	})
}

func (s *Server) listStalled(c *gin.Context) {
	idle := durationQuery(c, "idle", defaultStallIdle)
	instances, err := s.monitor.Stalled(c.Request.Context(), idle)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.InstanceListResponse{
		Instances: instances,
		Count:     len(instances),
	})
}

func (s *Server) listFailedSteps(c *gin.Context) {
	execs, err := s.monitor.FailedExecutions(c.Request.Context())
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ExecutionListResponse{
		Executions: execs,
		Count:      len(execs),
	})
}

func (s *Server) listStalledSteps(c *gin.Context) {
	idle := durationQuery(c, "idle", defaultStallIdle)
	execs, err := s.monitor.StalledExecutions(c.Request.Context(), idle)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ExecutionListResponse{
		Executions: execs,
		Count:      len(execs),
	})
}

func (s *Server) getStatistics(c *gin.Context) {
	stats, err := s.monitor.Statistics(c.Request.Context())
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getDefinitionStatistics(c *gin.Context) {
	id := api.DefinitionID(c.Param("defID"))
	stats, err := s.monitor.DefinitionStatistics(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getStepStatistics(c *gin.Context) {
	id := api.InstanceID(c.Param("instanceID"))
	stats, err := s.monitor.InstanceStepStatistics(c.Request.Context(), id)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func durationQuery(
	c *gin.Context, name string, fallback time.Duration,
) time.Duration {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}
