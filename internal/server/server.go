package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kimhons/lumina-ai-sub002/internal/engine"
	"github.com/kimhons/lumina-ai-sub002/internal/events"
	"github.com/kimhons/lumina-ai-sub002/internal/monitor"
	"github.com/kimhons/lumina-ai-sub002/internal/store"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
	"github.com/kimhons/lumina-ai-sub002/pkg/util"
)

// Server implements the HTTP API of the workflow service
type Server struct {
	engine  *engine.Engine
	store   *store.Store
	monitor *monitor.Monitor
	bus     *events.Bus
	logger  *slog.Logger
	sockets util.Set[*Client]
	mu      sync.Mutex
}

var ErrInvalidJSON = errors.New("invalid JSON request")

// NewServer creates a new HTTP API server
func NewServer(
	eng *engine.Engine, st *store.Store, mon *monitor.Monitor,
	bus *events.Bus, logger *slog.Logger,
) *Server {
	return &Server{
		engine:  eng,
		store:   st,
		monitor: mon,
		bus:     bus,
		logger:  logger,
		sockets: util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return s.logger
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", s.metricsHandler())

	v1 := router.Group("/api/v1")
	{
		// Definition endpoints
		v1.GET("/definitions", s.listDefinitions)
		v1.POST("/definitions", s.createDefinition)
		v1.GET("/definitions/:defID", s.getDefinition)
		v1.PUT("/definitions/:defID", s.updateDefinition)
		v1.DELETE("/definitions/:defID", s.deleteDefinition)
		v1.POST("/definitions/:defID/deactivate", s.deactivateDefinition)

		// Template endpoints
		v1.GET("/templates", s.listTemplates)
		v1.POST("/templates", s.createTemplate)
		v1.GET("/templates/:templateID", s.getTemplate)
		v1.POST("/templates/:templateID/instantiate", s.instantiateTemplate)

		// Workflow instance endpoints
		v1.GET("/workflows", s.listWorkflows)
		v1.POST("/workflows", s.createWorkflow)
		v1.GET("/workflows/:instanceID", s.getWorkflow)
		v1.DELETE("/workflows/:instanceID", s.deleteWorkflow)
		v1.POST("/workflows/:instanceID/start", s.startWorkflow)
		v1.POST("/workflows/:instanceID/pause", s.pauseWorkflow)
		v1.POST("/workflows/:instanceID/resume", s.resumeWorkflow)
		v1.POST("/workflows/:instanceID/cancel", s.cancelWorkflow)
		v1.POST("/workflows/:instanceID/fail", s.failWorkflow)
		v1.POST("/workflows/:instanceID/decisions/:stepID", s.recordDecision)

		// Execution context endpoints
		v1.GET("/workflows/:instanceID/context", s.getContext)
		v1.PUT("/workflows/:instanceID/context", s.updateContext)
		v1.POST("/workflows/:instanceID/context/sync", s.syncContext)

		// Step execution endpoints
		v1.GET("/workflows/:instanceID/executions", s.listExecutions)
		v1.GET("/executions/:executionID", s.getExecution)
		v1.POST("/executions/:executionID/start", s.startExecution)
		v1.POST("/executions/:executionID/complete", s.completeExecution)
		v1.POST("/executions/:executionID/fail", s.failExecution)
		v1.POST("/executions/:executionID/skip", s.skipExecution)
		v1.POST("/executions/:executionID/retry", s.retryExecution)

		// Monitoring endpoints
		v1.GET("/monitoring/active", s.listActive)
		v1.GET("/monitoring/long-running", s.listLongRunning)
		v1.GET("/monitoring/stalled", s.listStalled)
		v1.GET("/monitoring/failed-steps", s.listFailedSteps)
		v1.GET("/monitoring/stalled-steps", s.listStalledSteps)
		v1.GET("/monitoring/statistics", s.getStatistics)
		v1.GET("/monitoring/statistics/:defID", s.getDefinitionStatistics)
		v1.GET("/monitoring/workflows/:instanceID/steps",
			s.getStepStatistics)

		// WebSocket event stream
		v1.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) metricsHandler() gin.HandlerFunc {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(monitor.NewCollector(s.monitor, s.logger))
	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// abortError writes the standard error payload, mapping domain errors to
// HTTP status codes
func abortError(c *gin.Context, err error) {
	c.JSON(statusForError(err), api.ErrorResponse{
		Error:  err.Error(),
		Status: statusForError(err),
	})
}

func abortBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusBadRequest,
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrInstanceNotFound),
		errors.Is(err, engine.ErrDefinitionNotFound),
		errors.Is(err, engine.ErrExecutionNotFound),
		errors.Is(err, engine.ErrTemplateNotFound),
		errors.Is(err, engine.ErrContextNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrIllegalTransition),
		errors.Is(err, engine.ErrDefinitionInactive),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, engine.ErrConflictRetryBudget):
		return http.StatusConflict
	case errors.Is(err, engine.ErrUnknownTransition),
		errors.Is(err, engine.ErrNotDecision),
		errors.Is(err, api.ErrNoDefinition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := s.sockets.Values()
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
