package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/kimhons/lumina-ai-sub002"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	storeStatus := "up"
	status := "healthy"
	code := http.StatusOK
	if err := s.store.Ping(c.Request.Context()); err != nil {
		storeStatus = "down"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, api.HealthResponse{
		Service: app.Name,
		Version: app.Version,
		Status:  status,
		Store:   storeStatus,
	})
}
