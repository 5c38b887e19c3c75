package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// health handles GET /health: liveness plus worker pool stats.
func (s *Server) health(c *gin.Context) {
	resp := HealthResponse{Status: "healthy"}
	if s.runs != nil {
		pool := s.runs.Pool().Health()
		resp.Pool = pool
		if !pool.IsHealthy {
			resp.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ready handles GET /ready: readiness means the store answers.
func (s *Server) ready(c *gin.Context) {
	if s.store != nil {
		if _, err := s.store.ListAssets(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
