package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// defaultEventLimit bounds GET /api/v1/events when no limit is given.
const defaultEventLimit = 100

// listEvents handles GET /api/v1/events?limit=: the recent event ring,
// newest last.
func (s *Server) listEvents(c *gin.Context) {
	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	recent := s.bus.Recent(limit)
	c.JSON(http.StatusOK, EventListResponse{Events: recent, Count: len(recent)})
}
