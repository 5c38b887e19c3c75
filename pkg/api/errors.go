package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talonsec/talon/pkg/queue"
	"github.com/talonsec/talon/pkg/store"
)

// writeError maps service-layer errors to the uniform error envelope.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "resource not found"})
	case errors.Is(err, store.ErrDuplicateAsset):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "asset already exists"})
	case errors.Is(err, queue.ErrQueueFull):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "run queue is full, retry later"})
	case errors.Is(err, queue.ErrPoolStopped):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "server is shutting down"})
	default:
		slog.Error("Unexpected service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// writeBadRequest reports a client-side validation failure.
func writeBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
