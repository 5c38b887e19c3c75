package api

import (
	"github.com/talonsec/talon/pkg/events"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/queue"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AssetListResponse wraps GET /api/v1/assets.
type AssetListResponse struct {
	Assets []models.Asset `json:"assets"`
	Count  int            `json:"count"`
}

// RunResponse wraps a single run record.
type RunResponse struct {
	Run models.Run `json:"run"`
}

// RunListResponse wraps GET /api/v1/runs.
type RunListResponse struct {
	Runs  []models.Run `json:"runs"`
	Count int          `json:"count"`
}

// EventListResponse wraps GET /api/v1/events.
type EventListResponse struct {
	Events []events.Event `json:"events"`
	Count  int            `json:"count"`
}

// HealthResponse wraps GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Pool   *queue.PoolHealth `json:"pool,omitempty"`
}
