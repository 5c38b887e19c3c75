package slack

import (
	"context"
	"log/slog"
	"time"

	"github.com/talonsec/talon/pkg/models"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// RunCompletedInput contains data for a run terminal notification.
type RunCompletedInput struct {
	RunID              string
	Objective          string
	State              models.WorkflowState
	FindingsBySeverity map[string]int
	ErrorMessage       string
}

// Service handles Slack notification delivery.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyRunCompleted sends a terminal status notification.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyRunCompleted(ctx context.Context, input RunCompletedInput) {
	if s == nil {
		return
	}

	blocks := BuildRunCompletedMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, 10*time.Second); err != nil {
		s.logger.Error("Failed to send run notification",
			"run_id", input.RunID,
			"state", input.State,
			"error", err)
	}
}

// NotifyCriticalFinding sends an immediate alert for a critical finding.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyCriticalFinding(ctx context.Context, finding models.Finding) {
	if s == nil {
		return
	}
	if finding.Severity != models.FindingSeverityCritical {
		return
	}

	blocks := BuildCriticalFindingMessage(finding, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, 5*time.Second); err != nil {
		s.logger.Error("Failed to send critical finding alert",
			"finding", finding.Title,
			"error", err)
	}
}
