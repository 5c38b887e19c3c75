// Package api exposes the HTTP surface: asset intake, run submission, run
// status, reports, recent events, and health.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talonsec/talon/pkg/events"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/orchestrator"
	"github.com/talonsec/talon/pkg/queue"
	"github.com/talonsec/talon/pkg/store"
)

// RunService is the run lifecycle surface the API drives.
// orchestrator.Service satisfies it.
type RunService interface {
	Submit(run *models.Run) error
	Get(runID string) (*models.Run, bool)
	List() []models.Run
	Cancel(runID string) bool
	Report(runID string, format orchestrator.ReportFormat) (string, error)
	Pool() *queue.WorkerPool
}

// Options configures the API server.
type Options struct {
	Store  store.Store
	Runs   RunService
	Bus    *events.Bus
	APIKey string // empty disables API-key auth
}

// Server is the HTTP API server.
type Server struct {
	store  store.Store
	runs   RunService
	bus    *events.Bus
	apiKey string
	engine *gin.Engine
	http   *http.Server
	logger *slog.Logger
}

// NewServer builds the server and its routes.
func NewServer(opts Options) *Server {
	s := &Server{
		store:  opts.Store,
		runs:   opts.Runs,
		bus:    opts.Bus,
		apiKey: opts.APIKey,
		logger: slog.Default().With("component", "api"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/health", s.health)
	engine.GET("/ready", s.ready)

	v1 := engine.Group("/api/v1")
	if s.apiKey != "" {
		v1.Use(s.requireAPIKey())
	}
	v1.POST("/assets", s.createAsset)
	v1.GET("/assets", s.listAssets)
	v1.POST("/runs", s.createRun)
	v1.GET("/runs", s.listRuns)
	v1.GET("/runs/:id", s.getRun)
	v1.POST("/runs/:id/cancel", s.cancelRun)
	v1.GET("/runs/:id/report", s.getReport)
	v1.GET("/events", s.listEvents)

	s.engine = engine
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start begins serving on addr. Blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server listening", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
