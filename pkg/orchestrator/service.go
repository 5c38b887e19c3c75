package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/queue"
	"github.com/talonsec/talon/pkg/slack"
	"github.com/talonsec/talon/pkg/store"
)

// Factory builds a fresh orchestrator for one run. Each run gets its own
// orchestrator so state never bleeds between engagements.
type Factory func(runID string) *Orchestrator

// Service manages engagement runs across the worker pool: one orchestrator
// per run, run records for the API, findings and audit entries persisted to
// the store when a run finishes.
type Service struct {
	factory  Factory
	store    store.Store
	pool     *queue.WorkerPool
	notifier *slack.Service // nil-safe, disabled without configuration
	logger   *slog.Logger

	mu    sync.RWMutex
	runs  map[string]models.Run
	orchs map[string]*Orchestrator
}

// NewService creates the run service and its worker pool. A nil queue config
// uses the defaults.
func NewService(factory Factory, st store.Store, queueCfg *config.QueueConfig) *Service {
	s := &Service{
		factory: factory,
		store:   st,
		runs:    make(map[string]models.Run),
		orchs:   make(map[string]*Orchestrator),
		logger:  slog.Default().With("component", "run_service"),
	}
	s.pool = queue.NewWorkerPool(queueCfg, s)
	return s
}

// SetNotifier attaches the Slack notifier for run-completion summaries and
// critical-finding alerts.
func (s *Service) SetNotifier(notifier *slack.Service) { s.notifier = notifier }

// Start spawns the worker pool.
func (s *Service) Start(ctx context.Context) { s.pool.Start(ctx) }

// Stop drains the worker pool. Active runs finish or are cancelled after the
// graceful shutdown timeout.
func (s *Service) Stop() { s.pool.Stop() }

// Pool exposes the worker pool for health reporting.
func (s *Service) Pool() *queue.WorkerPool { return s.pool }

// Submit validates and enqueues a run.
func (s *Service) Submit(run *models.Run) error {
	if run.Objective == "" {
		return fmt.Errorf("run objective is required")
	}
	if run.Mode == "" {
		run.Mode = models.ScanModePassive
	}
	if !run.Mode.IsValid() {
		return fmt.Errorf("invalid scan mode %q", run.Mode)
	}

	if err := s.pool.Submit(run); err != nil {
		return err
	}
	s.mu.Lock()
	s.runs[run.ID] = *run
	s.mu.Unlock()
	return nil
}

// Get returns a snapshot of a run record.
func (s *Service) Get(runID string) (*models.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return &run, true
}

// List returns snapshots of all known runs.
func (s *Service) List() []models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	return out
}

// Cancel cancels an active run. Returns false when the run is not active.
func (s *Service) Cancel(runID string) bool { return s.pool.CancelRun(runID) }

// Report renders the report for a finished or in-flight run.
func (s *Service) Report(runID string, format ReportFormat) (string, error) {
	s.mu.RLock()
	orch, ok := s.orchs[runID]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: run %s", store.ErrNotFound, runID)
	}
	return orch.GenerateReport(format)
}

// Execute runs one engagement end to end. It implements queue.RunExecutor
// and is invoked by pool workers.
func (s *Service) Execute(ctx context.Context, run *models.Run) *queue.ExecutionResult {
	orch := s.factory(run.ID)

	started := time.Now().UTC()
	s.mu.Lock()
	s.orchs[run.ID] = orch
	if rec, ok := s.runs[run.ID]; ok {
		rec.State = models.WorkflowStateRunning
		rec.StartedAt = &started
		s.runs[run.ID] = rec
	}
	s.mu.Unlock()

	if err := s.loadAssets(ctx, orch); err != nil {
		return s.finish(run, &queue.ExecutionResult{State: models.WorkflowStateFailed, Error: err})
	}

	err := orch.RunEngagement(ctx, run.Mode, run.Mode != models.ScanModeLab)
	findings := orch.Processor().Findings()
	s.persist(run, findings)

	state := orch.Workflow().State()
	if err != nil {
		if state != models.WorkflowStateCancelled {
			state = models.WorkflowStateFailed
		}
		return s.finish(run, &queue.ExecutionResult{State: state, FindingCount: len(findings), Error: err})
	}
	return s.finish(run, &queue.ExecutionResult{State: state, FindingCount: len(findings)})
}

// loadAssets feeds the stored assets through the orchestrator's intake gate.
func (s *Service) loadAssets(ctx context.Context, orch *Orchestrator) error {
	if s.store == nil {
		return nil
	}
	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load assets: %w", err)
	}
	for _, asset := range assets {
		if err := orch.AddAsset(asset); err != nil {
			// Denied assets were recorded as violations; the run proceeds
			// with whatever passed the gate.
			s.logger.Warn("Asset excluded from run", "asset", asset.Name, "error", err)
		}
	}
	return nil
}

// persist writes findings and an audit entry for the finished run.
func (s *Service) persist(run *models.Run, findings []models.Finding) {
	if s.store == nil {
		return
	}
	// Persistence uses a fresh context so a cancelled run still lands.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.SaveFindings(ctx, findings); err != nil {
		s.logger.Error("Failed to persist findings", "run_id", run.ID, "error", err)
	}
	if err := s.store.AppendAudit(ctx, store.AuditEntry{
		Actor:     "orchestrator",
		EventType: "run.finished",
		Data: map[string]any{
			"run_id":   run.ID,
			"mode":     string(run.Mode),
			"findings": len(findings),
		},
	}); err != nil {
		s.logger.Error("Failed to append audit entry", "run_id", run.ID, "error", err)
	}
}

// finish updates the tracked run record with the terminal state and fires
// notifications.
func (s *Service) finish(run *models.Run, result *queue.ExecutionResult) *queue.ExecutionResult {
	completed := time.Now().UTC()
	s.mu.Lock()
	if rec, ok := s.runs[run.ID]; ok {
		rec.State = result.State
		rec.CompletedAt = &completed
		if result.Error != nil {
			rec.Error = result.Error.Error()
		}
		s.runs[run.ID] = rec
	}
	orch := s.orchs[run.ID]
	s.mu.Unlock()

	s.notify(run, result, orch)
	return result
}

// notify sends the terminal summary and any critical-finding alerts.
// Fail-open by construction; the notifier never returns errors.
func (s *Service) notify(run *models.Run, result *queue.ExecutionResult, orch *Orchestrator) {
	if s.notifier == nil || orch == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	findings := orch.Processor().Findings()
	bySeverity := make(map[string]int)
	for _, f := range findings {
		bySeverity[string(f.Severity)]++
		s.notifier.NotifyCriticalFinding(ctx, f)
	}

	input := slack.RunCompletedInput{
		RunID:              run.ID,
		Objective:          run.Objective,
		State:              result.State,
		FindingsBySeverity: bySeverity,
	}
	if result.Error != nil {
		input.ErrorMessage = result.Error.Error()
	}
	s.notifier.NotifyRunCompleted(ctx, input)
}
