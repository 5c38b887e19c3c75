package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/talonsec/talon/pkg/models"
)

// Worker drains the shared run queue. Each worker processes one run at a
// time under the configured run timeout.
type Worker struct {
	id     string
	pool   *WorkerPool
	logger *slog.Logger

	// Health tracking
	mu            sync.RWMutex
	status        WorkerStatus
	currentRunID  string
	runsProcessed int
	lastActivity  time.Time
}

func newWorker(id string, pool *WorkerPool) *Worker {
	return &Worker{
		id:           id,
		pool:         pool,
		logger:       slog.Default().With("component", "queue", "worker_id", id),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// run is the main worker loop. The current run is always finished before the
// worker exits; Stop only prevents picking up the next one.
func (w *Worker) run(ctx context.Context) {
	w.logger.Info("Worker started")
	for {
		select {
		case <-w.pool.stopCh:
			w.logger.Info("Worker shutting down")
			return
		case <-ctx.Done():
			w.logger.Info("Context cancelled, worker shutting down")
			return
		case run := <-w.pool.queue:
			w.process(ctx, run)
		}
	}
}

// process executes one run under the pool's run timeout and registers it for
// manual cancellation while it is active.
func (w *Worker) process(ctx context.Context, run *models.Run) {
	runCtx, cancel := context.WithTimeout(ctx, w.pool.config.RunTimeout)
	defer cancel()

	w.pool.registerRun(run.ID, cancel)
	defer w.pool.unregisterRun(run.ID)

	w.setWorking(run.ID)
	defer w.setIdle()

	started := time.Now().UTC()
	run.State = models.WorkflowStateRunning
	run.StartedAt = &started
	w.logger.Info("Run started", "run_id", run.ID, "mode", run.Mode, "objective", run.Objective)

	result := w.pool.executor.Execute(runCtx, run)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	if result == nil {
		result = &ExecutionResult{State: models.WorkflowStateFailed}
	}
	run.State = result.State
	if result.Error != nil {
		run.Error = result.Error.Error()
		w.logger.Error("Run finished with error",
			"run_id", run.ID, "state", result.State, "error", result.Error,
			"duration", completed.Sub(started))
		return
	}
	w.logger.Info("Run finished",
		"run_id", run.ID, "state", result.State, "findings", result.FindingCount,
		"duration", completed.Sub(started))
}

// health returns the current worker health status.
func (w *Worker) health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        w.status,
		CurrentRunID:  w.currentRunID,
		RunsProcessed: w.runsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) setWorking(runID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = WorkerStatusWorking
	w.currentRunID = runID
	w.lastActivity = time.Now()
}

func (w *Worker) setIdle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = WorkerStatusIdle
	w.currentRunID = ""
	w.runsProcessed++
	w.lastActivity = time.Now()
}
