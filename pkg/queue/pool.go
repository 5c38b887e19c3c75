package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// WorkerPool manages a bounded queue of engagement runs and the workers that
// drain it.
type WorkerPool struct {
	config   *config.QueueConfig
	executor RunExecutor
	queue    chan *models.Run
	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *slog.Logger

	// Run cancel registry: run_id → cancel function
	mu         sync.RWMutex
	activeRuns map[string]context.CancelFunc
	started    bool
	stopped    bool
}

// NewWorkerPool creates a worker pool. A nil config uses the defaults.
func NewWorkerPool(cfg *config.QueueConfig, executor RunExecutor) *WorkerPool {
	if cfg == nil {
		cfg = config.DefaultQueueConfig()
	}
	return &WorkerPool{
		config:     cfg,
		executor:   executor,
		queue:      make(chan *models.Run, cfg.QueueDepth),
		workers:    make([]*Worker, 0, cfg.WorkerCount),
		stopCh:     make(chan struct{}),
		activeRuns: make(map[string]context.CancelFunc),
		logger:     slog.Default().With("component", "queue"),
	}
}

// Start spawns the worker goroutines. It is safe to call multiple times;
// subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		p.logger.Warn("Worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true
	p.mu.Unlock()

	p.logger.Info("Starting worker pool",
		"worker_count", p.config.WorkerCount, "queue_depth", p.config.QueueDepth)

	for i := 0; i < p.config.WorkerCount; i++ {
		worker := newWorker(fmt.Sprintf("worker-%d", i), p)
		p.workers = append(p.workers, worker)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			worker.run(ctx)
		}()
	}
}

// Submit enqueues a run for execution. Runs beyond the queue capacity are
// rejected with ErrQueueFull rather than blocking the caller.
func (p *WorkerPool) Submit(run *models.Run) error {
	p.mu.RLock()
	stopped := p.stopped
	p.mu.RUnlock()
	if stopped {
		return ErrPoolStopped
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.State = models.WorkflowStatePending

	select {
	case p.queue <- run:
		p.logger.Info("Run queued", "run_id", run.ID, "mode", run.Mode)
		return nil
	default:
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, cap(p.queue))
	}
}

// Stop stops accepting submissions and waits for active runs to finish.
// Runs still active after the graceful shutdown timeout have their contexts
// cancelled.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	active := p.activeRunIDs()
	if len(active) > 0 {
		p.logger.Info("Waiting for active runs to complete", "count", len(active), "run_ids", active)
	}
	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.config.GracefulShutdownTimeout):
		p.logger.Warn("Graceful shutdown timeout reached, cancelling active runs",
			"run_ids", p.activeRunIDs())
		p.mu.RLock()
		for _, cancel := range p.activeRuns {
			cancel()
		}
		p.mu.RUnlock()
		<-done
	}
	p.logger.Info("Worker pool stopped")
}

// registerRun stores a cancel function for manual cancellation.
func (p *WorkerPool) registerRun(runID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeRuns[runID] = cancel
}

// unregisterRun removes the cancel function when processing ends.
func (p *WorkerPool) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeRuns, runID)
}

// CancelRun triggers context cancellation for an active run. Returns true if
// the run was found and cancelled.
func (p *WorkerPool) CancelRun(runID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeRuns[runID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.health()
		workerStats[i] = stats
		if stats.Status == WorkerStatusWorking {
			activeWorkers++
		}
	}

	p.mu.RLock()
	activeRuns := len(p.activeRuns)
	stopped := p.stopped
	p.mu.RUnlock()

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0 && !stopped,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		ActiveRuns:    activeRuns,
		QueueDepth:    len(p.queue),
		QueueCapacity: cap(p.queue),
		WorkerStats:   workerStats,
	}
}

func (p *WorkerPool) activeRunIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.activeRuns))
	for id := range p.activeRuns {
		ids = append(ids, id)
	}
	return ids
}
