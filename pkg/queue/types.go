// Package queue provides the bounded worker pool that executes queued
// engagement runs.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/talonsec/talon/pkg/models"
)

// Sentinel errors for queue operations.
var (
	// ErrQueueFull indicates the run queue is at capacity; the caller
	// should retry later rather than block.
	ErrQueueFull = errors.New("run queue is full")

	// ErrPoolStopped indicates the pool no longer accepts submissions.
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// RunExecutor processes one engagement run end to end. The executor owns the
// run lifecycle: passive phase, planning, gated active execution, result
// persistence. The worker only handles claiming, timeout, and cancellation.
type RunExecutor interface {
	Execute(ctx context.Context, run *models.Run) *ExecutionResult
}

// ExecutionResult is the terminal state of a run. Intermediate state was
// already persisted by the executor during processing.
type ExecutionResult struct {
	State        models.WorkflowState // completed, failed, cancelled
	FindingCount int
	Error        error // set when State is failed
}

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	ActiveRuns    int            `json:"active_runs"`
	QueueDepth    int            `json:"queue_depth"`
	QueueCapacity int            `json:"queue_capacity"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID            string       `json:"id"`
	Status        WorkerStatus `json:"status"`
	CurrentRunID  string       `json:"current_run_id,omitempty"`
	RunsProcessed int          `json:"runs_processed"`
	LastActivity  time.Time    `json:"last_activity"`
}
