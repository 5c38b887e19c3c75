package config

import "time"

// QueueConfig contains worker pool configuration for engagement runs.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines draining the run queue.
	WorkerCount int `yaml:"worker_count"`

	// QueueDepth is the buffered capacity of the run queue; submissions
	// beyond it are rejected rather than blocking the API.
	QueueDepth int `yaml:"queue_depth"`

	// RunTimeout is the maximum time one engagement run may take.
	RunTimeout time.Duration `yaml:"run_timeout"`

	// GracefulShutdownTimeout is the max time to wait for active runs to
	// finish during shutdown before their contexts are cancelled.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             2,
		QueueDepth:              16,
		RunTimeout:              45 * time.Minute,
		GracefulShutdownTimeout: 2 * time.Minute,
	}
}
