package models

import "time"

// Run is one queued engagement: an objective executed against the run's
// assets through the passive and active phases.
type Run struct {
	ID          string        `json:"id"`
	Objective   string        `json:"objective"`
	Mode        ScanMode      `json:"mode"`
	State       WorkflowState `json:"state"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// AuditEntry is one append-only audit log row
type AuditEntry struct {
	ID        int64          `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data,omitempty"`
}
