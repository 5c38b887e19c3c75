package models

import "time"

// ScanResult is the orchestrator's normalized view of one completed scan
// step: the raw adapter outcome reduced to what reporting needs, plus any
// findings extracted from it.
type ScanResult struct {
	ID           string        `json:"id"`
	Tool         string        `json:"tool"`
	Target       string        `json:"target"`
	Status       AdapterStatus `json:"status"`
	Findings     []Finding     `json:"findings,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	EvidencePath string        `json:"evidence_path,omitempty"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}
