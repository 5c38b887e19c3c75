package models

import "time"

// WorkflowState is the lifecycle state of an engagement run
type WorkflowState string

const (
	WorkflowStatePending   WorkflowState = "pending"
	WorkflowStateRunning   WorkflowState = "running"
	WorkflowStatePaused    WorkflowState = "paused"
	WorkflowStateCompleted WorkflowState = "completed"
	WorkflowStateFailed    WorkflowState = "failed"
	WorkflowStateCancelled WorkflowState = "cancelled"
)

// IsValid checks if the workflow state is valid
func (s WorkflowState) IsValid() bool {
	switch s {
	case WorkflowStatePending,
		WorkflowStateRunning,
		WorkflowStatePaused,
		WorkflowStateCompleted,
		WorkflowStateFailed,
		WorkflowStateCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the state admits no further transitions.
func (s WorkflowState) IsTerminal() bool {
	return s == WorkflowStateCompleted || s == WorkflowStateFailed || s == WorkflowStateCancelled
}

// ScanMode selects how aggressive planned scans may be
type ScanMode string

const (
	// ScanModePassive permits information gathering that sends no traffic to
	// the target
	ScanModePassive ScanMode = "passive"
	// ScanModeActive permits direct probing of authorized targets
	ScanModeActive ScanMode = "active"
	// ScanModeLab lifts exploit gating and approval prompts for isolated labs
	ScanModeLab ScanMode = "lab"
)

// IsValid checks if the scan mode is valid
func (m ScanMode) IsValid() bool {
	return m == ScanModePassive || m == ScanModeActive || m == ScanModeLab
}

// WorkflowStep is one unit of planned work referencing a tool, a target, and
// the parameters to call it with
type WorkflowStep struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tool        string         `json:"tool"`
	Target      string         `json:"target"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Priority    int            `json:"priority"`
	Rationale   string         `json:"rationale,omitempty"`
}

// OrchestrationContext is a point-in-time snapshot of a run's state, used by
// status endpoints and report assembly
type OrchestrationContext struct {
	Assets         []Asset       `json:"assets"`
	ScanResults    []ScanResult  `json:"scan_results"`
	CompletedSteps []string      `json:"completed_steps"`
	WorkflowState  WorkflowState `json:"workflow_state"`
	StartTime      *time.Time    `json:"start_time,omitempty"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
}
