package models

import "time"

// AdapterStatus is the outcome class of a single adapter invocation
type AdapterStatus string

const (
	// AdapterStatusSuccess means the tool ran and produced usable output
	AdapterStatusSuccess AdapterStatus = "success"
	// AdapterStatusPartial means the tool ran but some of the work failed
	AdapterStatusPartial AdapterStatus = "partial"
	// AdapterStatusFailure means the tool ran and failed
	AdapterStatusFailure AdapterStatus = "failure"
	// AdapterStatusTimeout means the wall-clock budget was exhausted
	AdapterStatusTimeout AdapterStatus = "timeout"
	// AdapterStatusError means the invocation never ran (blocked, bad params,
	// runner fault)
	AdapterStatusError AdapterStatus = "error"
)

// IsValid checks if the adapter status is valid
func (s AdapterStatus) IsValid() bool {
	switch s {
	case AdapterStatusSuccess,
		AdapterStatusPartial,
		AdapterStatusFailure,
		AdapterStatusTimeout,
		AdapterStatusError:
		return true
	default:
		return false
	}
}

// AdapterResult is produced by every adapter invocation, exactly once,
// regardless of outcome. Tool failures travel inside the result rather than
// as errors so every caller sees one uniform contract.
type AdapterResult struct {
	Status        AdapterStatus  `json:"status"`
	Data          map[string]any `json:"data,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	EvidencePath  string         `json:"evidence_path,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time,omitempty"`
}

// Succeeded reports whether the invocation completed with usable output.
func (r *AdapterResult) Succeeded() bool {
	return r != nil && r.Status == AdapterStatusSuccess
}

// ErrorResult builds an AdapterResult for an invocation that never ran.
func ErrorResult(message string) *AdapterResult {
	return &AdapterResult{Status: AdapterStatusError, ErrorMessage: message}
}

// FailureResult builds an AdapterResult for a tool that ran and failed.
func FailureResult(message string) *AdapterResult {
	return &AdapterResult{Status: AdapterStatusFailure, ErrorMessage: message}
}

// AdapterInfo is the introspection record every adapter exposes
type AdapterInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Requirements []string `json:"requirements"`
	ExampleUsage string   `json:"example_usage"`
}
