package models

import "time"

// FindingSeverity ranks how serious a security observation is
type FindingSeverity string

const (
	FindingSeverityInfo     FindingSeverity = "info"
	FindingSeverityLow      FindingSeverity = "low"
	FindingSeverityMedium   FindingSeverity = "medium"
	FindingSeverityHigh     FindingSeverity = "high"
	FindingSeverityCritical FindingSeverity = "critical"
)

// IsValid checks if the finding severity is valid
func (s FindingSeverity) IsValid() bool {
	switch s {
	case FindingSeverityInfo,
		FindingSeverityLow,
		FindingSeverityMedium,
		FindingSeverityHigh,
		FindingSeverityCritical:
		return true
	default:
		return false
	}
}

// Finding is a normalized security observation tied to an asset. Findings
// are derived from adapter output, possibly via LLM analysis.
type Finding struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Severity     FindingSeverity `json:"severity"`
	Description  string          `json:"description"`
	AssetRef     string          `json:"asset_ref"`
	Category     string          `json:"category,omitempty"`
	Remediation  string          `json:"remediation,omitempty"`
	EvidencePath string          `json:"evidence_path,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
