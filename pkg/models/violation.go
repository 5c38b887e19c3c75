package models

import "time"

// ViolationType classifies why the policy engine denied an operation
type ViolationType string

const (
	// ViolationTypeUnauthorizedTarget means the target is outside the
	// authorized networks and domains
	ViolationTypeUnauthorizedTarget ViolationType = "unauthorized_target"
	// ViolationTypeRateLimitExceeded means a sliding window was full
	ViolationTypeRateLimitExceeded ViolationType = "rate_limit_exceeded"
	// ViolationTypeExploitNotAllowed means an exploit was requested outside
	// lab mode without an allowlist entry
	ViolationTypeExploitNotAllowed ViolationType = "exploit_not_allowed"
	// ViolationTypeInvalidAsset means the target string is neither an IP nor
	// an RFC-compliant FQDN
	ViolationTypeInvalidAsset ViolationType = "invalid_asset"
	// ViolationTypeConfigurationError means policy configuration itself is bad
	ViolationTypeConfigurationError ViolationType = "configuration_error"
)

// IsValid checks if the violation type is valid
func (t ViolationType) IsValid() bool {
	switch t {
	case ViolationTypeUnauthorizedTarget,
		ViolationTypeRateLimitExceeded,
		ViolationTypeExploitNotAllowed,
		ViolationTypeInvalidAsset,
		ViolationTypeConfigurationError:
		return true
	default:
		return false
	}
}

// ViolationSeverity ranks a policy violation
type ViolationSeverity string

const (
	ViolationSeverityLow    ViolationSeverity = "low"
	ViolationSeverityMedium ViolationSeverity = "medium"
	ViolationSeverityHigh   ViolationSeverity = "high"
)

// IsValid checks if the violation severity is valid
func (s ViolationSeverity) IsValid() bool {
	return s == ViolationSeverityLow || s == ViolationSeverityMedium || s == ViolationSeverityHigh
}

// PolicyViolation is one recorded denial. The policy engine appends these to
// an in-memory log for the run's lifetime; a violation exists iff the
// corresponding enforcement returned deny.
type PolicyViolation struct {
	RuleName      string            `json:"rule_name"`
	ViolationType ViolationType     `json:"violation_type"`
	Target        string            `json:"target"`
	Timestamp     time.Time         `json:"timestamp"`
	Details       string            `json:"details"`
	Severity      ViolationSeverity `json:"severity"`
}

// PolicyRule describes one enforcement rule. Rules are evaluated highest
// priority first.
type PolicyRule struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Enabled       bool          `json:"enabled"`
	Priority      int           `json:"priority"`
	ViolationType ViolationType `json:"violation_type"`
}

// ViolationReport is the snapshot handed to report generation
type ViolationReport struct {
	TotalViolations int               `json:"total_violations"`
	ByType          map[string]int    `json:"by_type"`
	Violations      []PolicyViolation `json:"violations"`
}
