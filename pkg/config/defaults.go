package config

// Defaults contains system-wide default configurations
// These values are used when specific components don't specify their own values
type Defaults struct {
	// Scan mode default for new runs (passive, active, lab)
	ScanMode string `yaml:"scan_mode,omitempty"`

	// Max executor turns default (loop fails with a timeout when reached)
	MaxTurns *int `yaml:"max_turns,omitempty"`

	// Tool output budget in characters before truncation inside the loop
	ToolOutputLimit *int `yaml:"tool_output_limit,omitempty"`

	// Passive recon tools run for every asset during the passive phase
	PassiveTools []string `yaml:"passive_tools,omitempty"`

	// ApprovalRequired gates active scan steps behind operator approval
	// (always auto-approved in lab mode)
	ApprovalRequired *bool `yaml:"approval_required,omitempty"`

	// EvidenceMasking controls secret masking of evidence before persistence
	EvidenceMasking *EvidenceMaskingDefaults `yaml:"evidence_masking,omitempty"`
}

// EvidenceMaskingDefaults holds evidence masking settings.
// Applied to all adapter output before it is written to disk or the store.
type EvidenceMaskingDefaults struct {
	Enabled      bool   `yaml:"enabled"`
	PatternGroup string `yaml:"pattern_group"`
}

const (
	// DefaultMaxTurns bounds the executor loop when neither the agent
	// definition nor defaults override it
	DefaultMaxTurns = 15

	// DefaultToolOutputLimit is the truncation budget for tool output fed
	// back to the model
	DefaultToolOutputLimit = 2000
)

// ResolveMaxTurns returns the configured turn budget or the built-in default.
func (d *Defaults) ResolveMaxTurns() int {
	if d != nil && d.MaxTurns != nil && *d.MaxTurns > 0 {
		return *d.MaxTurns
	}
	return DefaultMaxTurns
}

// ResolveToolOutputLimit returns the configured output budget or the built-in default.
func (d *Defaults) ResolveToolOutputLimit() int {
	if d != nil && d.ToolOutputLimit != nil && *d.ToolOutputLimit > 0 {
		return *d.ToolOutputLimit
	}
	return DefaultToolOutputLimit
}
