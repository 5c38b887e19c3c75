package config

import "time"

// PolicyConfig is the authoritative policy section of talon.yaml:
//
//	policy:
//	  rate_limiting: {window_size, max_requests, global_max_requests}
//	  target_validation: {authorized_networks[], authorized_domains[], blocked_targets[]}
//	  allowed_exploits: [...]
type PolicyConfig struct {
	RateLimiting     RateLimitConfig        `yaml:"rate_limiting"`
	TargetValidation TargetValidationConfig `yaml:"target_validation"`
	AllowedExploits  []string               `yaml:"allowed_exploits,omitempty"`
}

// RateLimitConfig configures the per-key sliding windows
type RateLimitConfig struct {
	// WindowSize is the sliding window length in seconds
	WindowSize float64 `yaml:"window_size"`
	// MaxRequests is the per-adapter admission limit within one window
	MaxRequests int `yaml:"max_requests"`
	// GlobalMaxRequests is the all-adapters admission limit within one window
	GlobalMaxRequests int `yaml:"global_max_requests"`
}

// Window returns the window size as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSize * float64(time.Second))
}

// TargetValidationConfig configures target authorization
type TargetValidationConfig struct {
	AuthorizedNetworks []string `yaml:"authorized_networks,omitempty"`
	AuthorizedDomains  []string `yaml:"authorized_domains,omitempty"`
	BlockedTargets     []string `yaml:"blocked_targets,omitempty"`
}

// DefaultPolicyConfig returns a fail-closed policy: nothing authorized,
// conservative windows.
func DefaultPolicyConfig() *PolicyConfig {
	return &PolicyConfig{
		RateLimiting: RateLimitConfig{
			WindowSize:        60,
			MaxRequests:       30,
			GlobalMaxRequests: 120,
		},
		TargetValidation: TargetValidationConfig{},
	}
}
