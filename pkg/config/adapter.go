package config

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// AdapterConfig is the uniform per-adapter configuration shape. Common
// fields cover every backend; adapter-specific limits travel in Options and
// are checked against the adapter's declared option set during
// ValidateConfig, so an unknown field fails configuration validation.
type AdapterConfig struct {
	Backend AdapterBackend `yaml:"backend"`
	// Enabled defaults to true; disabled adapters are invisible to discovery
	Enabled *bool `yaml:"enabled,omitempty"`

	// Timeout is the hard wall-clock budget for one invocation
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Command is the binary for process-backed adapters
	Command string `yaml:"command,omitempty"`
	// Image is the container image for container-backed adapters
	Image string `yaml:"image,omitempty"`
	// Network is the container network mode (container backend only)
	Network string `yaml:"network,omitempty"`
	// BaseURL is the service endpoint for network-backed adapters
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the service credential
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// RateLimitRPM paces requests to the remote service (network backend)
	RateLimitRPM int `yaml:"rate_limit_rpm,omitempty"`
	// MaxRetries bounds transport retries; timeouts are never retried
	MaxRetries int `yaml:"max_retries,omitempty"`
	// RetryBaseDelay seeds the exponential backoff between retries
	RetryBaseDelay time.Duration `yaml:"retry_base_delay,omitempty"`

	// MaskingPatterns names extra masking patterns applied to this adapter's
	// evidence before persistence
	MaskingPatterns []string `yaml:"masking_patterns,omitempty"`

	// Options carries adapter-specific fields (max_results, record_types,
	// wordlist, ports, ...) validated by the adapter itself
	Options map[string]any `yaml:",inline"`
}

// IsEnabled reports whether the adapter takes part in discovery.
func (c *AdapterConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// OptionKeys returns the sorted adapter-specific option names present.
func (c *AdapterConfig) OptionKeys() []string {
	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StringOption returns a string-typed option value.
func (c *AdapterConfig) StringOption(key string) (string, bool) {
	v, ok := c.Options[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntOption returns an integer-typed option value. YAML numbers arrive as
// int or float64 depending on formatting.
func (c *AdapterConfig) IntOption(key string) (int, bool) {
	v, ok := c.Options[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// AdapterRegistry stores adapter configurations in memory with thread-safe access
type AdapterRegistry struct {
	adapters map[string]*AdapterConfig
	mu       sync.RWMutex
}

// NewAdapterRegistry creates a new adapter registry
func NewAdapterRegistry(adapters map[string]*AdapterConfig) *AdapterRegistry {
	// Defensive copy to prevent external mutation
	copied := make(map[string]*AdapterConfig, len(adapters))
	for k, v := range adapters {
		copied[k] = v
	}
	return &AdapterRegistry{
		adapters: copied,
	}
}

// Get retrieves an adapter configuration by name (thread-safe)
func (r *AdapterRegistry) Get(name string) (*AdapterConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	return adapter, nil
}

// Has checks if an adapter exists in the registry (thread-safe)
func (r *AdapterRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.adapters[name]
	return exists
}

// Names returns the sorted names of all enabled adapters (thread-safe)
func (r *AdapterRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name, cfg := range r.adapters {
		if cfg.IsEnabled() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of adapters in the registry (thread-safe)
func (r *AdapterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
