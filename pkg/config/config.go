package config

// Config is the umbrella configuration object that encapsulates
// all registries, defaults, and configuration state.
// This is the primary object returned by Initialize() and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults
	Defaults *Defaults

	// Policy engine configuration (authoritative shape, see PolicyConfig)
	Policy *PolicyConfig

	// Worker pool configuration for engagement runs
	Queue *QueueConfig

	// Evidence storage and retention
	Evidence *EvidenceConfig

	// Slack notifications
	Slack *SlackConfig

	// Persistent store
	Store *StoreConfig

	// LLM endpoint
	LLM *LLMConfig

	// Component registries
	AdapterRegistry *AdapterRegistry
	AgentRegistry   *AgentRegistry
}

// Stats contains statistics about loaded configuration
type Stats struct {
	Adapters int
	Agents   int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.AdapterRegistry != nil {
		s.Adapters = c.AdapterRegistry.Len()
	}
	if c.AgentRegistry != nil {
		s.Agents = c.AgentRegistry.Len()
	}
	return s
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetAdapter retrieves an adapter configuration by name.
// This is a convenience method that wraps AdapterRegistry.Get().
func (c *Config) GetAdapter(name string) (*AdapterConfig, error) {
	return c.AdapterRegistry.Get(name)
}

// GetAgent retrieves an agent definition by name.
// This is a convenience method that wraps AgentRegistry.Get().
func (c *Config) GetAgent(name string) (*AgentDefinition, error) {
	return c.AgentRegistry.Get(name)
}

// PassiveTools returns the configured passive recon tool list.
func (c *Config) PassiveTools() []string {
	if c.Defaults != nil && len(c.Defaults.PassiveTools) > 0 {
		return c.Defaults.PassiveTools
	}
	return GetBuiltinConfig().PassiveTools
}
