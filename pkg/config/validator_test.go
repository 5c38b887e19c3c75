package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig builds a minimal configuration that passes ValidateAll.
func validConfig() *Config {
	enabled := true
	return &Config{
		Defaults: &Defaults{
			PassiveTools: []string{"whois"},
		},
		Policy: &PolicyConfig{
			RateLimiting: RateLimitConfig{
				WindowSize:        60,
				MaxRequests:       10,
				GlobalMaxRequests: 40,
			},
			TargetValidation: TargetValidationConfig{
				AuthorizedNetworks: []string{"10.0.0.0/8"},
			},
		},
		Queue:    DefaultQueueConfig(),
		Store:    &StoreConfig{Type: StoreTypeMemory, DSNEnv: "DATABASE_URL"},
		LLM:      &LLMConfig{Model: "test-model"},
		Evidence: &EvidenceConfig{Dir: "evidence"},
		AdapterRegistry: NewAdapterRegistry(map[string]*AdapterConfig{
			"whois": {Backend: AdapterBackendProcess, Command: "whois", Enabled: &enabled},
			"nmap":  {Backend: AdapterBackendProcess, Command: "nmap"},
		}),
		AgentRegistry: NewAgentRegistry(map[string]*AgentDefinition{
			"recon": {
				Name:         "recon",
				SystemPrompt: "prompt",
				AllowedTools: []string{"whois"},
			},
		}),
	}
}

func TestValidateAllPasses(t *testing.T) {
	require.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errStr string
	}{
		{
			name:   "zero window size",
			mutate: func(c *Config) { c.Policy.RateLimiting.WindowSize = 0 },
			errStr: "window_size",
		},
		{
			name:   "zero max requests",
			mutate: func(c *Config) { c.Policy.RateLimiting.MaxRequests = 0 },
			errStr: "max_requests",
		},
		{
			name:   "global below per-adapter limit",
			mutate: func(c *Config) { c.Policy.RateLimiting.GlobalMaxRequests = 1 },
			errStr: "global_max_requests",
		},
		{
			name:   "bad CIDR",
			mutate: func(c *Config) { c.Policy.TargetValidation.AuthorizedNetworks = []string{"not-a-cidr"} },
			errStr: "authorized_networks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := NewValidator(cfg).ValidateAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errStr)
		})
	}
}

func TestValidateAdapters(t *testing.T) {
	t.Run("invalid backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdapterRegistry = NewAdapterRegistry(map[string]*AdapterConfig{
			"whois": {Backend: AdapterBackendProcess, Command: "whois"},
			"bad":   {Backend: "avian"},
		})
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "adapter", verr.Component)
		assert.Equal(t, "backend", verr.Field)
	})

	t.Run("process adapter requires command", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdapterRegistry = NewAdapterRegistry(map[string]*AdapterConfig{
			"whois": {Backend: AdapterBackendProcess},
		})
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingRequiredField)
	})

	t.Run("container adapter requires image", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdapterRegistry = NewAdapterRegistry(map[string]*AdapterConfig{
			"whois":  {Backend: AdapterBackendProcess, Command: "whois"},
			"sqlmap": {Backend: AdapterBackendContainer},
		})
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingRequiredField)
	})

	t.Run("network adapter base_url optional", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdapterRegistry = NewAdapterRegistry(map[string]*AdapterConfig{
			"whois":      {Backend: AdapterBackendProcess, Command: "whois"},
			"http_probe": {Backend: AdapterBackendNetwork},
		})
		require.NoError(t, NewValidator(cfg).ValidateAll())
	})
}

func TestValidateAgents(t *testing.T) {
	t.Run("unknown tool reference", func(t *testing.T) {
		cfg := validConfig()
		cfg.AgentRegistry = NewAgentRegistry(map[string]*AgentDefinition{
			"recon": {Name: "recon", SystemPrompt: "p", AllowedTools: []string{"no_such_tool"}},
		})
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidReference)
	})

	t.Run("agent cannot list itself", func(t *testing.T) {
		cfg := validConfig()
		cfg.AgentRegistry = NewAgentRegistry(map[string]*AgentDefinition{
			"recon": {Name: "recon", SystemPrompt: "p", AllowedTools: []string{"recon"}},
		})
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot list itself")
	})

	t.Run("sub-agent reference is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.AgentRegistry = NewAgentRegistry(map[string]*AgentDefinition{
			"planner": {Name: "planner", SystemPrompt: "p"},
			"recon":   {Name: "recon", SystemPrompt: "p", AllowedTools: []string{"whois", "planner"}},
		})
		require.NoError(t, NewValidator(cfg).ValidateAll())
	})

	t.Run("invalid input type", func(t *testing.T) {
		cfg := validConfig()
		cfg.AgentRegistry = NewAgentRegistry(map[string]*AgentDefinition{
			"recon": {
				Name:         "recon",
				SystemPrompt: "p",
				Inputs:       map[string]InputSpec{"target": {Type: "tuple"}},
			},
		})
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inputs.target")
	})

	t.Run("missing system prompt", func(t *testing.T) {
		cfg := validConfig()
		cfg.AgentRegistry = NewAgentRegistry(map[string]*AgentDefinition{
			"recon": {Name: "recon"},
		})
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingRequiredField)
	})
}

func TestValidateSystem(t *testing.T) {
	t.Run("invalid store type", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Type = "sqlite"
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store")
	})

	t.Run("passive tool must exist", func(t *testing.T) {
		cfg := validConfig()
		cfg.Defaults.PassiveTools = []string{"nonexistent"}
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidReference)
	})

	t.Run("unknown masking pattern group", func(t *testing.T) {
		cfg := validConfig()
		cfg.Defaults.EvidenceMasking = &EvidenceMaskingDefaults{Enabled: true, PatternGroup: "nope"}
		err := NewValidator(cfg).ValidateAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pattern group")
	})
}
