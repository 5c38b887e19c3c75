package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterRegistry(t *testing.T) {
	disabled := false
	reg := NewAdapterRegistry(map[string]*AdapterConfig{
		"nmap":  {Backend: AdapterBackendProcess, Command: "nmap"},
		"whois": {Backend: AdapterBackendProcess, Command: "whois"},
		"nikto": {Backend: AdapterBackendContainer, Image: "nikto", Enabled: &disabled},
	})

	t.Run("get existing", func(t *testing.T) {
		cfg, err := reg.Get("nmap")
		require.NoError(t, err)
		assert.Equal(t, "nmap", cfg.Command)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := reg.Get("missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAdapterNotFound)
	})

	t.Run("names exclude disabled", func(t *testing.T) {
		assert.Equal(t, []string{"nmap", "whois"}, reg.Names())
	})

	t.Run("has and len", func(t *testing.T) {
		assert.True(t, reg.Has("nikto"))
		assert.False(t, reg.Has("missing"))
		assert.Equal(t, 3, reg.Len())
	})
}

func TestAgentRegistryAccess(t *testing.T) {
	reg := NewAgentRegistry(map[string]*AgentDefinition{
		"planner": {Name: "planner", SystemPrompt: "p"},
		"recon":   {Name: "recon", SystemPrompt: "p"},
	})

	got, err := reg.Get("planner")
	require.NoError(t, err)
	assert.Equal(t, "planner", got.Name)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	assert.Equal(t, []string{"planner", "recon"}, reg.Names())
	assert.Equal(t, 2, reg.Len())

	// GetAll returns a copy; mutating it must not affect the registry
	all := reg.GetAll()
	delete(all, "planner")
	assert.True(t, reg.Has("planner"))
}

func TestAdapterConfigOptions(t *testing.T) {
	cfg := &AdapterConfig{
		Options: map[string]any{
			"wordlist":    "/usr/share/wordlists/common.txt",
			"threads":     10,
			"max_results": float64(50), // YAML numbers may arrive as float64
		},
	}

	s, ok := cfg.StringOption("wordlist")
	require.True(t, ok)
	assert.Equal(t, "/usr/share/wordlists/common.txt", s)

	n, ok := cfg.IntOption("threads")
	require.True(t, ok)
	assert.Equal(t, 10, n)

	n, ok = cfg.IntOption("max_results")
	require.True(t, ok)
	assert.Equal(t, 50, n)

	_, ok = cfg.StringOption("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"max_results", "threads", "wordlist"}, cfg.OptionKeys())
}

func TestRateLimitConfigWindow(t *testing.T) {
	cfg := RateLimitConfig{WindowSize: 1.5}
	assert.Equal(t, int64(1500), cfg.Window().Milliseconds())
}

func TestResolveDefaults(t *testing.T) {
	d := &Defaults{}
	assert.Equal(t, DefaultMaxTurns, d.ResolveMaxTurns())
	assert.Equal(t, DefaultToolOutputLimit, d.ResolveToolOutputLimit())

	turns := 5
	limit := 1000
	d = &Defaults{MaxTurns: &turns, ToolOutputLimit: &limit}
	assert.Equal(t, 5, d.ResolveMaxTurns())
	assert.Equal(t, 1000, d.ResolveToolOutputLimit())
}
