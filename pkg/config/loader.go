package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// TalonYAMLConfig represents the complete talon.yaml file structure
type TalonYAMLConfig struct {
	System   *SystemYAMLConfig        `yaml:"system"`
	Policy   *PolicyConfig            `yaml:"policy"`
	Adapters map[string]AdapterConfig `yaml:"adapters"`
	Defaults *Defaults                `yaml:"defaults"`
	Queue    *QueueConfig             `yaml:"queue"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	Evidence *EvidenceYAMLConfig `yaml:"evidence"`
	Slack    *SlackYAMLConfig    `yaml:"slack"`
	Store    *StoreYAMLConfig    `yaml:"store"`
	LLM      *LLMYAMLConfig      `yaml:"llm"`
}

// EvidenceYAMLConfig holds evidence storage settings from YAML.
type EvidenceYAMLConfig struct {
	Dir           string `yaml:"dir,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"`
	SweepInterval string `yaml:"sweep_interval,omitempty"` // Parsed to time.Duration
}

// SlackYAMLConfig holds Slack notification settings from YAML.
type SlackYAMLConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// StoreYAMLConfig holds persistent store settings from YAML.
type StoreYAMLConfig struct {
	Type   string `yaml:"type,omitempty"`
	DSNEnv string `yaml:"dsn_env,omitempty"` // Defaults to "DATABASE_URL" if omitted
}

// LLMYAMLConfig holds LLM endpoint settings from YAML.
type LLMYAMLConfig struct {
	Model             string   `yaml:"model,omitempty"`
	BaseURL           string   `yaml:"base_url,omitempty"`
	APIKeyEnv         string   `yaml:"api_key_env,omitempty"`
	Temperature       *float32 `yaml:"temperature,omitempty"`
	MaxTokens         *int     `yaml:"max_tokens,omitempty"`
	Timeout           string   `yaml:"timeout,omitempty"` // Parsed to time.Duration
	MaxMemoryMessages int      `yaml:"max_memory_messages,omitempty"`
}

// AgentsYAMLConfig represents the complete agents.yaml file structure
type AgentsYAMLConfig struct {
	Agents map[string]AgentDefinition `yaml:"agents"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined configurations
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	// 1. Load configuration files
	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Validate all configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"adapters", stats.Adapters,
		"agents", stats.Agents)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	// 1. Load talon.yaml (system, policy, adapters, defaults, queue)
	talonConfig, err := loader.loadTalonYAML()
	if err != nil {
		return nil, NewLoadError("talon.yaml", err)
	}

	// 2. Load agents.yaml (optional; built-in agents still apply)
	userAgents, err := loader.loadAgentsYAML()
	if err != nil {
		return nil, NewLoadError("agents.yaml", err)
	}

	// 3. Get built-in configuration
	builtin := GetBuiltinConfig()

	// 4. Merge built-in + user-defined components (user overrides built-in)
	adapters := mergeAdapters(builtin.Adapters, talonConfig.Adapters)
	agents := mergeAgents(builtin.Agents, userAgents)

	// 5. Build registries
	adapterRegistry := NewAdapterRegistry(adapters)
	agentRegistry := NewAgentRegistry(agents)

	// 6. Resolve defaults (YAML overrides built-in)
	defaults := talonConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.ScanMode == "" {
		defaults.ScanMode = "passive"
	}
	if defaults.EvidenceMasking == nil {
		defaults.EvidenceMasking = &EvidenceMaskingDefaults{
			Enabled:      true,
			PatternGroup: "evidence",
		}
	}

	// Resolve policy config (merge user YAML onto fail-closed defaults)
	policyConfig := DefaultPolicyConfig()
	if talonConfig.Policy != nil {
		if err := mergo.Merge(policyConfig, talonConfig.Policy, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge policy config: %w", err)
		}
	}

	// Resolve queue config (merge user YAML onto built-in defaults)
	queueConfig := DefaultQueueConfig()
	if talonConfig.Queue != nil {
		if err := mergo.Merge(queueConfig, talonConfig.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	// Resolve system config (Evidence + Slack + Store + LLM)
	evidenceCfg := resolveEvidenceConfig(talonConfig.System)
	slackCfg := resolveSlackConfig(talonConfig.System)
	storeCfg := resolveStoreConfig(talonConfig.System)
	llmCfg := resolveLLMConfig(talonConfig.System)

	return &Config{
		configDir:       configDir,
		Defaults:        defaults,
		Policy:          policyConfig,
		Queue:           queueConfig,
		Evidence:        evidenceCfg,
		Slack:           slackCfg,
		Store:           storeCfg,
		LLM:             llmCfg,
		AdapterRegistry: adapterRegistry,
		AgentRegistry:   agentRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadTalonYAML() (*TalonYAMLConfig, error) {
	var config TalonYAMLConfig

	// Initialize map to avoid nil map
	config.Adapters = make(map[string]AdapterConfig)

	if err := l.loadYAML("talon.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (l *configLoader) loadAgentsYAML() (map[string]AgentDefinition, error) {
	var config AgentsYAMLConfig
	config.Agents = make(map[string]AgentDefinition)

	if err := l.loadYAML("agents.yaml", &config); err != nil {
		// agents.yaml is optional; built-in agents still apply
		if errors.Is(err, ErrConfigNotFound) {
			return config.Agents, nil
		}
		return nil, err
	}

	return config.Agents, nil
}

// resolveEvidenceConfig resolves evidence configuration from system YAML, applying defaults.
func resolveEvidenceConfig(sys *SystemYAMLConfig) *EvidenceConfig {
	cfg := &EvidenceConfig{
		Dir:           "evidence",
		RetentionDays: 30,
		SweepInterval: 1 * time.Hour,
	}

	if sys == nil || sys.Evidence == nil {
		return cfg
	}

	ev := sys.Evidence
	if ev.Dir != "" {
		cfg.Dir = ev.Dir
	}
	if ev.RetentionDays > 0 {
		cfg.RetentionDays = ev.RetentionDays
	}
	if ev.SweepInterval != "" {
		if d, err := time.ParseDuration(ev.SweepInterval); err == nil {
			cfg.SweepInterval = d
		} else {
			slog.Warn("Invalid sweep_interval in evidence config, using default",
				"value", ev.SweepInterval,
				"default", cfg.SweepInterval,
				"error", err)
		}
	}

	return cfg
}

// resolveSlackConfig resolves Slack configuration from system YAML, applying defaults.
func resolveSlackConfig(sys *SystemYAMLConfig) *SlackConfig {
	cfg := &SlackConfig{
		Enabled:  false,
		TokenEnv: "SLACK_BOT_TOKEN",
	}

	if sys == nil || sys.Slack == nil {
		return cfg
	}

	s := sys.Slack
	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.TokenEnv != "" {
		cfg.TokenEnv = s.TokenEnv
	}
	if s.Channel != "" {
		cfg.Channel = s.Channel
	}

	return cfg
}

// resolveStoreConfig resolves store configuration from system YAML, applying defaults.
func resolveStoreConfig(sys *SystemYAMLConfig) *StoreConfig {
	cfg := &StoreConfig{
		Type:   StoreTypeMemory,
		DSNEnv: "DATABASE_URL",
	}

	if sys == nil || sys.Store == nil {
		return cfg
	}

	s := sys.Store
	if s.Type != "" {
		cfg.Type = StoreType(s.Type)
	}
	if s.DSNEnv != "" {
		cfg.DSNEnv = s.DSNEnv
	}

	return cfg
}

// resolveLLMConfig resolves LLM configuration from system YAML, applying defaults.
func resolveLLMConfig(sys *SystemYAMLConfig) *LLMConfig {
	cfg := &LLMConfig{
		Model:             "gpt-4o",
		APIKeyEnv:         "LLM_API_KEY",
		Timeout:           120 * time.Second,
		MaxMemoryMessages: 50,
	}

	if sys == nil || sys.LLM == nil {
		return cfg
	}

	l := sys.LLM
	if l.Model != "" {
		cfg.Model = l.Model
	}
	if l.BaseURL != "" {
		cfg.BaseURL = l.BaseURL
	}
	if l.APIKeyEnv != "" {
		cfg.APIKeyEnv = l.APIKeyEnv
	}
	if l.Temperature != nil {
		cfg.Temperature = l.Temperature
	}
	if l.MaxTokens != nil {
		cfg.MaxTokens = l.MaxTokens
	}
	if l.Timeout != "" {
		if d, err := time.ParseDuration(l.Timeout); err == nil {
			cfg.Timeout = d
		} else {
			slog.Warn("Invalid timeout in llm config, using default",
				"value", l.Timeout,
				"default", cfg.Timeout,
				"error", err)
		}
	}
	if l.MaxMemoryMessages > 0 {
		cfg.MaxMemoryMessages = l.MaxMemoryMessages
	}

	return cfg
}
