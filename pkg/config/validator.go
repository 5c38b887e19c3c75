package config

import (
	"fmt"
	"net/netip"
)

// ConfigValidator validates configuration comprehensively with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	// Validate in order: policy → adapters → agents → system
	// This ensures dependencies are validated before dependents

	if err := v.validatePolicy(); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}

	if err := v.validateAdapters(); err != nil {
		return fmt.Errorf("adapter validation failed: %w", err)
	}

	if err := v.validateAgents(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}

	if err := v.validateSystem(); err != nil {
		return fmt.Errorf("system validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validatePolicy() error {
	p := v.cfg.Policy
	if p == nil {
		return NewValidationError("policy", "policy", "", fmt.Errorf("%w: policy section", ErrMissingRequiredField))
	}

	if p.RateLimiting.WindowSize <= 0 {
		return NewValidationError("policy", "rate_limiting", "window_size", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if p.RateLimiting.MaxRequests < 1 {
		return NewValidationError("policy", "rate_limiting", "max_requests", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if p.RateLimiting.GlobalMaxRequests < p.RateLimiting.MaxRequests {
		return NewValidationError("policy", "rate_limiting", "global_max_requests",
			fmt.Errorf("%w: must be >= max_requests", ErrInvalidValue))
	}

	// Authorized networks must parse as CIDR prefixes
	for _, cidr := range p.TargetValidation.AuthorizedNetworks {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			return NewValidationError("policy", "target_validation", "authorized_networks",
				fmt.Errorf("%w: %q is not a CIDR prefix: %v", ErrInvalidValue, cidr, err))
		}
	}

	return nil
}

func (v *ConfigValidator) validateAdapters() error {
	for name, adapter := range v.cfg.AdapterRegistry.adapters {
		if !adapter.Backend.IsValid() {
			return NewValidationError("adapter", name, "backend",
				fmt.Errorf("%w: %q (want process, container, or network)", ErrInvalidValue, adapter.Backend))
		}

		// Each backend requires its dispatch field
		switch adapter.Backend {
		case AdapterBackendProcess:
			if adapter.Command == "" {
				return NewValidationError("adapter", name, "command", ErrMissingRequiredField)
			}
		case AdapterBackendContainer:
			if adapter.Image == "" {
				return NewValidationError("adapter", name, "image", ErrMissingRequiredField)
			}
		case AdapterBackendNetwork:
			// base_url optional: some network adapters derive the URL from params
		}

		if adapter.Timeout < 0 {
			return NewValidationError("adapter", name, "timeout", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
		}
		if adapter.MaxRetries < 0 {
			return NewValidationError("adapter", name, "max_retries", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
		}
		if adapter.RateLimitRPM < 0 {
			return NewValidationError("adapter", name, "rate_limit_rpm", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
		}
	}

	return nil
}

func (v *ConfigValidator) validateAgents() error {
	agents := v.cfg.AgentRegistry.GetAll()
	for name, agent := range agents {
		if agent.SystemPrompt == "" {
			return NewValidationError("agent", name, "system_prompt", ErrMissingRequiredField)
		}

		// Allowed tools must resolve to an adapter or another agent
		for _, tool := range agent.AllowedTools {
			if tool == name {
				return NewValidationError("agent", name, "allowed_tools", fmt.Errorf("%w: agent cannot list itself", ErrInvalidReference))
			}
			if !v.cfg.AdapterRegistry.Has(tool) && !v.cfg.AgentRegistry.Has(tool) {
				return NewValidationError("agent", name, "allowed_tools",
					fmt.Errorf("%w: tool '%s' is neither an adapter nor an agent", ErrInvalidReference, tool))
			}
		}

		for inputName, input := range agent.Inputs {
			if input.Type != "" && !input.Type.IsValid() {
				return NewValidationError("agent", name, "inputs."+inputName,
					fmt.Errorf("%w: type %q", ErrInvalidValue, input.Type))
			}
		}

		if agent.Output != nil && agent.Output.Name == "" {
			return NewValidationError("agent", name, "output.name", ErrMissingRequiredField)
		}

		if agent.MaxTurns != nil && *agent.MaxTurns < 1 {
			return NewValidationError("agent", name, "max_turns", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
		}
	}

	return nil
}

func (v *ConfigValidator) validateSystem() error {
	if v.cfg.Store != nil && !v.cfg.Store.Type.IsValid() {
		return NewValidationError("store", "store", "type",
			fmt.Errorf("%w: %q (want postgres or memory)", ErrInvalidValue, v.cfg.Store.Type))
	}

	if v.cfg.LLM != nil && v.cfg.LLM.Model == "" {
		return NewValidationError("llm", "llm", "model", ErrMissingRequiredField)
	}

	if v.cfg.Queue != nil {
		if v.cfg.Queue.WorkerCount < 1 {
			return NewValidationError("queue", "queue", "worker_count", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
		}
		if v.cfg.Queue.QueueDepth < 1 {
			return NewValidationError("queue", "queue", "queue_depth", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
		}
	}

	// Passive tools must reference enabled adapters
	for _, tool := range v.cfg.PassiveTools() {
		if !v.cfg.AdapterRegistry.Has(tool) {
			return NewValidationError("defaults", "defaults", "passive_tools",
				fmt.Errorf("%w: adapter '%s' not found", ErrInvalidReference, tool))
		}
	}

	if v.cfg.Defaults != nil && v.cfg.Defaults.EvidenceMasking != nil && v.cfg.Defaults.EvidenceMasking.Enabled {
		group := v.cfg.Defaults.EvidenceMasking.PatternGroup
		if _, ok := GetBuiltinConfig().PatternGroups[group]; !ok {
			return NewValidationError("defaults", "defaults", "evidence_masking.pattern_group",
				fmt.Errorf("%w: pattern group '%s' not found", ErrInvalidReference, group))
		}
	}

	return nil
}
