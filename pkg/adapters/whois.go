package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// Whois wraps the whois registration lookup (process backend, passive).
type Whois struct {
	cfg  *config.AdapterConfig
	deps Deps
}

// NewWhois creates the whois adapter.
func NewWhois(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &Whois{cfg: cfg, deps: deps}
}

func (a *Whois) ValidateConfig() error {
	if a.cfg.Command == "" {
		return adapter.ConfigError("whois", "command", "required")
	}
	if keys := a.cfg.OptionKeys(); len(keys) > 0 {
		return adapter.ConfigError("whois", keys[0], "unknown field")
	}
	return nil
}

func (a *Whois) ValidateParams(params map[string]any) error {
	domain, err := adapter.StringParam(params, "domain")
	if err != nil {
		return err
	}
	return adapter.ValidateHost("domain", domain)
}

func (a *Whois) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	domain, _ := adapter.StringParam(params, "domain")

	res, err := a.deps.Process.Run(ctx, runSpec(a.cfg.Command, []string{domain}, configTimeout(a.cfg, 30*time.Second)))
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("whois runner error: %v", err)), nil
	}
	return resultFromRun("whois", domain, a.deps, res), nil
}

func (a *Whois) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "whois",
		Version:      "1.0.0",
		Description:  "Domain and IP registration lookup (passive)",
		Capabilities: []string{"registration_lookup", "passive_recon"},
		Requirements: []string{"whois binary on PATH"},
		ExampleUsage: `{"tool":"whois","parameters":{"domain":"example.com"}}`,
	}
}
