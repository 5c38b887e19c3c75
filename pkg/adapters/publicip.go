package adapters

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// PublicIP reports the scanner's own egress address (network backend).
// Takes no parameters and touches no target.
type PublicIP struct {
	cfg    *config.AdapterConfig
	deps   Deps
	client *adapter.HTTPClient
}

// NewPublicIP creates the public_ip adapter.
func NewPublicIP(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &PublicIP{
		cfg:    cfg,
		deps:   deps,
		client: newNetClient(cfg),
	}
}

func (a *PublicIP) ValidateConfig() error {
	if a.cfg.BaseURL == "" {
		return adapter.ConfigError("public_ip", "base_url", "required")
	}
	if keys := a.cfg.OptionKeys(); len(keys) > 0 {
		return adapter.ConfigError("public_ip", keys[0], "unknown field")
	}
	return nil
}

func (a *PublicIP) ValidateParams(params map[string]any) error {
	// No parameters; reject anything unexpected so typos surface.
	for key := range params {
		return adapter.ParamError(key, "public_ip takes no parameters")
	}
	return nil
}

func (a *PublicIP) Execute(ctx context.Context, _ map[string]any) (*models.AdapterResult, error) {
	start := time.Now()
	body, err := a.client.Get(ctx, a.cfg.BaseURL)
	if err != nil {
		return netFailure("public_ip", "", err, time.Since(start)), nil
	}

	ip := strings.TrimSpace(string(body))
	if _, parseErr := netip.ParseAddr(ip); parseErr != nil {
		return models.FailureResult(fmt.Sprintf("service returned a non-IP response: %q", truncate(ip, 60))), nil
	}

	return &models.AdapterResult{
		Status:        models.AdapterStatusSuccess,
		Data:          map[string]any{"ip": ip},
		Metadata:      map[string]any{"source": a.cfg.BaseURL},
		ExecutionTime: time.Since(start),
	}, nil
}

func (a *PublicIP) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "public_ip",
		Version:      "1.0.0",
		Description:  "Reports the scanner's public egress IP",
		Capabilities: []string{"self_check"},
		Requirements: []string{"outbound HTTPS"},
		ExampleUsage: `{"tool":"public_ip","parameters":{}}`,
	}
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
