package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/runner"
)

// SQLMap wraps the sqlmap SQL injection scanner (container backend).
// Exploit-class tool: the policy engine gates it behind lab mode or the
// exploit allowlist before it ever reaches the runner.
type SQLMap struct {
	cfg  *config.AdapterConfig
	deps Deps
}

// NewSQLMap creates the sqlmap adapter.
func NewSQLMap(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &SQLMap{cfg: cfg, deps: deps}
}

func (a *SQLMap) ValidateConfig() error {
	if a.cfg.Image == "" {
		return adapter.ConfigError("sqlmap", "image", "required")
	}
	for _, key := range a.cfg.OptionKeys() {
		if key != "risk" && key != "level" {
			return adapter.ConfigError("sqlmap", key, "unknown field")
		}
	}
	if risk, ok := a.cfg.IntOption("risk"); ok && (risk < 1 || risk > 3) {
		return adapter.ConfigError("sqlmap", "risk", "must be 1-3")
	}
	if level, ok := a.cfg.IntOption("level"); ok && (level < 1 || level > 5) {
		return adapter.ConfigError("sqlmap", "level", "must be 1-5")
	}
	return nil
}

func (a *SQLMap) ValidateParams(params map[string]any) error {
	url, err := adapter.StringParam(params, "url")
	if err != nil {
		return err
	}
	return adapter.ValidateURL("url", url)
}

func (a *SQLMap) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	url, _ := adapter.StringParam(params, "url")

	risk, ok := a.cfg.IntOption("risk")
	if !ok {
		risk = 1
	}
	level, ok := a.cfg.IntOption("level")
	if !ok {
		level = 1
	}

	spec := runner.RunSpec{
		Image: a.cfg.Image,
		Args: []string{
			"-u", url,
			"--batch",
			fmt.Sprintf("--risk=%d", risk),
			fmt.Sprintf("--level=%d", level),
			"--output-dir=/evidence/sqlmap",
		},
		Network: a.cfg.Network,
		Timeout: configTimeout(a.cfg, 20*time.Minute),
	}
	if a.deps.Evidence != nil {
		spec.Volumes = []runner.VolumeMount{
			{HostPath: a.deps.Evidence.Dir(), ContainerPath: "/evidence"},
		}
	}

	res, err := a.deps.Container.Run(ctx, spec)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("sqlmap runner error: %v", err)), nil
	}
	return resultFromRun("sqlmap", url, a.deps, res), nil
}

func (a *SQLMap) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "sqlmap",
		Version:      "1.0.0",
		Description:  "SQL injection detection and exploitation (lab/allowlist gated)",
		Capabilities: []string{"sqli_detection", "exploit"},
		Requirements: []string{"container runtime", "sqlmap image"},
		ExampleUsage: `{"tool":"sqlmap","parameters":{"url":"http://192.168.1.50/item?id=1"}}`,
	}
}
