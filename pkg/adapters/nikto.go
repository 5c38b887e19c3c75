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

// Nikto wraps the nikto web server scanner (container backend).
type Nikto struct {
	cfg  *config.AdapterConfig
	deps Deps
}

// NewNikto creates the nikto adapter.
func NewNikto(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &Nikto{cfg: cfg, deps: deps}
}

func (a *Nikto) ValidateConfig() error {
	if a.cfg.Image == "" {
		return adapter.ConfigError("nikto", "image", "required")
	}
	if keys := a.cfg.OptionKeys(); len(keys) > 0 {
		return adapter.ConfigError("nikto", keys[0], "unknown field")
	}
	return nil
}

func (a *Nikto) ValidateParams(params map[string]any) error {
	url, err := adapter.StringParam(params, "url")
	if err != nil {
		return err
	}
	return adapter.ValidateURL("url", url)
}

func (a *Nikto) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	url, _ := adapter.StringParam(params, "url")

	spec := runner.RunSpec{
		Image:   a.cfg.Image,
		Args:    []string{"-h", url, "-nointeractive"},
		Network: a.cfg.Network,
		Timeout: configTimeout(a.cfg, 15*time.Minute),
	}
	if a.deps.Evidence != nil {
		spec.Volumes = []runner.VolumeMount{
			{HostPath: a.deps.Evidence.Dir(), ContainerPath: "/evidence"},
		}
	}

	res, err := a.deps.Container.Run(ctx, spec)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("nikto runner error: %v", err)), nil
	}
	return resultFromRun("nikto", url, a.deps, res), nil
}

func (a *Nikto) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "nikto",
		Version:      "1.0.0",
		Description:  "Web server misconfiguration and known-issue scanner",
		Capabilities: []string{"web_scan"},
		Requirements: []string{"container runtime", "nikto image"},
		ExampleUsage: `{"tool":"nikto","parameters":{"url":"http://192.168.1.50"}}`,
	}
}
