package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// Nmap wraps the nmap port scanner (process backend).
type Nmap struct {
	cfg  *config.AdapterConfig
	deps Deps
}

// NewNmap creates the nmap adapter.
func NewNmap(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &Nmap{cfg: cfg, deps: deps}
}

func (a *Nmap) ValidateConfig() error {
	if a.cfg.Command == "" {
		return adapter.ConfigError("nmap", "command", "required")
	}
	if flags, ok := a.cfg.StringOption("default_flags"); ok {
		if err := adapter.ValidateFlags("default_flags", strings.Fields(flags)); err != nil {
			return adapter.ConfigError("nmap", "default_flags", err.Error())
		}
	}
	for _, key := range a.cfg.OptionKeys() {
		if key != "default_flags" && key != "top_ports" {
			return adapter.ConfigError("nmap", key, "unknown field")
		}
	}
	return nil
}

func (a *Nmap) ValidateParams(params map[string]any) error {
	target, err := adapter.StringParam(params, "target")
	if err != nil {
		return err
	}
	if err := adapter.ValidateHost("target", target); err != nil {
		return err
	}
	if ports, err := adapter.OptionalStringParam(params, "ports"); err != nil {
		return err
	} else if ports != "" {
		if err := adapter.ValidatePortSpec("ports", ports); err != nil {
			return err
		}
	}
	if flags, err := adapter.OptionalStringParam(params, "flags"); err != nil {
		return err
	} else if flags != "" {
		if err := adapter.ValidateFlags("flags", strings.Fields(flags)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Nmap) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	target, _ := adapter.StringParam(params, "target")

	args := a.buildArgs(params, target)
	res, err := a.deps.Process.Run(ctx, runSpec(a.cfg.Command, args, configTimeout(a.cfg, 10*time.Minute)))
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("nmap runner error: %v", err)), nil
	}
	return resultFromRun("nmap", target, a.deps, res), nil
}

func (a *Nmap) buildArgs(params map[string]any, target string) []string {
	var args []string
	if flags, _ := adapter.OptionalStringParam(params, "flags"); flags != "" {
		args = append(args, strings.Fields(flags)...)
	} else if defaults, ok := a.cfg.StringOption("default_flags"); ok {
		args = append(args, strings.Fields(defaults)...)
	}
	if ports, _ := adapter.OptionalStringParam(params, "ports"); ports != "" {
		args = append(args, "-p", ports)
	} else if top, ok := a.cfg.IntOption("top_ports"); ok {
		args = append(args, "--top-ports", fmt.Sprintf("%d", top))
	}
	return append(args, target)
}

func (a *Nmap) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "nmap",
		Version:      "1.0.0",
		Description:  "Port and service scanner for authorized hosts",
		Capabilities: []string{"port_scan", "service_detection"},
		Requirements: []string{"nmap binary on PATH"},
		ExampleUsage: `{"tool":"nmap","parameters":{"target":"192.168.1.50","ports":"1-1024"}}`,
	}
}
