package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
)

// Gobuster wraps the gobuster directory enumerator (process backend).
type Gobuster struct {
	cfg  *config.AdapterConfig
	deps Deps
}

// NewGobuster creates the gobuster adapter.
func NewGobuster(cfg *config.AdapterConfig, deps Deps) adapter.Adapter {
	return &Gobuster{cfg: cfg, deps: deps}
}

func (a *Gobuster) ValidateConfig() error {
	if a.cfg.Command == "" {
		return adapter.ConfigError("gobuster", "command", "required")
	}
	if _, ok := a.cfg.StringOption("wordlist"); !ok {
		return adapter.ConfigError("gobuster", "wordlist", "required")
	}
	for _, key := range a.cfg.OptionKeys() {
		if key != "wordlist" && key != "threads" {
			return adapter.ConfigError("gobuster", key, "unknown field")
		}
	}
	return nil
}

func (a *Gobuster) ValidateParams(params map[string]any) error {
	url, err := adapter.StringParam(params, "url")
	if err != nil {
		return err
	}
	if err := adapter.ValidateURL("url", url); err != nil {
		return err
	}
	if mode, err := adapter.OptionalStringParam(params, "mode"); err != nil {
		return err
	} else if mode != "" {
		if err := adapter.ValidateEnum("mode", mode, []string{"dir", "vhost"}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Gobuster) Execute(ctx context.Context, params map[string]any) (*models.AdapterResult, error) {
	url, _ := adapter.StringParam(params, "url")
	mode, _ := adapter.OptionalStringParam(params, "mode")
	if mode == "" {
		mode = "dir"
	}

	wordlist, _ := a.cfg.StringOption("wordlist")
	threads, ok := a.cfg.IntOption("threads")
	if !ok {
		threads = 10
	}

	args := []string{mode, "-u", url, "-w", wordlist, "-t", fmt.Sprintf("%d", threads), "-q"}
	res, err := a.deps.Process.Run(ctx, runSpec(a.cfg.Command, args, configTimeout(a.cfg, 10*time.Minute)))
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("gobuster runner error: %v", err)), nil
	}
	return resultFromRun("gobuster", url, a.deps, res), nil
}

func (a *Gobuster) Info() models.AdapterInfo {
	return models.AdapterInfo{
		Name:         "gobuster",
		Version:      "1.0.0",
		Description:  "Directory and virtual-host enumeration against authorized web servers",
		Capabilities: []string{"dir_enum", "vhost_enum"},
		Requirements: []string{"gobuster binary on PATH", "wordlist file"},
		ExampleUsage: `{"tool":"gobuster","parameters":{"url":"http://192.168.1.50","mode":"dir"}}`,
	}
}
