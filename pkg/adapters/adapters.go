// Package adapters holds the built-in tool wrappers: process-backed
// scanners, container-backed scanners, and direct network lookups. Parsing
// of tool output stays deliberately thin; the verbatim output is the
// evidence.
package adapters

import (
	"fmt"
	"sort"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/runner"
)

// Deps carries the shared infrastructure every adapter builds on.
type Deps struct {
	Process   runner.Runner
	Container runner.Runner
	Evidence  *adapter.EvidenceWriter
}

// Factory builds one adapter from its configuration.
type Factory func(cfg *config.AdapterConfig, deps Deps) adapter.Adapter

// builtinFactories maps adapter names to their constructors. This is the
// discovery surface the plugin manager enumerates.
var builtinFactories = map[string]Factory{
	"nmap":       NewNmap,
	"gobuster":   NewGobuster,
	"whois":      NewWhois,
	"dns_lookup": NewDNSLookup,
	"sqlmap":     NewSQLMap,
	"nikto":      NewNikto,
	"crtsh":      NewCrtSh,
	"wayback":    NewWayback,
	"http_probe": NewHTTPProbe,
	"public_ip":  NewPublicIP,
}

// Lookup returns the factory for a named builtin adapter.
func Lookup(name string) (Factory, bool) {
	f, ok := builtinFactories[name]
	return f, ok
}

// Names returns the sorted names of all builtin adapters.
func Names() []string {
	names := make([]string, 0, len(builtinFactories))
	for name := range builtinFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resultFromRun maps a runner outcome onto the adapter result contract and
// captures evidence for runs that produced output.
func resultFromRun(name, target string, deps Deps, res *runner.RunResult) *models.AdapterResult {
	result := &models.AdapterResult{
		Metadata:      map[string]any{"target": target},
		ExecutionTime: res.Duration,
	}
	if res.ExitCode != nil {
		result.Metadata["exit_code"] = *res.ExitCode
	}

	switch res.Status {
	case runner.RunStatusSuccess:
		result.Status = models.AdapterStatusSuccess
		result.Data = map[string]any{"output": res.Stdout}
	case runner.RunStatusTimeout:
		result.Status = models.AdapterStatusTimeout
		result.ErrorMessage = fmt.Sprintf("%s timed out against %s", name, target)
	default:
		result.Status = models.AdapterStatusFailure
		result.ErrorMessage = firstNonEmpty(res.Stderr, res.Stdout, name+" exited with an error")
	}

	if res.Stdout != "" && deps.Evidence != nil {
		if path, err := deps.Evidence.Write(name, target, "txt", []byte(res.Stdout)); err == nil {
			result.EvidencePath = path
		}
	}
	return result
}

// runSpec builds a process run spec.
func runSpec(command string, args []string, timeout time.Duration) runner.RunSpec {
	return runner.RunSpec{
		Command: command,
		Args:    args,
		Timeout: timeout,
	}
}

// configTimeout returns the configured invocation budget with a fallback.
func configTimeout(cfg *config.AdapterConfig, fallback time.Duration) time.Duration {
	if cfg != nil && cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
