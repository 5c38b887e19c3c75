// Package plugin owns adapter discovery, lazy loading, and the single gated
// execution chokepoint every tool call in the system flows through.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/talonsec/talon/pkg/adapter"
	"github.com/talonsec/talon/pkg/adapters"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/policy"
)

// Manager discovers configured adapters, loads them lazily, and executes
// them behind the policy gate. RunAdapter is the only execution path; no
// caller touches an adapter instance directly.
type Manager struct {
	configs *config.AdapterRegistry
	engine  *policy.Engine
	deps    adapters.Deps
	logger  *slog.Logger

	mu     sync.RWMutex
	loaded map[string]adapter.Adapter
}

// NewManager creates a plugin manager. engine may be nil, which disables
// policy gating (tests only; production wiring always passes one).
func NewManager(configs *config.AdapterRegistry, engine *policy.Engine, deps adapters.Deps) *Manager {
	return &Manager{
		configs: configs,
		engine:  engine,
		deps:    deps,
		logger:  slog.Default().With("component", "plugin-manager"),
		loaded:  make(map[string]adapter.Adapter),
	}
}

// Discover returns the sorted names of every enabled adapter that has both a
// configuration entry and a registered factory.
func (m *Manager) Discover() []string {
	var names []string
	for _, name := range m.configs.Names() {
		if _, ok := adapters.Lookup(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Has reports whether the named adapter is discoverable.
func (m *Manager) Has(name string) bool {
	if !m.configs.Has(name) {
		return false
	}
	cfg, err := m.configs.Get(name)
	if err != nil || !cfg.IsEnabled() {
		return false
	}
	_, ok := adapters.Lookup(name)
	return ok
}

// Load returns the named adapter, instantiating and validating it on first
// request. Instances are cached; a configuration failure is permanent for
// the process lifetime.
func (m *Manager) Load(name string) (adapter.Adapter, error) {
	m.mu.RLock()
	if a, ok := m.loaded[name]; ok {
		m.mu.RUnlock()
		return a, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.loaded[name]; ok {
		return a, nil
	}

	cfg, err := m.configs.Get(name)
	if err != nil {
		return nil, err
	}
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("%w: %s is disabled", config.ErrAdapterNotFound, name)
	}
	factory, ok := adapters.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: no implementation for %s", config.ErrAdapterNotFound, name)
	}

	a := factory(cfg, m.deps)
	if err := a.ValidateConfig(); err != nil {
		return nil, err
	}
	if err := validateContract(name, a); err != nil {
		return nil, err
	}

	m.loaded[name] = a
	m.logger.Info("Adapter loaded", "adapter", name, "backend", cfg.Backend)
	return a, nil
}

// validateContract confirms the instance satisfies the adapter contract
// beyond what the type system guarantees: introspection must identify the
// adapter it was registered as.
func validateContract(name string, a adapter.Adapter) error {
	info := a.Info()
	if info.Name == "" {
		return adapter.ConfigError(name, "info.name", "must not be empty")
	}
	if info.Name != name {
		return adapter.ConfigError(name, "info.name", fmt.Sprintf("reports %q", info.Name))
	}
	return nil
}

// Unload drops every cached adapter instance. The next request loads and
// validates afresh.
func (m *Manager) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = make(map[string]adapter.Adapter)
}

// Info returns the introspection record for a discoverable adapter, loading
// it if necessary.
func (m *Manager) Info(name string) (models.AdapterInfo, error) {
	a, err := m.Load(name)
	if err != nil {
		return models.AdapterInfo{}, err
	}
	return a.Info(), nil
}

// RunAdapter is the single execution chokepoint. Order is fixed: target
// authorization, rate admission, load, parameter validation, execution,
// rate recording on success. Policy denials come back as error-status
// results, never as Go errors; parameter validation failures are Go errors
// so the caller can feed them back to the agent as tool errors.
func (m *Manager) RunAdapter(ctx context.Context, name string, params map[string]any) (*models.AdapterResult, error) {
	if m.engine != nil {
		if target := adapter.ExtractTarget(params); target != "" {
			req := models.TargetRequest{Target: target, ToolName: name, Parameters: params}
			if !m.engine.ValidateAsset(req) {
				return models.ErrorResult(fmt.Sprintf("BLOCKED: unauthorized target %s", target)), nil
			}
		}
		if !m.engine.EnforceRateLimits(name) {
			return models.ErrorResult(fmt.Sprintf("BLOCKED: rate limit exceeded for %s", name)), nil
		}
	}

	a, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	if err := a.ValidateParams(params); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.Execute(ctx, params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("adapter %s returned no result", name)
	}
	if result.ExecutionTime == 0 {
		result.ExecutionTime = time.Since(start)
	}

	if m.engine != nil && result.Status == models.AdapterStatusSuccess {
		m.engine.RateLimiter().Record(name)
	}

	m.logger.Info("Adapter executed",
		"adapter", name,
		"status", result.Status,
		"duration", result.ExecutionTime)
	return result, nil
}
