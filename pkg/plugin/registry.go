package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/talonsec/talon/pkg/models"
)

// Tool is the minimal shape the agent executor resolves action names
// against. Wrapped adapters, sub-agents, and report helpers all register
// through it.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]any) (any, error)
	Info() map[string]any
}

// Registry is a name-keyed tool map. Scoped clones let sub-agents see only
// the subset they were granted.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool under its own name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the sorted registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Scoped returns a fresh registry holding only the named tools. Unknown
// names are skipped, so a scope can be declared before every tool exists.
func (r *Registry) Scoped(allowed []string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scoped := NewRegistry()
	for _, name := range allowed {
		if tool, ok := r.tools[name]; ok {
			scoped.tools[name] = tool
		}
	}
	return scoped
}

// adapterTool exposes one managed adapter through the Tool shape. Execution
// dispatches through the manager's chokepoint, never directly.
type adapterTool struct {
	name    string
	info    models.AdapterInfo
	manager *Manager
}

// NewAdapterTool wraps a discoverable adapter as a registry tool.
func NewAdapterTool(manager *Manager, name string) (Tool, error) {
	info, err := manager.Info(name)
	if err != nil {
		return nil, err
	}
	return &adapterTool{name: name, info: info, manager: manager}, nil
}

func (t *adapterTool) Name() string        { return t.name }
func (t *adapterTool) Description() string { return t.info.Description }

func (t *adapterTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	result, err := t.manager.RunAdapter(ctx, t.name, params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (t *adapterTool) Info() map[string]any {
	return map[string]any{
		"name":          t.info.Name,
		"version":       t.info.Version,
		"description":   t.info.Description,
		"capabilities":  t.info.Capabilities,
		"requirements":  t.info.Requirements,
		"example_usage": t.info.ExampleUsage,
	}
}

// RegisterAdapters wraps every discoverable adapter and registers it.
// Adapters whose configuration fails validation are skipped with a warning
// rather than aborting startup.
func RegisterAdapters(registry *Registry, manager *Manager) error {
	var firstErr error
	for _, name := range manager.Discover() {
		tool, err := NewAdapterTool(manager, name)
		if err != nil {
			manager.logger.Warn("Skipping adapter with invalid configuration",
				"adapter", name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("adapter %s: %w", name, err)
			}
			continue
		}
		registry.Register(tool)
	}
	return firstErr
}
