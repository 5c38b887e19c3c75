package agent

import (
	"context"
	"fmt"

	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/plugin"
)

// SubAgentTool exposes an agent definition as a registry tool. Every
// invocation builds a fresh executor over a registry scoped to the
// sub-agent's own allowed tools, so sub-agents never see the parent's full
// toolset.
type SubAgentTool struct {
	def    *config.AgentDefinition
	client llm.Client
	parent *plugin.Registry
	opts   []Option

	// parentCatalogueInput names the sub-agent input that receives the
	// parent's tool catalogue. Empty means no injection. The planner uses
	// this: it plans for the parent's toolset, not its own.
	parentCatalogueInput string
}

// SubAgentOption customizes a sub-agent tool.
type SubAgentOption func(*SubAgentTool)

// WithParentCatalogue injects the parent registry's tool catalogue into the
// named sub-agent input on every invocation.
func WithParentCatalogue(inputName string) SubAgentOption {
	return func(t *SubAgentTool) { t.parentCatalogueInput = inputName }
}

// WithExecutorOptions forwards options to each spawned executor.
func WithExecutorOptions(opts ...Option) SubAgentOption {
	return func(t *SubAgentTool) { t.opts = append(t.opts, opts...) }
}

// NewSubAgentTool wraps an agent definition as a tool over the parent
// registry.
func NewSubAgentTool(def *config.AgentDefinition, client llm.Client, parent *plugin.Registry, opts ...SubAgentOption) *SubAgentTool {
	t := &SubAgentTool{def: def, client: client, parent: parent}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SubAgentTool) Name() string { return t.def.Name }

func (t *SubAgentTool) Description() string {
	if t.def.Description != "" {
		return t.def.Description
	}
	return fmt.Sprintf("Delegate a task to the %s agent", t.def.Name)
}

// Execute runs the sub-agent to completion. The scoped registry is rebuilt
// per invocation so concurrent callers never share executor state.
func (t *SubAgentTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	inputs := make(map[string]any, len(params)+1)
	for k, v := range params {
		inputs[k] = v
	}
	if t.parentCatalogueInput != "" {
		if _, provided := inputs[t.parentCatalogueInput]; !provided {
			inputs[t.parentCatalogueInput] = t.parentCatalogue()
		}
	}

	scoped := t.parent.Scoped(t.def.AllowedTools)
	executor := NewExecutor(t.def, t.client, scoped, t.opts...)
	result, err := executor.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (t *SubAgentTool) Info() map[string]any {
	inputs := make(map[string]any, len(t.def.Inputs))
	for name, in := range t.def.Inputs {
		inputs[name] = map[string]any{
			"description": in.Description,
			"type":        string(in.Type),
			"required":    in.Required,
		}
	}
	info := map[string]any{
		"name":        t.def.Name,
		"description": t.Description(),
		"inputs":      inputs,
	}
	if t.def.Output != nil {
		info["output"] = t.def.Output.Name
	}
	return info
}

// parentCatalogue renders the parent's tool list as text for the injected
// input.
func (t *SubAgentTool) parentCatalogue() string {
	return Catalogue(t.parent)
}
