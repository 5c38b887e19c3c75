// Package config provides configuration management for the talon system,
// including policy, adapter, agent, LLM, and store configurations.
package config

import (
	"fmt"
	"sort"
	"sync"
)

// InputSpec declares one input parameter of an agent definition
type InputSpec struct {
	Description string    `yaml:"description"`
	Type        InputType `yaml:"type"`
	Required    bool      `yaml:"required"`
}

// OutputSpec declares the single output an agent returns through
// complete_task. Schema describes the expected value shape and is rendered
// into the system prompt verbatim.
type OutputSpec struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Schema      map[string]any `yaml:"schema,omitempty"`
}

// AgentDefinition declares an agent: what it is for, the inputs it takes,
// the single output it must produce, and the tools it may call. Definitions
// are data; the executor turns one into a running loop.
type AgentDefinition struct {
	Name        string `yaml:"-"`
	Description string `yaml:"description,omitempty"`

	Inputs map[string]InputSpec `yaml:"inputs,omitempty"`
	Output *OutputSpec          `yaml:"output,omitempty"`

	// AllowedTools scopes the registry the agent sees. Sub-agents listed
	// here are exposed as tools like any adapter.
	AllowedTools []string `yaml:"allowed_tools"`

	SystemPrompt         string `yaml:"system_prompt"`
	InitialQueryTemplate string `yaml:"initial_query_template,omitempty"`

	// MaxTurns overrides the default turn budget when set
	MaxTurns *int `yaml:"max_turns,omitempty"`
}

// RequiredInputs returns the sorted names of required inputs.
func (d *AgentDefinition) RequiredInputs() []string {
	var names []string
	for name, in := range d.Inputs {
		if in.Required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AgentRegistry stores agent definitions in memory with thread-safe access
type AgentRegistry struct {
	agents map[string]*AgentDefinition
	mu     sync.RWMutex
}

// NewAgentRegistry creates a new agent registry
func NewAgentRegistry(agents map[string]*AgentDefinition) *AgentRegistry {
	// Defensive copy to prevent external mutation
	copied := make(map[string]*AgentDefinition, len(agents))
	for k, v := range agents {
		copied[k] = v
	}
	return &AgentRegistry{
		agents: copied,
	}
}

// Get retrieves an agent definition by name (thread-safe)
func (r *AgentRegistry) Get(name string) (*AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, exists := r.agents[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return agent, nil
}

// GetAll returns all agent definitions (thread-safe, returns copy)
func (r *AgentRegistry) GetAll() map[string]*AgentDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*AgentDefinition, len(r.agents))
	for k, v := range r.agents {
		result[k] = v
	}
	return result
}

// Has checks if an agent exists in the registry (thread-safe)
func (r *AgentRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.agents[name]
	return exists
}

// Names returns the sorted names of all agents (thread-safe)
func (r *AgentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of agents in the registry (thread-safe)
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
