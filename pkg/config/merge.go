package config

// mergeAdapters merges built-in and user-defined adapter configurations.
// User-defined adapters override built-in adapters with the same name.
func mergeAdapters(builtinAdapters map[string]AdapterConfig, userAdapters map[string]AdapterConfig) map[string]*AdapterConfig {
	result := make(map[string]*AdapterConfig)

	for name, adapter := range builtinAdapters {
		adapterCopy := adapter
		// Defensive copy of Options to prevent shared state
		if len(adapter.Options) > 0 {
			adapterCopy.Options = make(map[string]any, len(adapter.Options))
			for k, v := range adapter.Options {
				adapterCopy.Options[k] = v
			}
		}
		result[name] = &adapterCopy
	}

	// User-defined adapters override built-in ones (or add new ones)
	for name, userAdapter := range userAdapters {
		adapterCopy := userAdapter
		result[name] = &adapterCopy
	}

	return result
}

// mergeAgents merges built-in and user-defined agent definitions.
// User-defined agents override built-in agents with the same name.
// The map key becomes the definition's Name.
func mergeAgents(builtinAgents map[string]AgentDefinition, userAgents map[string]AgentDefinition) map[string]*AgentDefinition {
	result := make(map[string]*AgentDefinition)

	for name, agent := range builtinAgents {
		agentCopy := agent
		agentCopy.Name = name
		result[name] = &agentCopy
	}

	for name, userAgent := range userAgents {
		agentCopy := userAgent
		agentCopy.Name = name
		result[name] = &agentCopy
	}

	return result
}
