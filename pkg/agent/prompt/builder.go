// Package prompt assembles the system prompt the agent executor drives the
// model with: the agent's own instructions, the tool catalogue, the strict
// JSON action contract, and worked examples.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/talonsec/talon/pkg/config"
)

// ToolSummary is the prompt-facing view of one available tool.
type ToolSummary struct {
	Name        string
	Description string
	Example     string
}

const actionContract = `RESPONSE FORMAT

Respond with a single JSON object and nothing else. No prose, no code fences, no apologies. The object must have exactly this shape:

{"tool": "<tool name>", "parameters": {<tool parameters>}, "rationale": "<one sentence explaining why>"}

Call one tool per response. When the task is done, call the "complete_task" tool with your final output.`

const workedExamples = `EXAMPLES

Calling a tool:
{"tool": "whois", "parameters": {"domain": "example.com"}, "rationale": "Registration data reveals ownership and nameservers."}

Calling a tool with no parameters:
{"tool": "public_ip", "parameters": {}, "rationale": "Confirm the scanner's egress address before scanning."}

Finishing the task:
{"tool": "complete_task", "parameters": {"final_answer": {"summary": "Recon complete, two subdomains found."}}, "rationale": "All requested information has been gathered."}`

// BuildSystemPrompt composes the full system prompt for one agent over its
// scoped tool set.
func BuildSystemPrompt(def *config.AgentDefinition, tools []ToolSummary) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(def.SystemPrompt))
	b.WriteString("\n\n")
	b.WriteString(renderToolCatalogue(def, tools))
	b.WriteString("\n\n")
	b.WriteString(actionContract)
	b.WriteString("\n\n")
	b.WriteString(workedExamples)

	return b.String()
}

// renderToolCatalogue enumerates the available tools plus the synthesized
// complete_task pseudo-tool with the agent's declared output shape.
func renderToolCatalogue(def *config.AgentDefinition, tools []ToolSummary) string {
	var b strings.Builder
	b.WriteString("AVAILABLE TOOLS\n")

	for _, t := range tools {
		fmt.Fprintf(&b, "\n- %s: %s", t.Name, t.Description)
		if t.Example != "" {
			fmt.Fprintf(&b, "\n  example: %s", t.Example)
		}
	}

	b.WriteString("\n\n- complete_task: finish the task and report your result.")
	if def.Output != nil {
		fmt.Fprintf(&b, " Parameters must contain the key %q", def.Output.Name)
		if def.Output.Description != "" {
			fmt.Fprintf(&b, " (%s)", def.Output.Description)
		}
		b.WriteString(".")
		if len(def.Output.Schema) > 0 {
			if schema, err := json.Marshal(def.Output.Schema); err == nil {
				fmt.Fprintf(&b, "\n  expected shape: %s", schema)
			}
		}
	}
	return b.String()
}

// RenderInputs formats the agent's invocation inputs as the opening user
// message. The initial query template, when present, is used verbatim with
// {{name}} placeholders substituted.
func RenderInputs(def *config.AgentDefinition, inputs map[string]any) string {
	if def.InitialQueryTemplate != "" {
		msg := def.InitialQueryTemplate
		for name, value := range inputs {
			rendered := fmt.Sprintf("%v", value)
			msg = strings.ReplaceAll(msg, "{{."+name+"}}", rendered)
			msg = strings.ReplaceAll(msg, "{{"+name+"}}", rendered)
		}
		return msg
	}

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Task inputs:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %v\n", name, inputs[name])
	}
	return strings.TrimSpace(b.String())
}
