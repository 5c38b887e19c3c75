package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/plugin"
)

// PlannerAgentName is the builtin planning agent's registry name.
const PlannerAgentName = "planner"

// PlannerCatalogueInput is the planner input that receives the requesting
// side's tool catalogue.
const PlannerCatalogueInput = "available_tools"

// plannerMemoryLimit bounds how many prior planning exchanges are replayed
// into the next round.
const plannerMemoryLimit = 20

// Planner drives the planning agent through the executor and adapts its
// scan_plan output to the orchestrator's planning contract. Each round runs
// a fresh loop seeded with the memory of earlier rounds, the catalogue of
// executable tools, and retrieved tool hints.
type Planner struct {
	def       *config.AgentDefinition
	client    llm.Client
	parent    *plugin.Registry
	memory    *llm.Memory
	knowledge *llm.KnowledgeBase
	opts      []Option
	logger    *slog.Logger
}

// NewPlanner builds a planner over the registry whose tools the produced
// steps must come from. Executor options (activity sinks, output limits)
// apply to every planning round.
func NewPlanner(def *config.AgentDefinition, client llm.Client, parent *plugin.Registry, opts ...Option) *Planner {
	return &Planner{
		def:       def,
		client:    client,
		parent:    parent,
		memory:    llm.NewMemory(plannerMemoryLimit),
		knowledge: seedToolKnowledge(parent),
		opts:      opts,
		logger:    slog.Default().With("component", "planner", "agent", def.Name),
	}
}

// PlanNextSteps runs one planning round. Transport failures and budget
// exhaustion propagate so the caller can fall back to its default plan.
func (p *Planner) PlanNextSteps(ctx context.Context, summary, objective string) ([]llm.ScanStep, error) {
	inputs := map[string]any{
		"objective":           objective,
		"context":             p.contextWithHints(summary, objective),
		PlannerCatalogueInput: Catalogue(p.parent),
	}

	scoped := p.parent.Scoped(p.def.AllowedTools)
	executor := NewExecutor(p.def, p.client, scoped, p.opts...)
	result, err := executor.RunWithHistory(ctx, inputs, p.memory.Messages())
	if err != nil {
		return nil, err
	}

	key := "scan_plan"
	if p.def.Output != nil {
		key = p.def.Output.Name
	}
	raw, ok := result[key]
	if !ok {
		return nil, fmt.Errorf("planner output is missing the %q key", key)
	}
	steps, err := decodeScanPlan(raw)
	if err != nil {
		return nil, err
	}

	p.remember(objective, steps)
	p.logger.Info("Planning round complete", "steps", len(steps))
	return steps, nil
}

// remember records the round so the next one plans incrementally instead of
// re-proposing the same steps.
func (p *Planner) remember(objective string, steps []llm.ScanStep) {
	encoded, err := json.Marshal(steps)
	if err != nil {
		return
	}
	p.memory.Add(models.UserMessage("Objective: " + objective))
	p.memory.Add(models.AssistantMessage(fmt.Sprintf(`{"scan_plan":%s}`, encoded)))
}

// contextWithHints appends the most relevant tool hints to the context
// summary.
func (p *Planner) contextWithHints(summary, objective string) string {
	docs := p.knowledge.Retrieve(objective+" "+summary, 3)
	if len(docs) == 0 {
		return summary
	}
	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n\nTool hints:\n")
	for _, doc := range docs {
		b.WriteString("- " + doc.Content + "\n")
	}
	return b.String()
}

// decodeScanPlan accepts the shapes models actually hand back through
// complete_task: a decoded array, a JSON string of the array, or a string
// still wrapped in the scan_plan envelope.
func decodeScanPlan(raw any) ([]llm.ScanStep, error) {
	switch v := raw.(type) {
	case string:
		var steps []llm.ScanStep
		if err := json.Unmarshal([]byte(v), &steps); err == nil {
			return steps, nil
		}
		payload, err := llm.ExtractJSONObject(v)
		if err != nil {
			return nil, fmt.Errorf("scan plan is not JSON: %w", err)
		}
		var envelope struct {
			ScanPlan []llm.ScanStep `json:"scan_plan"`
		}
		if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
			return nil, fmt.Errorf("scan plan envelope malformed: %w", err)
		}
		return envelope.ScanPlan, nil

	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("scan plan is not encodable: %w", err)
		}
		var steps []llm.ScanStep
		if err := json.Unmarshal(encoded, &steps); err != nil {
			return nil, fmt.Errorf("scan plan malformed: %w", err)
		}
		return steps, nil
	}
}

// seedToolKnowledge indexes every registered tool so planning rounds can
// retrieve usage hints by objective.
func seedToolKnowledge(reg *plugin.Registry) *llm.KnowledgeBase {
	kb := llm.NewKnowledgeBase()
	for _, name := range reg.Names() {
		tool, ok := reg.Get(name)
		if !ok {
			continue
		}
		content := name + ": " + tool.Description()
		if example, ok := tool.Info()["example_usage"].(string); ok && example != "" {
			content += "\nExample: " + example
		}
		kb.Store(llm.Document{
			DocID:    name,
			Content:  content,
			Metadata: map[string]string{"tool": name},
		})
	}
	return kb
}

// Catalogue renders a registry's tools as a bulleted list for prompt
// injection.
func Catalogue(reg *plugin.Registry) string {
	var b strings.Builder
	for i, name := range reg.Names() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- " + name)
		if tool, ok := reg.Get(name); ok {
			b.WriteString(": " + tool.Description())
		}
	}
	return b.String()
}
