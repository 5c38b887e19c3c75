// Package agent runs the bounded action loop: the model proposes one JSON
// tool call per turn, the executor dispatches it through the scoped
// registry, and the observation is fed back until the model calls
// complete_task or the turn budget runs out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talonsec/talon/pkg/agent/prompt"
	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/models"
	"github.com/talonsec/talon/pkg/plugin"
)

// CompleteTaskTool is the synthesized pseudo-tool that terminates the loop.
const CompleteTaskTool = "complete_task"

// sternCorrection is the recovery message for non-JSON replies. Models that
// start apologizing tend to keep apologizing; the phrasing breaks that.
const sternCorrection = "Respond with valid JSON only; do not apologize."

// BudgetExhaustedError means the agent burned its whole turn budget without
// calling complete_task.
type BudgetExhaustedError struct {
	Agent string
	Turns int
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("agent %s exhausted its budget of %d turns without completing the task", e.Agent, e.Turns)
}

// Executor drives one agent definition to completion.
type Executor struct {
	def      *config.AgentDefinition
	client   llm.Client
	registry *plugin.Registry
	maxTurns int
	sink     ActivitySink
	logger   *slog.Logger

	outputLimit int
}

// Option customizes an executor.
type Option func(*Executor)

// WithActivitySink attaches an observation sink.
func WithActivitySink(sink ActivitySink) Option {
	return func(e *Executor) { e.sink = sink }
}

// WithOutputLimit overrides the tool-output truncation budget.
func WithOutputLimit(limit int) Option {
	return func(e *Executor) { e.outputLimit = limit }
}

// NewExecutor builds an executor for one agent over an already-scoped
// registry.
func NewExecutor(def *config.AgentDefinition, client llm.Client, registry *plugin.Registry, opts ...Option) *Executor {
	maxTurns := config.DefaultMaxTurns
	if def.MaxTurns != nil && *def.MaxTurns > 0 {
		maxTurns = *def.MaxTurns
	}
	e := &Executor{
		def:         def,
		client:      client,
		registry:    registry,
		maxTurns:    maxTurns,
		logger:      slog.Default().With("component", "agent-executor", "agent", def.Name),
		outputLimit: config.DefaultToolOutputLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the loop with the given inputs and returns the parameters
// the agent passed to complete_task.
func (e *Executor) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	return e.RunWithHistory(ctx, inputs, nil)
}

// RunWithHistory executes the loop, seeding the conversation with prior
// history between the system prompt and the task inputs.
func (e *Executor) RunWithHistory(ctx context.Context, inputs map[string]any, history []models.ConversationMessage) (map[string]any, error) {
	if err := e.checkRequiredInputs(inputs); err != nil {
		return nil, err
	}

	messages := []models.ConversationMessage{
		models.SystemMessage(prompt.BuildSystemPrompt(e.def, e.toolSummaries())),
	}
	messages = append(messages, history...)
	messages = append(messages, models.UserMessage(prompt.RenderInputs(e.def, inputs)))

	for turn := 1; turn <= e.maxTurns; turn++ {
		resp, err := e.client.Generate(ctx, messages, false)
		if err != nil {
			return nil, err
		}
		messages = append(messages, models.AssistantMessage(resp.Content))

		parsed := ParseAction(resp.Content)
		if !parsed.Valid {
			e.emit(Activity{Kind: ActivityWarning, Agent: e.def.Name, Turn: turn, Content: parsed.Reason})
			messages = append(messages, models.UserMessage(e.correction(parsed.Reason)))
			continue
		}
		action := parsed.Action
		e.emit(Activity{
			Kind:    ActivityThinking,
			Agent:   e.def.Name,
			Turn:    turn,
			Content: action.Rationale,
		})

		if action.Tool == CompleteTaskTool {
			result, err := e.validateOutput(action.Parameters)
			if err != nil {
				messages = append(messages, models.UserMessage(err.Error()))
				continue
			}
			e.emit(Activity{Kind: ActivityAnswer, Agent: e.def.Name, Turn: turn, Detail: result})
			return result, nil
		}

		tool, ok := e.registry.Get(action.Tool)
		if !ok {
			msg := fmt.Sprintf("Unknown tool %q. Valid tools: %s, %s.",
				action.Tool, strings.Join(e.registry.Names(), ", "), CompleteTaskTool)
			e.emit(Activity{Kind: ActivityWarning, Agent: e.def.Name, Turn: turn, Content: msg})
			messages = append(messages, models.UserMessage(msg))
			continue
		}

		e.emit(Activity{
			Kind:   ActivityToolCall,
			Agent:  e.def.Name,
			Turn:   turn,
			Tool:   action.Tool,
			Detail: action.Parameters,
		})

		observation := e.dispatch(ctx, tool, action.Parameters)
		e.emit(Activity{Kind: ActivityToolResult, Agent: e.def.Name, Turn: turn, Tool: action.Tool, Content: observation})
		messages = append(messages, models.UserMessage(
			fmt.Sprintf("Result of %s:\n%s", action.Tool, observation)))
	}

	e.logger.Warn("Turn budget exhausted", "max_turns", e.maxTurns)
	return nil, &BudgetExhaustedError{Agent: e.def.Name, Turns: e.maxTurns}
}

// dispatch invokes one tool and renders the observation. Execution errors
// become observations too; the loop never dies on a tool failure.
func (e *Executor) dispatch(ctx context.Context, tool plugin.Tool, params map[string]any) string {
	out, err := tool.Execute(ctx, params)
	if err != nil {
		return fmt.Sprintf("tool error: %v", err)
	}
	return e.stringify(out)
}

// stringify renders a tool result for the conversation and truncates it to
// the output budget.
func (e *Executor) stringify(out any) string {
	var rendered string
	switch v := out.(type) {
	case string:
		rendered = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			rendered = fmt.Sprintf("%v", v)
		} else {
			rendered = string(encoded)
		}
	}

	if len(rendered) > e.outputLimit {
		rendered = rendered[:e.outputLimit] + "…[truncated]"
	}
	return rendered
}

// correction picks the recovery message for an invalid reply.
func (e *Executor) correction(reason string) string {
	if reason == "no tool was named" {
		return fmt.Sprintf("You must name a tool. Valid tools: %s, %s.",
			strings.Join(e.registry.Names(), ", "), CompleteTaskTool)
	}
	return sternCorrection
}

// validateOutput checks the complete_task parameters against the agent's
// declared output.
func (e *Executor) validateOutput(params map[string]any) (map[string]any, error) {
	if e.def.Output == nil {
		return params, nil
	}
	if _, ok := params[e.def.Output.Name]; !ok {
		return nil, fmt.Errorf("complete_task parameters must contain the key %q", e.def.Output.Name)
	}
	return params, nil
}

func (e *Executor) checkRequiredInputs(inputs map[string]any) error {
	for _, name := range e.def.RequiredInputs() {
		if _, ok := inputs[name]; !ok {
			return fmt.Errorf("agent %s: required input %q missing", e.def.Name, name)
		}
	}
	return nil
}

func (e *Executor) toolSummaries() []prompt.ToolSummary {
	var summaries []prompt.ToolSummary
	for _, name := range e.registry.Names() {
		tool, ok := e.registry.Get(name)
		if !ok {
			continue
		}
		summary := prompt.ToolSummary{Name: name, Description: tool.Description()}
		if example, ok := tool.Info()["example_usage"].(string); ok {
			summary.Example = example
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func (e *Executor) emit(activity Activity) {
	if e.sink != nil {
		e.sink.Emit(activity)
	}
}
