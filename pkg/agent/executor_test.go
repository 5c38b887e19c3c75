package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talonsec/talon/pkg/config"
	"github.com/talonsec/talon/pkg/plugin"
)

func reconDefinition() *config.AgentDefinition {
	return &config.AgentDefinition{
		Name:         "recon",
		SystemPrompt: "You gather public information about authorized targets.",
		AllowedTools: []string{"public_ip"},
		Output: &config.OutputSpec{
			Name:        "final_answer",
			Description: "the gathered information",
		},
	}
}

func registryWith(tools ...plugin.Tool) *plugin.Registry {
	r := plugin.NewRegistry()
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func TestExecutorHappyPath(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"tool":"public_ip","parameters":{},"rationale":"confirm egress address"}`,
		`{"tool":"complete_task","parameters":{"final_answer":{"answer":"1.2.3.4"}},"rationale":"done"}`,
	}}
	tool := &stubTool{name: "public_ip", result: map[string]any{"ip": "1.2.3.4"}}
	exec := NewExecutor(reconDefinition(), client, registryWith(tool))

	result, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"answer": "1.2.3.4"}, result["final_answer"])
	assert.Equal(t, 2, client.calls)
	require.Len(t, tool.calls, 1)
}

func TestExecutorRecoversFromNonJSONReply(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"Sorry, I cannot comply with that request.",
		`{"tool":"complete_task","parameters":{"final_answer":"nothing found"},"rationale":"done"}`,
	}}
	sink := &collectSink{}
	exec := NewExecutor(reconDefinition(), client, registryWith(), WithActivitySink(sink))

	result, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "nothing found", result["final_answer"])
	assert.Equal(t, 2, client.calls)

	// The correction is appended as a user message before the retry.
	lastConversation := client.history[1]
	correction := lastConversation[len(lastConversation)-1]
	assert.Contains(t, correction.Content, "Respond with valid JSON only; do not apologize.")
	assert.Contains(t, sink.kinds(), ActivityWarning)
}

func TestExecutorCorrectsMissingToolName(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"tool":null,"parameters":{},"rationale":"unsure"}`,
		`{"tool":"none","parameters":{},"rationale":"still unsure"}`,
		`{"tool":"complete_task","parameters":{"final_answer":"ok"},"rationale":"done"}`,
	}}
	tool := &stubTool{name: "public_ip"}
	exec := NewExecutor(reconDefinition(), client, registryWith(tool))

	result, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result["final_answer"])

	correction := client.history[1][len(client.history[1])-1]
	assert.Contains(t, correction.Content, "public_ip")
	assert.Contains(t, correction.Content, CompleteTaskTool)
}

func TestExecutorUnknownToolListsValidTools(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"tool":"metasploit","parameters":{},"rationale":"pwn"}`,
		`{"tool":"complete_task","parameters":{"final_answer":"ok"},"rationale":"done"}`,
	}}
	exec := NewExecutor(reconDefinition(), client, registryWith(&stubTool{name: "public_ip"}))

	_, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)

	feedback := client.history[1][len(client.history[1])-1]
	assert.Contains(t, feedback.Content, `Unknown tool "metasploit"`)
	assert.Contains(t, feedback.Content, "public_ip")
}

func TestExecutorFeedsToolErrorsBack(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"tool":"public_ip","parameters":{},"rationale":"check"}`,
		`{"tool":"complete_task","parameters":{"final_answer":"degraded"},"rationale":"done"}`,
	}}
	tool := &stubTool{name: "public_ip", err: errors.New("validation error: parameter url: required")}
	exec := NewExecutor(reconDefinition(), client, registryWith(tool))

	result, err := exec.Run(context.Background(), nil)
	require.NoError(t, err, "tool failures must not terminate the loop")
	assert.Equal(t, "degraded", result["final_answer"])

	feedback := client.history[1][len(client.history[1])-1]
	assert.Contains(t, feedback.Content, "tool error")
	assert.Contains(t, feedback.Content, "parameter url")
}

func TestExecutorTruncatesLongToolOutput(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"tool":"public_ip","parameters":{},"rationale":"check"}`,
		`{"tool":"complete_task","parameters":{"final_answer":"ok"},"rationale":"done"}`,
	}}
	tool := &stubTool{name: "public_ip", result: strings.Repeat("A", 5000)}
	exec := NewExecutor(reconDefinition(), client, registryWith(tool))

	_, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)

	feedback := client.history[1][len(client.history[1])-1]
	assert.True(t, strings.HasSuffix(feedback.Content, "…[truncated]"))
	assert.Less(t, len(feedback.Content), 2200)
}

func TestExecutorBudgetExhaustion(t *testing.T) {
	replies := make([]string, 20)
	for i := range replies {
		replies[i] = `{"tool":"public_ip","parameters":{},"rationale":"again"}`
	}
	client := &scriptedClient{replies: replies}
	def := reconDefinition()
	turns := 3
	def.MaxTurns = &turns
	exec := NewExecutor(def, client, registryWith(&stubTool{name: "public_ip", result: "1.2.3.4"}))

	_, err := exec.Run(context.Background(), nil)
	require.Error(t, err)
	var budgetErr *BudgetExhaustedError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, 3, budgetErr.Turns)
	assert.Equal(t, 3, client.calls)
}

func TestExecutorRejectsCompleteTaskWithoutDeclaredOutput(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"tool":"complete_task","parameters":{"wrong_key":"x"},"rationale":"done"}`,
		`{"tool":"complete_task","parameters":{"final_answer":"x"},"rationale":"done"}`,
	}}
	exec := NewExecutor(reconDefinition(), client, registryWith())

	result, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "x", result["final_answer"])

	feedback := client.history[1][len(client.history[1])-1]
	assert.Contains(t, feedback.Content, `"final_answer"`)
}

func TestExecutorRequiresDeclaredInputs(t *testing.T) {
	def := reconDefinition()
	def.Inputs = map[string]config.InputSpec{
		"target": {Description: "target", Type: config.InputTypeString, Required: true},
	}
	exec := NewExecutor(def, &scriptedClient{}, registryWith())

	_, err := exec.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required input "target"`)
}

func TestExecutorEmitsActivitySequence(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"tool":"public_ip","parameters":{},"rationale":"check egress"}`,
		`{"tool":"complete_task","parameters":{"final_answer":"1.2.3.4"},"rationale":"done"}`,
	}}
	sink := &collectSink{}
	exec := NewExecutor(reconDefinition(), client,
		registryWith(&stubTool{name: "public_ip", result: "1.2.3.4"}),
		WithActivitySink(sink))

	_, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t,
		[]ActivityKind{ActivityThinking, ActivityToolCall, ActivityToolResult, ActivityThinking, ActivityAnswer},
		sink.kinds())
}
