package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/talonsec/talon/pkg/llm"
	"github.com/talonsec/talon/pkg/models"
)

// scriptedClient replays canned completions in order and counts calls.
type scriptedClient struct {
	replies []string
	calls   int
	history [][]models.ConversationMessage
}

func (c *scriptedClient) Generate(_ context.Context, messages []models.ConversationMessage, _ bool) (*llm.Response, error) {
	c.history = append(c.history, messages)
	if c.calls >= len(c.replies) {
		return nil, &llm.TransportError{Operation: "chat completion", Err: errors.New("script exhausted")}
	}
	reply := c.replies[c.calls]
	c.calls++
	return &llm.Response{Content: reply}, nil
}

// stubTool is a registry tool with a canned result.
type stubTool struct {
	name   string
	result any
	err    error
	calls  []map[string]any
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return fmt.Sprintf("stub %s tool", t.name) }
func (t *stubTool) Info() map[string]any {
	return map[string]any{"name": t.name, "example_usage": fmt.Sprintf(`{"tool":%q,"parameters":{}}`, t.name)}
}

func (t *stubTool) Execute(_ context.Context, params map[string]any) (any, error) {
	t.calls = append(t.calls, params)
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}

// collectSink records emitted activities.
type collectSink struct {
	activities []Activity
}

func (s *collectSink) Emit(a Activity) { s.activities = append(s.activities, a) }

func (s *collectSink) kinds() []ActivityKind {
	out := make([]ActivityKind, len(s.activities))
	for i, a := range s.activities {
		out[i] = a.Kind
	}
	return out
}
