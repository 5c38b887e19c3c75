package llm

import (
	"context"
	"errors"

	"github.com/talonsec/talon/pkg/models"
)

// mockClient replays canned responses in order and counts calls. A nil
// entry produces a transport error for that call.
type mockClient struct {
	responses []string
	failAt    map[int]bool
	calls     int
	lastMsgs  []models.ConversationMessage
}

func (m *mockClient) Generate(_ context.Context, messages []models.ConversationMessage, _ bool) (*Response, error) {
	m.lastMsgs = messages
	idx := m.calls
	m.calls++
	if m.failAt[idx] {
		return nil, &TransportError{Operation: "chat completion", Err: errors.New("connection refused")}
	}
	if idx >= len(m.responses) {
		return nil, &TransportError{Operation: "chat completion", Err: errors.New("no canned response")}
	}
	return &Response{Content: m.responses[idx]}, nil
}
