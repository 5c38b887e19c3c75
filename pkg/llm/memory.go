package llm

import (
	"strings"
	"sync"

	"github.com/talonsec/talon/pkg/models"
)

// DefaultMaxMemoryMessages bounds conversation memory when the config
// leaves it unset.
const DefaultMaxMemoryMessages = 50

// Memory is a bounded ring of conversation messages. When full, the oldest
// non-system message is evicted so the system prompt survives arbitrarily
// long conversations.
type Memory struct {
	mu       sync.Mutex
	messages []models.ConversationMessage
	max      int
}

// NewMemory creates a conversation memory holding at most max messages.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxMemoryMessages
	}
	return &Memory{max: max}
}

// Add appends a message, evicting the oldest non-system message if the
// ring is full.
func (m *Memory) Add(msg models.ConversationMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
	if len(m.messages) <= m.max {
		return
	}
	for i, existing := range m.messages {
		if existing.Role != models.RoleSystem {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return
		}
	}
	// All system messages; drop the oldest anyway to honor the bound.
	m.messages = m.messages[1:]
}

// Messages returns a snapshot of the current conversation.
func (m *Memory) Messages() []models.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ConversationMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of retained messages.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Context renders the conversation as flattened "role: content" lines,
// suitable for embedding in a planning prompt.
func (m *Memory) Context() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}

// Clear empties the memory.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
