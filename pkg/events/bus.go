// Package events is the in-process event bus: run lifecycle, scan step
// outcomes, policy violations, and executor activity fan out to subscribers
// (API event feed, Slack notifier) without coupling publishers to them.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one published occurrence.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	RunID     string         `json:"run_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Publisher is the producer-side interface.
type Publisher interface {
	Publish(event Event)
}

// subscriberBufferSize bounds each subscriber's queue. A subscriber that
// falls this far behind starts losing events rather than blocking
// publishers.
const subscriberBufferSize = 256

// defaultRecentCapacity bounds the ring of recent events kept for the API.
const defaultRecentCapacity = 500

// Bus fans events out to subscribers and keeps a ring of recent events.
// Publish never blocks: slow subscribers drop.
type Bus struct {
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[string]chan Event
	recent      []Event
	recentCap   int
	closed      bool
}

// NewBus creates a bus with the default recent-event capacity.
func NewBus() *Bus {
	return &Bus{
		logger:      slog.Default().With("component", "event-bus"),
		subscribers: make(map[string]chan Event),
		recentCap:   defaultRecentCapacity,
	}
}

// Publish stamps the event (ID, timestamp if zero) and delivers it to every
// subscriber that has buffer room.
func (b *Bus) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.recent = append(b.recent, event)
	if len(b.recent) > b.recentCap {
		b.recent = b.recent[len(b.recent)-b.recentCap:]
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Dropping event for slow subscriber",
				"subscriber", id, "event_type", event.Type)
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel closes on unsubscribe or bus Close.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Recent returns up to limit most recent events, newest last. limit <= 0
// means all retained events.
func (b *Bus) Recent(limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.recent
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Close shuts the bus down; subsequent publishes are dropped and all
// subscriber channels close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
