// Package notify delivers subsystem events to interested observers. Events
// mirror what the on-ledger implementation would log; sinks decide where
// they go (structured log, signed webhook, test recorder).
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the verification subsystem.
const (
	EventQueryIssued   = "query.issued"
	EventResultStored  = "result.stored"
	EventProofEmitted  = "proof.emitted"
	EventProofVerified = "proof.verified"
)

type Event struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// NewEvent stamps a fresh event id and UTC occurrence time.
func NewEvent(eventType string, data map[string]any) Event {
	return Event{
		EventID:    "evt_" + uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Sink receives events. Emit must not block the emitting operation on
// remote delivery; sinks that deliver over the network queue internally.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Discard drops every event.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Emit(context.Context, Event) {}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event", "event_id", e.EventID, "type", e.Type, "data", e.Data)
}

// MemorySink records events for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// ByType returns recorded events of one type.
func (s *MemorySink) ByType(eventType string) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}
