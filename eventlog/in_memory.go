package eventlog

import (
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// InMemorySink stores events in an append-only slice. Safe for concurrent use.
type InMemorySink struct {
	mu     sync.RWMutex
	events []core.Event
}

// NewInMemorySink constructs an empty in-memory event sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

// Append records the event.
func (s *InMemorySink) Append(event core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of all recorded events in append order.
func (s *InMemorySink) Events() []core.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Event, len(s.events))
	copy(out, s.events)
	return out
}

// OfType returns the recorded events matching the given type, in order.
func (s *InMemorySink) OfType(eventType string) []core.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Event
	for _, ev := range s.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
