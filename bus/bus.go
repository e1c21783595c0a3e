package bus

import (
	"strings"
	"sync"
)

// Message is the wire envelope delivered to handlers.
type Message struct {
	Route   string         `json:"route"`
	Payload map[string]any `json:"payload"`
}

// Handler processes one delivered message. Handlers run synchronously on the
// publisher's goroutine; long work should be handed off by the handler.
type Handler func(msg Message)

// Unsubscribe removes the subscription it was returned for. Calling it more
// than once is a no-op; other subscriptions, including ones registered with
// the same pattern and handler, are untouched.
type Unsubscribe func()

type subscription struct {
	pattern string
	handler Handler
}

// MessageBus is a synchronous in-process event bus over dot-separated
// routes. It is safe for concurrent use; handlers registered first are
// delivered first.
type MessageBus struct {
	mu      sync.Mutex
	subs    []*subscription
	running bool
}

// New constructs an empty bus.
func New() *MessageBus {
	return &MessageBus{}
}

// Start marks the bus running. The flag is informational; publishing works
// regardless, mirroring the in-process nature of the bus.
func (b *MessageBus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = true
}

// Stop clears the running flag.
func (b *MessageBus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
}

// IsRunning reports the lifecycle flag.
func (b *MessageBus) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Subscribe registers a handler for routes matching pattern. A pattern
// ending in '*' matches any route sharing the prefix before the star; any
// other pattern matches exactly. The returned Unsubscribe removes exactly
// this subscription.
func (b *MessageBus) Subscribe(pattern string, handler Handler) Unsubscribe {
	sub := &subscription{pattern: pattern, handler: handler}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s == sub {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers {route, payload} to every matching subscription in
// subscription order, synchronously on the caller's goroutine. The
// subscription list is snapshotted first, so handlers may subscribe or
// unsubscribe without deadlocking.
func (b *MessageBus) Publish(route string, payload map[string]any) {
	msg := Message{Route: route, Payload: payload}

	b.mu.Lock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if routeMatches(sub.pattern, route) {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, handler := range matched {
		handler(msg)
	}
}

func routeMatches(pattern, route string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(route, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == route
}
