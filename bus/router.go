package bus

import "strings"

// Router scopes subscriptions and emits under a fixed dot-separated
// namespace, so collaborating components agree on route names without
// repeating the prefix everywhere.
type Router struct {
	bus       *MessageBus
	namespace string
}

// NewRouter creates a router for the given namespace. Leading and trailing
// dots in the namespace are ignored.
func NewRouter(b *MessageBus, namespace string) *Router {
	return &Router{bus: b, namespace: strings.Trim(namespace, ".")}
}

func (r *Router) route(name string) string {
	if name == "" {
		return r.namespace
	}
	return r.namespace + "." + name
}

// On subscribes a handler to the exact namespaced route.
func (r *Router) On(eventName string, handler Handler) Unsubscribe {
	return r.bus.Subscribe(r.route(eventName), handler)
}

// OnPattern subscribes a handler to a namespaced pattern; a trailing '*'
// wildcard survives namespacing, so OnPattern("*") matches every route in
// the namespace.
func (r *Router) OnPattern(suffixPattern string, handler Handler) Unsubscribe {
	return r.bus.Subscribe(r.route(suffixPattern), handler)
}

// Emit publishes payload on the namespaced route.
func (r *Router) Emit(eventName string, payload map[string]any) {
	r.bus.Publish(r.route(eventName), payload)
}
