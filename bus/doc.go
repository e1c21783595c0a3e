// Package bus provides a synchronous in-process publish/subscribe bus over
// dot-separated routes, a Router for namespace-scoped subscriptions, and the
// Adapter that bridges remote task claim/heartbeat/release requests to the
// orchestrator with ephemeral session and lock-token tracking.
//
// Delivery is synchronous on the publisher's goroutine and follows
// subscription order. A subscription pattern ending in '*' matches every
// route sharing its prefix.
package bus
