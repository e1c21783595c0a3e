// Package eventlog provides EventSink implementations for the orchestration
// event log: a JSON-lines file appender (the durable default) and an
// in-memory sink useful for tests and dashboards. The log is append-only;
// records are never mutated or deleted.
package eventlog
