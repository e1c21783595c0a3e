package core

import "errors"

// ErrTaskNotFound is returned when a task identifier is not present in the
// task store. Lookup failures are misuse by the caller and therefore surface
// as errors, unlike claim/heartbeat denials which are ordinary booleans.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore persists the full task collection. Implementations must support
// whole-state read and rewrite: the orchestrator loads the complete map,
// mutates it, and saves it back under its own serialization lock, so a store
// needs no internal transaction support beyond atomicity of Save.
//
// Implementations must not cache between calls; every Load reflects the
// current persisted state so multiple orchestrator handles over the same
// store observe a consistent view.
type TaskStore interface {
	// Load returns the full task collection keyed by task id.
	Load() (map[string]Task, error)
	// Save rewrites the full task collection, replacing the previous state.
	// Keys must serialize in deterministic order where the medium is ordered.
	Save(tasks map[string]Task) error
}

// EventSink receives orchestration events in commit order. Appends are
// never rolled back; sinks must tolerate duplicate delivery only across
// process crashes, not within a process.
type EventSink interface {
	Append(event Event) error
}

// EventHook mirrors committed events to an external collaborator. Hook
// failures are contained by the orchestrator: the original event is kept and
// a synthetic event_hook_error event is appended instead of propagating.
type EventHook func(event Event)
