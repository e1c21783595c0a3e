// Package store provides TaskStore implementations persisting the full task
// collection: a JSON file store (the default durable backend), and an
// in-memory store for tests and ephemeral setups. A SQLite backed variant
// lives in the sqlite sub-package.
//
// All implementations honor the whole-state read/rewrite contract of
// core.TaskStore: Load returns the complete collection, Save replaces it.
// Serialization safety across concurrent callers is the orchestrator's
// responsibility; stores only guarantee atomicity of a single Save.
package store
