// Package core defines the shared domain model for TaskMesh: orchestrated
// tasks with lock ownership, the append-only event record, identifier
// helpers and the persistence contracts (TaskStore, EventSink) that the
// orchestrator and its stores implement.
//
// The package intentionally carries no behavior beyond value construction
// and validation so that higher layers (orchestrator, workflow, bus) can
// depend on it without cyclic imports.
package core
