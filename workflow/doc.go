// Package workflow drives the fixed four-stage abliteration pipeline
// (baseline_test, abliteration, validation_test, comparison) for one model
// backend at a time, and batches the pipeline across every registry entry on
// a bounded worker pool.
//
// Each stage materializes as its own orchestrator task, created, claimed and
// completed under the workflow's agent identity, so the orchestrator's task
// and event state exposes pipeline sub-steps instead of one opaque unit.
// Stages run strictly in order within a unit; independent units have no
// ordering constraint between them.
package workflow
