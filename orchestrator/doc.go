// Package orchestrator coordinates distributed agents over a shared task
// store: tasks are created pending, claimed under exclusive heartbeat
// monitored locks, and released to terminal states by their owner. Locks
// whose heartbeat goes stale are recovered inline on the next touching call
// and in the background by the StaleRecoveryDaemon.
//
// Concurrency model: every mutating operation serializes through one
// process-wide mutex spanning the full load-mutate-persist cycle, and the
// store is re-read on every call. Multiple orchestrator handles over the same
// persisted store therefore observe a consistent view, and the recovery
// daemon can run concurrently with API traffic.
package orchestrator
