package core

import "time"

// Event types emitted by the orchestrator. The set is closed; external
// consumers can rely on these strings in the persisted event log.
const (
	EventTaskCreated   = "task_created"
	EventTaskClaimed   = "task_claimed"
	EventHeartbeat     = "heartbeat"
	EventTaskCompleted = "task_completed"
	EventTaskFailed    = "task_failed"
	EventLockRecovered = "lock_recovered"
	// EventHookError is the synthetic event written when an external event
	// hook fails; its metadata carries the source event type and the error.
	EventHookError = "event_hook_error"
)

// Event is one immutable transition record in the orchestration event log.
// Events are appended strictly in the order their causing transition
// committed and are never mutated or deleted afterwards.
type Event struct {
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	TaskID    string         `json:"task_id"`
	Actor     string         `json:"actor"`
	Metadata  map[string]any `json:"metadata"`
}

// NewEvent creates an event with a fresh identifier and UTC timestamp.
// Metadata may be nil; callers should treat the event as immutable after
// construction.
func NewEvent(eventType, taskID, actor string, metadata map[string]any) Event {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Event{
		EventID:   NewEventID(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		TaskID:    taskID,
		Actor:     actor,
		Metadata:  metadata,
	}
}
