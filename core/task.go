package core

import "time"

// TaskStatus enumerates the lifecycle states of an orchestrated task.
type TaskStatus string

const (
	// TaskPending marks a task that exists but is not owned by any agent.
	TaskPending TaskStatus = "pending"
	// TaskInProgress marks a task currently claimed by an agent.
	TaskInProgress TaskStatus = "in_progress"
	// TaskCompleted marks a terminally successful task.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed marks a terminally failed task.
	TaskFailed TaskStatus = "failed"
)

// Terminal reports whether the status accepts no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is a coordinated unit of work shared between collaborating agents.
//
// Contract:
//   - Status is in_progress only while LockOwner and HeartbeatAt are set
//   - Only the current LockOwner may heartbeat, complete or fail the task
//   - Completed / failed tasks never accept further claims
//   - A task whose heartbeat exceeds the configured stale window is reset
//     to pending by the orchestrator's recovery path
//
// Status and the lock fields are deliberately independent fields rather than
// a single tagged state. This mirrors the persisted wire format, where lock
// fields serialize as explicit nulls once released, and keeps the store
// representation stable across implementations.
type Task struct {
	ID             string         `json:"task_id"`
	Title          string         `json:"title"`
	Payload        map[string]any `json:"payload"`
	CreatedAt      time.Time      `json:"created_at"`
	CreatedBy      string         `json:"created_by"`
	Status         TaskStatus     `json:"status"`
	LockOwner      *string        `json:"lock_owner"`
	LockAcquiredAt *time.Time     `json:"lock_acquired_at"`
	HeartbeatAt    *time.Time     `json:"heartbeat_at"`
	CompletedAt    *time.Time     `json:"completed_at"`
	FailureReason  *string        `json:"failure_reason"`
}

// NewTask constructs a pending task with a fresh identifier and UTC creation
// timestamp. Payload may be nil; it is stored as given.
func NewTask(title string, payload map[string]any, createdBy string) Task {
	return Task{
		ID:        NewTaskID(),
		Title:     title,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
		CreatedBy: createdBy,
		Status:    TaskPending,
	}
}

// Locked reports whether the task currently carries a lock owner.
func (t Task) Locked() bool { return t.LockOwner != nil }

// OwnedBy reports whether agentID is the current lock owner.
func (t Task) OwnedBy(agentID string) bool {
	return t.LockOwner != nil && *t.LockOwner == agentID
}

// Clone returns a deep copy of the task safe for independent mutation.
func (t Task) Clone() Task {
	c := t
	if t.Payload != nil {
		c.Payload = make(map[string]any, len(t.Payload))
		for k, v := range t.Payload {
			c.Payload[k] = v
		}
	}
	if t.LockOwner != nil {
		owner := *t.LockOwner
		c.LockOwner = &owner
	}
	c.LockAcquiredAt = cloneTime(t.LockAcquiredAt)
	c.HeartbeatAt = cloneTime(t.HeartbeatAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	if t.FailureReason != nil {
		reason := *t.FailureReason
		c.FailureReason = &reason
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
