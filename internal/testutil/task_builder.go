package testutil

import (
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// TaskBuilder assembles core.Task values for tests with a fluent API.
type TaskBuilder struct {
	task core.Task
}

// NewTask starts a builder for a pending task with the given id.
func NewTask(id string) *TaskBuilder {
	return &TaskBuilder{task: core.Task{
		ID:        id,
		Title:     "test:" + id,
		Payload:   map[string]any{},
		CreatedAt: time.Now().UTC(),
		CreatedBy: "test",
		Status:    core.TaskPending,
	}}
}

// Title sets the task title.
func (b *TaskBuilder) Title(title string) *TaskBuilder {
	b.task.Title = title
	return b
}

// Payload sets the task payload.
func (b *TaskBuilder) Payload(payload map[string]any) *TaskBuilder {
	b.task.Payload = payload
	return b
}

// ClaimedBy marks the task in_progress with the given owner and a heartbeat
// of the given age.
func (b *TaskBuilder) ClaimedBy(agentID string, heartbeatAge time.Duration) *TaskBuilder {
	at := time.Now().UTC().Add(-heartbeatAge)
	b.task.Status = core.TaskInProgress
	b.task.LockOwner = &agentID
	b.task.LockAcquiredAt = &at
	b.task.HeartbeatAt = &at
	return b
}

// Completed marks the task terminally completed.
func (b *TaskBuilder) Completed() *TaskBuilder {
	now := time.Now().UTC()
	b.task.Status = core.TaskCompleted
	b.task.CompletedAt = &now
	b.task.LockOwner = nil
	b.task.LockAcquiredAt = nil
	b.task.HeartbeatAt = nil
	return b
}

// Failed marks the task terminally failed with the given reason.
func (b *TaskBuilder) Failed(reason string) *TaskBuilder {
	b.task.Status = core.TaskFailed
	b.task.FailureReason = &reason
	b.task.LockOwner = nil
	b.task.LockAcquiredAt = nil
	b.task.HeartbeatAt = nil
	return b
}

// Build returns the assembled task.
func (b *TaskBuilder) Build() core.Task { return b.task }
