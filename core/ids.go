package core

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// shortID returns a prefixed identifier carrying n hex characters of a fresh
// UUID, matching the compact wire format used in the persisted stores
// (task_ab12..., event_cd34...).
func shortID(prefix string, n int) string {
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:])[:n]
}

// NewTaskID generates a unique task identifier.
func NewTaskID() string { return shortID("task", 12) }

// NewEventID generates a unique event identifier.
func NewEventID() string { return shortID("event", 10) }

// NewSessionID generates a unique adapter session identifier.
func NewSessionID() string { return shortID("sess", 12) }

// NewLockToken generates an opaque lock token for adapter sessions.
func NewLockToken() string { return shortID("lock", 12) }
