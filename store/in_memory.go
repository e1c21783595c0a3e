package store

import (
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// InMemoryStore is a volatile TaskStore keeping the collection in a process
// local map. It is best suited for tests and ephemeral demos. Tasks are deep
// copied on both Load and Save so callers can never mutate internal state.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]core.Task
}

// NewInMemoryStore constructs an empty in-memory task store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tasks: make(map[string]core.Task)}
}

// Load returns a deep copy of the full task collection.
func (s *InMemoryStore) Load() (map[string]core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]core.Task, len(s.tasks))
	for id, t := range s.tasks {
		out[id] = t.Clone()
	}
	return out, nil
}

// Save replaces the full task collection with a deep copy of tasks.
func (s *InMemoryStore) Save(tasks map[string]core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]core.Task, len(tasks))
	for id, t := range tasks {
		next[id] = t.Clone()
	}
	s.tasks = next
	return nil
}
