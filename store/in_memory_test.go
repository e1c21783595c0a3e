package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/testutil"
)

var _ core.TaskStore = (*InMemoryStore)(nil)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	s := NewInMemoryStore()

	tasks, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, s.Save(map[string]core.Task{
		"task_aaa": testutil.NewTask("task_aaa").Build(),
	}))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "task_aaa", loaded["task_aaa"].ID)
}

func TestInMemoryStoreIsolatesCallers(t *testing.T) {
	s := NewInMemoryStore()

	saved := map[string]core.Task{
		"task_aaa": testutil.NewTask("task_aaa").Payload(map[string]any{"model": "qwen-7b"}).Build(),
	}
	require.NoError(t, s.Save(saved))

	// Mutating the caller's map or payload after Save must not leak in.
	task := saved["task_aaa"]
	task.Payload["model"] = "tampered"
	delete(saved, "task_aaa")

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "qwen-7b", loaded["task_aaa"].Payload["model"])

	// Mutating a loaded task must not affect the next Load.
	loaded["task_aaa"].Payload["model"] = "tampered"
	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "qwen-7b", again["task_aaa"].Payload["model"])
}
