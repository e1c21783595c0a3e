package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/testutil"
)

var _ core.TaskStore = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	tasks, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, s.Save(map[string]core.Task{
		"task_aaa": testutil.NewTask("task_aaa").ClaimedBy("agent1", time.Second).Build(),
		"task_bbb": testutil.NewTask("task_bbb").Failed("gpu oom").Build(),
	}))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	claimed := loaded["task_aaa"]
	assert.Equal(t, core.TaskInProgress, claimed.Status)
	require.NotNil(t, claimed.LockOwner)
	assert.Equal(t, "agent1", *claimed.LockOwner)

	failed := loaded["task_bbb"]
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "gpu oom", *failed.FailureReason)
	assert.Nil(t, failed.LockOwner)
}

func TestSQLiteStoreSaveReplacesCollection(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(map[string]core.Task{
		"task_aaa": testutil.NewTask("task_aaa").Build(),
		"task_bbb": testutil.NewTask("task_bbb").Build(),
	}))
	require.NoError(t, s.Save(map[string]core.Task{
		"task_ccc": testutil.NewTask("task_ccc").Build(),
	}))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	_, ok := loaded["task_ccc"]
	assert.True(t, ok)
}

func TestSQLiteStoreReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(map[string]core.Task{
		"task_aaa": testutil.NewTask("task_aaa").Completed().Build(),
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, core.TaskCompleted, loaded["task_aaa"].Status)
}
