package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

var _ core.EventSink = (*FileLog)(nil)

func TestFileLogAppendOrder(t *testing.T) {
	log, err := NewFileLog(filepath.Join(t.TempDir(), "orchestration", "events.jsonl"))
	require.NoError(t, err)

	first := core.NewEvent(core.EventTaskCreated, "task_aaa", "creator", map[string]any{"title": "x"})
	second := core.NewEvent(core.EventTaskClaimed, "task_aaa", "agent1", nil)
	require.NoError(t, log.Append(first))
	require.NoError(t, log.Append(second))

	events, err := log.Read()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.EventID, events[0].EventID)
	assert.Equal(t, second.EventID, events[1].EventID)
	assert.Equal(t, core.EventTaskCreated, events[0].Type)
	assert.Equal(t, "x", events[0].Metadata["title"])
}

func TestFileLogOneJSONRecordPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewFileLog(path)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(core.NewEvent(core.EventHeartbeat, "task_aaa", "agent1", nil)))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 3)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "{"))
	}
}

func TestFileLogReadMissingFile(t *testing.T) {
	log, err := NewFileLog(filepath.Join(t.TempDir(), "events.jsonl"))
	require.NoError(t, err)

	events, err := log.Read()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileLogConcurrentAppends(t *testing.T) {
	log, err := NewFileLog(filepath.Join(t.TempDir(), "events.jsonl"))
	require.NoError(t, err)

	const writers = 8
	const perWriter = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_ = log.Append(core.NewEvent(core.EventHeartbeat, "task_aaa", "agent1", nil))
			}
		}()
	}
	wg.Wait()

	events, err := log.Read()
	require.NoError(t, err)
	assert.Len(t, events, writers*perWriter)
}

func TestInMemorySinkFiltering(t *testing.T) {
	sink := NewInMemorySink()

	require.NoError(t, sink.Append(core.NewEvent(core.EventTaskCreated, "task_aaa", "creator", nil)))
	require.NoError(t, sink.Append(core.NewEvent(core.EventTaskClaimed, "task_aaa", "agent1", nil)))
	require.NoError(t, sink.Append(core.NewEvent(core.EventTaskClaimed, "task_bbb", "agent2", nil)))

	assert.Len(t, sink.Events(), 3)
	claimed := sink.OfType(core.EventTaskClaimed)
	require.Len(t, claimed, 2)
	assert.Equal(t, "task_aaa", claimed[0].TaskID)
	assert.Equal(t, "task_bbb", claimed[1].TaskID)
	assert.Empty(t, sink.OfType(core.EventTaskFailed))
}
