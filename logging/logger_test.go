package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*TaskMeshLogger)(nil)
	_ Logger = NoOpLogger{}
)

func newBufferLogger(level LogLevel) (*TaskMeshLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = &buf
	cfg.AddSource = false
	return NewLogger(cfg), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.SplitN(strings.TrimSpace(buf.String()), "\n", 2)[0]
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLoggerEmitsContextFields(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelInfo)

	logger.WithComponent("orchestrator").
		WithTask("task_aaa", "agent1").
		Info("claimed", "attempt", 2)

	entry := decodeLine(t, buf)
	assert.Equal(t, "claimed", entry["msg"])
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, "task_aaa", entry["task_id"])
	assert.Equal(t, "agent1", entry["agent_id"])
	assert.Equal(t, float64(2), entry["attempt"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("visible")
	assert.NotZero(t, buf.Len())
}

func TestWithContextDoesNotMutateParent(t *testing.T) {
	parent, buf := newBufferLogger(LogLevelInfo)
	child := parent.WithContext("run_id", "r1")

	parent.Info("parent line")
	entry := decodeLine(t, buf)
	_, hasRunID := entry["run_id"]
	assert.False(t, hasRunID)

	buf.Reset()
	child.Info("child line")
	entry = decodeLine(t, buf)
	assert.Equal(t, "r1", entry["run_id"])
}

func TestErrorWithStack(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelError)

	logger.ErrorWithStack(errors.New("store offline"), "persist failed")

	entry := decodeLine(t, buf)
	assert.Equal(t, "store offline", entry["error"])
	assert.Contains(t, entry["stack_trace"], "goroutine")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Format = "text"
	cfg.Output = &buf
	cfg.AddSource = false
	NewLogger(cfg).Info("hello", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "k=v")
}
