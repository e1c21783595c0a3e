package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 90*time.Second, cfg.Orchestrator.StaleAfter)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.RecoveryInterval)
	assert.Equal(t, 10, cfg.Batch.MaxWorkers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
workspace: /var/lib/taskmesh
orchestrator:
  stale_after: 2m
  recovery_interval: 45s
batch:
  max_workers: 4
  report_path: /var/lib/taskmesh/report.json
prompts:
  - "probe one"
  - "probe two"
logging:
  level: debug
  format: text
connectors:
  - model_id: llama-3-8b
    kind: llamacpp
    source: local
    model_type: instruct
    min_interval: 250ms
    capabilities: [chat]
  - model_id: router-1
    kind: openrouter
    source: openrouter
    model_type: hosted
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/taskmesh", cfg.Workspace)
	assert.Equal(t, 2*time.Minute, cfg.Orchestrator.StaleAfter)
	assert.Equal(t, 45*time.Second, cfg.Orchestrator.RecoveryInterval)
	assert.Equal(t, 4, cfg.Batch.MaxWorkers)
	assert.Equal(t, []string{"probe one", "probe two"}, cfg.Prompts)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.Len(t, cfg.Connectors, 2)
	assert.Equal(t, "llama-3-8b", cfg.Connectors[0].ModelID)
	assert.Equal(t, 250*time.Millisecond, cfg.Connectors[0].MinInterval)
	assert.Equal(t, []string{"chat"}, cfg.Connectors[0].Capabilities)
	assert.Zero(t, cfg.Connectors[1].MinInterval)
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, "workspace: /tmp/tm\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Orchestrator.StaleAfter)
	assert.Equal(t, 10, cfg.Batch.MaxWorkers)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TASKMESH_TEST_KEY", "sk-secret")
	path := writeConfig(t, `
workspace: /tmp/tm
connectors:
  - model_id: hosted-1
    kind: openrouter
    api_key: ${TASKMESH_TEST_KEY}
    endpoint: ${TASKMESH_TEST_UNSET}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Connectors, 1)
	assert.Equal(t, "sk-secret", cfg.Connectors[0].APIKey)
	assert.Empty(t, cfg.Connectors[0].Endpoint)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
orchestrator:
  stale_after: ninety seconds
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale_after")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), ExpandHome("~/x"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "relative", ExpandHome("relative"))
}

func TestWorkspacePaths(t *testing.T) {
	cfg := Default()
	cfg.Workspace = "/data/tm"

	assert.Equal(t, "/data/tm/agent_orchestration/tasks.json", cfg.TasksPath())
	assert.Equal(t, "/data/tm/agent_orchestration/events.jsonl", cfg.EventsPath())
	assert.Equal(t, "/data/tm/agent_orchestration/batch_abliteration_results.json", cfg.ReportPath())

	cfg.Batch.ReportPath = "/elsewhere/report.json"
	assert.Equal(t, "/elsewhere/report.json", cfg.ReportPath())
}
