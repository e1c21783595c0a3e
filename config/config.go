// Package config loads TaskMesh configuration from YAML files with
// environment variable expansion and duration parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete TaskMesh configuration.
type Config struct {
	// Workspace is the root directory for the task store, event log and
	// batch reports.
	Workspace    string            `yaml:"workspace"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Batch        BatchConfig        `yaml:"batch"`
	Prompts      []string           `yaml:"prompts"`
	Logging      LoggingConfig      `yaml:"logging"`
	Connectors   []ConnectorConfig  `yaml:"connectors"`
}

// OrchestratorConfig holds task lock timing configuration.
type OrchestratorConfig struct {
	StaleAfter       time.Duration `yaml:"-"`
	RecoveryInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	StaleAfterRaw       string `yaml:"stale_after"`
	RecoveryIntervalRaw string `yaml:"recovery_interval"`
}

// BatchConfig holds batch run configuration.
type BatchConfig struct {
	MaxWorkers int    `yaml:"max_workers"`
	ReportPath string `yaml:"report_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConnectorConfig declares one model backend and its connector parameters.
type ConnectorConfig struct {
	ModelID      string        `yaml:"model_id"`
	Kind         string        `yaml:"kind"`
	Source       string        `yaml:"source"`
	ModelType    string        `yaml:"model_type"`
	ModelName    string        `yaml:"model_name"`
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	Capabilities []string      `yaml:"capabilities"`
	MinInterval  time.Duration `yaml:"-"`

	MinIntervalRaw string `yaml:"min_interval"`
}

// Default returns the baseline configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Workspace: "~/.taskmesh/workspace",
		Orchestrator: OrchestratorConfig{
			StaleAfter:       90 * time.Second,
			RecoveryInterval: 30 * time.Second,
		},
		Batch: BatchConfig{
			MaxWorkers: 10,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, env-expands and parses the YAML file at path. Fields left
// empty fall back to the defaults of Default().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	expanded := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	cfg.Workspace = ExpandHome(cfg.Workspace)
	return cfg, nil
}

func (c *Config) parseDurations() error {
	var err error
	if c.Orchestrator.StaleAfter, err = parseDuration(c.Orchestrator.StaleAfterRaw, c.Orchestrator.StaleAfter); err != nil {
		return fmt.Errorf("orchestrator.stale_after: %w", err)
	}
	if c.Orchestrator.RecoveryInterval, err = parseDuration(c.Orchestrator.RecoveryIntervalRaw, c.Orchestrator.RecoveryInterval); err != nil {
		return fmt.Errorf("orchestrator.recovery_interval: %w", err)
	}
	for i := range c.Connectors {
		cc := &c.Connectors[i]
		if cc.MinInterval, err = parseDuration(cc.MinIntervalRaw, 0); err != nil {
			return fmt.Errorf("connectors[%d].min_interval: %w", i, err)
		}
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

// ExpandHome resolves a leading "~/" against the current user's home
// directory. Paths without the prefix are returned unchanged.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// TasksPath returns the task store file location under the workspace.
func (c *Config) TasksPath() string {
	return filepath.Join(c.Workspace, "agent_orchestration", "tasks.json")
}

// EventsPath returns the event log file location under the workspace.
func (c *Config) EventsPath() string {
	return filepath.Join(c.Workspace, "agent_orchestration", "events.jsonl")
}

// ReportPath returns the configured batch report location, defaulting to a
// file under the workspace.
func (c *Config) ReportPath() string {
	if c.Batch.ReportPath != "" {
		return ExpandHome(c.Batch.ReportPath)
	}
	return filepath.Join(c.Workspace, "agent_orchestration", "batch_abliteration_results.json")
}
