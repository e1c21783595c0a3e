package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/connector"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/orchestrator"
	"github.com/hupe1980/taskmesh/registry"
)

// Outcome is one per-unit entry in the batch report: either a full Result or
// a model id paired with the error that stopped its pipeline. Exactly one of
// the two shapes is populated.
type Outcome struct {
	ModelID           string   `json:"model_id"`
	RefusalRates      *Shift   `json:"refusal_rates,omitempty"`
	BenchmarkScores   *Shift   `json:"benchmark_scores,omitempty"`
	PersonalityShifts *Shift   `json:"personality_shifts,omitempty"`
	TaskIDs           []string `json:"task_ids,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// Failed reports whether this outcome records a unit failure.
func (o Outcome) Failed() bool { return o.Error != "" }

// Summary aggregates a batch run. Averages are computed over successful
// units only; a batch with no successes reports zero averages.
type Summary struct {
	TotalModels         int     `json:"total_models"`
	ProcessedModels     int     `json:"processed_models"`
	SuccessfulModels    int     `json:"successful_models"`
	AvgRefusalReduction float64 `json:"avg_refusal_reduction"`
	AvgBenchmarkGain    float64 `json:"avg_benchmark_gain"`
}

// Report is the single artifact persisted after a batch run. It is always
// produced, even with partial failures, and is the sole failure-visibility
// surface of the batch layer.
type Report struct {
	Summary  Summary           `json:"summary"`
	Models   []Outcome         `json:"models"`
	Registry []registry.Record `json:"registry"`
}

// BatchOptions configure a BatchOrchestrator.
type BatchOptions struct {
	// MaxWorkers bounds pipeline parallelism. Defaults to 10.
	MaxWorkers int
	// ReportPath is where the report artifact is written. Empty disables
	// persistence (the report is still returned).
	ReportPath string
	// Logger receives structured diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// BatchOrchestrator runs the four-stage pipeline for every registry entry on
// a bounded worker pool. Per-unit execution is isolated: an error or panic in
// one unit is recorded in its outcome and marks its registry status failed
// without disturbing sibling units.
type BatchOrchestrator struct {
	orch       *orchestrator.Orchestrator
	maxWorkers int
	reportPath string
	logger     logging.Logger
}

// NewBatch creates a BatchOrchestrator over the given task orchestrator.
func NewBatch(orch *orchestrator.Orchestrator, optFns ...func(o *BatchOptions)) *BatchOrchestrator {
	opts := BatchOptions{MaxWorkers: 10, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 10
	}
	return &BatchOrchestrator{
		orch:       orch,
		maxWorkers: opts.MaxWorkers,
		reportPath: opts.ReportPath,
		logger:     opts.Logger,
	}
}

// WithMaxWorkers bounds pipeline parallelism.
func WithMaxWorkers(n int) func(o *BatchOptions) {
	return func(o *BatchOptions) { o.MaxWorkers = n }
}

// WithReportPath sets the report artifact location.
func WithReportPath(path string) func(o *BatchOptions) {
	return func(o *BatchOptions) { o.ReportPath = path }
}

// WithBatchLogger sets the batch logger.
func WithBatchLogger(l logging.Logger) func(o *BatchOptions) {
	return func(o *BatchOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Run executes wf for every registry entry carrying a connector and returns
// the aggregate report, persisting it when a report path is configured.
// Entries without a connector are skipped entirely, matching the registry's
// optional 1:1 connector attachment.
func (b *BatchOrchestrator) Run(ctx context.Context, reg *registry.Registry, wf *Workflow) (Report, error) {
	if wf == nil {
		wf = New()
	}
	models := reg.List()
	if len(models) == 0 {
		return Report{Models: []Outcome{}, Registry: []registry.Record{}}, nil
	}

	start := time.Now()

	type unit struct {
		record registry.Record
		conn   connector.Connector
	}
	work := make(chan unit)

	var (
		mu       sync.Mutex
		outcomes []Outcome
	)

	var wg sync.WaitGroup
	for i := 0; i < b.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range work {
				outcome := b.runUnit(ctx, reg, wf, u.record.ModelID, u.conn)
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}
		}()
	}

	for _, record := range models {
		conn := reg.GetConnector(record.ModelID)
		if conn == nil {
			continue
		}
		if err := reg.UpdateStatus(record.ModelID, registry.StatusRunning); err != nil {
			b.logger.Warn("marking model running", "model_id", record.ModelID, "error", err)
			continue
		}
		work <- unit{record: record, conn: conn}
	}
	close(work)
	wg.Wait()

	var successes []Outcome
	for _, o := range outcomes {
		if !o.Failed() {
			successes = append(successes, o)
		}
	}
	summary := Summary{
		TotalModels:      len(models),
		ProcessedModels:  len(outcomes),
		SuccessfulModels: len(successes),
	}
	if len(successes) > 0 {
		var refusal, bench float64
		for _, o := range successes {
			refusal += o.RefusalRates.Delta
			bench += o.BenchmarkScores.Delta
		}
		summary.AvgRefusalReduction = refusal / float64(len(successes))
		summary.AvgBenchmarkGain = bench / float64(len(successes))
	}

	report := Report{Summary: summary, Models: outcomes, Registry: reg.Export()}
	b.logger.Info("batch finished",
		"total", summary.TotalModels,
		"successful", summary.SuccessfulModels,
		"duration", time.Since(start),
	)

	if b.reportPath != "" {
		if err := WriteReport(report, b.reportPath); err != nil {
			return report, err
		}
	}
	return report, nil
}

// runUnit executes one model's pipeline with full isolation: errors and
// panics become a failed outcome and a failed registry status.
func (b *BatchOrchestrator) runUnit(ctx context.Context, reg *registry.Registry, wf *Workflow, modelID string, conn connector.Connector) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{ModelID: modelID, Error: fmt.Sprintf("workflow panicked: %v", r)}
			b.markStatus(reg, modelID, registry.StatusFailed)
		}
	}()

	result, err := wf.RunForModel(ctx, b.orch, modelID, conn)
	if err != nil {
		b.markStatus(reg, modelID, registry.StatusFailed)
		return Outcome{ModelID: modelID, Error: err.Error()}
	}
	b.markStatus(reg, modelID, registry.StatusCompleted)
	return Outcome{
		ModelID:           result.ModelID,
		RefusalRates:      &result.RefusalRates,
		BenchmarkScores:   &result.BenchmarkScores,
		PersonalityShifts: &result.PersonalityShifts,
		TaskIDs:           result.TaskIDs,
	}
}

func (b *BatchOrchestrator) markStatus(reg *registry.Registry, modelID string, status registry.Status) {
	if err := reg.UpdateStatus(modelID, status); err != nil {
		b.logger.Warn("updating model status", "model_id", modelID, "status", status, "error", err)
	}
}

// WriteReport persists the report as indented JSON, creating parent
// directories. Also usable for secondary dashboard exports.
func WriteReport(report Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// ReadReport loads a previously persisted report.
func ReadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("reading report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("decoding report: %w", err)
	}
	return report, nil
}
