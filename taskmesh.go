// Package taskmesh provides a high-level façade over the orchestrator, the
// model registry, the batch workflow engine and the message bus, enabling
// rapid construction of multi-agent task coordination systems. Most
// applications interact with this package by:
//  1. Creating a TaskMesh via New() (optionally overriding stores and timing)
//  2. Registering model backends with their connectors
//  3. Running batches (RunBatch) and serving remote agents over the bus
//
// The façade delegates task lifecycle semantics to orchestrator.Orchestrator
// while keeping setup ergonomics concise. All defaults are safe for local
// development; production deployments typically supply a durable task store,
// tuned timings and a structured logger.
package taskmesh

import (
	"context"
	"time"

	"github.com/hupe1980/taskmesh/bus"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/eventlog"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/orchestrator"
	"github.com/hupe1980/taskmesh/registry"
	"github.com/hupe1980/taskmesh/store"
	"github.com/hupe1980/taskmesh/workflow"
)

// Options configures the TaskMesh instance.
type Options struct {
	// TaskStore persists the task collection (defaults to in-memory).
	TaskStore core.TaskStore
	// EventSink receives orchestration events (defaults to in-memory).
	EventSink core.EventSink
	// EventHook optionally mirrors events to an external collaborator.
	EventHook core.EventHook

	// StaleAfter is the heartbeat age past which locks are recovered.
	StaleAfter time.Duration
	// RecoveryInterval is the recovery daemon's polling interval.
	RecoveryInterval time.Duration

	// MaxModels bounds the registry capacity.
	MaxModels int
	// MaxWorkers bounds batch pipeline parallelism.
	MaxWorkers int
	// ReportPath is where batch reports are persisted (empty keeps reports
	// in memory only).
	ReportPath string
	// Prompts is the refusal probe prompt set for workflows.
	Prompts []string

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TaskMesh is the high-level façade aggregating the orchestrator, registry,
// bus and batch services.
type TaskMesh struct {
	opts     Options
	orch     *orchestrator.Orchestrator
	reg      *registry.Registry
	bus      *bus.MessageBus
	adapter  *bus.Adapter
	batch    *workflow.BatchOrchestrator
	workflow *workflow.Workflow
}

// New creates a new TaskMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *TaskMesh {
	opts := Options{
		TaskStore:        store.NewInMemoryStore(),
		EventSink:        eventlog.NewInMemorySink(),
		StaleAfter:       90 * time.Second,
		RecoveryInterval: 30 * time.Second,
		MaxModels:        32,
		MaxWorkers:       10,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	orch := orchestrator.New(opts.TaskStore, opts.EventSink,
		orchestrator.WithStaleAfter(opts.StaleAfter),
		orchestrator.WithRecoveryInterval(opts.RecoveryInterval),
		orchestrator.WithEventHook(opts.EventHook),
		orchestrator.WithLogger(opts.Logger),
	)
	b := bus.New()

	return &TaskMesh{
		opts:    opts,
		orch:    orch,
		reg:     registry.New(opts.MaxModels),
		bus:     b,
		adapter: bus.NewAdapter(orch, b, bus.WithAdapterLogger(opts.Logger)),
		batch: workflow.NewBatch(orch,
			workflow.WithMaxWorkers(opts.MaxWorkers),
			workflow.WithReportPath(opts.ReportPath),
			workflow.WithBatchLogger(opts.Logger),
		),
		workflow: workflow.New(
			workflow.WithPrompts(opts.Prompts),
			workflow.WithLogger(opts.Logger),
		),
	}
}

// WithTaskStore overrides the task store.
func WithTaskStore(s core.TaskStore) func(o *Options) {
	return func(o *Options) { o.TaskStore = s }
}

// WithEventSink overrides the event sink.
func WithEventSink(s core.EventSink) func(o *Options) {
	return func(o *Options) { o.EventSink = s }
}

// WithEventHook registers an external event mirror.
func WithEventHook(h core.EventHook) func(o *Options) {
	return func(o *Options) { o.EventHook = h }
}

// WithStaleAfter sets the stale lock timeout.
func WithStaleAfter(d time.Duration) func(o *Options) {
	return func(o *Options) { o.StaleAfter = d }
}

// WithRecoveryInterval sets the recovery daemon polling interval.
func WithRecoveryInterval(d time.Duration) func(o *Options) {
	return func(o *Options) { o.RecoveryInterval = d }
}

// WithMaxModels bounds the registry capacity.
func WithMaxModels(n int) func(o *Options) {
	return func(o *Options) { o.MaxModels = n }
}

// WithMaxWorkers bounds batch parallelism.
func WithMaxWorkers(n int) func(o *Options) {
	return func(o *Options) { o.MaxWorkers = n }
}

// WithReportPath sets the batch report artifact location.
func WithReportPath(path string) func(o *Options) {
	return func(o *Options) { o.ReportPath = path }
}

// WithPrompts sets the refusal probe prompt set.
func WithPrompts(prompts []string) func(o *Options) {
	return func(o *Options) { o.Prompts = prompts }
}

// WithLogger sets the logger shared across components.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Orchestrator returns the underlying task orchestrator.
func (m *TaskMesh) Orchestrator() *orchestrator.Orchestrator { return m.orch }

// Registry returns the model registry.
func (m *TaskMesh) Registry() *registry.Registry { return m.reg }

// Bus returns the message bus.
func (m *TaskMesh) Bus() *bus.MessageBus { return m.bus }

// Adapter returns the bus adapter bridging remote agents to the orchestrator.
func (m *TaskMesh) Adapter() *bus.Adapter { return m.adapter }

// Start brings up the remote-facing surface: the bus, the adapter routes and
// the background stale-lock recovery daemon.
func (m *TaskMesh) Start() {
	m.bus.Start()
	m.adapter.Start()
	m.orch.StartRecoveryDaemon()
}

// Stop tears down the remote-facing surface, waiting up to timeout for the
// recovery daemon. It reports whether the daemon actually stopped.
func (m *TaskMesh) Stop(timeout time.Duration) bool {
	m.adapter.Stop()
	m.bus.Stop()
	return m.orch.StopRecoveryDaemon(timeout)
}

// RunBatch executes the four-stage pipeline for every registered model on
// the bounded worker pool and returns the aggregate report.
func (m *TaskMesh) RunBatch(ctx context.Context) (workflow.Report, error) {
	return m.batch.Run(ctx, m.reg, m.workflow)
}
