package orchestrator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Options configures an Orchestrator instance.
type Options struct {
	// StaleAfter is the heartbeat age past which a lock is considered stale
	// and eligible for recovery.
	StaleAfter time.Duration

	// RecoveryInterval is the polling interval of the background recovery
	// daemon started via StartRecoveryDaemon.
	RecoveryInterval time.Duration

	// EventHook, when set, mirrors every committed event to an external
	// collaborator. Hook failures never propagate and never lose the
	// original event; they are recorded as synthetic event_hook_error events.
	EventHook core.EventHook

	// Logger receives structured diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Orchestrator coordinates agent task ownership with lock acquisition,
// heartbeats, terminal transitions and stale lock recovery. All mutating
// operations are safe for concurrent use.
type Orchestrator struct {
	mu     sync.Mutex
	store  core.TaskStore
	events core.EventSink
	opts   Options
	daemon *StaleRecoveryDaemon
	logger logging.Logger
}

// New creates an Orchestrator over the given task store and event sink.
func New(store core.TaskStore, events core.EventSink, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		StaleAfter:       90 * time.Second,
		RecoveryInterval: 30 * time.Second,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	o := &Orchestrator{
		store:  store,
		events: events,
		opts:   opts,
		logger: opts.Logger,
	}
	o.daemon = NewStaleRecoveryDaemon(o, opts.RecoveryInterval, opts.Logger)
	return o
}

// WithStaleAfter sets the heartbeat age past which locks are recovered.
func WithStaleAfter(d time.Duration) func(o *Options) {
	return func(o *Options) { o.StaleAfter = d }
}

// WithRecoveryInterval sets the polling interval of the recovery daemon.
func WithRecoveryInterval(d time.Duration) func(o *Options) {
	return func(o *Options) { o.RecoveryInterval = d }
}

// WithEventHook registers an external event mirror.
func WithEventHook(hook core.EventHook) func(o *Options) {
	return func(o *Options) { o.EventHook = hook }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// StaleAfter returns the configured stale lock timeout.
func (o *Orchestrator) StaleAfter() time.Duration { return o.opts.StaleAfter }

// CreateTask creates a new pending task and emits task_created. Any caller
// identity may create tasks; ownership is only established by ClaimTask.
func (o *Orchestrator) CreateTask(title string, payload map[string]any, createdBy string) (core.Task, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tasks, err := o.store.Load()
	if err != nil {
		return core.Task{}, err
	}
	task := core.NewTask(title, payload, createdBy)
	tasks[task.ID] = task
	if err := o.store.Save(tasks); err != nil {
		return core.Task{}, err
	}
	o.logEvent(core.EventTaskCreated, task.ID, createdBy, map[string]any{"title": title})
	return task, nil
}

// ClaimTask attempts to acquire the task lock for agentID. It returns false
// when the task is terminal or held by a different live owner; re-claiming by
// the current owner is idempotent and returns true. Stale locks are recovered
// before the claim decision, so a task whose previous owner stopped
// heartbeating is claimable immediately.
func (o *Orchestrator) ClaimTask(taskID, agentID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tasks, err := o.store.Load()
	if err != nil {
		return false, err
	}
	task, ok := tasks[taskID]
	if !ok {
		return false, fmt.Errorf("claim %s: %w", taskID, core.ErrTaskNotFound)
	}
	recovered := o.recoverStaleLock(&task)
	if task.Status.Terminal() {
		// A recovered-but-denied claim still needs its recovery persisted so
		// lock_recovered is emitted exactly once per stale transition.
		if recovered {
			tasks[taskID] = task
			if err := o.store.Save(tasks); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if task.Locked() && !task.OwnedBy(agentID) {
		return false, nil
	}

	now := time.Now().UTC()
	task.Status = core.TaskInProgress
	task.LockOwner = &agentID
	task.LockAcquiredAt = &now
	task.HeartbeatAt = &now
	tasks[taskID] = task
	if err := o.store.Save(tasks); err != nil {
		return false, err
	}
	o.logEvent(core.EventTaskClaimed, taskID, agentID, nil)
	return true, nil
}

// Heartbeat refreshes the lock heartbeat for the current owner. It returns
// false when the caller does not hold the lock, including when the lock was
// just recovered as stale.
func (o *Orchestrator) Heartbeat(taskID, agentID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tasks, err := o.store.Load()
	if err != nil {
		return false, err
	}
	task, ok := tasks[taskID]
	if !ok {
		return false, fmt.Errorf("heartbeat %s: %w", taskID, core.ErrTaskNotFound)
	}
	recovered := o.recoverStaleLock(&task)
	if !task.OwnedBy(agentID) {
		if recovered {
			tasks[taskID] = task
			if err := o.store.Save(tasks); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	now := time.Now().UTC()
	task.HeartbeatAt = &now
	tasks[taskID] = task
	if err := o.store.Save(tasks); err != nil {
		return false, err
	}
	o.logEvent(core.EventHeartbeat, taskID, agentID, nil)
	return true, nil
}

// CompleteTask marks the task completed and releases the lock. Only the
// current owner may complete; all other callers get false.
func (o *Orchestrator) CompleteTask(taskID, agentID string) (bool, error) {
	return o.finish(taskID, agentID, core.TaskCompleted, "")
}

// FailTask marks the task failed with the given reason and releases the
// lock. Only the current owner may fail the task.
func (o *Orchestrator) FailTask(taskID, agentID, reason string) (bool, error) {
	return o.finish(taskID, agentID, core.TaskFailed, reason)
}

func (o *Orchestrator) finish(taskID, agentID string, status core.TaskStatus, reason string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tasks, err := o.store.Load()
	if err != nil {
		return false, err
	}
	task, ok := tasks[taskID]
	if !ok {
		return false, fmt.Errorf("finish %s: %w", taskID, core.ErrTaskNotFound)
	}
	recovered := o.recoverStaleLock(&task)
	if !task.OwnedBy(agentID) {
		if recovered {
			tasks[taskID] = task
			if err := o.store.Save(tasks); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	task.Status = status
	task.LockOwner = nil
	task.LockAcquiredAt = nil
	task.HeartbeatAt = nil
	eventType := core.EventTaskCompleted
	var metadata map[string]any
	if status == core.TaskFailed {
		task.FailureReason = &reason
		eventType = core.EventTaskFailed
		metadata = map[string]any{"reason": reason}
	} else {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}
	tasks[taskID] = task
	if err := o.store.Save(tasks); err != nil {
		return false, err
	}
	o.logEvent(eventType, taskID, agentID, metadata)
	return true, nil
}

// RecoverStaleTasks resets every task whose heartbeat aged past the stale
// timeout back to pending, clearing its lock fields and emitting one
// lock_recovered event carrying the previous owner. Tasks already pending
// are untouched; the operation is idempotent. Recovered task ids are
// returned in deterministic order.
func (o *Orchestrator) RecoverStaleTasks() ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tasks, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	var recovered []string
	for id, task := range tasks {
		if o.recoverStaleLock(&task) {
			tasks[id] = task
			recovered = append(recovered, id)
		}
	}
	if err := o.store.Save(tasks); err != nil {
		return nil, err
	}
	sort.Strings(recovered)
	return recovered, nil
}

// GetTask returns a copy of the task or core.ErrTaskNotFound.
func (o *Orchestrator) GetTask(taskID string) (core.Task, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tasks, err := o.store.Load()
	if err != nil {
		return core.Task{}, err
	}
	task, ok := tasks[taskID]
	if !ok {
		return core.Task{}, fmt.Errorf("get %s: %w", taskID, core.ErrTaskNotFound)
	}
	return task.Clone(), nil
}

// ListTasks returns a snapshot of all tasks ordered by task id.
func (o *Orchestrator) ListTasks() ([]core.Task, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tasks, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]core.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, tasks[id].Clone())
	}
	return out, nil
}

// StartRecoveryDaemon starts background stale-task recovery at the
// configured interval. Calling it while running is a no-op.
func (o *Orchestrator) StartRecoveryDaemon() { o.daemon.Start() }

// StopRecoveryDaemon signals the recovery daemon to stop and waits up to
// timeout for it to exit, reporting whether it actually stopped.
func (o *Orchestrator) StopRecoveryDaemon(timeout time.Duration) bool {
	return o.daemon.Stop(timeout)
}

// RecoveryDaemonRunning reports whether the recovery daemon is active.
func (o *Orchestrator) RecoveryDaemonRunning() bool { return o.daemon.Running() }

// recoverStaleLock resets the task to pending when its heartbeat aged past
// the stale timeout, emitting lock_recovered with the previous owner. The
// caller holds o.mu and is responsible for persisting the mutation.
func (o *Orchestrator) recoverStaleLock(task *core.Task) bool {
	if task.LockOwner == nil || task.HeartbeatAt == nil {
		return false
	}
	if time.Since(task.HeartbeatAt.UTC()) <= o.opts.StaleAfter {
		return false
	}
	previousOwner := *task.LockOwner
	task.Status = core.TaskPending
	task.LockOwner = nil
	task.LockAcquiredAt = nil
	task.HeartbeatAt = nil
	o.logEvent(core.EventLockRecovered, task.ID, "orchestrator", map[string]any{"previous_owner": previousOwner})
	o.logger.Info("recovered stale lock", "task_id", task.ID, "previous_owner", previousOwner)
	return true
}

// logEvent appends the event and mirrors it to the hook. The original event
// is committed before the hook runs; hook errors or panics are captured as a
// synthetic event_hook_error event and never propagate.
func (o *Orchestrator) logEvent(eventType, taskID, actor string, metadata map[string]any) {
	event := core.NewEvent(eventType, taskID, actor, metadata)
	if err := o.events.Append(event); err != nil {
		o.logger.Error("appending event", "type", eventType, "task_id", taskID, "error", err)
		return
	}
	if o.opts.EventHook == nil {
		return
	}
	if err := o.runHook(event); err != nil {
		fallback := core.NewEvent(core.EventHookError, taskID, "orchestrator", map[string]any{
			"error":             err.Error(),
			"source_event_type": eventType,
		})
		if appendErr := o.events.Append(fallback); appendErr != nil {
			o.logger.Error("appending hook error event", "error", appendErr)
		}
	}
}

// runHook invokes the hook converting panics into errors.
func (o *Orchestrator) runHook(event core.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event hook panicked: %v", r)
		}
	}()
	o.opts.EventHook(event)
	return nil
}
