package orchestrator

import (
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/logging"
)

// StaleRecoveryDaemon periodically invokes the orchestrator's stale-task
// recovery on a background goroutine. Start and Stop are idempotent and safe
// to call from multiple goroutines; both paths share the orchestrator's
// serialization lock with API traffic, so running the daemon concurrently
// with claims and heartbeats is safe.
type StaleRecoveryDaemon struct {
	mu       sync.Mutex
	orch     *Orchestrator
	interval time.Duration
	logger   logging.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewStaleRecoveryDaemon constructs a daemon polling at the given interval.
func NewStaleRecoveryDaemon(orch *Orchestrator, interval time.Duration, logger logging.Logger) *StaleRecoveryDaemon {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &StaleRecoveryDaemon{orch: orch, interval: interval, logger: logger}
}

// Running reports whether the background goroutine is active.
func (d *StaleRecoveryDaemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop != nil
}

// Start launches the background recovery loop. A no-op when already running.
func (d *StaleRecoveryDaemon) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(d.stop, d.done)
}

// Stop signals cooperative shutdown and waits up to timeout for the loop to
// exit. It returns true when the loop actually stopped; the goroutine is
// never forcibly terminated.
func (d *StaleRecoveryDaemon) Stop(timeout time.Duration) bool {
	d.mu.Lock()
	if d.stop == nil {
		d.mu.Unlock()
		return true
	}
	close(d.stop)
	d.stop = nil
	done := d.done
	d.mu.Unlock()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		d.logger.Warn("recovery daemon did not stop within timeout", "timeout", timeout)
		return false
	}
}

func (d *StaleRecoveryDaemon) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		if _, err := d.orch.RecoverStaleTasks(); err != nil {
			d.logger.Error("stale task recovery failed", "error", err)
		}
		select {
		case <-stop:
			return
		case <-time.After(d.interval):
		}
	}
}
