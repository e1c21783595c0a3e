package bus

import (
	"errors"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/orchestrator"
)

// Route names handled and emitted by the Adapter, all under the
// "orchestrator." namespace.
const (
	Namespace = "orchestrator"

	RouteClaimRequest     = "task_claim_request"
	RouteHeartbeatRequest = "task_heartbeat_request"
	RouteReleaseRequest   = "task_release_request"

	RouteTaskClaimed  = "task_claimed"
	RouteTaskFailed   = "task_failed"
	RouteHeartbeatAck = "task_heartbeat_ack"
	RouteTaskReleased = "task_released"
)

// session is one ephemeral claim tracked by the adapter. Heartbeat and
// release requests must present the matching session_id and lock_token pair
// or are rejected.
type session struct {
	taskID    string
	agentID   string
	lockToken string
}

// Adapter bridges bus orchestrator routes to the orchestrator's task API.
// Remote agents claim, heartbeat and release tasks by exchanging messages
// instead of holding an orchestrator handle; the adapter owns the session
// and lock-token bookkeeping in between.
type Adapter struct {
	orch   *orchestrator.Orchestrator
	router *Router
	logger logging.Logger

	mu       sync.Mutex
	sessions map[string]session
	unsubs   []Unsubscribe
}

// AdapterOptions configure an Adapter.
type AdapterOptions struct {
	// Logger receives structured diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewAdapter creates an adapter routing between orch and b under the
// orchestrator namespace. Call Start to begin handling requests.
func NewAdapter(orch *orchestrator.Orchestrator, b *MessageBus, optFns ...func(o *AdapterOptions)) *Adapter {
	opts := AdapterOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Adapter{
		orch:     orch,
		router:   NewRouter(b, Namespace),
		logger:   opts.Logger,
		sessions: make(map[string]session),
	}
}

// WithAdapterLogger sets the adapter logger.
func WithAdapterLogger(l logging.Logger) func(o *AdapterOptions) {
	return func(o *AdapterOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

// Start subscribes the inbound request routes. A no-op when already started.
func (a *Adapter) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.unsubs) > 0 {
		return
	}
	a.unsubs = []Unsubscribe{
		a.router.On(RouteClaimRequest, a.handleClaimRequest),
		a.router.On(RouteHeartbeatRequest, a.handleHeartbeatRequest),
		a.router.On(RouteReleaseRequest, a.handleReleaseRequest),
	}
}

// Stop removes the inbound subscriptions. Tracked sessions survive a
// Stop/Start cycle so reconnecting agents can keep heartbeating.
func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
}

func (a *Adapter) handleClaimRequest(msg Message) {
	payload := msg.Payload
	taskID := stringField(payload, "task_id")
	agentID := stringField(payload, "agent_id")
	taskType := stringField(payload, "task_type")
	if taskType == "" {
		taskType = "orchestrated_task"
	}
	taskPayload := mapField(payload, "payload")

	if agentID == "" {
		a.router.Emit(RouteTaskFailed, map[string]any{"reason": "agent_id is required", "request": payload})
		return
	}

	if taskID == "" {
		created, err := a.orch.CreateTask(taskType, taskPayload, agentID)
		if err != nil {
			a.emitFailure("", taskID, "task create failed: "+err.Error())
			return
		}
		taskID = created.ID
	}

	claimed, err := a.orch.ClaimTask(taskID, agentID)
	if errors.Is(err, core.ErrTaskNotFound) {
		// Compatibility path for reconnecting agents: the referenced task is
		// gone, so create a replacement and claim that instead of failing.
		created, createErr := a.orch.CreateTask(taskType, taskPayload, agentID)
		if createErr != nil {
			a.emitFailure("", taskID, "task create failed: "+createErr.Error())
			return
		}
		taskID = created.ID
		claimed, err = a.orch.ClaimTask(taskID, agentID)
	}
	if err != nil {
		a.emitFailure("", taskID, "task claim failed: "+err.Error())
		return
	}
	if !claimed {
		a.router.Emit(RouteTaskFailed, map[string]any{
			"task_id":  taskID,
			"agent_id": agentID,
			"reason":   "task claim rejected",
		})
		return
	}

	sessionID := core.NewSessionID()
	lockToken := core.NewLockToken()
	a.mu.Lock()
	a.sessions[sessionID] = session{taskID: taskID, agentID: agentID, lockToken: lockToken}
	a.mu.Unlock()

	a.router.Emit(RouteTaskClaimed, map[string]any{
		"task_id":    taskID,
		"agent_id":   agentID,
		"session_id": sessionID,
		"lock_token": lockToken,
		"ttl_ms":     a.orch.StaleAfter().Milliseconds(),
	})
}

func (a *Adapter) handleHeartbeatRequest(msg Message) {
	sessionID := stringField(msg.Payload, "session_id")
	lockToken := stringField(msg.Payload, "lock_token")

	sess, ok := a.lookupSession(sessionID, lockToken)
	if !ok {
		a.emitFailure(sessionID, "", "invalid session or lock token")
		return
	}

	refreshed, err := a.orch.Heartbeat(sess.taskID, sess.agentID)
	if err != nil || !refreshed {
		reason := "heartbeat rejected"
		if err != nil {
			reason = "heartbeat failed: " + err.Error()
		}
		a.emitFailure(sessionID, sess.taskID, reason)
		return
	}

	a.router.Emit(RouteHeartbeatAck, map[string]any{
		"session_id": sessionID,
		"lock_token": lockToken,
		"task_id":    sess.taskID,
	})
}

func (a *Adapter) handleReleaseRequest(msg Message) {
	payload := msg.Payload
	sessionID := stringField(payload, "session_id")
	lockToken := stringField(payload, "lock_token")
	outcome := stringField(payload, "outcome")
	if outcome == "" {
		outcome = "completed"
	}
	resultPayload := mapField(payload, "result_payload")

	sess, ok := a.lookupSession(sessionID, lockToken)
	if !ok {
		a.emitFailure(sessionID, "", "invalid session or lock token")
		return
	}

	var (
		released  bool
		err       error
		emitEvent string
	)
	if outcome == "failed" {
		reason := stringField(resultPayload, "reason")
		if reason == "" {
			reason = "released as failed"
		}
		released, err = a.orch.FailTask(sess.taskID, sess.agentID, reason)
		emitEvent = RouteTaskFailed
	} else {
		released, err = a.orch.CompleteTask(sess.taskID, sess.agentID)
		emitEvent = RouteTaskReleased
	}

	a.mu.Lock()
	delete(a.sessions, sessionID)
	a.mu.Unlock()

	if err != nil || !released {
		reason := "task release rejected"
		if err != nil {
			reason = "task release failed: " + err.Error()
		}
		a.emitFailure(sessionID, sess.taskID, reason)
		return
	}

	a.router.Emit(emitEvent, map[string]any{
		"session_id":     sessionID,
		"task_id":        sess.taskID,
		"lock_token":     lockToken,
		"outcome":        outcome,
		"result_payload": resultPayload,
	})
}

func (a *Adapter) lookupSession(sessionID, lockToken string) (session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, ok := a.sessions[sessionID]
	if !ok || sess.lockToken != lockToken {
		return session{}, false
	}
	return sess, true
}

func (a *Adapter) emitFailure(sessionID, taskID, reason string) {
	payload := map[string]any{"reason": reason}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	if taskID != "" {
		payload["task_id"] = taskID
	}
	a.logger.Debug("adapter request rejected", "reason", reason, "session_id", sessionID, "task_id", taskID)
	a.router.Emit(RouteTaskFailed, payload)
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func mapField(payload map[string]any, key string) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	if v, ok := payload[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}
