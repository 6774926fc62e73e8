package core

import (
	"context"
	"maps"

	"github.com/fraudguard-io/fraudguard/logging"
)

// RunContext carries execution state & helpers for one scoring turn.
// It encapsulates the mutable, per-invocation execution scope passed to an
// Agent's Run method. It aggregates:
//
//   - The ambient cancellation Context
//   - Identifiers (AppName, UserID, SessionID, RunID, Agent info)
//   - Input user Content (the transaction record for the turn)
//   - The event emission channel consumed by the runner
//   - Backing services (sessions, alert history) for persistence concerns
//   - A working Session snapshot and a pending StateDelta to commit
//
// State mutations performed via SetState accumulate in StateDelta until the
// runner applies them through an emitted event's actions.
type RunContext struct {
	Context       context.Context
	AppName       string
	UserID        string
	SessionID     string
	RunID         string
	Agent         AgentInfo
	UserContent   Content
	Emit          chan<- Event
	Sessions      SessionService
	Alerts        AlertStore
	Limiter       *ModelLimiter
	Session       *Session
	StateDelta    map[string]any
	MaxModelCalls int

	*loggerAdapter
}

// NewRunContext constructs a RunContext with an empty state delta.
func NewRunContext(
	ctx context.Context,
	appName, userID, sessionID, runID string,
	agent AgentInfo,
	userContent Content,
	maxModelCalls int,
	emit chan<- Event,
	sess *Session,
	sessions SessionService,
	alerts AlertStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		AppName:       appName,
		UserID:        userID,
		SessionID:     sessionID,
		RunID:         runID,
		Agent:         agent,
		UserContent:   userContent,
		MaxModelCalls: maxModelCalls,
		Emit:          emit,
		Session:       sess,
		Sessions:      sessions,
		Alerts:        alerts,
		Limiter:       NewModelLimiter(maxModelCalls),
		StateDelta:    map[string]any{},
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Session != nil {
		return rc.Session.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// MergeStateDelta merges all pairs from d into the staged StateDelta.
func (rc *RunContext) MergeStateDelta(d map[string]any) {
	maps.Copy(rc.StateDelta, d)
}

// EmitEvent sends an event to the runner respecting context cancellation.
func (rc *RunContext) EmitEvent(ev Event) error {
	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
		return nil
	}
}

// DrainStateDelta returns the staged delta and resets the buffer. The runner
// attaches the drained delta to the next persisted event's actions.
func (rc *RunContext) DrainStateDelta() map[string]any {
	if len(rc.StateDelta) == 0 {
		return nil
	}
	d := rc.StateDelta
	rc.StateDelta = map[string]any{}
	return d
}
