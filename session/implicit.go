package session

import (
	"context"

	"github.com/fraudguard-io/fraudguard/core"
)

// ImplicitService proxies another core.SessionService and guarantees that
// GetSession always returns an active session: it reuses the user's first
// listed session (with a full fetch, since listings return identity-only
// summaries) or creates a fresh one when none exist. It assumes at most one
// relevant session per (app, user) pair; extra sessions held by the store
// are ignored.
//
// GetSession is therefore not read-only: a first contact for a user creates
// a session as a side effect. The caller-supplied session id is ignored in
// favor of whichever session the store lists first.
//
// All other operations are direct pass-throughs. The proxy adds no retries,
// timeouts, validation or logging; every error from the delegate surfaces
// unchanged. GetSession performs a non-atomic list-then-fetch-or-create
// sequence, so two concurrent first contacts for the same user may each
// create a session. Callers needing strict single-session semantics under
// concurrency must serialize per user or enforce uniqueness in the store.
type ImplicitService struct {
	delegate core.SessionService
}

// NewImplicitService wraps delegate with implicit session continuity.
func NewImplicitService(delegate core.SessionService) *ImplicitService {
	return &ImplicitService{delegate: delegate}
}

// GetSession resolves "the" session for (appName, userID), creating one with
// empty state on first contact. It never fails with core.ErrSessionNotFound.
func (s *ImplicitService) GetSession(ctx context.Context, appName, userID, _ string, cfg *core.GetSessionConfig) (*core.Session, error) {
	summaries, err := s.delegate.ListSessions(ctx, appName, userID)
	if err != nil {
		return nil, err
	}

	if len(summaries) == 0 {
		return s.delegate.CreateSession(ctx, appName, userID, nil, "")
	}

	// Summaries carry no event history; a full fetch of the first listed
	// session is required before use.
	return s.delegate.GetSession(ctx, appName, userID, summaries[0].ID, cfg)
}

// CreateSession delegates to the proxied service.
func (s *ImplicitService) CreateSession(ctx context.Context, appName, userID string, state map[string]any, sessionID string) (*core.Session, error) {
	return s.delegate.CreateSession(ctx, appName, userID, state, sessionID)
}

// ListSessions delegates to the proxied service.
func (s *ImplicitService) ListSessions(ctx context.Context, appName, userID string) ([]core.SessionSummary, error) {
	return s.delegate.ListSessions(ctx, appName, userID)
}

// DeleteSession delegates to the proxied service.
func (s *ImplicitService) DeleteSession(ctx context.Context, appName, userID, sessionID string) error {
	return s.delegate.DeleteSession(ctx, appName, userID, sessionID)
}

// AppendEvent delegates to the proxied service.
func (s *ImplicitService) AppendEvent(ctx context.Context, sess *core.Session, event core.Event) (core.Event, error) {
	return s.delegate.AppendEvent(ctx, sess, event)
}
