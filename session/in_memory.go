package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fraudguard-io/fraudguard/core"
)

// userKey identifies the session list for one (application, user) pair.
type userKey struct {
	appName string
	userID  string
}

// InMemoryService is a volatile core.SessionService implementation storing
// sessions in a process local map. It is safe for concurrent access and best
// suited for tests or single-process deployments. Each returned session is
// cloned to prevent external mutation of internal state.
//
// Sessions for a user are held in creation order; ListSessions reports them
// in that order, which makes the first-match policy of ImplicitService
// deterministic.
type InMemoryService struct {
	mu       sync.RWMutex
	sessions map[userKey][]*core.Session
}

// NewInMemoryService constructs an empty in-memory session service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{sessions: make(map[userKey][]*core.Session)}
}

// CreateSession allocates a new session for (appName, userID). A fresh id is
// generated when sessionID is empty; creating a duplicate id is an error.
func (s *InMemoryService) CreateSession(_ context.Context, appName, userID string, state map[string]any, sessionID string) (*core.Session, error) {
	if err := validateScope(appName, userID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey{appName: appName, userID: userID}

	if sessionID == "" {
		sessionID = core.NewID()
	} else if s.findLocked(key, sessionID) != nil {
		return nil, fmt.Errorf("session %q already exists for user %q", sessionID, userID)
	}

	sess := core.NewSession(appName, userID, sessionID)
	if state != nil {
		sess.ApplyStateDelta(state)
	}

	s.sessions[key] = append(s.sessions[key], sess)

	return sess.Clone(), nil
}

// GetSession returns a clone of the stored session, applying cfg when non-nil.
func (s *InMemoryService) GetSession(_ context.Context, appName, userID, sessionID string, cfg *core.GetSessionConfig) (*core.Session, error) {
	if err := validateScope(appName, userID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.findLocked(userKey{appName: appName, userID: userID}, sessionID)
	if sess == nil {
		return nil, fmt.Errorf("session %q for user %q: %w", sessionID, userID, core.ErrSessionNotFound)
	}

	clone := sess.Clone()
	if cfg != nil {
		clone.Events = filterEvents(clone.Events, cfg)
	}

	return clone, nil
}

// ListSessions returns identity-only summaries in creation order.
func (s *InMemoryService) ListSessions(_ context.Context, appName, userID string) ([]core.SessionSummary, error) {
	if err := validateScope(appName, userID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sessions[userKey{appName: appName, userID: userID}]
	summaries := make([]core.SessionSummary, 0, len(stored))
	for _, sess := range stored {
		summaries = append(summaries, sess.Summary())
	}

	return summaries, nil
}

// DeleteSession removes one session without affecting others.
func (s *InMemoryService) DeleteSession(_ context.Context, appName, userID, sessionID string) error {
	if err := validateScope(appName, userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey{appName: appName, userID: userID}
	stored := s.sessions[key]
	for i, sess := range stored {
		if sess.ID == sessionID {
			s.sessions[key] = append(stored[:i:i], stored[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("session %q for user %q: %w", sessionID, userID, core.ErrSessionNotFound)
}

// AppendEvent appends one event to the stored session, normalizing id and
// timestamp, merges any state delta carried by the event, and mirrors the
// append onto the caller's session snapshot. The normalized stored form is
// returned.
func (s *InMemoryService) AppendEvent(_ context.Context, sess *core.Session, event core.Event) (core.Event, error) {
	if sess == nil {
		return core.Event{}, fmt.Errorf("nil session")
	}
	if err := validateScope(sess.AppName, sess.UserID); err != nil {
		return core.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.findLocked(userKey{appName: sess.AppName, userID: sess.UserID}, sess.ID)
	if stored == nil {
		return core.Event{}, fmt.Errorf("session %q for user %q: %w", sess.ID, sess.UserID, core.ErrSessionNotFound)
	}

	if event.ID == "" {
		event.ID = core.NewID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	stored.AddEvent(event)
	if len(event.Actions.StateDelta) > 0 {
		stored.ApplyStateDelta(event.Actions.StateDelta)
	}

	// Keep the caller's snapshot in step with the store.
	sess.AddEvent(event)
	if len(event.Actions.StateDelta) > 0 {
		sess.ApplyStateDelta(event.Actions.StateDelta)
	}

	return event, nil
}

// findLocked returns the stored session with the given id or nil. Caller must
// hold at least the read lock.
func (s *InMemoryService) findLocked(key userKey, sessionID string) *core.Session {
	for _, sess := range s.sessions[key] {
		if sess.ID == sessionID {
			return sess
		}
	}
	return nil
}

// filterEvents applies GetSessionConfig to a copied event slice.
func filterEvents(events []core.Event, cfg *core.GetSessionConfig) []core.Event {
	filtered := events
	if !cfg.AfterTimestamp.IsZero() {
		kept := make([]core.Event, 0, len(filtered))
		for _, ev := range filtered {
			if ev.Timestamp.After(cfg.AfterTimestamp) {
				kept = append(kept, ev)
			}
		}
		filtered = kept
	}
	if cfg.NumRecentEvents > 0 && len(filtered) > cfg.NumRecentEvents {
		filtered = filtered[len(filtered)-cfg.NumRecentEvents:]
	}
	return filtered
}

// validateScope rejects empty identifiers at the store layer. Proxies add no
// validation of their own.
func validateScope(appName, userID string) error {
	if appName == "" {
		return fmt.Errorf("app name must not be empty")
	}
	if userID == "" {
		return fmt.Errorf("user id must not be empty")
	}
	return nil
}
