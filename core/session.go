package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrSessionNotFound is returned by SessionService implementations when no
	// session exists for the requested (app, user, session id) triple.
	ErrSessionNotFound = fmt.Errorf("session not found")
)

// Session represents a conversational container scoped to one application /
// user pair. It tracks mutable key/value state plus an ordered event history
// and is safe for concurrent access.
//
// Contract:
//   - State mutations update the Updated timestamp
//   - GetEvents returns a defensive copy to avoid external mutation
//   - GetConversationHistory filters events to user/assistant/tool roles and
//     excludes partial streaming fragments
//   - Clone performs deep copies of maps/slices for safe divergence.
type Session struct {
	ID      string         `json:"id"`
	AppName string         `json:"app_name"`
	UserID  string         `json:"user_id"`
	State   map[string]any `json:"state"`
	Events  []Event        `json:"events"`
	Created time.Time      `json:"created"`
	Updated time.Time      `json:"updated"`
	mu      sync.RWMutex
}

// NewSession creates a new session identified by (appName, userID, id).
func NewSession(appName, userID, id string) *Session {
	now := time.Now()
	return &Session{ID: id, AppName: appName, UserID: userID, State: map[string]any{}, Events: []Event{}, Created: now, Updated: now}
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState sets a key/value pair in session state updating the Updated timestamp.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.Updated = time.Now()
}

// ApplyStateDelta merges the provided key/value pairs into State.
func (s *Session) ApplyStateDelta(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.State[k] = v
	}
	s.Updated = time.Now()
}

// AddEvent appends an event to the history updating the Updated timestamp.
func (s *Session) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	s.Updated = time.Now()
}

// GetEvents returns a defensive copy of the full event slice.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return events
}

// GetConversationHistory returns filtered events suitable for providing
// conversational context to models (excludes partials and non-conversational roles).
func (s *Session) GetConversationHistory() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := map[string]bool{"user": true, "assistant": true, "tool": true}
	res := make([]Event, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.Content == nil || !allowed[ev.Content.Role] {
			continue
		}
		if ev.IsPartial() {
			continue
		}
		res = append(res, ev)
	}
	return res
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, AppName: s.AppName, UserID: s.UserID, State: make(map[string]any, len(s.State)), Events: make([]Event, len(s.Events)), Created: s.Created, Updated: s.Updated}
	for k, v := range s.State {
		clone.State[k] = v
	}
	copy(clone.Events, s.Events)
	return clone
}

// Summary reduces the session to its identity-only listing view.
func (s *Session) Summary() SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSummary{ID: s.ID, AppName: s.AppName, UserID: s.UserID, Updated: s.Updated}
}

// SessionSummary is the partial view of a session returned by listings. It
// carries identity only: no event history and no state. Callers must perform
// a full GetSession before using a session's conversation context.
type SessionSummary struct {
	ID      string    `json:"id"`
	AppName string    `json:"app_name"`
	UserID  string    `json:"user_id"`
	Updated time.Time `json:"updated"`
}

// GetSessionConfig carries optional store-specific fetch configuration.
// A nil config means "full fetch".
type GetSessionConfig struct {
	// NumRecentEvents limits the returned history to the N most recent events
	// when > 0.
	NumRecentEvents int
	// AfterTimestamp filters out events at or before the given instant when
	// non-zero.
	AfterTimestamp time.Time
}

// SessionService is the capability surface for session persistence. It is
// implemented both by concrete stores (session.InMemoryService) and by
// proxies layered over them (session.ImplicitService).
//
// Implementations must be safe for concurrent use. Each call is a potential
// suspension point (network round trip); ctx cancellation is honored by
// network-backed implementations.
type SessionService interface {
	// CreateSession allocates a new session. A fresh id is generated when
	// sessionID is empty; a nil state yields an empty state map.
	CreateSession(ctx context.Context, appName, userID string, state map[string]any, sessionID string) (*Session, error)

	// GetSession returns the full session for the triple, applying cfg when
	// non-nil. Returns an error wrapping ErrSessionNotFound if absent.
	GetSession(ctx context.Context, appName, userID, sessionID string, cfg *GetSessionConfig) (*Session, error)

	// ListSessions returns identity-only summaries for the (app, user) pair
	// in creation order. An empty slice means no sessions exist.
	ListSessions(ctx context.Context, appName, userID string) ([]SessionSummary, error)

	// DeleteSession removes one session without affecting others.
	DeleteSession(ctx context.Context, appName, userID, sessionID string) error

	// AppendEvent appends one event to the session's ordered history and
	// returns the normalized stored form (the store may assign id/timestamp).
	// Any StateDelta carried by the event is merged into session state.
	AppendEvent(ctx context.Context, sess *Session, event Event) (Event, error)
}
