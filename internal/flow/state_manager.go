// Package flow provides concrete implementations of state management.
package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jaystattoos/studio/internal/models"
)

// DefaultSessionTTL is how long an untouched chat session survives before it
// is treated as abandoned.
const DefaultSessionTTL = 30 * time.Minute

type sessionEntry struct {
	state     models.DialogState
	updatedAt time.Time
}

// InMemoryStateManager implements StateManager with a map guarded by a mutex.
// Chat history is deliberately not persisted across restarts.
type InMemoryStateManager struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

// StateManagerOption configures an InMemoryStateManager.
type StateManagerOption func(*InMemoryStateManager)

// WithSessionTTL sets the abandonment timeout. Non-positive values keep the default.
func WithSessionTTL(ttl time.Duration) StateManagerOption {
	return func(sm *InMemoryStateManager) {
		if ttl > 0 {
			sm.ttl = ttl
		}
	}
}

// WithStateClock overrides the clock, for tests.
func WithStateClock(now func() time.Time) StateManagerOption {
	return func(sm *InMemoryStateManager) {
		if now != nil {
			sm.now = now
		}
	}
}

// NewInMemoryStateManager creates a new in-memory StateManager.
func NewInMemoryStateManager(opts ...StateManagerOption) *InMemoryStateManager {
	sm := &InMemoryStateManager{
		sessions: make(map[string]sessionEntry),
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(sm)
	}
	slog.Debug("Creating InMemoryStateManager", "ttl", sm.ttl)
	return sm
}

// GetState retrieves the state of a session; expired sessions are dropped.
func (sm *InMemoryStateManager) GetState(ctx context.Context, sessionID string) (models.DialogState, bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	entry, ok := sm.sessions[sessionID]
	if !ok {
		return models.DialogState{}, false, nil
	}
	if sm.expired(entry) {
		delete(sm.sessions, sessionID)
		slog.Debug("StateManager GetState session expired", "sessionID", sessionID, "intent", entry.state.Intent, "step", entry.state.Step)
		return models.DialogState{}, false, nil
	}
	return entry.state.Clone(), true, nil
}

// SaveState stores the state of a session and refreshes its expiry.
func (sm *InMemoryStateManager) SaveState(ctx context.Context, sessionID string, state models.DialogState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.sessions[sessionID] = sessionEntry{state: state.Clone(), updatedAt: sm.now()}
	return nil
}

// ResetState removes the session.
func (sm *InMemoryStateManager) ResetState(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, sessionID)
	slog.Debug("StateManager ResetState succeeded", "sessionID", sessionID)
	return nil
}

// Len returns the number of sessions currently held, expired or not.
func (sm *InMemoryStateManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Prune removes every expired session and returns how many were removed.
func (sm *InMemoryStateManager) Prune() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for id, entry := range sm.sessions {
		if sm.expired(entry) {
			delete(sm.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor prunes expired sessions every interval until ctx is done.
func (sm *InMemoryStateManager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sm.Prune(); n > 0 {
				slog.Debug("StateManager RunJanitor pruned abandoned sessions", "count", n)
			}
		}
	}
}

func (sm *InMemoryStateManager) expired(entry sessionEntry) bool {
	return sm.now().Sub(entry.updatedAt) > sm.ttl
}
