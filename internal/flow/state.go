// Package flow defines state management interfaces for chat sessions.
package flow

import (
	"context"

	"github.com/jaystattoos/studio/internal/models"
)

// StateManager defines the interface for managing dialog state per chat session.
type StateManager interface {
	// GetState retrieves the state of a session. found is false for unknown or expired sessions.
	GetState(ctx context.Context, sessionID string) (state models.DialogState, found bool, err error)

	// SaveState stores the state of a session.
	SaveState(ctx context.Context, sessionID string, state models.DialogState) error

	// ResetState removes all state for a session.
	ResetState(ctx context.Context, sessionID string) error
}

// Notifier receives the event of every completed flow. Notify must return
// without waiting for delivery.
type Notifier interface {
	Notify(event models.NotificationEvent)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(event models.NotificationEvent)

// Notify calls f(event).
func (f NotifierFunc) Notify(event models.NotificationEvent) {
	f(event)
}
