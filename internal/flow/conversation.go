package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaystattoos/studio/internal/metrics"
	"github.com/jaystattoos/studio/internal/models"
)

// Reply is what one chat submission produces for the surrounding application.
type Reply struct {
	SessionID string
	Replies   []string
	State     models.DialogState
}

// Conversations owns one DialogState per chat session and forwards completed
// flows to a Notifier. Submissions are applied one at a time.
type Conversations struct {
	intake   *Intake
	states   StateManager
	notifier Notifier
	now      func() time.Time

	// mu serializes get-transition-save so a session never sees two
	// submissions interleave.
	mu sync.Mutex
}

// ConversationsOption configures Conversations.
type ConversationsOption func(*Conversations)

// WithClock overrides the clock used to timestamp events.
func WithClock(now func() time.Time) ConversationsOption {
	return func(c *Conversations) {
		if now != nil {
			c.now = now
		}
	}
}

// NewConversations wires the dialog to its state store and notifier.
// A nil notifier drops events.
func NewConversations(intake *Intake, states StateManager, notifier Notifier, opts ...ConversationsOption) *Conversations {
	if intake == nil {
		intake = NewIntake()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(ev models.NotificationEvent) {
			slog.Warn("Conversations: no notifier configured, dropping event", "event_id", ev.ID, "intent", ev.Intent)
		})
	}
	c := &Conversations{
		intake:   intake,
		states:   states,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens a new idle session and returns its ID and the greeting.
func (c *Conversations) Start(ctx context.Context) (Reply, error) {
	id := uuid.NewString()
	state := models.NewDialogState()
	if err := c.states.SaveState(ctx, id, state); err != nil {
		return Reply{}, fmt.Errorf("failed to create chat session: %w", err)
	}
	slog.Debug("Conversations.Start: session opened", "sessionID", id)
	return Reply{SessionID: id, Replies: []string{c.intake.Greeting()}, State: state}, nil
}

// Handle feeds one visitor message into the session's dialog. Unknown or
// expired sessions start over from idle. A completed flow's event is handed to
// the notifier after the reset state is saved.
func (c *Conversations) Handle(ctx context.Context, sessionID, text string) (Reply, error) {
	c.mu.Lock()
	state, found, err := c.states.GetState(ctx, sessionID)
	if err != nil {
		c.mu.Unlock()
		return Reply{}, fmt.Errorf("failed to load chat session %s: %w", sessionID, err)
	}
	if !found {
		state = models.NewDialogState()
	}

	tr := c.intake.Handle(state, text, c.now())
	if err := c.states.SaveState(ctx, sessionID, tr.State); err != nil {
		c.mu.Unlock()
		return Reply{}, fmt.Errorf("failed to save chat session %s: %w", sessionID, err)
	}
	c.mu.Unlock()

	metrics.ChatMessagesTotal.Inc()
	if tr.Event != nil {
		metrics.ChatFlowsCompletedTotal.WithLabelValues(string(tr.Event.Intent)).Inc()
		c.notifier.Notify(*tr.Event)
	}

	return Reply{SessionID: sessionID, Replies: tr.Replies, State: tr.State}, nil
}

// End abandons a session.
func (c *Conversations) End(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.states.ResetState(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to end chat session %s: %w", sessionID, err)
	}
	return nil
}
