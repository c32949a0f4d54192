// Package flow implements the appointment intake dialog that drives the studio chat.
//
// The dialog is a small finite-state form: while idle it classifies the
// visitor's intent from keywords, then collects one field per message until the
// flow completes, at which point it replies with a summary and emits a single
// NotificationEvent. Intake.Handle is a pure transition over an explicit
// models.DialogState; Conversations owns one state per chat session and hands
// completed events to a Notifier.
package flow

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaystattoos/studio/internal/models"
)

// DefaultStudioPhone is the human fallback named in the help message.
const DefaultStudioPhone = "(555) 555-1234"

// Canned replies.
const (
	GreetingMessage  = "Hey there! I can help book, reschedule, or cancel your session. What would you like to do?"
	GratitudeMessage = "Any time! If you need anything else, just type it in."
	RestartMessage   = "Let's start fresh. Do you need to book, change, or cancel a session?"
	helpTemplate     = "I'm here to help with bookings. You can say things like 'Book a session for Friday at 4pm'. For anything else, text or call the studio at %s."
)

// stepDef describes what one step stores and what it asks next.
// A step whose next is StepIdle completes the flow.
type stepDef struct {
	field  models.Field
	next   models.Step
	prompt string
}

type flowDef struct {
	first   models.Step
	opener  string
	restart string
	steps   map[models.Step]stepDef
}

const contactPrompt = "Last thing: where should we send confirmations? (Phone or email)"

var flows = map[models.Intent]flowDef{
	models.IntentSchedule: {
		first:   models.StepCollectName,
		opener:  "Awesome! Let's get you on the books. What name should we put on the appointment?",
		restart: RestartMessage,
		steps: map[models.Step]stepDef{
			models.StepCollectName:    {models.FieldName, models.StepCollectDate, "Perfect. What date are you aiming for?"},
			models.StepCollectDate:    {models.FieldDate, models.StepCollectTime, "And what time works best?"},
			models.StepCollectTime:    {models.FieldTime, models.StepCollectContact, contactPrompt},
			models.StepCollectContact: {models.FieldContact, models.StepIdle, ""},
		},
	},
	models.IntentChange: {
		first:   models.StepCollectName,
		opener:  "Let's get your new slot locked in. What name is the appointment under?",
		restart: RestartMessage,
		steps: map[models.Step]stepDef{
			models.StepCollectName:    {models.FieldName, models.StepCollectDate, "Perfect. What new date are you aiming for?"},
			models.StepCollectDate:    {models.FieldDate, models.StepCollectTime, "And what new time works best?"},
			models.StepCollectTime:    {models.FieldTime, models.StepCollectContact, contactPrompt},
			models.StepCollectContact: {models.FieldContact, models.StepIdle, ""},
		},
	},
	models.IntentCancel: {
		first:   models.StepCancelName,
		opener:  "No problem. Can you share the name the appointment is under?",
		restart: "Let's start over. How can I help with your booking?",
		steps: map[models.Step]stepDef{
			models.StepCancelName:   {models.FieldName, models.StepCancelDate, "Thanks. What date was the appointment scheduled for?"},
			models.StepCancelDate:   {models.FieldDate, models.StepCancelReason, "Any notes you want us to know? (Optional)"},
			models.StepCancelReason: {models.FieldNotes, models.StepIdle, ""},
		},
	},
}

// Transition is the result of feeding one message to the dialog.
type Transition struct {
	State   models.DialogState
	Replies []string
	// Event is set only when the message completed a flow.
	Event *models.NotificationEvent
}

// Intake holds the configuration of the dialog. It carries no per-session state.
type Intake struct {
	studioPhone string
	newEventID  func() string
}

// IntakeOption configures an Intake.
type IntakeOption func(*Intake)

// WithStudioPhone sets the phone number named in the help message.
func WithStudioPhone(phone string) IntakeOption {
	return func(in *Intake) {
		if phone != "" {
			in.studioPhone = phone
		}
	}
}

// WithEventIDFunc overrides how notification event IDs are generated.
func WithEventIDFunc(fn func() string) IntakeOption {
	return func(in *Intake) {
		if fn != nil {
			in.newEventID = fn
		}
	}
}

// NewIntake creates an Intake with the given options.
func NewIntake(opts ...IntakeOption) *Intake {
	in := &Intake{
		studioPhone: DefaultStudioPhone,
		newEventID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Greeting is the first assistant message of a new chat.
func (in *Intake) Greeting() string {
	return GreetingMessage
}

// HelpMessage is the reply to an idle message that matched nothing.
func (in *Intake) HelpMessage() string {
	return fmt.Sprintf(helpTemplate, in.studioPhone)
}

// Handle applies one visitor message to state and returns the next state, the
// replies to render and, on completion, the event to dispatch. The input state
// is never modified.
func (in *Intake) Handle(state models.DialogState, text string, now time.Time) Transition {
	text = strings.TrimSpace(text)

	if state.IsIdle() {
		return in.handleIdle(state, text)
	}

	def, ok := flows[state.Intent]
	if !ok {
		slog.Warn("Intake.Handle: active step without a known intent, resetting", "intent", state.Intent, "step", state.Step)
		return restart(RestartMessage)
	}
	step, ok := def.steps[state.Step]
	if !ok {
		slog.Warn("Intake.Handle: step not part of flow, resetting", "intent", state.Intent, "step", state.Step)
		return restart(def.restart)
	}

	next := state.Clone()
	next.Payload[step.field] = text
	if step.next == models.StepIdle {
		return in.complete(next, now)
	}

	next.Step = step.next
	slog.Debug("Intake.Handle: advanced flow", "intent", next.Intent, "step", next.Step, "field", step.field)
	return Transition{State: next, Replies: []string{step.prompt}}
}

func (in *Intake) handleIdle(state models.DialogState, text string) Transition {
	intent, class := ClassifyIntent(text)
	switch class {
	case ClassifiedIntent:
		return in.start(intent)
	case ClassifiedGratitude:
		return Transition{State: state.Clone(), Replies: []string{GratitudeMessage}}
	default:
		return Transition{State: state.Clone(), Replies: []string{in.HelpMessage()}}
	}
}

func (in *Intake) start(intent models.Intent) Transition {
	def := flows[intent]
	state := models.DialogState{
		Intent:  intent,
		Step:    def.first,
		Payload: make(map[models.Field]string),
	}
	slog.Debug("Intake.start: flow started", "intent", intent, "step", state.Step)
	return Transition{State: state, Replies: []string{def.opener}}
}

func (in *Intake) complete(state models.DialogState, now time.Time) Transition {
	reply := Summarize(state.Intent, state.Payload)
	event := models.NotificationEvent{
		ID:        in.newEventID(),
		Intent:    state.Intent,
		Payload:   state.Payload,
		Timestamp: now,
	}
	slog.Info("Intake.complete: flow completed", "intent", state.Intent, "event_id", event.ID)
	return Transition{
		State:   models.NewDialogState(),
		Replies: []string{reply},
		Event:   &event,
	}
}

func restart(message string) Transition {
	return Transition{State: models.NewDialogState(), Replies: []string{message}}
}
