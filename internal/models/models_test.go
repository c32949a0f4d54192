package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   NotificationEvent
		wantErr error
	}{
		{"schedule", NotificationEvent{Intent: IntentSchedule, Payload: map[Field]string{}}, nil},
		{"change", NotificationEvent{Intent: IntentChange, Payload: map[Field]string{FieldName: "Sam"}}, nil},
		{"cancel", NotificationEvent{Intent: IntentCancel, Payload: map[Field]string{}}, nil},
		{"missing intent", NotificationEvent{Payload: map[Field]string{}}, ErrMissingEventFields},
		{"missing payload", NotificationEvent{Intent: IntentSchedule}, ErrMissingEventFields},
		{"unknown intent", NotificationEvent{Intent: "walk-in", Payload: map[Field]string{}}, ErrInvalidIntent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.event.Validate(), tt.wantErr)
		})
	}
}

func TestNotificationEventCloneDetachesPayload(t *testing.T) {
	ev := NotificationEvent{Intent: IntentSchedule, Payload: map[Field]string{FieldName: "Sam"}, Timestamp: time.Now()}
	cp := ev.Clone()
	cp.Payload[FieldName] = "Jo"
	assert.Equal(t, "Sam", ev.Payload[FieldName])
}

func TestDialogStateCloneAndIdle(t *testing.T) {
	s := NewDialogState()
	assert.True(t, s.IsIdle())
	assert.True(t, DialogState{}.IsIdle())

	s.Step = StepCollectDate
	s.Payload[FieldName] = "Sam"
	cp := s.Clone()
	cp.Payload[FieldDate] = "Friday"
	assert.False(t, cp.IsIdle())
	assert.NotContains(t, s.Payload, FieldDate)
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "none", IntentNone.String())
	assert.Equal(t, "cancel", IntentCancel.String())
	assert.False(t, IntentNone.IsValid())
}
