package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaystattoos/studio/internal/models"
)

var eventTime = time.Date(2026, 3, 7, 21, 5, 0, 0, time.UTC)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name    string
		intent  models.Intent
		payload map[models.Field]string
		want    string
	}{
		{
			name:   "schedule",
			intent: models.IntentSchedule,
			payload: map[models.Field]string{
				models.FieldName: "Sam", models.FieldDate: "Friday", models.FieldTime: "3pm", models.FieldContact: "555-1111",
			},
			want: "🆕 NEW APPOINTMENT\n\nName: Sam\nDate: Friday\nTime: 3pm\nContact: 555-1111\n\nRequested: 3/7/26, 9:05 PM",
		},
		{
			name:    "change with missing fields",
			intent:  models.IntentChange,
			payload: map[models.Field]string{models.FieldName: "Sam", models.FieldDate: ""},
			want:    "🔄 APPOINTMENT CHANGED\n\nName: Sam\nNew Date: N/A\nNew Time: N/A\nContact: N/A\n\nChanged: 3/7/26, 9:05 PM",
		},
		{
			name:    "cancel with empty notes",
			intent:  models.IntentCancel,
			payload: map[models.Field]string{models.FieldName: "Jo", models.FieldDate: "Monday", models.FieldNotes: ""},
			want:    "❌ APPOINTMENT CANCELED\n\nName: Jo\nDate: Monday\nNotes: None\n\nCanceled: 3/7/26, 9:05 PM",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatMessage(models.NotificationEvent{Intent: tt.intent, Payload: tt.payload, Timestamp: eventTime}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMessageUsesLocation(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	got, err := FormatMessage(models.NotificationEvent{Intent: models.IntentCancel, Payload: map[models.Field]string{}, Timestamp: eventTime}, loc)
	require.NoError(t, err)
	assert.Contains(t, got, "Canceled: 3/7/26, 1:05 PM")
	assert.Contains(t, got, "Name: N/A")
}

func TestFormatMessageInvalidIntent(t *testing.T) {
	_, err := FormatMessage(models.NotificationEvent{Intent: "reschedule", Payload: map[models.Field]string{}}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidIntent)
}
