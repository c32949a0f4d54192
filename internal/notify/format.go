// Package notify turns completed appointment flows into SMS notifications for
// the artist and delivers them through a Gateway.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/jaystattoos/studio/internal/models"
)

// TimeLayout renders event timestamps as a short US date and time.
const TimeLayout = "1/2/06, 3:04 PM"

const (
	missingValue = "N/A"
	missingNotes = "None"
)

type formatLine struct {
	label string
	field models.Field
	empty string
}

type messageFormat struct {
	header  string
	lines   []formatLine
	stamped string
}

var formats = map[models.Intent]messageFormat{
	models.IntentSchedule: {
		header: "🆕 NEW APPOINTMENT",
		lines: []formatLine{
			{"Name", models.FieldName, missingValue},
			{"Date", models.FieldDate, missingValue},
			{"Time", models.FieldTime, missingValue},
			{"Contact", models.FieldContact, missingValue},
		},
		stamped: "Requested",
	},
	models.IntentChange: {
		header: "🔄 APPOINTMENT CHANGED",
		lines: []formatLine{
			{"Name", models.FieldName, missingValue},
			{"New Date", models.FieldDate, missingValue},
			{"New Time", models.FieldTime, missingValue},
			{"Contact", models.FieldContact, missingValue},
		},
		stamped: "Changed",
	},
	models.IntentCancel: {
		header: "❌ APPOINTMENT CANCELED",
		lines: []formatLine{
			{"Name", models.FieldName, missingValue},
			{"Date", models.FieldDate, missingValue},
			{"Notes", models.FieldNotes, missingNotes},
		},
		stamped: "Canceled",
	},
}

// FormatMessage renders the SMS body for an event. Absent and empty fields
// render as placeholders. The timestamp is shown in loc, or UTC when loc is nil.
func FormatMessage(ev models.NotificationEvent, loc *time.Location) (string, error) {
	spec, ok := formats[ev.Intent]
	if !ok {
		return "", models.ErrInvalidIntent
	}
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString(spec.header)
	b.WriteString("\n\n")
	for i, line := range spec.lines {
		value := ev.Payload[line.field]
		if value == "" {
			value = line.empty
		}
		fmt.Fprintf(&b, "%s: %s", line.label, value)
		if i < len(spec.lines)-1 {
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "\n\n%s: %s", spec.stamped, ev.Timestamp.In(loc).Format(TimeLayout))
	return b.String(), nil
}
