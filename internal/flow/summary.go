package flow

import (
	"fmt"

	"github.com/jaystattoos/studio/internal/models"
)

const (
	fallbackName = "you"
	fallbackDate = "the requested date"
	fallbackTime = "the requested time"

	onFileFollowUp = " We will follow up via the contact information we have on file."
)

// Summarize builds the completion reply for a finished flow. Empty values are
// treated as absent and replaced with generic phrasing.
func Summarize(intent models.Intent, payload map[models.Field]string) string {
	verb := "We will book"
	switch intent {
	case models.IntentCancel:
		verb = "We will cancel"
	case models.IntentChange:
		verb = "We will update"
	}

	summary := fmt.Sprintf("Got it. %s the session for %s on %s at %s.",
		verb,
		valueOr(payload, models.FieldName, fallbackName),
		valueOr(payload, models.FieldDate, fallbackDate),
		valueOr(payload, models.FieldTime, fallbackTime),
	)

	// Cancel never collects a contact, so its follow-up is fixed.
	if contact := payload[models.FieldContact]; contact != "" && intent != models.IntentCancel {
		return summary + fmt.Sprintf(" We'll confirm at %s.", contact)
	}
	return summary + onFileFollowUp
}

func valueOr(payload map[models.Field]string, field models.Field, fallback string) string {
	if v := payload[field]; v != "" {
		return v
	}
	return fallback
}
