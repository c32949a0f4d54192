package flow

import (
	"strings"

	"github.com/jaystattoos/studio/internal/models"
)

// Keyword sets, checked in declaration order. The first match wins, so
// "book and maybe cancel" is a schedule request.
var (
	scheduleKeywords  = []string{"book", "schedule"}
	changeKeywords    = []string{"change", "reschedule"}
	cancelKeywords    = []string{"cancel"}
	gratitudeKeywords = []string{"thanks", "thank you", "appreciate it"}
)

// Classification is the outcome of classifying an idle-state message.
type Classification int

const (
	// ClassifiedUnknown means no keyword matched.
	ClassifiedUnknown Classification = iota
	// ClassifiedIntent means a flow should start.
	ClassifiedIntent
	// ClassifiedGratitude means the visitor said thanks.
	ClassifiedGratitude
)

// ClassifyIntent matches text against the intent keywords case-insensitively.
// "reschedule" contains "schedule" and therefore classifies as schedule.
func ClassifyIntent(text string) (models.Intent, Classification) {
	normalized := strings.ToLower(text)
	switch {
	case containsAny(normalized, scheduleKeywords):
		return models.IntentSchedule, ClassifiedIntent
	case containsAny(normalized, changeKeywords):
		return models.IntentChange, ClassifiedIntent
	case containsAny(normalized, cancelKeywords):
		return models.IntentCancel, ClassifiedIntent
	case containsAny(normalized, gratitudeKeywords):
		return models.IntentNone, ClassifiedGratitude
	default:
		return models.IntentNone, ClassifiedUnknown
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
