// Package models defines flow type definitions to avoid circular imports.
package models

// Intent is the visitor's classified goal; it selects which flow runs.
type Intent string

// Step is the cursor into the active flow's prompt sequence.
type Step string

// Field names a payload value collected by a flow step.
type Field string

// Intent constants.
const (
	IntentNone     Intent = ""
	IntentSchedule Intent = "schedule"
	IntentChange   Intent = "change"
	IntentCancel   Intent = "cancel"
)

// Step constants. Schedule and change share the collect-* sequence.
const (
	StepIdle           Step = "idle"
	StepCollectName    Step = "collect-name"
	StepCollectDate    Step = "collect-date"
	StepCollectTime    Step = "collect-time"
	StepCollectContact Step = "collect-contact"
	StepCancelName     Step = "cancel-name"
	StepCancelDate     Step = "cancel-date"
	StepCancelReason   Step = "cancel-reason"
)

// Field constants.
const (
	FieldName    Field = "name"
	FieldDate    Field = "date"
	FieldTime    Field = "time"
	FieldContact Field = "contact"
	FieldNotes   Field = "notes"
)

// IsValid reports whether the intent names a notifiable flow.
func (i Intent) IsValid() bool {
	switch i {
	case IntentSchedule, IntentChange, IntentCancel:
		return true
	default:
		return false
	}
}

// String returns "none" for the empty intent so logs stay readable.
func (i Intent) String() string {
	if i == IntentNone {
		return "none"
	}
	return string(i)
}
