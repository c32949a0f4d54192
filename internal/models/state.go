// Package models defines state management structures for studio chat flows.
package models

// DialogState is the state of one chat session's appointment intake.
// Payload only ever holds fields of the active intent's flow and is emptied
// whenever Step returns to StepIdle.
type DialogState struct {
	Intent  Intent           `json:"intent"`
	Step    Step             `json:"step"`
	Payload map[Field]string `json:"payload"`
}

// NewDialogState returns the idle state.
func NewDialogState() DialogState {
	return DialogState{
		Intent:  IntentNone,
		Step:    StepIdle,
		Payload: make(map[Field]string),
	}
}

// IsIdle reports whether no flow is active. A zero-valued state counts as idle.
func (s DialogState) IsIdle() bool {
	return s.Step == StepIdle || s.Step == ""
}

// Clone returns a deep copy so transitions never alias the caller's payload.
func (s DialogState) Clone() DialogState {
	out := DialogState{Intent: s.Intent, Step: s.Step, Payload: make(map[Field]string, len(s.Payload))}
	for k, v := range s.Payload {
		out.Payload[k] = v
	}
	return out
}
