// Package models defines the core data structures for the studio backend.
//
// It includes appointment notification events, delivery receipts, portfolio
// images and the JSON envelopes returned by the HTTP API.
package models

import (
	"errors"
	"maps"
	"time"
)

// ErrInvalidIntent is returned when an event names an intent outside schedule, change and cancel.
var ErrInvalidIntent = errors.New("invalid intent. Must be: schedule, change, or cancel")

// ErrMissingEventFields is returned when an event lacks an intent or a payload.
var ErrMissingEventFields = errors.New("missing required fields: intent and payload")

// NotificationEvent is created once per completed flow and handed to the gateway.
type NotificationEvent struct {
	ID        string           `json:"id,omitempty"`
	Intent    Intent           `json:"intent"`
	Payload   map[Field]string `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
}

// Validate checks the event before it reaches a gateway.
func (e NotificationEvent) Validate() error {
	if e.Intent == IntentNone || e.Payload == nil {
		return ErrMissingEventFields
	}
	if !e.Intent.IsValid() {
		return ErrInvalidIntent
	}
	return nil
}

// Clone returns a copy of the event with its own payload map.
func (e NotificationEvent) Clone() NotificationEvent {
	e.Payload = maps.Clone(e.Payload)
	return e
}

// DeliveryResult is what a gateway reports for one delivery attempt.
type DeliveryResult struct {
	Accepted bool   `json:"accepted"`
	ID       string `json:"id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// MessageStatus represents the delivery status of a notification.
type MessageStatus string

const (
	// MessageStatusSent indicates the provider accepted the message.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusFailed indicates every attempt failed.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt records the outcome of delivering one NotificationEvent.
type Receipt struct {
	EventID   string        `json:"event_id"`
	Intent    Intent        `json:"intent"`
	Status    MessageStatus `json:"status"`
	MessageID string        `json:"message_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	Attempts  int           `json:"attempts"`
	Time      int64         `json:"time"`
}

// Image describes one stored portfolio image.
type Image struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// APIError is the body returned by every failing endpoint.
type APIError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Error creates an error body with a message.
func Error(message string) APIError {
	return APIError{Success: false, Error: message}
}

// ErrorWithDetails creates an error body carrying the underlying cause.
func ErrorWithDetails(message, details string) APIError {
	return APIError{Success: false, Error: message, Details: details}
}
