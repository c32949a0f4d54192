// Package messaging provides SMS delivery for appointment notifications.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Error variables for better error handling and testability
var (
	// ErrNotConfigured is returned by a sender that has no provider credentials.
	ErrNotConfigured = errors.New("sms provider credentials not configured")
	// ErrEmptyBody is returned when asked to send an empty message.
	ErrEmptyBody = errors.New("message body cannot be empty")
)

// nonDialable matches everything that is not a digit.
var nonDialable = regexp.MustCompile(`\D`)

// MinPhoneDigits is the shortest number accepted as a recipient.
const MinPhoneDigits = 6

// Sender defines a pluggable SMS delivery abstraction.
type Sender interface {
	// SendSMS sends body to the given number and returns the provider's message ID.
	SendSMS(ctx context.Context, to string, body string) (string, error)
}

// CanonicalizePhone validates a phone number and returns it in E.164 "+<digits>" form.
// Formatting characters such as spaces, dashes, dots and parentheses are dropped.
func CanonicalizePhone(number string) (string, error) {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	digits := nonDialable.ReplaceAllString(trimmed, "")
	if digits == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", number)
	}
	if len(digits) < MinPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", digits, MinPhoneDigits)
	}
	// Ten digits without a leading "+" are a North American number.
	if !strings.HasPrefix(trimmed, "+") && len(digits) == 10 {
		digits = "1" + digits
	}
	return "+" + digits, nil
}

// UnconfiguredSender fails every send. It stands in for Twilio when credentials
// are missing so the rest of the service still starts.
type UnconfiguredSender struct{}

// SendSMS always returns ErrNotConfigured.
func (UnconfiguredSender) SendSMS(ctx context.Context, to string, body string) (string, error) {
	return "", ErrNotConfigured
}
