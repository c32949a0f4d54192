package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jaystattoos/studio/internal/messaging"
	"github.com/jaystattoos/studio/internal/models"
)

// ErrRejected is returned when a remote notification service refuses an event
// as malformed. Retrying will not help.
var ErrRejected = errors.New("notification rejected")

// Gateway delivers one appointment event to the artist.
type Gateway interface {
	Deliver(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error)

// Deliver calls f.
func (f GatewayFunc) Deliver(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error) {
	return f(ctx, ev)
}

// IsPermanent reports whether a delivery error cannot be fixed by retrying.
func IsPermanent(err error) bool {
	return errors.Is(err, models.ErrInvalidIntent) ||
		errors.Is(err, models.ErrMissingEventFields) ||
		errors.Is(err, messaging.ErrNotConfigured) ||
		errors.Is(err, ErrRejected)
}

func failed(err error) models.DeliveryResult {
	return models.DeliveryResult{Accepted: false, Error: err.Error()}
}

// SMSGateway formats events and texts them to the artist's phone.
type SMSGateway struct {
	sender messaging.Sender
	to     string
	loc    *time.Location
}

// NewSMSGateway creates an SMSGateway sending to artistPhone. loc sets the
// time zone used for timestamps; nil means UTC.
func NewSMSGateway(sender messaging.Sender, artistPhone string, loc *time.Location) *SMSGateway {
	if loc == nil {
		loc = time.UTC
	}
	return &SMSGateway{sender: sender, to: artistPhone, loc: loc}
}

// Deliver formats ev and sends it by SMS. The result ID is the provider message SID.
func (g *SMSGateway) Deliver(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error) {
	if err := ev.Validate(); err != nil {
		return failed(err), err
	}
	if g.to == "" {
		err := fmt.Errorf("artist phone number not set: %w", messaging.ErrNotConfigured)
		return failed(err), err
	}
	body, err := FormatMessage(ev, g.loc)
	if err != nil {
		return failed(err), err
	}

	sid, err := g.sender.SendSMS(ctx, g.to, body)
	if err != nil {
		err = fmt.Errorf("failed to send %s notification: %w", ev.Intent, err)
		return failed(err), err
	}
	slog.Info("SMSGateway.Deliver: notification sent", "event_id", ev.ID, "intent", ev.Intent, "sid", sid)
	return models.DeliveryResult{Accepted: true, ID: sid}, nil
}

// LogGateway writes the formatted notification to the log instead of sending it.
type LogGateway struct {
	loc *time.Location
}

// NewLogGateway creates a LogGateway.
func NewLogGateway(loc *time.Location) *LogGateway {
	return &LogGateway{loc: loc}
}

func (g *LogGateway) Deliver(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error) {
	if err := ev.Validate(); err != nil {
		return failed(err), err
	}
	body, err := FormatMessage(ev, g.loc)
	if err != nil {
		return failed(err), err
	}
	slog.Info("LogGateway.Deliver: notification", "event_id", ev.ID, "intent", ev.Intent, "body", body)
	return models.DeliveryResult{Accepted: true, ID: "log-" + ev.ID}, nil
}

// NotifyRequest is the JSON body accepted by the /api/notify endpoint.
type NotifyRequest struct {
	Intent    models.Intent           `json:"intent"`
	Payload   map[models.Field]string `json:"payload"`
	Timestamp time.Time               `json:"timestamp"`
}

// NotifyResponse is the JSON body returned by the /api/notify endpoint.
type NotifyResponse struct {
	Success    bool          `json:"success"`
	MessageSID string        `json:"messageSid,omitempty"`
	Intent     models.Intent `json:"intent,omitempty"`
	SentAt     string        `json:"sentAt,omitempty"`
	Error      string        `json:"error,omitempty"`
	Details    string        `json:"details,omitempty"`
}

// HTTPGateway posts events to a remote notification service's /api/notify endpoint.
type HTTPGateway struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGateway creates an HTTPGateway posting to endpoint. A nil client
// uses one with a 15 second timeout.
func NewHTTPGateway(endpoint string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: DefaultAttemptTimeout}
	}
	return &HTTPGateway{endpoint: endpoint, client: client}
}

func (g *HTTPGateway) Deliver(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error) {
	body, err := json.Marshal(NotifyRequest{Intent: ev.Intent, Payload: ev.Payload, Timestamp: ev.Timestamp})
	if err != nil {
		return failed(err), fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return failed(err), fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return failed(err), fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	var out NotifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		err = fmt.Errorf("invalid notification response (status %d): %w", resp.StatusCode, err)
		return failed(err), err
	}

	if resp.StatusCode >= 400 || !out.Success {
		msg := out.Error
		if out.Details != "" {
			msg += ": " + out.Details
		}
		err := fmt.Errorf("notification service returned %d: %s", resp.StatusCode, msg)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			err = fmt.Errorf("%w: %v", ErrRejected, err)
		}
		slog.Warn("HTTPGateway.Deliver: remote service refused notification", "event_id", ev.ID, "status", resp.StatusCode, "error", msg)
		return failed(err), err
	}
	return models.DeliveryResult{Accepted: true, ID: out.MessageSID}, nil
}
