package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jaystattoos/studio/internal/models"
	"github.com/jaystattoos/studio/internal/notify"
)

func (s *Server) notifyHandler(w http.ResponseWriter, r *http.Request) {
	var req notify.NotifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.notifyHandler: failed to decode JSON", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	ev := models.NotificationEvent{
		ID:        uuid.NewString(),
		Intent:    req.Intent,
		Payload:   req.Payload,
		Timestamp: req.Timestamp,
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if err := ev.Validate(); err != nil {
		slog.Warn("Server.notifyHandler: rejected event", "error", err, "intent", req.Intent)
		writeError(w, http.StatusBadRequest, capitalize(err.Error()))
		return
	}

	res, err := s.deps.Notifier.Deliver(r.Context(), ev)
	if err != nil {
		slog.Error("Server.notifyHandler: notification failed", "error", err, "event_id", ev.ID, "intent", ev.Intent)
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to send notification", err)
		return
	}

	slog.Info("Server.notifyHandler: notification sent", "event_id", ev.ID, "intent", ev.Intent, "sid", res.ID)
	writeJSONResponse(w, http.StatusOK, notify.NotifyResponse{
		Success:    true,
		MessageSID: res.ID,
		Intent:     ev.Intent,
		SentAt:     formatISO(time.Now()),
	})
}

// capitalize upper-cases the first ASCII letter of msg.
func capitalize(msg string) string {
	if msg == "" || msg[0] < 'a' || msg[0] > 'z' {
		return msg
	}
	return string(msg[0]-'a'+'A') + msg[1:]
}
