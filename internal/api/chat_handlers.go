package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jaystattoos/studio/internal/flow"
)

type chatMessageRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	Success   bool     `json:"success"`
	SessionID string   `json:"sessionId"`
	Replies   []string `json:"replies"`
	Intent    string   `json:"intent,omitempty"`
	Step      string   `json:"step,omitempty"`
}

func newChatResponse(reply flow.Reply, withState bool) chatResponse {
	resp := chatResponse{Success: true, SessionID: reply.SessionID, Replies: reply.Replies}
	if resp.Replies == nil {
		resp.Replies = []string{}
	}
	if withState {
		resp.Intent = reply.State.Intent.String()
		resp.Step = string(reply.State.Step)
	}
	return resp
}

func (s *Server) startChatHandler(w http.ResponseWriter, r *http.Request) {
	reply, err := s.deps.Chat.Start(r.Context())
	if err != nil {
		slog.Error("Server.startChatHandler: failed to start session", "error", err)
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to start chat session", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newChatResponse(reply, false))
}

func (s *Server) chatMessageHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req chatMessageRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("Server.chatMessageHandler: failed to decode JSON", "error", err, "sessionID", sessionID)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	reply, err := s.deps.Chat.Handle(r.Context(), sessionID, req.Text)
	if err != nil {
		slog.Error("Server.chatMessageHandler: failed to handle message", "error", err, "sessionID", sessionID)
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to handle chat message", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newChatResponse(reply, true))
}

func (s *Server) endChatHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.deps.Chat.End(r.Context(), sessionID); err != nil {
		slog.Error("Server.endChatHandler: failed to end session", "error", err, "sessionID", sessionID)
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to end chat session", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true, "sessionId": sessionID})
}
