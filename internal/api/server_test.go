package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jaystattoos/studio/internal/auth"
	"github.com/jaystattoos/studio/internal/flow"
	"github.com/jaystattoos/studio/internal/messaging"
	"github.com/jaystattoos/studio/internal/models"
	"github.com/jaystattoos/studio/internal/notify"
	"github.com/jaystattoos/studio/internal/portfolio"
	"github.com/jaystattoos/studio/internal/store"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testEnv struct {
	server     *Server
	handler    http.Handler
	sender     *messaging.MockClient
	receipts   *store.InMemoryStore
	dispatcher *notify.Dispatcher
	images     *portfolio.Store
	siteDir    string
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	sender := messaging.NewMockClient()
	receipts := store.NewInMemoryStore()
	dispatcher := notify.NewDispatcher(notify.NewSMSGateway(sender, "+15550009999", nil), notify.WithReceipts(receipts))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dispatcher.Close(ctx)
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	authSvc, err := auth.NewService(auth.WithUsername("jay"), auth.WithPasswordHash(string(hash)), auth.WithSecret("test-secret"))
	require.NoError(t, err)

	root := t.TempDir()
	images, err := portfolio.NewStore(filepath.Join(root, "uploads"))
	require.NoError(t, err)
	siteDir := filepath.Join(root, "site")
	require.NoError(t, os.MkdirAll(siteDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "index.html"), []byte("<h1>Jays Tattoos</h1>"), 0o644))

	chat := flow.NewConversations(flow.NewIntake(), flow.NewInMemoryStateManager(), dispatcher)
	opts = append([]Option{WithSiteDir(siteDir)}, opts...)
	srv, err := NewServer(Deps{
		Chat:     chat,
		Notifier: dispatcher,
		Receipts: receipts,
		Auth:     authSvc,
		Images:   images,
	}, opts...)
	require.NoError(t, err)

	return &testEnv{
		server:     srv,
		handler:    srv.Handler(),
		sender:     sender,
		receipts:   receipts,
		dispatcher: dispatcher,
		images:     images,
		siteDir:    siteDir,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "jay", "password": "s3cret"}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Token
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, WithServiceName("Studio Test"))
	rr := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"status": "ok", "service": "Studio Test"}, decodeBody(t, rr))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/chat/sessions", nil, "")
	rr := env.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "jay", "password": "s3cret"}, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "24h", body["expiresIn"])
	assert.NotEmpty(t, body["token"])

	rr = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "jay"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Username and password required", decodeBody(t, rr)["error"])

	rr = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "jay", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Invalid credentials"}, decodeBody(t, rr))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader("{not json"))
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t, WithLoginRateLimit(2))
	creds := map[string]string{"username": "jay", "password": "wrong"}

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/admin/login", creds, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/admin/login", creds, "").Code)
	rr := env.do(t, http.MethodPost, "/api/admin/login", creds, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, false, decodeBody(t, rr)["success"])
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/admin/verify", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Access token required", decodeBody(t, rr)["error"])

	rr = env.do(t, http.MethodGet, "/api/admin/images", nil, "garbage")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rr)["error"])

	rr = env.do(t, http.MethodGet, "/api/admin/verify", nil, env.login(t))
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "jay", user["username"])
	assert.Equal(t, "admin", user["role"])
	assert.NotNil(t, user["exp"])
}

func uploadRequest(t *testing.T, field, filename, contentType string, data []byte, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestImageLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, uploadRequest(t, "image", "koi.png", "image/png", pngHeader, token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var up uploadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &up))
	assert.True(t, up.Success)
	assert.True(t, strings.HasPrefix(up.Filename, "portfolio-"))
	assert.Equal(t, "/assets/uploads/"+up.Filename, up.URL)
	assert.Equal(t, int64(len(pngHeader)), up.Size)
	_, err := time.Parse(time.RFC3339, up.UploadedAt)
	assert.NoError(t, err)

	rr = env.do(t, http.MethodGet, up.URL, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, pngHeader, rr.Body.Bytes())

	rr = env.do(t, http.MethodGet, "/api/admin/images", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var list imagesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Images, 1)
	assert.Equal(t, up.Filename, list.Images[0].Filename)

	rr = env.do(t, http.MethodDelete, "/api/admin/images/"+up.Filename, nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Image deleted successfully", body["message"])
	assert.Equal(t, up.Filename, body["filename"])

	rr = env.do(t, http.MethodDelete, "/api/admin/images/"+up.Filename, nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Image not found", decodeBody(t, rr)["error"])
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
	}{
		{"wrong field", uploadRequest(t, "photo", "a.png", "image/png", pngHeader, token), http.StatusBadRequest},
		{"wrong type", uploadRequest(t, "image", "a.txt", "text/plain", []byte("hello"), token), http.StatusBadRequest},
		{"too large", uploadRequest(t, "image", "a.jpg", "image/jpeg", make([]byte, portfolio.MaxImageSize+10), token), http.StatusBadRequest},
		{"no token", uploadRequest(t, "image", "a.png", "image/png", pngHeader, ""), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			env.handler.ServeHTTP(rr, tt.req)
			assert.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			assert.Equal(t, false, decodeBody(t, rr)["success"])
		})
	}

	images, err := env.images.List()
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestNotifyEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/notify", map[string]any{
		"intent":    "cancel",
		"payload":   map[string]string{"name": "Jo", "date": "Monday", "notes": ""},
		"timestamp": "2026-03-07T21:05:00.000Z",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "cancel", body["intent"])
	assert.NotEmpty(t, body["messageSid"])
	assert.NotEmpty(t, body["sentAt"])

	sent := env.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "❌ APPOINTMENT CANCELED\n\nName: Jo\nDate: Monday\nNotes: None\n\nCanceled: 3/7/26, 9:05 PM", sent[0].Body)

	receipts, err := env.receipts.GetReceipts()
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, models.MessageStatusSent, receipts[0].Status)
}

func TestNotifyEndpointErrors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/notify", map[string]any{"intent": "schedule"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Missing required fields: intent and payload", decodeBody(t, rr)["error"])

	rr = env.do(t, http.MethodPost, "/api/notify", map[string]any{"intent": "rebook", "payload": map[string]string{}}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid intent. Must be: schedule, change, or cancel", decodeBody(t, rr)["error"])
	assert.Zero(t, env.sender.Calls())

	env.sender.Err = assert.AnError
	rr = env.do(t, http.MethodPost, "/api/notify", map[string]any{"intent": "schedule", "payload": map[string]string{}}, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Failed to send notification", body["error"])
	assert.Contains(t, body["details"], assert.AnError.Error())
}

func TestChatFlowNotifiesArtist(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/chat/sessions", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var start chatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &start))
	require.NotEmpty(t, start.SessionID)
	assert.Equal(t, []string{flow.GreetingMessage}, start.Replies)

	var last chatResponse
	for _, text := range []string{"I'd like to book", "Sam", "Friday", "3pm", "555-1111"} {
		rr = env.do(t, http.MethodPost, "/api/chat/sessions/"+start.SessionID+"/messages", map[string]string{"text": text}, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &last))
	}
	assert.Equal(t, "none", last.Intent)
	assert.Equal(t, "idle", last.Step)
	require.Len(t, last.Replies, 1)
	assert.Contains(t, last.Replies[0], "We will book the session for Sam on Friday at 3pm")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.dispatcher.Close(ctx))

	sent := env.sender.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "🆕 NEW APPOINTMENT")
	assert.Contains(t, sent[0].Body, "Contact: 555-1111")

	token := env.login(t)
	rr = env.do(t, http.MethodGet, "/api/admin/notifications", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var notes notificationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &notes))
	assert.Equal(t, 1, notes.Count)
	assert.Equal(t, models.IntentSchedule, notes.Notifications[0].Intent)
}

func TestChatMidFlowStateAndEnd(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/chat/sessions/abc/messages", map[string]string{"text": "cancel"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "cancel", resp.Intent)
	assert.Equal(t, "cancel-name", resp.Step)

	rr = env.do(t, http.MethodDelete, "/api/chat/sessions/abc", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/chat/sessions/abc/messages", map[string]string{"text": "Jo"}, "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "idle", resp.Step)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sessions/abc/messages", strings.NewReader("nope"))
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, WithCORSOrigins([]string{"https://jaystattoos.com"}))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat/sessions", nil)
	req.Header.Set("Origin", "https://jaystattoos.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://jaystattoos.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticSite(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Jays Tattoos")
}

func TestListenAndServeShutsDown(t *testing.T) {
	env := newTestEnv(t, WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.ListenAndServe(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
