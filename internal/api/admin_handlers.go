package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaystattoos/studio/internal/auth"
	"github.com/jaystattoos/studio/internal/metrics"
	"github.com/jaystattoos/studio/internal/models"
	"github.com/jaystattoos/studio/internal/portfolio"
)

// uploadFormMemory is how much of a multipart upload is held in memory.
const uploadFormMemory = 1 << 20

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresIn string `json:"expiresIn"`
}

type uploadResponse struct {
	Success    bool   `json:"success"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploadedAt"`
}

type imagesResponse struct {
	Success bool           `json:"success"`
	Images  []models.Image `json:"images"`
	Count   int            `json:"count"`
}

type notificationsResponse struct {
	Success       bool             `json:"success"`
	Notifications []models.Receipt `json:"notifications"`
	Count         int              `json:"count"`
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.loginHandler: failed to decode JSON", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	tok, err := s.deps.Auth.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		metrics.AdminLoginsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		metrics.AdminLoginsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		slog.Error("Server.loginHandler: login failed", "error", err)
		writeErrorDetails(w, http.StatusInternalServerError, "Login failed", err)
		return
	}

	metrics.AdminLoginsTotal.WithLabelValues("ok").Inc()
	writeJSONResponse(w, http.StatusOK, loginResponse{Success: true, Token: tok.Token, ExpiresIn: tok.ExpiresIn})
}

func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    claims,
	})
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	// Leave room for multipart framing around a maximum-size image.
	r.Body = http.MaxBytesReader(w, r.Body, portfolio.MaxImageSize+uploadFormMemory)
	if err := r.ParseMultipartForm(uploadFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.UploadsTotal.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusBadRequest, "Image exceeds the 5MB limit")
			return
		}
		slog.Warn("Server.uploadHandler: invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	img, err := s.deps.Images.Save(file, header.Filename, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, portfolio.ErrUnsupportedType):
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "Only image files are allowed (jpeg, jpg, png, gif, webp)")
		return
	case errors.Is(err, portfolio.ErrTooLarge):
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "Image exceeds the 5MB limit")
		return
	case err != nil:
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		slog.Error("Server.uploadHandler: upload failed", "error", err, "original_name", header.Filename)
		writeErrorDetails(w, http.StatusInternalServerError, "Upload failed", err)
		return
	}

	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	writeJSONResponse(w, http.StatusOK, uploadResponse{
		Success:    true,
		Filename:   img.Filename,
		URL:        img.URL,
		Size:       img.Size,
		UploadedAt: formatISO(img.UploadedAt),
	})
}

func (s *Server) listImagesHandler(w http.ResponseWriter, r *http.Request) {
	images, err := s.deps.Images.List()
	if err != nil {
		slog.Error("Server.listImagesHandler: failed to list images", "error", err)
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to list images", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, imagesResponse{Success: true, Images: images, Count: len(images)})
}

func (s *Server) deleteImageHandler(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	err := s.deps.Images.Delete(filename)
	switch {
	case errors.Is(err, portfolio.ErrNotFound):
		writeError(w, http.StatusNotFound, "Image not found")
		return
	case errors.Is(err, portfolio.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "Invalid image filename")
		return
	case err != nil:
		slog.Error("Server.deleteImageHandler: delete failed", "error", err, "filename", filename)
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to delete image", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Image deleted successfully",
		"filename": filename,
	})
}

func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.deps.Receipts.GetReceipts()
	if err != nil {
		slog.Error("Server.notificationsHandler: failed to list receipts", "error", err)
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	if receipts == nil {
		receipts = []models.Receipt{}
	}
	writeJSONResponse(w, http.StatusOK, notificationsResponse{Success: true, Notifications: receipts, Count: len(receipts)})
}

// isoLayout matches JavaScript's Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
