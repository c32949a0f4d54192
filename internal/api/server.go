// Package api provides the HTTP server for the studio backend.
//
// It exposes the chat intake endpoints used by the website widget, the
// notification relay, and the admin endpoints for portfolio management, and
// serves the static site and uploaded images.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaystattoos/studio/internal/auth"
	"github.com/jaystattoos/studio/internal/flow"
	"github.com/jaystattoos/studio/internal/models"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":3000"
	// DefaultServiceName is reported by /health.
	DefaultServiceName = "Jays Tattoos Notification Service"
	// DefaultLoginRateLimit is the number of login attempts allowed per IP per minute.
	DefaultLoginRateLimit = 10
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// ChatService runs the appointment intake dialog for web chat sessions.
type ChatService interface {
	Start(ctx context.Context) (flow.Reply, error)
	Handle(ctx context.Context, sessionID, text string) (flow.Reply, error)
	End(ctx context.Context, sessionID string) error
}

// Notifier delivers an appointment event synchronously.
type Notifier interface {
	Deliver(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error)
}

// ReceiptLister lists notification receipts newest first.
type ReceiptLister interface {
	GetReceipts() ([]models.Receipt, error)
}

// Authenticator checks admin credentials and tokens.
type Authenticator interface {
	Login(username, password string) (auth.Token, error)
	Verify(token string) (*auth.Claims, error)
}

// ImageStore manages portfolio images.
type ImageStore interface {
	Save(r io.Reader, originalName, contentType string) (models.Image, error)
	List() ([]models.Image, error)
	Delete(name string) error
	Dir() string
}

// Deps are the services the server exposes.
type Deps struct {
	Chat     ChatService
	Notifier Notifier
	Receipts ReceiptLister
	Auth     Authenticator
	Images   ImageStore
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	ServiceName    string
	CORSOrigins    []string
	SiteDir        string
	LoginRateLimit int
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithServiceName sets the name reported by /health.
func WithServiceName(name string) Option {
	return func(o *Opts) { o.ServiceName = name }
}

// WithCORSOrigins sets the allowed browser origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(o *Opts) { o.CORSOrigins = origins }
}

// WithSiteDir serves the static website from dir.
func WithSiteDir(dir string) Option {
	return func(o *Opts) { o.SiteDir = dir }
}

// WithLoginRateLimit sets the per-IP login attempts allowed per minute.
func WithLoginRateLimit(n int) Option {
	return func(o *Opts) { o.LoginRateLimit = n }
}

// Server is the studio HTTP server.
type Server struct {
	deps    Deps
	opts    Opts
	handler http.Handler
}

// NewServer builds the router. Every field of deps must be set.
func NewServer(deps Deps, opts ...Option) (*Server, error) {
	if deps.Chat == nil || deps.Notifier == nil || deps.Receipts == nil || deps.Auth == nil || deps.Images == nil {
		return nil, errors.New("api: all server dependencies are required")
	}
	cfg := Opts{
		Addr:           DefaultAddr,
		ServiceName:    DefaultServiceName,
		LoginRateLimit: DefaultLoginRateLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = DefaultLoginRateLimit
	}

	s := &Server{deps: deps, opts: cfg}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors(s.opts.CORSOrigins))

	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/notify", s.notifyHandler)

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", s.startChatHandler)
			r.Post("/{sessionID}/messages", s.chatMessageHandler)
			r.Delete("/{sessionID}", s.endChatHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(loginRateLimit(s.opts.LoginRateLimit)).Post("/login", s.loginHandler)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/verify", s.verifyHandler)
				r.Post("/upload", s.uploadHandler)
				r.Get("/images", s.listImagesHandler)
				r.Delete("/images/{filename}", s.deleteImageHandler)
				r.Get("/notifications", s.notificationsHandler)
			})
		})
	})

	r.Handle("/assets/uploads/*", http.StripPrefix("/assets/uploads/", http.FileServer(http.Dir(s.deps.Images.Dir()))))
	if s.opts.SiteDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.opts.SiteDir)))
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.ListenAndServe: listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.ListenAndServe: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.opts.ServiceName,
	})
}
