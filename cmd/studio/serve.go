package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaystattoos/studio/internal/api"
	"github.com/jaystattoos/studio/internal/auth"
	"github.com/jaystattoos/studio/internal/flow"
	"github.com/jaystattoos/studio/internal/lockfile"
	"github.com/jaystattoos/studio/internal/messaging"
	"github.com/jaystattoos/studio/internal/notify"
	"github.com/jaystattoos/studio/internal/portfolio"
	"github.com/jaystattoos/studio/internal/store"
)

// drainTimeout bounds how long queued notifications may take on shutdown.
const drainTimeout = 20 * time.Second

// serveFlags override the environment when set.
type serveFlags struct {
	addr       string
	stateDir   string
	dbDSN      string
	siteDir    string
	uploadsDir string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API: the chat endpoints, /api/notify, the admin portfolio
endpoints, the uploaded images and, when configured, the static site.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			flags.apply(&cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.addr, "addr", "", "listen address (overrides API_ADDR and PORT)")
	f.StringVar(&flags.stateDir, "state-dir", "", "state directory (overrides STUDIO_STATE_DIR)")
	f.StringVar(&flags.dbDSN, "db-dsn", "", "receipt database DSN, PostgreSQL URL or SQLite path (overrides DATABASE_URL)")
	f.StringVar(&flags.siteDir, "site-dir", "", "static site directory (overrides SITE_DIR)")
	f.StringVar(&flags.uploadsDir, "uploads-dir", "", "portfolio upload directory (overrides UPLOADS_DIR)")
	return cmd
}

func (f serveFlags) apply(cfg *Config) {
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.stateDir != "" {
		cfg.StateDir = f.stateDir
	}
	if f.dbDSN != "" {
		cfg.DatabaseURL = f.dbDSN
	}
	if f.siteDir != "" {
		cfg.SiteDir = f.siteDir
	}
	if f.uploadsDir != "" {
		cfg.UploadsDir = f.uploadsDir
	}
}

func runServer(ctx context.Context, cfg Config) error {
	lock, err := lockfile.Acquire(cfg.StateDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Error("failed to release state lock", "error", err)
		}
	}()

	loc, err := cfg.location()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open receipt store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close receipt store", "error", err)
		}
	}()
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, notification receipts are kept in memory only")
	}

	dispatcher := notify.NewDispatcher(newGateway(cfg, loc),
		notify.WithReceipts(st),
		notify.WithMaxAttempts(cfg.NotifyAttempts),
		notify.WithAttemptTimeout(cfg.NotifyTimeout))
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := dispatcher.Close(dctx); err != nil {
			slog.Error("notifications still pending at shutdown", "error", err)
		}
	}()

	authSvc, err := auth.NewService(
		auth.WithUsername(cfg.AdminUsername),
		auth.WithPasswordHash(cfg.AdminPasswordHash),
		auth.WithSecret(cfg.JWTSecret))
	if err != nil {
		return fmt.Errorf("failed to configure admin auth: %w", err)
	}

	images, err := portfolio.NewStore(cfg.uploadsDir())
	if err != nil {
		return fmt.Errorf("failed to open portfolio store: %w", err)
	}

	states := flow.NewInMemoryStateManager(flow.WithSessionTTL(cfg.SessionTTL))
	go states.RunJanitor(ctx, janitorInterval(cfg.SessionTTL))
	chat := flow.NewConversations(flow.NewIntake(flow.WithStudioPhone(cfg.StudioPhone)), states, dispatcher)

	srv, err := api.NewServer(api.Deps{
		Chat:     chat,
		Notifier: dispatcher,
		Receipts: st,
		Auth:     authSvc,
		Images:   images,
	},
		api.WithAddr(cfg.Addr),
		api.WithServiceName(cfg.ServiceName),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithSiteDir(cfg.SiteDir))
	if err != nil {
		return err
	}

	slog.Info("studio server starting", "addr", cfg.Addr, "state_dir", cfg.StateDir, "uploads_dir", images.Dir(), "timezone", loc.String())
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("studio server stopped")
	return nil
}

// newGateway sends notifications by SMS. Missing Twilio settings leave the
// server running with every notification failing as not configured.
func newGateway(cfg Config, loc *time.Location) notify.Gateway {
	var sender messaging.Sender
	client, err := messaging.NewTwilioClient(
		messaging.WithAccountSID(cfg.TwilioAccountSID),
		messaging.WithAuthToken(cfg.TwilioAuthToken),
		messaging.WithFromNumber(cfg.TwilioFrom))
	if err != nil {
		slog.Warn("Twilio not configured, artist notifications will fail", "error", err)
		sender = messaging.UnconfiguredSender{}
	} else {
		sender = client
	}

	artist := cfg.ArtistPhone
	if artist == "" {
		slog.Warn("ARTIST_PHONE_NUMBER not set, artist notifications will fail")
	} else if canonical, err := messaging.CanonicalizePhone(artist); err != nil {
		slog.Warn("ARTIST_PHONE_NUMBER is not a valid phone number", "error", err)
	} else {
		artist = canonical
	}
	return notify.NewSMSGateway(sender, artist, loc)
}

func janitorInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 4; interval > time.Second {
		return interval
	}
	return time.Second
}
