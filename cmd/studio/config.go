package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jaystattoos/studio/internal/api"
	"github.com/jaystattoos/studio/internal/flow"
	"github.com/jaystattoos/studio/internal/notify"
	"github.com/jaystattoos/studio/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir holds the lock file and, by default, uploads.
	DefaultStateDir = "data"
	// DefaultPort is used when neither API_ADDR nor PORT is set.
	DefaultPort = "3000"
)

// Config holds the server configuration gathered from the environment.
type Config struct {
	Addr        string
	StateDir    string
	UploadsDir  string
	SiteDir     string
	DatabaseURL string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	ArtistPhone      string
	NotifyURL        string

	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string

	Timezone       string
	StudioPhone    string
	ServiceName    string
	CORSOrigins    []string
	SessionTTL     time.Duration
	NotifyAttempts int
	NotifyTimeout  time.Duration
	LogLevel       string
}

// loadDotEnv loads a .env file from the working directory when present.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}
}

// loadConfig reads the configuration from the environment.
func loadConfig() Config {
	cfg := Config{
		Addr:        os.Getenv("API_ADDR"),
		StateDir:    util.GetEnv("STUDIO_STATE_DIR", DefaultStateDir),
		UploadsDir:  os.Getenv("UPLOADS_DIR"),
		SiteDir:     os.Getenv("SITE_DIR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_PHONE_NUMBER"),
		ArtistPhone:      os.Getenv("ARTIST_PHONE_NUMBER"),
		NotifyURL:        os.Getenv("NOTIFY_URL"),

		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:         os.Getenv("JWT_SECRET"),

		Timezone:       os.Getenv("STUDIO_TIMEZONE"),
		StudioPhone:    util.GetEnv("STUDIO_PHONE", flow.DefaultStudioPhone),
		ServiceName:    util.GetEnv("SERVICE_NAME", api.DefaultServiceName),
		CORSOrigins:    util.ParseListEnv("CORS_ORIGINS"),
		SessionTTL:     util.ParseDurationEnv("CHAT_SESSION_TTL", flow.DefaultSessionTTL),
		NotifyAttempts: util.ParseIntEnv("NOTIFY_MAX_ATTEMPTS", notify.DefaultMaxAttempts),
		NotifyTimeout:  util.ParseDurationEnv("NOTIFY_TIMEOUT", notify.DefaultAttemptTimeout),
		LogLevel:       util.GetEnv("LOG_LEVEL", "info"),
	}
	if cfg.Addr == "" {
		cfg.Addr = ":" + util.GetEnv("PORT", DefaultPort)
	}

	slog.Debug("environment variables loaded",
		"API_ADDR", cfg.Addr,
		"STUDIO_STATE_DIR", cfg.StateDir,
		"UPLOADS_DIR", cfg.UploadsDir,
		"SITE_DIR", cfg.SiteDir,
		"DATABASE_URL_SET", cfg.DatabaseURL != "",
		"TWILIO_ACCOUNT_SID_SET", cfg.TwilioAccountSID != "",
		"TWILIO_AUTH_TOKEN_SET", cfg.TwilioAuthToken != "",
		"ARTIST_PHONE_NUMBER_SET", cfg.ArtistPhone != "",
		"ADMIN_PASSWORD_HASH_SET", cfg.AdminPasswordHash != "",
		"JWT_SECRET_SET", cfg.JWTSecret != "",
		"STUDIO_TIMEZONE", cfg.Timezone,
		"CORS_ORIGINS", strings.Join(cfg.CORSOrigins, ","),
		"CHAT_SESSION_TTL", cfg.SessionTTL,
		"NOTIFY_MAX_ATTEMPTS", cfg.NotifyAttempts,
		"NOTIFY_TIMEOUT", cfg.NotifyTimeout)
	return cfg
}

// uploadsDir resolves where portfolio images live: UPLOADS_DIR, else the
// site's assets/uploads, else a directory in the state dir.
func (c Config) uploadsDir() string {
	switch {
	case c.UploadsDir != "":
		return c.UploadsDir
	case c.SiteDir != "":
		return filepath.Join(c.SiteDir, "assets", "uploads")
	default:
		return filepath.Join(c.StateDir, "uploads")
	}
}

// location loads the studio time zone, defaulting to the host's.
func (c Config) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STUDIO_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// initializeLogger installs a text logger at the given level.
func initializeLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}
