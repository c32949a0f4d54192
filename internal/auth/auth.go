// Package auth implements the studio admin session: a single configured
// administrator logs in with a bcrypt-checked password and receives a signed
// token that authorizes the portfolio and notification admin endpoints.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultUsername is used when no admin username is configured.
	DefaultUsername = "admin"
	// DefaultPassword is hashed at startup when no password hash is configured.
	DefaultPassword = "admin123"
	// DefaultSecret signs tokens when no secret is configured.
	DefaultSecret = "change-this-secret-in-production"
	// DefaultTokenTTL is how long an issued token stays valid.
	DefaultTokenTTL = 24 * time.Hour
	// RoleAdmin is the only role the studio issues.
	RoleAdmin = "admin"
)

var (
	// ErrMissingCredentials is returned when the username or password is empty.
	ErrMissingCredentials = errors.New("username and password required")
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("access token required")
	// ErrInvalidToken is returned for a token with a bad signature or past its expiry.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are carried inside every admin token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Token is the result of a successful login.
type Token struct {
	Token     string `json:"token"`
	ExpiresIn string `json:"expiresIn"`
}

// Opts holds configuration options for the admin session service.
type Opts struct {
	Username     string
	PasswordHash string
	Secret       string
	TokenTTL     time.Duration
	Now          func() time.Time
}

// Option defines a configuration option for the admin session service.
type Option func(*Opts)

// WithUsername sets the admin username.
func WithUsername(username string) Option {
	return func(o *Opts) { o.Username = username }
}

// WithPasswordHash sets the bcrypt hash of the admin password.
func WithPasswordHash(hash string) Option {
	return func(o *Opts) { o.PasswordHash = hash }
}

// WithSecret sets the HMAC signing secret.
func WithSecret(secret string) Option {
	return func(o *Opts) { o.Secret = secret }
}

// WithTokenTTL sets token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TokenTTL = ttl }
}

// WithClock overrides the clock used for issuing and checking tokens.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// Service checks admin credentials and issues and verifies tokens.
type Service struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewService creates a Service. Missing settings fall back to insecure
// defaults with a warning.
func NewService(opts ...Option) (*Service, error) {
	cfg := Opts{TokenTTL: DefaultTokenTTL, Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Username == "" {
		slog.Warn("auth: ADMIN_USERNAME not set, using default username", "username", DefaultUsername)
		cfg.Username = DefaultUsername
	}
	if cfg.PasswordHash == "" {
		slog.Warn("auth: ADMIN_PASSWORD_HASH not set, using the default password; set a hash before going live")
		hash, err := HashPassword(DefaultPassword)
		if err != nil {
			return nil, err
		}
		cfg.PasswordHash = hash
	}
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}
	if cfg.Secret == "" {
		slog.Warn("auth: JWT_SECRET not set, using a placeholder secret; tokens are forgeable")
		cfg.Secret = DefaultSecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		username:     cfg.Username,
		passwordHash: []byte(cfg.PasswordHash),
		secret:       []byte(cfg.Secret),
		ttl:          cfg.TokenTTL,
		now:          cfg.Now,
	}, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(username, password string) (Token, error) {
	if username == "" || password == "" {
		return Token{}, ErrMissingCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// The hash is always checked so unknown users take as long as wrong passwords.
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		slog.Info("Service.Login: rejected", "username", username)
		return Token{}, ErrInvalidCredentials
	}

	now := s.now()
	claims := Claims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign token: %w", err)
	}
	slog.Info("Service.Login: admin logged in", "username", username)
	return Token{Token: signed, ExpiresIn: formatTTL(s.ttl)}, nil
}

// Verify checks a token's signature and expiry and returns its claims.
func (s *Service) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>" header.
func ExtractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

type claimsKey struct{}

// ContextWithClaims returns a copy of ctx carrying the admin claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by ContextWithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

func formatTTL(ttl time.Duration) string {
	if ttl%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(ttl/time.Hour))
	}
	return ttl.String()
}
