// Package store provides storage backends for notification receipts.
//
// It includes an in-memory store and persistent SQLite and PostgreSQL stores.
package store

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/jaystattoos/studio/internal/models"
)

// Store records the outcome of every appointment notification.
type Store interface {
	AddReceipt(r models.Receipt) error
	// GetReceipts returns receipts newest first.
	GetReceipts() ([]models.Receipt, error)
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL URLs or key/value strings and
// "sqlite" for everything else, which is treated as a file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

// Open picks a backend for dsn. An empty DSN yields an in-memory store.
func Open(dsn string) (Store, error) {
	if dsn == "" {
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(dsn) == "postgres" {
		return NewPostgresStore(WithPostgresDSN(dsn))
	}
	return NewSQLiteStore(WithSQLiteDSN(dsn))
}

// InMemoryStore keeps receipts in memory; they are lost on restart.
type InMemoryStore struct {
	mu       sync.RWMutex
	receipts []models.Receipt
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.RLock()
	out := make([]models.Receipt, len(s.receipts))
	copy(out, s.receipts)
	s.mu.RUnlock()

	// Stable keeps insertion order reversed for receipts sharing a timestamp.
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b models.Receipt) int {
		return cmp.Compare(b.Time, a.Time)
	})
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
