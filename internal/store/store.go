// Package store provides journal backends for gritd.
//
// The journal records one row of metadata per print attempt: category,
// trigger source, terminal status, character count, and timestamp. Slip text
// is never written to any backend. An in-memory store is the default;
// SQLite and PostgreSQL backends are selected by DSN.
package store

import (
	"strings"
	"sync"

	"github.com/spoolghost/gritd/internal/models"
)

// Store is the journal interface shared by all backends.
type Store interface {
	AddSlipRecord(rec models.SlipRecord) error
	GetSlipRecords() ([]models.SlipRecord, error)
	ClearSlipRecords() error
	Close() error
}

// Opts holds configuration options for journal backends.
type Opts struct {
	DSN string // connection string or database file path
}

// Option defines a configuration option for journal backends.
type Option func(*Opts)

// WithPostgresDSN sets the connection string for a PostgreSQL-backed journal.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithSQLiteDSN sets the database file path for an SQLite-backed journal.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite" based on its
// shape. URL-style and key=value connection strings mean Postgres; anything
// else is treated as an SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "user=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a simple in-memory journal. It is the default backend when
// no DSN is configured and disappears with the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.SlipRecord
}

// NewInMemoryStore creates a new in-memory journal.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// AddSlipRecord appends one attempt record.
func (s *InMemoryStore) AddSlipRecord(rec models.SlipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// GetSlipRecords returns all attempt records in insertion order.
func (s *InMemoryStore) GetSlipRecords() ([]models.SlipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SlipRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// ClearSlipRecords removes all attempt records (for tests).
func (s *InMemoryStore) ClearSlipRecords() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Close is a no-op for the in-memory journal.
func (s *InMemoryStore) Close() error {
	return nil
}
