// Package store provides journal backends for gritd.
//
// This file implements the PostgreSQL-backed journal.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/spoolghost/gritd/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is the PostgreSQL-backed journal.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres journal based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("store.NewPostgresStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("store.NewPostgresStore: failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("store.NewPostgresStore: Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure the slip_records table exists
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("store.NewPostgresStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("store.NewPostgresStore: migrations applied")

	return &PostgresStore{db: db}, nil
}

// AddSlipRecord inserts one attempt record.
func (s *PostgresStore) AddSlipRecord(rec models.SlipRecord) error {
	_, err := s.db.Exec(`INSERT INTO slip_records (category, source, status, chars, time) VALUES ($1, $2, $3, $4, $5)`,
		rec.Category, rec.Source, rec.Status, rec.Chars, rec.Time)
	if err != nil {
		slog.Error("PostgresStore.AddSlipRecord failed", "error", err, "category", rec.Category, "status", rec.Status)
		return fmt.Errorf("failed to insert slip record for %s: %w", rec.Category, err)
	}
	slog.Debug("PostgresStore.AddSlipRecord succeeded", "category", rec.Category, "status", rec.Status)
	return nil
}

// GetSlipRecords returns all attempt records in insertion order.
func (s *PostgresStore) GetSlipRecords() ([]models.SlipRecord, error) {
	rows, err := s.db.Query(`SELECT category, source, status, chars, time FROM slip_records ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore.GetSlipRecords query failed", "error", err)
		return nil, fmt.Errorf("failed to query slip records: %w", err)
	}
	defer rows.Close()

	var records []models.SlipRecord
	for rows.Next() {
		var rec models.SlipRecord
		if err := rows.Scan(&rec.Category, &rec.Source, &rec.Status, &rec.Chars, &rec.Time); err != nil {
			slog.Error("PostgresStore.GetSlipRecords scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan slip record row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore.GetSlipRecords rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate slip record rows: %w", err)
	}
	slog.Debug("PostgresStore.GetSlipRecords succeeded", "count", len(records))
	return records, nil
}

// ClearSlipRecords deletes all records in the slip_records table (for tests).
func (s *PostgresStore) ClearSlipRecords() error {
	_, err := s.db.Exec("DELETE FROM slip_records")
	if err != nil {
		slog.Error("PostgresStore.ClearSlipRecords failed", "error", err)
		return err
	}
	slog.Debug("PostgresStore.ClearSlipRecords succeeded")
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore.Close: closing database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("PostgresStore.Close: failed to close database", "error", err)
	}
	return err
}
