// Package store provides journal backends for gritd.
//
// This file implements the SQLite-backed journal.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spoolghost/gritd/internal/models"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is the SQLite-backed journal.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite journal with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("store.NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("store.NewSQLiteStore: DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("store.NewSQLiteStore: failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("store.NewSQLiteStore: failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("store.NewSQLiteStore: SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("store.NewSQLiteStore: failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("store.NewSQLiteStore: migrations applied", "path", dsn)

	return &SQLiteStore{db: db}, nil
}

// AddSlipRecord inserts one attempt record.
func (s *SQLiteStore) AddSlipRecord(rec models.SlipRecord) error {
	_, err := s.db.Exec(`INSERT INTO slip_records (category, source, status, chars, time) VALUES (?, ?, ?, ?, ?)`,
		rec.Category, rec.Source, rec.Status, rec.Chars, rec.Time)
	if err != nil {
		slog.Error("SQLiteStore.AddSlipRecord failed", "error", err, "category", rec.Category, "status", rec.Status)
		return fmt.Errorf("failed to insert slip record for %s: %w", rec.Category, err)
	}
	slog.Debug("SQLiteStore.AddSlipRecord succeeded", "category", rec.Category, "status", rec.Status)
	return nil
}

// GetSlipRecords returns all attempt records in insertion order.
func (s *SQLiteStore) GetSlipRecords() ([]models.SlipRecord, error) {
	rows, err := s.db.Query(`SELECT category, source, status, chars, time FROM slip_records ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore.GetSlipRecords query failed", "error", err)
		return nil, fmt.Errorf("failed to query slip records: %w", err)
	}
	defer rows.Close()

	var records []models.SlipRecord
	for rows.Next() {
		var rec models.SlipRecord
		if err := rows.Scan(&rec.Category, &rec.Source, &rec.Status, &rec.Chars, &rec.Time); err != nil {
			slog.Error("SQLiteStore.GetSlipRecords scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan slip record row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore.GetSlipRecords rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate slip record rows: %w", err)
	}
	slog.Debug("SQLiteStore.GetSlipRecords succeeded", "count", len(records))
	return records, nil
}

// ClearSlipRecords deletes all records in the slip_records table (for tests).
func (s *SQLiteStore) ClearSlipRecords() error {
	_, err := s.db.Exec("DELETE FROM slip_records")
	if err != nil {
		slog.Error("SQLiteStore.ClearSlipRecords failed", "error", err)
		return err
	}
	slog.Debug("SQLiteStore.ClearSlipRecords succeeded")
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore.Close: closing database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("SQLiteStore.Close: failed to close database", "error", err)
	}
	return err
}
