// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists submitted questions in a local SQLite
// database so the home view and the status command can show recent
// activity across restarts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed      = errors.New("history store closed")
	ErrInvalidPath = errors.New("invalid history path")
)

// DefaultMaxEntries caps the table; older rows are pruned past it.
const DefaultMaxEntries = 1000

// Schema creates the query log table.
const Schema = `
CREATE TABLE IF NOT EXISTS queries (
    id                    TEXT PRIMARY KEY,
    username              TEXT NOT NULL DEFAULT '',
    question              TEXT NOT NULL,
    latency_ms            INTEGER NOT NULL DEFAULT 0,
    evidence_insufficient INTEGER NOT NULL DEFAULT 0,
    asked_at              INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queries_asked_at ON queries(asked_at DESC);
CREATE INDEX IF NOT EXISTS idx_queries_username ON queries(username);
`

// =============================================================================
// STORE
// =============================================================================

// Entry is one recorded question.
type Entry struct {
	ID                   string
	Username             string
	Question             string
	LatencyMs            int64
	EvidenceInsufficient bool
	AskedAt              time.Time
}

// Store is a SQLite-backed query log. Safe for concurrent use; the
// single-connection pool serializes writers the way SQLite expects.
type Store struct {
	db         *sql.DB
	user       func() string
	maxEntries int
}

// Option configures a Store.
type Option func(*Store)

// WithUser tags each recorded entry with the current username. The
// function is read at record time so sign-in changes take effect.
func WithUser(user func() string) Option {
	return func(s *Store) { s.user = user }
}

// WithMaxEntries overrides the prune threshold.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// Open opens (creating if needed) the query log at path.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{
		db:         db,
		user:       func() string { return "" },
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// RECORDING
// =============================================================================

// RecordQuery logs a submitted question and prunes old rows past the
// cap.
func (s *Store) RecordQuery(ctx context.Context, question string, latencyMs int64, evidenceInsufficient bool) error {
	if s.db == nil {
		return ErrClosed
	}

	insufficient := 0
	if evidenceInsufficient {
		insufficient = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queries (id, username, question, latency_ms, evidence_insufficient, asked_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), s.user(), question, latencyMs, insufficient, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}

	return s.prune(ctx)
}

// prune drops the oldest rows beyond maxEntries.
func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM queries WHERE id IN (
			SELECT id FROM queries ORDER BY asked_at DESC, rowid DESC LIMIT -1 OFFSET ?
		)`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

// =============================================================================
// READING
// =============================================================================

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, question, latency_ms, evidence_insufficient, asked_at
		FROM queries ORDER BY asked_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e            Entry
			insufficient int
			askedAt      int64
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Question, &e.LatencyMs, &insufficient, &askedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.EvidenceInsufficient = insufficient != 0
		e.AskedAt = time.UnixMilli(askedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded questions.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queries").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// Clear drops all recorded questions.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM queries"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
