// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

// Package content provides read access to the platform content database,
// the authoritative record of assessment sessions. The usage counters are
// best-effort; this database is what they reconcile against.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/coursecompass/coursecompass/internal/logging"
)

// ErrUnavailable is returned when the circuit breaker has the database
// marked down.
var ErrUnavailable = errors.New("content: database unavailable")

const queryTimeout = 10 * time.Second

// Store is the content database handle. All reads go through a circuit
// breaker so a wedged database file or a slow disk cannot pile up admin
// requests; callers see ErrUnavailable quickly instead.
type Store struct {
	conn *sql.DB
	cb   *gobreaker.CircuitBreaker[int64]
}

// Options configures the content store.
type Options struct {
	// Path is the DuckDB database file. Empty opens an in-memory database,
	// used by tests.
	Path string
}

// Open opens the content database and verifies the schema exists.
func Open(opts Options) (*Store, error) {
	if dir := filepath.Dir(opts.Path); opts.Path != "" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create content database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("duckdb", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open content database: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "content-db",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Content database circuit breaker state change")
		},
	})

	s := &Store{conn: conn, cb: cb}
	if err := s.ensureSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the assessment session table when it does not exist
// yet, so a fresh deployment starts with a valid, empty database.
func (s *Store) ensureSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS assessment_sessions (
			id            VARCHAR PRIMARY KEY,
			identity_hash VARCHAR NOT NULL,
			started_at    TIMESTAMP NOT NULL,
			completed_at  TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure content schema: %w", err)
	}
	return nil
}

// CompletedAssessments counts assessment sessions that reached completion.
// This is the authoritative figure the usage counters reconcile against.
func (s *Store) CompletedAssessments(ctx context.Context) (int64, error) {
	count, err := s.cb.Execute(func() (int64, error) {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()

		var n int64
		row := s.conn.QueryRowContext(qctx,
			`SELECT COUNT(*) FROM assessment_sessions WHERE completed_at IS NOT NULL`)
		if err := row.Scan(&n); err != nil {
			return 0, fmt.Errorf("count completed assessments: %w", err)
		}
		return n, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, err
}

// Ping reports database reachability. Used by the health endpoint; it goes
// through the breaker so health reflects what callers would actually get.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.cb.Execute(func() (int64, error) {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		return 0, s.conn.PingContext(qctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.conn.Close()
}
