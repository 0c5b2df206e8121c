// Package store handles all database and queue interactions.
//
// postgres.go -- pgxpool connection setup and queries.
// Creates a connection pool at startup, shared across all handlers.
// All queries use parameterized statements (no string concatenation).
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connectTries bounds startup dial attempts for Postgres and Redis.
const connectTries = 5

// PostgresStore wraps a pgx pool holding the install audit trail.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and returns a ready-to-use store.
// Pings with exponential backoff so a database still starting up does not kill the process.
// Call once at startup from main.go...returned store is safe for concurrent use.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	if err := retryConnect(ctx, "postgres", pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool}, nil
}

// Close shuts down the pool. Should be called via defer in main.go.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CheckHealth pings the database.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RecordEvent inserts one install event. Missing ID and CreatedAt are filled in.
func (s *PostgresStore) RecordEvent(ctx context.Context, ev InstallEvent) error {
	if ev.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating event id: %w", err)
		}
		ev.ID = id
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO install_events (id, handle, action, i18n_code, scope, expire_time, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.Handle, ev.Action, ev.I18nCode, ev.Scope, ev.ExpireTime, ev.IPAddress, ev.UserAgent, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting install event: %w", err)
	}
	return nil
}

// ListEvents returns up to limit events for handle, newest first.
func (s *PostgresStore) ListEvents(ctx context.Context, handle string, limit int) ([]InstallEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, handle, action, i18n_code, scope, expire_time, ip_address, user_agent, created_at
		FROM install_events
		WHERE handle = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, handle, limit)
	if err != nil {
		return nil, fmt.Errorf("querying install events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (InstallEvent, error) {
		var ev InstallEvent
		err := row.Scan(&ev.ID, &ev.Handle, &ev.Action, &ev.I18nCode, &ev.Scope, &ev.ExpireTime, &ev.IPAddress, &ev.UserAgent, &ev.CreatedAt)
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning install events: %w", err)
	}
	return events, nil
}

// DeleteEvents removes every event for handle and returns how many were deleted.
func (s *PostgresStore) DeleteEvents(ctx context.Context, handle string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM install_events WHERE handle = $1`, handle)
	if err != nil {
		return 0, fmt.Errorf("deleting install events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// retryConnect runs ping with exponential backoff, giving up after connectTries attempts.
func retryConnect(ctx context.Context, name string, ping func(context.Context) error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, ping(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(connectTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			slog.Warn("connect failed, retrying", "backend", name, "error", err, "retry_in", d)
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", name, err)
	}
	return nil
}
