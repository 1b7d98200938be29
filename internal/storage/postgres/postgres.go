// Package postgres stores events in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shopsignals/internal/events"
	"shopsignals/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id             BIGSERIAL PRIMARY KEY,
	session_id     VARCHAR(64) NOT NULL,
	user_id        VARCHAR(255),
	user_email     VARCHAR(255),
	event_type     VARCHAR(32) NOT NULL,
	event_category VARCHAR(16) NOT NULL,
	page_path      TEXT,
	referrer       VARCHAR(255),
	utm_source     VARCHAR(255),
	utm_medium     VARCHAR(255),
	utm_campaign   VARCHAR(255),
	device_type    VARCHAR(16),
	browser        VARCHAR(32),
	country        VARCHAR(8),
	product_id     VARCHAR(255),
	product_name   VARCHAR(255),
	product_price  DOUBLE PRECISION,
	metadata       JSONB,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_type_created ON events (event_type, created_at);
CREATE INDEX IF NOT EXISTS idx_events_session_id ON events (session_id);`

// Store is an events.Store on PostgreSQL.
type Store struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	maxRows int
	now     func() time.Time
}

// Connect opens a pool for dsn and checks it is reachable.
func Connect(ctx context.Context, dsn string, maxRows int, logger *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	s := &Store{pool: pool, logger: logger, maxRows: maxRows, now: time.Now}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("Connected to PostgreSQL", slog.String("host", cfg.ConnConfig.Host), slog.String("database", cfg.ConnConfig.Database))
	return s, nil
}

// Migrate creates the events table and its indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, "select 1").Scan(&one); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Insert writes one event and sets its ID.
func (s *Store) Insert(ctx context.Context, e *events.Event) error {
	if err := storage.Prepare(e, s.now()); err != nil {
		return err
	}

	var id int64
	err := s.pool.QueryRow(ctx, insertSQL(), storage.Values(e)...).Scan(&id)
	if err != nil {
		s.logger.Error("Failed to store event",
			slog.String("session_id", e.SessionID),
			slog.String("event_type", string(e.EventType)),
			slog.Any("error", err))
		return fmt.Errorf("failed to store event: %w", err)
	}
	e.ID = uint(id)
	return nil
}

// Query returns events matching f, newest first, capped at the store limit.
func (s *Store) Query(ctx context.Context, f events.Filter) ([]events.Event, error) {
	where, args := storage.Where(f, storage.Dollar)
	query := fmt.Sprintf("SELECT id, %s FROM events %s ORDER BY created_at DESC, id DESC LIMIT %d",
		selectColumns(), where, f.EffectiveLimit(s.maxRows))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var id int64
		var row storage.Row
		if err := rows.Scan(append([]any{&id}, row.Targets()...)...); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e := row.Event()
		e.ID = uint(id)
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertSQL() string {
	placeholders := make([]string, len(storage.Columns))
	for i, col := range storage.Columns {
		placeholders[i] = storage.Dollar(i + 1)
		if col == "metadata" {
			placeholders[i] += "::jsonb"
		}
	}
	return "INSERT INTO events (" + strings.Join(storage.Columns, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") RETURNING id"
}

// selectColumns reads metadata back as text so it keeps its original bytes
// shape for the payload decoder.
func selectColumns() string {
	cols := make([]string, len(storage.Columns))
	for i, col := range storage.Columns {
		cols[i] = col
		if col == "metadata" {
			cols[i] = "metadata::text"
		}
	}
	return strings.Join(cols, ", ")
}
