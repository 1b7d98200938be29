// Package clickhouse stores events in a ClickHouse MergeTree table over the
// native protocol.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"shopsignals/internal/events"
	"shopsignals/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id       UUID,
	session_id     String,
	user_id        Nullable(String),
	user_email     Nullable(String),
	event_type     LowCardinality(String),
	event_category LowCardinality(String),
	page_path      Nullable(String),
	referrer       Nullable(String),
	utm_source     Nullable(String),
	utm_medium     Nullable(String),
	utm_campaign   Nullable(String),
	device_type    Nullable(String),
	browser        Nullable(String),
	country        Nullable(String),
	product_id     Nullable(String),
	product_name   Nullable(String),
	product_price  Nullable(Float64),
	metadata       Nullable(String),
	created_at     DateTime64(3, 'UTC')
) ENGINE = MergeTree
PARTITION BY toYYYYMM(created_at)
ORDER BY (created_at, session_id)`

type Config struct {
	Addr        string
	Database    string
	Username    string
	Password    string
	DialTimeout time.Duration
	MaxRows     int
}

// Store is an events.Store on ClickHouse. Event.ID is not populated on reads;
// rows are identified by a generated UUID instead.
type Store struct {
	conn    ch.Conn
	logger  *slog.Logger
	maxRows int
	now     func() time.Time
}

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	conn, err := ch.Open(&ch.Options{
		Addr: []string{cfg.Addr},
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: ch.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "shopsignals", Version: "1.0.0"}},
		},
		Compression: &ch.Compression{
			Method: ch.CompressionLZ4,
		},
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	s := &Store{conn: conn, logger: logger, maxRows: cfg.MaxRows, now: time.Now}
	if err := s.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("Connected to ClickHouse", slog.String("addr", cfg.Addr), slog.String("database", cfg.Database))
	return s, nil
}

// Migrate creates the events table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ClickHouse events table: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Insert writes one event.
func (s *Store) Insert(ctx context.Context, e *events.Event) error {
	return s.InsertBatch(ctx, []*events.Event{e})
}

// InsertBatch validates every event first and sends them as one batch, so
// either all rows are sent or none.
func (s *Store) InsertBatch(ctx context.Context, evs []*events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	now := s.now()
	for _, e := range evs {
		if err := storage.Prepare(e, now); err != nil {
			return err
		}
	}

	batch, err := s.conn.PrepareBatch(ctx,
		"INSERT INTO events (event_id, "+strings.Join(storage.Columns, ", ")+")")
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	for _, e := range evs {
		values := append([]any{uuid.New()}, storage.Values(e)...)
		if err := batch.Append(values...); err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append event to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		s.logger.Error("Failed to store events",
			slog.Int("count", len(evs)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Query returns events matching f, newest first, capped at the store limit.
func (s *Store) Query(ctx context.Context, f events.Filter) ([]events.Event, error) {
	where, args := storage.Where(f, storage.QuestionMark)
	query := fmt.Sprintf("SELECT %s FROM events %s ORDER BY created_at DESC LIMIT %d",
		strings.Join(storage.Columns, ", "), where, f.EffectiveLimit(s.maxRows))

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var row storage.Row
		if err := rows.Scan(row.Targets()...); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, row.Event())
	}
	return out, rows.Err()
}
