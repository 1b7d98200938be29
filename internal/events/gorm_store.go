package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// GormStore keeps events in the application's SQLite database.
type GormStore struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	maxRows   int
	now       func() time.Time
}

// NewGormStore creates a store on top of the cartridge database manager.
func NewGormStore(dbManager cartridge.DBManager, logger *slog.Logger, maxRows int) *GormStore {
	return &GormStore{
		dbManager: dbManager,
		logger:    logger,
		maxRows:   maxRows,
		now:       time.Now,
	}
}

// Insert writes a single event. CreatedAt is assigned when the caller left it empty.
func (s *GormStore) Insert(ctx context.Context, e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if err := e.Validate(s.now()); err != nil {
		return err
	}

	db := s.dbManager.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	err := sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Create(e).Error
	})
	if err != nil {
		s.logger.Error("Failed to store event",
			slog.String("session_id", e.SessionID),
			slog.String("event_type", string(e.EventType)),
			slog.Any("error", err))
		return fmt.Errorf("failed to store event: %w", err)
	}
	return nil
}

// Query returns events matching f, newest first, capped at the store limit.
func (s *GormStore) Query(ctx context.Context, f Filter) ([]Event, error) {
	db := s.dbManager.GetConnection()
	if db == nil {
		return nil, gorm.ErrInvalidDB
	}

	query := db.WithContext(ctx).Model(&Event{})
	if f.From != nil {
		query = query.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", f.To.UTC())
	}
	if f.EventType != nil {
		query = query.Where("event_type = ?", string(*f.EventType))
	}
	if f.DeviceType != nil {
		query = query.Where("device_type = ?", *f.DeviceType)
	}

	var out []Event
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(f.EffectiveLimit(s.maxRows)).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return out, nil
}
