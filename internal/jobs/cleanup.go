package jobs

import (
	"context"
	"log/slog"
	"time"
)

// MaintenanceInterval is how often the SQLite database is checkpointed.
const MaintenanceInterval = 6 * time.Hour

// WALCheckpointer is the part of the database manager the maintenance job needs.
type WALCheckpointer interface {
	CheckpointWAL(mode string) error
}

// MaintenanceJob truncates the SQLite write-ahead log, which grows with every
// tracked event when the sqlite store is in use.
type MaintenanceJob struct {
	db     WALCheckpointer
	logger *slog.Logger
}

func NewMaintenanceJob(db WALCheckpointer, logger *slog.Logger) *MaintenanceJob {
	return &MaintenanceJob{db: db, logger: logger}
}

func (j *MaintenanceJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := j.db.CheckpointWAL("TRUNCATE"); err != nil {
		j.logger.Warn("Failed to checkpoint WAL", slog.Any("error", err))
		return err
	}
	j.logger.Debug("WAL checkpoint completed")
	return nil
}
