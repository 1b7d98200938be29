package jobs

import (
	"log/slog"
	"time"

	"shopsignals/internal/pipeline"
)

// Job names.
const (
	JobMaintenance      = "wal_maintenance"
	JobDeadLetterReport = "dead_letter_report"
	JobGeoLiteReload    = "geolite_reload"
)

// NewJobs creates the scheduler for the application's background jobs.
func NewJobs(db WALCheckpointer, p *pipeline.Pipeline, logger *slog.Logger) *Scheduler {
	interval := time.Duration(p.Config.JobIntervalSeconds) * time.Second

	jobs := []Job{
		{Name: JobMaintenance, Interval: MaintenanceInterval, Run: NewMaintenanceJob(db, logger).Run},
		{Name: JobDeadLetterReport, Interval: interval, Run: NewDeadLetterReportJob(p.Dispatcher, logger).Run},
	}
	if p.Config.GeoDBPath != "" {
		jobs = append(jobs, Job{Name: JobGeoLiteReload, Interval: GeoLiteCheckInterval, Run: NewGeoLiteReloadJob(p.Locator, logger).Run})
	}
	return NewScheduler(logger, jobs...)
}
