package jobs

import (
	"context"
	"log/slog"
	"time"
)

// GeoLiteCheckInterval is how often the GeoLite2 file is checked for changes.
const GeoLiteCheckInterval = 10 * time.Minute

// GeoReloader is a GeoIP database that can be swapped at runtime.
type GeoReloader interface {
	Stale() bool
	Reload() error
}

// GeoLiteReloadJob reloads the country database after it is replaced on
// disk, e.g. by geoipupdate, without restarting the server.
type GeoLiteReloadJob struct {
	locator GeoReloader
	logger  *slog.Logger
}

func NewGeoLiteReloadJob(locator GeoReloader, logger *slog.Logger) *GeoLiteReloadJob {
	return &GeoLiteReloadJob{locator: locator, logger: logger}
}

func (j *GeoLiteReloadJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !j.locator.Stale() {
		return nil
	}
	j.logger.Info("GeoLite2 database changed on disk, reloading")
	return j.locator.Reload()
}
