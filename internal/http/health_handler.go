package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"shopsignals/internal/pipeline"
	"shopsignals/internal/tracker"
)

const storePingTimeout = 2 * time.Second

// HealthStatus represents the health check response
type HealthStatus struct {
	Status      string        `json:"status"`
	Timestamp   time.Time     `json:"timestamp"`
	DBStatus    string        `json:"db_status"`
	StoreStatus string        `json:"store_status"`
	Store       string        `json:"store"`
	GeoIP       bool          `json:"geoip"`
	Tracker     tracker.Stats `json:"tracker"`
}

// HealthIndexAction returns the health check endpoint for p.
func HealthIndexAction(p *pipeline.Pipeline) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		dbStatus := "ok"

		// Check database connectivity
		db := ctx.DBManager.GetConnection()
		if db == nil {
			dbStatus = "error"
			ctx.Logger.Error("Database connection unavailable")
		} else {
			sqlDB, err := db.DB()
			if err != nil {
				dbStatus = "error"
				ctx.Logger.Error("Database connection error", slog.Any("error", err))
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error"
				ctx.Logger.Error("Database ping failed", slog.Any("error", err))
			}
		}

		storeStatus := "ok"
		pingCtx, cancel := context.WithTimeout(ctx.UserContext(), storePingTimeout)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			storeStatus = "error"
			ctx.Logger.Error("Event store ping failed", slog.Any("error", err))
		}

		health := HealthStatus{
			Status:      "ok",
			Timestamp:   time.Now(),
			DBStatus:    dbStatus,
			StoreStatus: storeStatus,
			Store:       p.Config.StoreBackend,
			GeoIP:       p.Locator.Enabled(),
			Tracker:     p.Dispatcher.Stats(),
		}

		if dbStatus != "ok" || storeStatus != "ok" {
			health.Status = "degraded"
		}

		return ctx.JSON(health)
	}
}
