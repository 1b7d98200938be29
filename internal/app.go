// Package internal contains core application functionality
package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/karloscodes/cartridge"

	"shopsignals/internal/config"
	"shopsignals/internal/database"
	"shopsignals/internal/jobs"
	"shopsignals/internal/pipeline"
)

// Application wraps cartridge.Application with the tracking pipeline.
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Pipeline  *pipeline.Pipeline
	Jobs      *jobs.Scheduler
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	return NewAppWithRoutes(cfg, nil)
}

// NewAppWithRoutes creates a new application with a custom route mounting
// function. A nil routeMount mounts the default routes.
func NewAppWithRoutes(cfg *config.Config, routeMount func(*cartridge.Server, *pipeline.Pipeline)) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	p, err := pipeline.New(cfg, dbManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event store: %w", err)
	}

	scheduler := jobs.NewJobs(dbManager, p, logger)

	if routeMount == nil {
		routeMount = MountAppRoutes
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:       cfg,
		Logger:       logger,
		DBManager:    dbManager,
		ServerConfig: ServerConfig(),
		RouteMountFunc: func(srv *cartridge.Server) {
			routeMount(srv, p)
		},
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler, p.Dispatcher},
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Pipeline:    p,
		Jobs:        scheduler,
	}, nil
}

// ServerConfig returns cartridge's default server setup without the global
// Sec-Fetch-Site check. That check runs before any route middleware, so a
// per-route opt-out cannot reach it; the storefront track route applies its
// own check through v1.BrowserOnly.
func ServerConfig() *cartridge.ServerConfig {
	cfg := cartridge.DefaultServerConfig()
	cfg.EnableSecFetchSite = false
	return cfg
}

// Shutdown stops the server and background workers, then releases the event
// store and the GeoIP database.
func (a *Application) Shutdown(ctx context.Context) error {
	return errors.Join(a.Application.Shutdown(ctx), a.Pipeline.Close())
}
