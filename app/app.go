// Package app provides the public API for embedding shopsignals in another
// binary. It re-exports the application and its pipeline so callers can mount
// extra routes next to the default ones.
package app

import (
	"github.com/karloscodes/cartridge"

	"shopsignals/internal"
	"shopsignals/internal/config"
	"shopsignals/internal/database"
	"shopsignals/internal/pipeline"
	"shopsignals/internal/tracker"
)

// Re-export core types
type (
	Application = internal.Application
	Config      = config.Config
	DBManager   = database.DBManager
	Pipeline    = pipeline.Pipeline
)

// Re-export tracking types for server-side emitters
type (
	Input       = tracker.Input
	Product     = tracker.Product
	Cart        = tracker.Cart
	Outcome     = tracker.Outcome
	Environment = tracker.Environment
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	return config.GetConfig()
}

// NewApp creates a new application with default routes
func NewApp() (*Application, error) {
	return internal.NewApp()
}

// NewAppWithRoutes creates a new application with custom route mounting.
// Call MountAppRoutes from routeMount to keep the default routes.
func NewAppWithRoutes(cfg *Config, routeMount func(*cartridge.Server, *Pipeline)) (*Application, error) {
	return internal.NewAppWithRoutes(cfg, routeMount)
}

// MountAppRoutes mounts the ingestion, query and report routes.
func MountAppRoutes(srv *cartridge.Server, p *Pipeline) {
	internal.MountAppRoutes(srv, p)
}
