package internal

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "shopsignals/api/v1"
	"shopsignals/internal/http"
	"shopsignals/internal/http/middleware"
	"shopsignals/internal/pipeline"
)

// publicCORSConfig returns the CORS configuration for the storefront-facing
// endpoints. Credentials are allowed so the session cookie travels with
// cross-origin tracking calls, which requires explicit origins.
func publicCORSConfig(allowedOrigins string) *cors.Config {
	origins := strings.TrimSpace(allowedOrigins)
	return &cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "POST,GET,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Referrer, User-Agent",
		AllowCredentials: origins != "" && origins != "*",
	}
}

// Routes returns the route mount function for p.
func Routes(p *pipeline.Pipeline) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		MountAppRoutes(srv, p)
	}
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server, p *pipeline.Pipeline) {
	cfg := p.Config
	logger := srv.GetLogger()
	api := v1.NewHandler(p)
	reports := http.NewReportsHandler(p)

	// Rate limiting only applies in production; in development and test it
	// would interfere with local tooling.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 120/min per IP: a browsing session emits a burst of events per page.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// ============================================
	// ROUTE CONFIGURATIONS
	// ============================================

	// Storefront tracking: browser-only, CORS runs first so 403s carry CORS headers.
	trackConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CORSConfig:       publicCORSConfig(cfg.AllowedOrigins),
		CustomMiddleware: []fiber.Handler{publicRateLimiter, v1.BrowserOnly()},
	}

	sdkConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CORSConfig:       publicCORSConfig("*"),
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
	}

	// Server-to-server API: ingestion from HTTPSink, queries, reports. These
	// clients never send Sec-Fetch-Site, so the server config must not check it.
	privateAPIConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{middleware.APIKeyAuth(cfg.PrivateKey, logger)},
	}

	noContent := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// === HEALTH ===
	srv.Get("/_health", http.HealthIndexAction(p))
	srv.Head("/_health", http.HealthIndexAction(p))

	// === STOREFRONT ROUTES ===
	srv.Post("/api/v1/track", api.Track, trackConfig)
	srv.Options("/api/v1/track", noContent, trackConfig)
	srv.Get("/api/v1/session", api.SessionInfo, sdkConfig)
	srv.Options("/api/v1/session", noContent, sdkConfig)
	srv.Get("/api/v1/sdk.js", api.SDK, sdkConfig)

	// === EVENT API ROUTES ===
	srv.Post("/api/v1/events", api.CreateEvent, privateAPIConfig)
	srv.Get("/api/v1/events", api.ListEvents, privateAPIConfig)
	srv.Get("/api/v1/events/counts", api.EventCounts, privateAPIConfig)
	srv.Get("/api/v1/sessions/count", api.SessionCount, privateAPIConfig)
	srv.Get("/api/v1/users/count", api.UserCount, privateAPIConfig)
	srv.Get("/api/v1/dead-letters", api.DeadLetters, privateAPIConfig)
	srv.Post("/api/v1/cache/purge", api.PurgeCache, privateAPIConfig)

	// === REPORT ROUTES ===
	srv.Get("/api/v1/reports/overview", reports.Overview, privateAPIConfig)
	srv.Get("/api/v1/reports/funnel", reports.Funnel, privateAPIConfig)
	srv.Get("/api/v1/reports/segments", reports.Segments, privateAPIConfig)
	srv.Get("/api/v1/reports/checkout-errors", reports.CheckoutErrors, privateAPIConfig)
	srv.Get("/api/v1/reports/form-abandonment", reports.FormAbandonment, privateAPIConfig)
	srv.Get("/api/v1/reports/cart", reports.Cart, privateAPIConfig)
	srv.Get("/api/v1/reports/referrers", reports.Referrers, privateAPIConfig)
	srv.Get("/api/v1/reports/countries", reports.Countries, privateAPIConfig)
	srv.Get("/api/v1/reports/trend", reports.Trend, privateAPIConfig)
}
