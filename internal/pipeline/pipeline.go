// Package pipeline assembles the tracking and reporting components around the
// configured event store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"shopsignals/internal/analytics"
	"shopsignals/internal/config"
	"shopsignals/internal/events"
	"shopsignals/internal/pkg/geoip"
	"shopsignals/internal/storage"
	"shopsignals/internal/storage/clickhouse"
	"shopsignals/internal/storage/postgres"
	"shopsignals/internal/timeframe"
	"shopsignals/internal/tracker"
)

const connectTimeout = 15 * time.Second

// Pipeline holds the long-lived components shared by handlers and jobs.
type Pipeline struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      events.Store
	Sink       tracker.Sink // where the dispatcher delivers; Store unless forwarding
	Dispatcher *tracker.Dispatcher
	Tracker    *tracker.Tracker
	Fetcher    *analytics.Fetcher
	Reporter   *analytics.Reporter
	Locator    *geoip.Locator
	Parser     *timeframe.TimeFrameParser

	backend storage.Backend
}

// New opens the configured store and builds the pipeline on it.
func New(cfg *config.Config, dbManager cartridge.DBManager, logger *slog.Logger) (*Pipeline, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store, backend, err := OpenStore(ctx, cfg, dbManager, logger)
	if err != nil {
		return nil, err
	}
	p := NewWithStore(cfg, store, geoip.Open(cfg.GeoDBPath, logger), logger)
	p.backend = backend
	return p, nil
}

// NewWithStore builds the pipeline on an already opened store.
func NewWithStore(cfg *config.Config, store events.Store, locator *geoip.Locator, logger *slog.Logger) *Pipeline {
	sink := deliverySink(cfg, store, logger)
	dispatcher := tracker.NewDispatcher(sink, logger, tracker.DispatcherConfig{
		QueueSize:          cfg.TrackerQueueSize,
		Workers:            cfg.TrackerWorkers,
		InsertTimeout:      cfg.GetInsertTimeout(),
		DeadLetterCapacity: cfg.DeadLetterCapacity,
	})
	fetcher := analytics.NewFetcher(store, logger, cfg.QueryMaxRows)

	return &Pipeline{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Sink:       sink,
		Dispatcher: dispatcher,
		Tracker:    tracker.New(dispatcher, logger),
		Fetcher:    fetcher,
		Reporter:   analytics.NewReporter(fetcher, logger, cfg.GetReportCacheTTL()),
		Locator:    locator,
		Parser:     timeframe.NewTimeFrameParser(),
	}
}

// deliverySink returns the remote collector when forwarding is configured,
// otherwise the store itself. Queries always read the store.
func deliverySink(cfg *config.Config, store events.Store, logger *slog.Logger) tracker.Sink {
	if !cfg.Forwarding() {
		return store
	}
	logger.Info("Forwarding tracked events", slog.String("endpoint", cfg.ForwardEndpoint))
	return tracker.NewHTTPSink(cfg.ForwardEndpoint, cfg.ForwardAPIKey, cfg.GetInsertTimeout())
}

// OpenStore returns the store selected by cfg.StoreBackend. External
// backends are migrated on open and returned as the Backend too, so the
// caller can close them; the sqlite store shares the application database.
func OpenStore(ctx context.Context, cfg *config.Config, dbManager cartridge.DBManager, logger *slog.Logger) (events.Store, storage.Backend, error) {
	var backend storage.Backend
	switch cfg.StoreBackend {
	case config.SQLiteStore:
		return events.NewGormStore(dbManager, logger, cfg.QueryMaxRows), nil, nil
	case config.ClickHouseStore:
		s, err := clickhouse.Open(ctx, clickhouse.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
			MaxRows:  cfg.QueryMaxRows,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		backend = s
	case config.PostgresStore:
		s, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.QueryMaxRows, logger)
		if err != nil {
			return nil, nil, err
		}
		backend = s
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}

	if err := backend.Migrate(ctx); err != nil {
		backend.Close()
		return nil, nil, err
	}
	return backend, backend, nil
}

// Ping checks the external store, when there is one.
func (p *Pipeline) Ping(ctx context.Context) error {
	if p.backend == nil {
		return nil
	}
	return p.backend.Ping(ctx)
}

// Close releases the external store and the GeoIP database. The dispatcher
// must be stopped first.
func (p *Pipeline) Close() error {
	var errs []error
	if p.backend != nil {
		errs = append(errs, p.backend.Close())
	}
	errs = append(errs, p.Locator.Close())
	return errors.Join(errs...)
}
