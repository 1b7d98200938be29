package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopsignals/internal"
	"shopsignals/internal/config"
	"shopsignals/internal/events"
	"shopsignals/internal/pipeline"
)

// APIKey is the private key test configs use; send it as a bearer token.
const APIKey = "test-private-key-0123456789abcdef"

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&events.Event{},
	}
}

// TestConfig loads the configuration in the test environment. The singleton
// is reset when the test ends.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)
	t.Setenv("SHOPSIGNALS_ENV", config.Test)
	t.Setenv("SHOPSIGNALS_PRIVATE_KEY", APIKey)
	t.Setenv("SHOPSIGNALS_STORE_BACKEND", config.SQLiteStore)
	t.Setenv("SHOPSIGNALS_REPORT_CACHE_SECONDS", "0")

	cfg := config.GetConfig()
	require.True(t, cfg.IsTest(), "tests must run in the test environment")
	return cfg
}

// SetupTestDB creates a test database with all models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Subtests share their root test's database
	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", rootName, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	t.Helper()
	return NewTestDBManager(SetupTestDB(t)), GetLogger()
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)
	CleanTables(db, tableNames)
}

// CleanTables deletes every row of the given tables and resets their sequences.
func CleanTables(db *gorm.DB, tables []string) {
	if len(tables) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// NewTestPipeline builds a pipeline on the sqlite store of dbManager with a
// running dispatcher. The dispatcher is stopped when the test ends.
func NewTestPipeline(t *testing.T, cfg *config.Config, dbManager cartridge.DBManager) *pipeline.Pipeline {
	t.Helper()
	logger := GetLogger()
	store := events.NewGormStore(dbManager, logger, cfg.QueryMaxRows)
	p := pipeline.NewWithStore(cfg, store, nil, logger)
	require.NoError(t, p.Dispatcher.Start())
	t.Cleanup(p.Dispatcher.Stop)
	return p
}

// CreateMinimalTestApp creates a test Fiber app with all routes mounted on a
// pipeline backed by db.
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) (*fiber.App, *pipeline.Pipeline) {
	t.Helper()

	appConfig := TestConfig(t)
	dbManager := NewTestDBManager(db)
	p := NewTestPipeline(t, appConfig, dbManager)

	cfg := internal.ServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv, p)
	return srv.App(), p
}

// WaitForEvents polls the store until it holds want events or the timeout
// passes, and returns what it last saw.
func WaitForEvents(t *testing.T, db *gorm.DB, want int64, timeout time.Duration) int64 {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var count int64
	for {
		require.NoError(t, db.Model(&events.Event{}).Count(&count).Error)
		if count >= want || time.Now().After(deadline) {
			return count
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// EventOption customizes an event built by NewEvent.
type EventOption func(*events.Event)

// NewEvent builds a valid event of type typ for session at the given time.
func NewEvent(session string, typ events.EventType, at time.Time, opts ...EventOption) events.Event {
	category, _ := typ.Category()
	ev := events.Event{
		SessionID:     session,
		EventType:     typ,
		EventCategory: category,
		CreatedAt:     at.UTC(),
	}
	for _, opt := range opts {
		opt(&ev)
	}
	return ev
}

func WithDevice(device string) EventOption {
	return func(e *events.Event) { e.DeviceType = events.StringPtr(device) }
}

func WithReferrer(referrer string) EventOption {
	return func(e *events.Event) { e.Referrer = events.StringPtr(referrer) }
}

func WithUser(id string) EventOption {
	return func(e *events.Event) { e.UserID = events.StringPtr(id) }
}

func WithPayload(p events.Payload) EventOption {
	return func(e *events.Event) {
		raw, err := events.EncodePayload(p)
		if err == nil {
			e.Metadata = raw
		}
	}
}

// InsertEvents writes evs directly to the database, bypassing validation.
func InsertEvents(t *testing.T, db *gorm.DB, evs ...events.Event) {
	t.Helper()
	for i := range evs {
		require.NoError(t, db.Create(&evs[i]).Error)
	}
}
