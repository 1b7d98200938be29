// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Event store backends
const (
	SQLiteStore     = "sqlite"
	ClickHouseStore = "clickhouse"
	PostgresStore   = "postgres"
)

const defaultPrivateKey = "88888888888888888888888888888888"

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	PrivateKey  string   `mapstructure:"privatekey"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	GeoDBPath             string `mapstructure:"geodbpath"`
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// SQLite settings (the sqlite store and the report cache live here)
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Event store settings
	StoreBackend       string `mapstructure:"storebackend"`
	ClickHouseAddr     string `mapstructure:"clickhouseaddr"`
	ClickHouseDatabase string `mapstructure:"clickhousedatabase"`
	ClickHouseUser     string `mapstructure:"clickhouseuser"`
	ClickHousePassword string `mapstructure:"clickhousepassword"`
	PostgresDSN        string `mapstructure:"postgresdsn"`
	QueryMaxRows       int    `mapstructure:"querymaxrows"`

	// Tracking pipeline settings
	TrackerQueueSize       int    `mapstructure:"trackerqueuesize"`
	TrackerWorkers         int    `mapstructure:"trackerworkers"`
	TrackerInsertTimeoutMs int    `mapstructure:"trackerinserttimeoutms"`
	DeadLetterCapacity     int    `mapstructure:"deadlettercapacity"`
	SessionCookieName      string `mapstructure:"sessioncookiename"`
	ReportCacheSeconds     int    `mapstructure:"reportcacheseconds"`
	AllowedOrigins         string `mapstructure:"allowedorigins"`

	// Forwarding: deliver tracked events to a remote collector's
	// POST /api/v1/events instead of the local store.
	ForwardEndpoint string `mapstructure:"forwardendpoint"`
	ForwardAPIKey   string `mapstructure:"forwardapikey"`

	// Background jobs
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "shopsignals")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", defaultPrivateKey)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-Country.mmdb")
		v.SetDefault("publicdir", "public")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("storebackend", SQLiteStore)
		v.SetDefault("clickhouseaddr", "localhost:9000")
		v.SetDefault("clickhousedatabase", "default")
		v.SetDefault("clickhouseuser", "default")
		v.SetDefault("clickhousepassword", "")
		v.SetDefault("postgresdsn", "")
		v.SetDefault("querymaxrows", 10000)
		v.SetDefault("trackerqueuesize", 1024)
		v.SetDefault("trackerworkers", 2)
		v.SetDefault("trackerinserttimeoutms", 5000)
		v.SetDefault("deadlettercapacity", 256)
		v.SetDefault("sessioncookiename", "analytics_session")
		v.SetDefault("reportcacheseconds", 30)
		v.SetDefault("allowedorigins", "*")
		v.SetDefault("jobintervalseconds", 60)
		v.SetDefault("forwardendpoint", "")
		v.SetDefault("forwardapikey", "")

		v.BindEnv("appname", "SHOPSIGNALS_APP_NAME")
		v.BindEnv("appport", "SHOPSIGNALS_APP_PORT")
		v.BindEnv("environment", "SHOPSIGNALS_ENV")
		v.BindEnv("loglevel", "SHOPSIGNALS_LOG_LEVEL")
		v.BindEnv("privatekey", "SHOPSIGNALS_PRIVATE_KEY")
		v.BindEnv("storagepath", "SHOPSIGNALS_STORAGE_PATH")
		v.BindEnv("geodbpath", "SHOPSIGNALS_GEO_DB_PATH")
		v.BindEnv("publicdir", "SHOPSIGNALS_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "SHOPSIGNALS_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "SHOPSIGNALS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "SHOPSIGNALS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "SHOPSIGNALS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "SHOPSIGNALS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbmaxopenconns", "SHOPSIGNALS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "SHOPSIGNALS_DB_MAX_IDLE_CONNS")
		v.BindEnv("storebackend", "SHOPSIGNALS_STORE_BACKEND")
		v.BindEnv("clickhouseaddr", "SHOPSIGNALS_CLICKHOUSE_ADDR")
		v.BindEnv("clickhousedatabase", "SHOPSIGNALS_CLICKHOUSE_DATABASE")
		v.BindEnv("clickhouseuser", "SHOPSIGNALS_CLICKHOUSE_USER")
		v.BindEnv("clickhousepassword", "SHOPSIGNALS_CLICKHOUSE_PASSWORD")
		v.BindEnv("postgresdsn", "SHOPSIGNALS_POSTGRES_DSN")
		v.BindEnv("querymaxrows", "SHOPSIGNALS_QUERY_MAX_ROWS")
		v.BindEnv("trackerqueuesize", "SHOPSIGNALS_TRACKER_QUEUE_SIZE")
		v.BindEnv("trackerworkers", "SHOPSIGNALS_TRACKER_WORKERS")
		v.BindEnv("trackerinserttimeoutms", "SHOPSIGNALS_TRACKER_INSERT_TIMEOUT_MS")
		v.BindEnv("deadlettercapacity", "SHOPSIGNALS_DEAD_LETTER_CAPACITY")
		v.BindEnv("sessioncookiename", "SHOPSIGNALS_SESSION_COOKIE_NAME")
		v.BindEnv("reportcacheseconds", "SHOPSIGNALS_REPORT_CACHE_SECONDS")
		v.BindEnv("allowedorigins", "SHOPSIGNALS_ALLOWED_ORIGINS")
		v.BindEnv("jobintervalseconds", "SHOPSIGNALS_JOB_INTERVAL_SECONDS")
		v.BindEnv("forwardendpoint", "SHOPSIGNALS_FORWARD_ENDPOINT")
		v.BindEnv("forwardapikey", "SHOPSIGNALS_FORWARD_API_KEY")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()

		if cfg.IsProduction() && cfg.PrivateKey == defaultPrivateKey {
			log.Fatal("Production requires a unique SHOPSIGNALS_PRIVATE_KEY (cannot use default)")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	switch c.StoreBackend {
	case SQLiteStore:
	case ClickHouseStore:
		if c.ClickHouseAddr == "" {
			return fmt.Errorf("clickhouse store requires SHOPSIGNALS_CLICKHOUSE_ADDR")
		}
	case PostgresStore:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres store requires SHOPSIGNALS_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("invalid store backend: %s", c.StoreBackend)
	}

	if c.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	if c.QueryMaxRows <= 0 {
		return fmt.Errorf("query max rows must be positive, got %d", c.QueryMaxRows)
	}
	if c.TrackerQueueSize <= 0 || c.TrackerWorkers <= 0 {
		return fmt.Errorf("tracker queue size and workers must be positive")
	}
	if c.JobIntervalSeconds <= 0 {
		return fmt.Errorf("job interval must be positive, got %d", c.JobIntervalSeconds)
	}
	if c.DeadLetterCapacity <= 0 {
		return fmt.Errorf("dead letter capacity must be positive, got %d", c.DeadLetterCapacity)
	}
	if c.ForwardEndpoint != "" {
		u, err := url.Parse(c.ForwardEndpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid forward endpoint: %q", c.ForwardEndpoint)
		}
		if c.ForwardAPIKey == "" {
			return fmt.Errorf("forwarding requires SHOPSIGNALS_FORWARD_API_KEY")
		}
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment.
// Tests run with a single connection; other environments allow concurrent report reads.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetInsertTimeout is the per-insert deadline used by the tracking dispatcher.
func (c *Config) GetInsertTimeout() time.Duration {
	return time.Duration(c.TrackerInsertTimeoutMs) * time.Millisecond
}

// Forwarding reports whether tracked events go to a remote collector.
func (c *Config) Forwarding() bool {
	return c.ForwardEndpoint != ""
}

// GetReportCacheTTL is how long a computed overview report is reused.
func (c *Config) GetReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheSeconds) * time.Second
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
