// Package geoip resolves client IP addresses to ISO country codes with a
// GeoLite2 Country database. The database is optional: without it every
// lookup returns an empty code.
package geoip

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"
)

// Locator looks up countries. It is safe for concurrent use and may be
// reloaded while serving lookups.
type Locator struct {
	mu      sync.RWMutex
	reader  *geoip2.Reader
	path    string
	modTime time.Time
	logger  *slog.Logger
}

// Open loads the database at path. A missing or unreadable database is logged
// and leaves the locator disabled; Open never returns nil.
func Open(path string, logger *slog.Logger) *Locator {
	l := &Locator{path: path, logger: logger}
	if path == "" {
		logger.Debug("GeoIP database path not configured - country lookup disabled")
		return l
	}
	if err := l.Reload(); err != nil {
		logger.Info("GeoLite2 database not loaded - country lookup disabled",
			slog.String("path", path),
			slog.Any("error", err))
	}
	return l
}

// Enabled reports whether a database is loaded.
func (l *Locator) Enabled() bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reader != nil
}

// CountryCode returns the alpha-2 code for ip, or "" when it is unknown,
// private, or no database is loaded.
func (l *Locator) CountryCode(ip string) string {
	if l == nil {
		return ""
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return ""
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.reader == nil {
		return ""
	}
	record, err := l.reader.Country(parsed)
	if err != nil {
		l.logger.Debug("GeoIP lookup failed", slog.String("ip", ip), slog.Any("error", err))
		return ""
	}
	return record.Country.IsoCode
}

// Stale reports whether the file on disk changed since it was loaded.
func (l *Locator) Stale() bool {
	if l == nil || l.path == "" {
		return false
	}
	info, err := os.Stat(l.path)
	if err != nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reader == nil || info.ModTime().After(l.modTime)
}

// Reload reopens the database from disk, replacing the current reader only
// when the new file opens cleanly.
func (l *Locator) Reload() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("stat geoip database: %w", err)
	}
	reader, err := geoip2.Open(l.path)
	if err != nil {
		return fmt.Errorf("open geoip database: %w", err)
	}

	l.mu.Lock()
	old := l.reader
	l.reader = reader
	l.modTime = info.ModTime()
	l.mu.Unlock()

	if old != nil {
		old.Close()
	}
	l.logger.Info("GeoLite2 database loaded",
		slog.String("path", l.path),
		slog.Int64("size_bytes", info.Size()),
		slog.Time("mod_time", info.ModTime()))
	return nil
}

// Close releases the database.
func (l *Locator) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reader == nil {
		return nil
	}
	err := l.reader.Close()
	l.reader = nil
	return err
}
