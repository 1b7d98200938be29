// Package session mints and keeps the browsing-session identifier that groups
// tracked events, and guards session_start so it is emitted once per session.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Storage keys.
const (
	KeySessionID = "id"
	KeyStarted   = "started"
)

const startedValue = "1"

// Storage is a session-scoped string key/value primitive.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Provider is the session context handed to the event emitter.
type Provider struct {
	storage Storage
	now     func() time.Time
	suffix  func() string
	mu      sync.Mutex
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock overrides the clock used for new identifiers.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithSuffix overrides the random part of new identifiers.
func WithSuffix(fn func() string) Option {
	return func(p *Provider) { p.suffix = fn }
}

// NewProvider creates a provider backed by storage.
func NewProvider(storage Storage, opts ...Option) *Provider {
	p := &Provider{
		storage: storage,
		now:     time.Now,
		suffix:  randomSuffix,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SessionID returns the current session's identifier, minting and persisting
// one on first use.
func (p *Provider) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionIDLocked()
}

func (p *Provider) sessionIDLocked() string {
	if id, ok := p.storage.Get(KeySessionID); ok && id != "" {
		return id
	}
	id := fmt.Sprintf("%d-%s", p.now().UnixMilli(), p.suffix())
	p.storage.Set(KeySessionID, id)
	return id
}

// MarkStarted sets the started flag and reports whether this call set it.
// Only the first caller in a session gets true.
func (p *Provider) MarkStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sessionIDLocked()
	if v, ok := p.storage.Get(KeyStarted); ok && v == startedValue {
		return false
	}
	p.storage.Set(KeyStarted, startedValue)
	return true
}

// Started reports whether session_start was already recorded.
func (p *Provider) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.storage.Get(KeyStarted)
	return ok && v == startedValue
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// MemoryStorage keeps values in process memory. It backs sessions driven from
// Go code (seeding, tests, server-side storefront renderers).
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}
