package tracker

import (
	"sync"
	"time"

	"shopsignals/internal/events"
)

// Reason explains why an event was not delivered.
type Reason string

const (
	ReasonQueueFull    Reason = "queue_full"
	ReasonInsertFailed Reason = "insert_failed"
	ReasonStopped      Reason = "dispatcher_stopped"
)

// DeadLetter is an event that could not be delivered to the store.
type DeadLetter struct {
	Event  events.Event `json:"event"`
	Reason Reason       `json:"reason"`
	Error  string       `json:"error,omitempty"`
	At     time.Time    `json:"at"`
}

// DeadLetterLog keeps the most recent undeliverable events in a fixed-size
// ring. Older entries are overwritten; nothing is retried.
type DeadLetterLog struct {
	mu      sync.Mutex
	entries []DeadLetter
	next    int
	full    bool
	total   int64
}

// NewDeadLetterLog creates a ring holding up to capacity entries.
func NewDeadLetterLog(capacity int) *DeadLetterLog {
	if capacity < 1 {
		capacity = 1
	}
	return &DeadLetterLog{entries: make([]DeadLetter, capacity)}
}

// Add records dl, evicting the oldest entry when the ring is full.
func (l *DeadLetterLog) Add(dl DeadLetter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = dl
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	l.total++
}

// Snapshot returns the retained entries, oldest first.
func (l *DeadLetterLog) Snapshot() []DeadLetter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]DeadLetter, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]DeadLetter, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}

// Len is the number of retained entries.
func (l *DeadLetterLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Total counts every entry ever added, including evicted ones.
func (l *DeadLetterLog) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Capacity is the ring size.
func (l *DeadLetterLog) Capacity() int {
	return len(l.entries)
}
