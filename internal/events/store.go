package events

import (
	"context"
	"time"
)

// MaxQueryRows bounds a single Query so aggregation never loads an unbounded
// result set into memory.
const MaxQueryRows = 10000

// Filter narrows a Query. Nil fields are not applied.
type Filter struct {
	From       *time.Time
	To         *time.Time
	EventType  *EventType
	DeviceType *string
	Limit      int
}

// EffectiveLimit clamps the requested limit to [1, max].
func (f Filter) EffectiveLimit(max int) int {
	if max <= 0 || max > MaxQueryRows {
		max = MaxQueryRows
	}
	if f.Limit <= 0 || f.Limit > max {
		return max
	}
	return f.Limit
}

// Store is the append-only event store: insert-one plus a bounded range query
// returning events newest first.
type Store interface {
	Insert(ctx context.Context, e *Event) error
	Query(ctx context.Context, f Filter) ([]Event, error)
}
