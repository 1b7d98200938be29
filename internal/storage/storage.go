// Package storage holds what the external event store backends share: the
// column layout, filter translation and the lifecycle interface the app
// manages them through.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopsignals/internal/events"
)

// Backend is an event store owning an external connection.
type Backend interface {
	events.Store
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Columns is the insert and select order of event columns, id excluded.
var Columns = []string{
	"session_id", "user_id", "user_email", "event_type", "event_category",
	"page_path", "referrer", "utm_source", "utm_medium", "utm_campaign",
	"device_type", "browser", "country",
	"product_id", "product_name", "product_price",
	"metadata", "created_at",
}

// Values returns e's column values in Columns order. Metadata is passed as
// a string, nil when empty.
func Values(e *events.Event) []any {
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = string(e.Metadata)
	}
	return []any{
		e.SessionID, e.UserID, e.UserEmail, string(e.EventType), string(e.EventCategory),
		e.PagePath, e.Referrer, e.UTMSource, e.UTMMedium, e.UTMCampaign,
		e.DeviceType, e.Browser, e.Country,
		e.ProductID, e.ProductName, e.ProductPrice,
		metadata, e.CreatedAt.UTC(),
	}
}

// Row receives one scanned event. Backends scan into Targets and call Event.
type Row struct {
	SessionID     string
	UserID        *string
	UserEmail     *string
	EventType     string
	EventCategory string
	PagePath      *string
	Referrer      *string
	UTMSource     *string
	UTMMedium     *string
	UTMCampaign   *string
	DeviceType    *string
	Browser       *string
	Country       *string
	ProductID     *string
	ProductName   *string
	ProductPrice  *float64
	Metadata      *string
	CreatedAt     time.Time
}

// Targets returns scan destinations in Columns order.
func (r *Row) Targets() []any {
	return []any{
		&r.SessionID, &r.UserID, &r.UserEmail, &r.EventType, &r.EventCategory,
		&r.PagePath, &r.Referrer, &r.UTMSource, &r.UTMMedium, &r.UTMCampaign,
		&r.DeviceType, &r.Browser, &r.Country,
		&r.ProductID, &r.ProductName, &r.ProductPrice,
		&r.Metadata, &r.CreatedAt,
	}
}

// Event converts the scanned row.
func (r *Row) Event() events.Event {
	e := events.Event{
		SessionID:     r.SessionID,
		UserID:        r.UserID,
		UserEmail:     r.UserEmail,
		EventType:     events.EventType(r.EventType),
		EventCategory: events.Category(r.EventCategory),
		PagePath:      r.PagePath,
		Referrer:      r.Referrer,
		UTMSource:     r.UTMSource,
		UTMMedium:     r.UTMMedium,
		UTMCampaign:   r.UTMCampaign,
		DeviceType:    r.DeviceType,
		Browser:       r.Browser,
		Country:       r.Country,
		ProductID:     r.ProductID,
		ProductName:   r.ProductName,
		ProductPrice:  r.ProductPrice,
		CreatedAt:     r.CreatedAt.UTC(),
	}
	if r.Metadata != nil && *r.Metadata != "" {
		e.Metadata = []byte(*r.Metadata)
	}
	return e
}

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// QuestionMark is the placeholder style of ClickHouse and SQLite.
func QuestionMark(int) string { return "?" }

// Dollar is the PostgreSQL placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Where translates f into a WHERE clause (empty when f has no predicates)
// and its arguments.
func Where(f events.Filter, ph Placeholder) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, ph(len(args))))
	}

	if f.From != nil {
		add("created_at >= %s", f.From.UTC())
	}
	if f.To != nil {
		add("created_at <= %s", f.To.UTC())
	}
	if f.EventType != nil {
		add("event_type = %s", string(*f.EventType))
	}
	if f.DeviceType != nil {
		add("device_type = %s", *f.DeviceType)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// Prepare stamps and validates e before insertion.
func Prepare(e *events.Event, now time.Time) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
	return e.Validate(now)
}
