package events

import (
	"fmt"
	"strings"
	"time"
)

// Field limits enforced on ingestion.
const (
	MaxSessionIDLen = 64
	MaxShortTextLen = 255
	MaxPathLen      = 2048
	MaxFutureSkew   = 5 * time.Minute
)

// StringPtr returns nil for blank input so absent context never becomes "".
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// FieldError is a single field's validation failure.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidationErrors collects every failing field of an event.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Error()
	}
	return "invalid event: " + strings.Join(parts, "; ")
}

// Validate checks an event before it is written. now is the reference time
// for the future-skew check.
func (e *Event) Validate(now time.Time) error {
	var errs ValidationErrors

	if e.SessionID == "" {
		errs = append(errs, FieldError{"session_id", "required"})
	} else if len(e.SessionID) > MaxSessionIDLen {
		errs = append(errs, FieldError{"session_id", fmt.Sprintf("max length %d", MaxSessionIDLen)})
	}

	if !e.EventType.Valid() {
		errs = append(errs, FieldError{"event_type", fmt.Sprintf("unknown value %q", e.EventType)})
	} else if _, err := ResolveCategory(e.EventType, e.EventCategory); err != nil {
		errs = append(errs, FieldError{"event_category", err.Error()})
	} else if _, err := e.Payload(); err != nil {
		errs = append(errs, FieldError{"metadata", err.Error()})
	}

	if e.PagePath != nil && len(*e.PagePath) > MaxPathLen {
		errs = append(errs, FieldError{"page_path", fmt.Sprintf("max length %d", MaxPathLen)})
	}
	short := []struct {
		field string
		value *string
	}{
		{"user_id", e.UserID},
		{"user_email", e.UserEmail},
		{"referrer", e.Referrer},
		{"utm_source", e.UTMSource},
		{"utm_medium", e.UTMMedium},
		{"utm_campaign", e.UTMCampaign},
		{"product_id", e.ProductID},
		{"product_name", e.ProductName},
	}
	for _, s := range short {
		if s.value != nil && len(*s.value) > MaxShortTextLen {
			errs = append(errs, FieldError{s.field, fmt.Sprintf("max length %d", MaxShortTextLen)})
		}
	}
	if e.ProductPrice != nil && *e.ProductPrice < 0 {
		errs = append(errs, FieldError{"product_price", "must not be negative"})
	}
	if !e.CreatedAt.IsZero() && e.CreatedAt.After(now.Add(MaxFutureSkew)) {
		errs = append(errs, FieldError{"created_at", "must not be in the future"})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
