package analytics

import (
	"strings"

	"shopsignals/internal/events"
	"shopsignals/internal/pkg/referrers"
	ua "shopsignals/internal/pkg/user_agent"
)

// UnknownSegment labels events without a device type.
const UnknownSegment = "Outro"

var deviceSegments = []string{ua.DeviceMobile, ua.DeviceTablet, ua.DeviceDesktop, UnknownSegment}

// CanonicalDevice returns the device segment label named by raw, ignoring
// case. ok is false when raw names no segment.
func CanonicalDevice(raw string) (label string, ok bool) {
	raw = strings.TrimSpace(raw)
	for _, d := range deviceSegments {
		if strings.EqualFold(raw, d) {
			return d, true
		}
	}
	return "", false
}

// Filters narrows an event set in memory. Empty fields match everything.
type Filters struct {
	DeviceType    string `json:"device_type,omitempty"`
	TrafficSource string `json:"traffic_source,omitempty"`
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f.DeviceType == "" && f.TrafficSource == ""
}

// Predicate selects events.
type Predicate func(e *events.Event) bool

// Predicates lists the checks f applies, in evaluation order.
func (f Filters) Predicates() []Predicate {
	var preds []Predicate
	if f.DeviceType != "" {
		preds = append(preds, func(e *events.Event) bool {
			return strings.EqualFold(DeviceLabel(e), f.DeviceType)
		})
	}
	if f.TrafficSource != "" {
		preds = append(preds, func(e *events.Event) bool {
			return strings.EqualFold(TrafficSourceOf(e), f.TrafficSource)
		})
	}
	return preds
}

// FilterEvents returns the events matching every predicate of f. The input
// slice is left untouched.
func FilterEvents(evs []events.Event, f Filters) []events.Event {
	preds := f.Predicates()
	out := make([]events.Event, 0, len(evs))
	for i := range evs {
		if matchAll(&evs[i], preds) {
			out = append(out, evs[i])
		}
	}
	return out
}

func matchAll(e *events.Event, preds []Predicate) bool {
	for _, p := range preds {
		if !p(e) {
			return false
		}
	}
	return true
}

// DeviceLabel is the event's device class, or UnknownSegment.
func DeviceLabel(e *events.Event) string {
	if d := events.Deref(e.DeviceType); d != "" {
		return d
	}
	return UnknownSegment
}

// TrafficSourceOf re-derives the traffic source from the stored referrer with
// the same classifier the emitter uses.
func TrafficSourceOf(e *events.Event) string {
	return referrers.TrafficSource(events.Deref(e.Referrer))
}
