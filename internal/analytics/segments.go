package analytics

import (
	"sort"

	"shopsignals/internal/events"
	ua "shopsignals/internal/pkg/user_agent"
)

// MobileUnderperformingRatio is the fraction of the desktop conversion rate
// below which mobile is flagged.
const MobileUnderperformingRatio = 0.7

// Segment summarizes one group of events.
type Segment struct {
	Label           string  `json:"label"`
	Sessions        int     `json:"sessions"`
	Conversions     int     `json:"conversions"`
	ConversionRate  float64 `json:"conversion_rate"`
	AbandonmentRate float64 `json:"abandonment_rate"`
}

// SegmentByDevice groups by device class; events without one fall into
// UnknownSegment.
func SegmentByDevice(evs []events.Event) []Segment {
	return segmentBy(evs, DeviceLabel)
}

// SegmentByTrafficSource groups by the traffic source derived from each
// event's referrer.
func SegmentByTrafficSource(evs []events.Event) []Segment {
	return segmentBy(evs, TrafficSourceOf)
}

// segmentBy counts distinct sessions and whatsapp_redirect events per key.
// Segments are ordered by sessions descending, then label.
func segmentBy(evs []events.Event, key func(*events.Event) string) []Segment {
	sessions := sessionSets{}
	conversions := make(map[string]int)

	for i := range evs {
		e := &evs[i]
		k := key(e)
		sessions.add(k, e.SessionID)
		if e.EventType == events.EventWhatsAppRedirect {
			conversions[k]++
		}
	}

	segments := make([]Segment, 0, len(sessions))
	for label, count := range sessions.counts() {
		s := Segment{
			Label:       label,
			Sessions:    int(count),
			Conversions: conversions[label],
		}
		s.ConversionRate = rate(float64(s.Conversions), float64(s.Sessions))
		s.AbandonmentRate = rate(float64(s.Sessions-s.Conversions), float64(s.Sessions))
		segments = append(segments, s)
	}

	sort.Slice(segments, func(i, j int) bool {
		if segments[i].Sessions != segments[j].Sessions {
			return segments[i].Sessions > segments[j].Sessions
		}
		return segments[i].Label < segments[j].Label
	})
	return segments
}

// FindSegment returns the segment with the given label.
func FindSegment(segments []Segment, label string) (Segment, bool) {
	for _, s := range segments {
		if s.Label == label {
			return s, true
		}
	}
	return Segment{}, false
}

// MobileUnderperforming reports whether the mobile conversion rate is below
// MobileUnderperformingRatio of the desktop rate. It never fires without
// desktop sessions to compare against.
func MobileUnderperforming(deviceSegments []Segment) bool {
	desktop, ok := FindSegment(deviceSegments, ua.DeviceDesktop)
	if !ok || desktop.Sessions == 0 {
		return false
	}
	mobile, ok := FindSegment(deviceSegments, ua.DeviceMobile)
	if !ok || mobile.Sessions == 0 {
		return false
	}
	return mobile.ConversionRate < desktop.ConversionRate*MobileUnderperformingRatio
}
