package analytics

import "shopsignals/internal/events"

// UniqueSessions is the number of distinct session ids.
func UniqueSessions(evs []events.Event) int {
	seen := make(map[string]struct{})
	for i := range evs {
		seen[evs[i].SessionID] = struct{}{}
	}
	return len(seen)
}

// UniqueUsers is the number of distinct non-empty user ids.
func UniqueUsers(evs []events.Event) int {
	seen := make(map[string]struct{})
	for i := range evs {
		if id := events.Deref(evs[i].UserID); id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// CountByType counts events per event type.
func CountByType(evs []events.Event) map[events.EventType]int {
	counts := make(map[events.EventType]int)
	for i := range evs {
		counts[evs[i].EventType]++
	}
	return counts
}

// CountType counts events of a single type.
func CountType(evs []events.Event, t events.EventType) int {
	n := 0
	for i := range evs {
		if evs[i].EventType == t {
			n++
		}
	}
	return n
}
