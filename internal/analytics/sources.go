package analytics

import (
	"shopsignals/internal/events"
	"shopsignals/internal/pkg/referrers"
)

// TopReferrers counts sessions per referrer display name. Events without a
// referrer are not counted.
func TopReferrers(evs []events.Event, limit int) []MetricCountResult {
	return topSessionsBy(evs, limit, func(e *events.Event) string {
		if e.Referrer == nil {
			return ""
		}
		return referrers.FriendlyName(*e.Referrer)
	})
}

// TopTrafficSources counts sessions per derived traffic source, direct
// traffic included.
func TopTrafficSources(evs []events.Event, limit int) []MetricCountResult {
	return topSessionsBy(evs, limit, TrafficSourceOf)
}

// TopUTMSources counts sessions per utm_source value.
func TopUTMSources(evs []events.Event, limit int) []MetricCountResult {
	return topSessionsBy(evs, limit, func(e *events.Event) string { return events.Deref(e.UTMSource) })
}

// TopUTMMediums counts sessions per utm_medium value.
func TopUTMMediums(evs []events.Event, limit int) []MetricCountResult {
	return topSessionsBy(evs, limit, func(e *events.Event) string { return events.Deref(e.UTMMedium) })
}

// TopCampaigns counts sessions per utm_campaign value.
func TopCampaigns(evs []events.Event, limit int) []MetricCountResult {
	return topSessionsBy(evs, limit, func(e *events.Event) string { return events.Deref(e.UTMCampaign) })
}

// TopPages counts page_view events per path.
func TopPages(evs []events.Event, limit int) []MetricCountResult {
	counts := make(map[string]int64)
	for i := range evs {
		if evs[i].EventType != events.EventPageView {
			continue
		}
		if path := events.Deref(evs[i].PagePath); path != "" {
			counts[path]++
		}
	}
	return topCounts(counts, limit)
}

// topSessionsBy counts distinct sessions per non-empty key.
func topSessionsBy(evs []events.Event, limit int, key func(*events.Event) string) []MetricCountResult {
	sets := sessionSets{}
	for i := range evs {
		if k := key(&evs[i]); k != "" {
			sets.add(k, evs[i].SessionID)
		}
	}
	return topCounts(sets.counts(), limit)
}
