// Package analytics reads storefront events and derives the reports built on
// them.
//
// The package is organized into focused files:
//   - fetcher.go: bounded event reads from the store
//   - filters.go: device and traffic source narrowing
//   - totals.go: session, user and per-type counts
//   - funnel.go: conversion funnel with drop-off diagnostics
//   - kpis.go, comparison.go: KPI set and period-over-period change
//   - segments.go: device and traffic source segmentation
//   - checkout.go: checkout error distribution
//   - form.go: checkout form abandonment
//   - cart.go: cart composition and time to checkout
//   - sources.go, countries.go: top referrers, UTM values and countries
//   - trend.go: sessions and conversions per time bucket
//   - overview.go: the composed dashboard report
//
// Everything but the fetcher is a pure function over an event slice: no I/O,
// no hidden state, and input events are never modified.
package analytics

import (
	"sort"
)

// MetricCountResult is a generic name/count pair.
type MetricCountResult struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// rate returns part / whole * 100, or 0 when whole is zero.
func rate(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// topCounts turns a name→count map into results sorted by count descending,
// then name. A limit <= 0 keeps everything.
func topCounts(counts map[string]int64, limit int) []MetricCountResult {
	results := make([]MetricCountResult, 0, len(counts))
	for name, count := range counts {
		results = append(results, MetricCountResult{Name: name, Count: count})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Name < results[j].Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// sessionSets counts distinct sessions per key.
type sessionSets map[string]map[string]struct{}

func (s sessionSets) add(key, sessionID string) {
	set, ok := s[key]
	if !ok {
		set = make(map[string]struct{})
		s[key] = set
	}
	set[sessionID] = struct{}{}
}

func (s sessionSets) counts() map[string]int64 {
	out := make(map[string]int64, len(s))
	for key, set := range s {
		out[key] = int64(len(set))
	}
	return out
}
