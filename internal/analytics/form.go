package analytics

import (
	"sort"

	"shopsignals/internal/events"
)

// CanonicalFormFields is the checkout form's field order, top to bottom.
var CanonicalFormFields = []string{
	"fullName", "cpf", "email", "phone", "cep",
	"street", "number", "complement", "neighborhood", "city", "state",
}

type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// FieldDropOff is where the histogram falls the most between two adjacent
// canonical fields: Field is the first one fewer shoppers reached.
type FieldDropOff struct {
	After    string `json:"after"`
	Field    string `json:"field"`
	Decrease int    `json:"decrease"`
}

// FormAbandonment diagnoses how far shoppers get in the checkout form.
type FormAbandonment struct {
	Opens            int           `json:"form_opens"`
	Abandons         int           `json:"form_abandons"`
	AbandonmentRate  float64       `json:"abandonment_rate"`
	AvgTimeSpentSecs *float64      `json:"avg_time_spent_seconds,omitempty"`
	FieldHistogram   []FieldCount  `json:"field_histogram"`
	DropOff          *FieldDropOff `json:"drop_off,omitempty"`
}

// AnalyzeFormAbandonment summarizes checkout_form_abandon events against
// checkout_form_open events.
//
// The average time spent only includes abandons that reported it. The field
// histogram counts, per field, the abandons that listed it as filled: a name
// repeated within one event's filledFields counts once, so no count exceeds
// Abandons. Fields outside the canonical order are appended after it, by name.
func AnalyzeFormAbandonment(evs []events.Event) FormAbandonment {
	result := FormAbandonment{}
	fieldCounts := make(map[string]int)
	var timeSum float64
	var timeReports int

	for i := range evs {
		e := &evs[i]
		switch e.EventType {
		case events.EventCheckoutFormOpen:
			result.Opens++
		case events.EventCheckoutFormAbandon:
			result.Abandons++
			payload, ok := abandonPayload(e)
			if !ok {
				continue
			}
			if payload.TimeSpentSeconds != nil {
				timeSum += *payload.TimeSpentSeconds
				timeReports++
			}
			seen := make(map[string]struct{}, len(payload.FilledFields))
			for _, field := range payload.FilledFields {
				if _, dup := seen[field]; dup || field == "" {
					continue
				}
				seen[field] = struct{}{}
				fieldCounts[field]++
			}
		}
	}

	result.AbandonmentRate = rate(float64(result.Abandons), float64(result.Opens))
	if timeReports > 0 {
		avg := timeSum / float64(timeReports)
		result.AvgTimeSpentSecs = &avg
	}
	result.FieldHistogram = fieldHistogram(fieldCounts)
	result.DropOff = dropOff(fieldCounts)
	return result
}

func abandonPayload(e *events.Event) (*events.CheckoutFormAbandonPayload, bool) {
	p, err := e.Payload()
	if err != nil {
		return nil, false
	}
	payload, ok := p.(*events.CheckoutFormAbandonPayload)
	return payload, ok
}

func fieldHistogram(counts map[string]int) []FieldCount {
	histogram := make([]FieldCount, 0, len(counts))
	canonical := make(map[string]struct{}, len(CanonicalFormFields))
	for _, field := range CanonicalFormFields {
		canonical[field] = struct{}{}
		if n := counts[field]; n > 0 {
			histogram = append(histogram, FieldCount{Field: field, Count: n})
		}
	}

	var extra []string
	for field := range counts {
		if _, ok := canonical[field]; !ok {
			extra = append(extra, field)
		}
	}
	sort.Strings(extra)
	for _, field := range extra {
		histogram = append(histogram, FieldCount{Field: field, Count: counts[field]})
	}
	return histogram
}

// dropOff walks the canonical order and returns the first largest decrease
// between adjacent fields, or nil when counts never decrease.
func dropOff(counts map[string]int) *FieldDropOff {
	var best *FieldDropOff
	for i := 0; i+1 < len(CanonicalFormFields); i++ {
		current, next := CanonicalFormFields[i], CanonicalFormFields[i+1]
		decrease := counts[current] - counts[next]
		if decrease <= 0 {
			continue
		}
		if best == nil || decrease > best.Decrease {
			best = &FieldDropOff{After: current, Field: next, Decrease: decrease}
		}
	}
	return best
}
