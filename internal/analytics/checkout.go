package analytics

import (
	"sort"

	"shopsignals/internal/events"
)

// OtherErrorType labels checkout errors reported without a type.
const OtherErrorType = "other"

type ErrorShare struct {
	ErrorType string  `json:"error_type"`
	Count     int     `json:"count"`
	Share     float64 `json:"share"`
}

// CheckoutErrors is the distribution of checkout form errors.
type CheckoutErrors struct {
	TotalErrors int          `json:"total_errors"`
	Errors      []ErrorShare `json:"errors"`
	Starts      int          `json:"checkout_starts"`
	Successes   int          `json:"checkout_successes"`
	SuccessRate float64      `json:"success_rate"`
}

// AnalyzeCheckoutErrors counts checkout_form_error events by error type,
// most frequent first (ties by type), with each type's share of all errors.
func AnalyzeCheckoutErrors(evs []events.Event) CheckoutErrors {
	counts := make(map[string]int)
	result := CheckoutErrors{Errors: []ErrorShare{}}

	for i := range evs {
		e := &evs[i]
		switch e.EventType {
		case events.EventCheckoutStart:
			result.Starts++
		case events.EventCheckoutSuccess:
			result.Successes++
		case events.EventCheckoutFormError:
			counts[errorType(e)]++
			result.TotalErrors++
		}
	}

	for errType, count := range counts {
		result.Errors = append(result.Errors, ErrorShare{
			ErrorType: errType,
			Count:     count,
			Share:     rate(float64(count), float64(result.TotalErrors)),
		})
	}
	sort.Slice(result.Errors, func(i, j int) bool {
		if result.Errors[i].Count != result.Errors[j].Count {
			return result.Errors[i].Count > result.Errors[j].Count
		}
		return result.Errors[i].ErrorType < result.Errors[j].ErrorType
	})

	result.SuccessRate = rate(float64(result.Successes), float64(result.Starts))
	return result
}

func errorType(e *events.Event) string {
	p, err := e.Payload()
	if err != nil {
		return OtherErrorType
	}
	if payload, ok := p.(*events.CheckoutFormErrorPayload); ok && payload.ErrorType != "" {
		return payload.ErrorType
	}
	return OtherErrorType
}
