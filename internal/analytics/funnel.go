package analytics

import (
	"shopsignals/internal/events"
)

// FunnelStep is one stage of a conversion funnel and how to count it.
type FunnelStep struct {
	Label string
	Count func(evs []events.Event) int
}

// StepCount counts events of type t.
func StepCount(t events.EventType) func([]events.Event) int {
	return func(evs []events.Event) int { return CountType(evs, t) }
}

// DefaultFunnelSteps is the storefront funnel. The conversion step is the
// WhatsApp hand-off, where orders are closed.
var DefaultFunnelSteps = []FunnelStep{
	{Label: "Sessions", Count: UniqueSessions},
	{Label: "Product View", Count: StepCount(events.EventProductView)},
	{Label: "Add to Cart", Count: StepCount(events.EventAddToCart)},
	{Label: "Checkout Start", Count: StepCount(events.EventCheckoutStart)},
	{Label: "Conversion", Count: StepCount(events.EventWhatsAppRedirect)},
}

// FunnelStepResult is a step with its rates relative to the previous step.
// The first step has no rates.
type FunnelStepResult struct {
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	AdvanceRate float64 `json:"advance_rate"`
	DropRate    float64 `json:"drop_rate"`
}

// FunnelTransition names the step pair with the largest drop.
type FunnelTransition struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Label    string  `json:"label"`
	DropRate float64 `json:"drop_rate"`
}

type Funnel struct {
	Steps             []FunnelStepResult `json:"steps"`
	OverallConversion float64            `json:"overall_conversion"`
	LargestDrop       *FunnelTransition  `json:"largest_drop,omitempty"`
}

// ComputeFunnel counts each step and derives advance and drop rates from the
// raw counts. Counts may increase between steps, in which case the advance
// rate exceeds 100 and the drop rate is negative.
//
// LargestDrop is the first transition with the highest drop rate; it is nil
// when no transition loses anyone.
func ComputeFunnel(evs []events.Event, steps []FunnelStep) Funnel {
	funnel := Funnel{Steps: make([]FunnelStepResult, len(steps))}
	if len(steps) == 0 {
		return funnel
	}

	for i, step := range steps {
		res := FunnelStepResult{Label: step.Label, Count: step.Count(evs)}
		if i > 0 {
			prev := float64(funnel.Steps[i-1].Count)
			if prev > 0 {
				res.AdvanceRate = float64(res.Count) / prev * 100
				res.DropRate = (prev - float64(res.Count)) / prev * 100
			}
		}
		funnel.Steps[i] = res
	}

	first := funnel.Steps[0].Count
	last := funnel.Steps[len(steps)-1].Count
	funnel.OverallConversion = rate(float64(last), float64(first))

	for i := 1; i < len(funnel.Steps); i++ {
		step := funnel.Steps[i]
		if step.DropRate <= 0 {
			continue
		}
		if funnel.LargestDrop == nil || step.DropRate > funnel.LargestDrop.DropRate {
			from := funnel.Steps[i-1].Label
			funnel.LargestDrop = &FunnelTransition{
				From:     from,
				To:       step.Label,
				Label:    from + " → " + step.Label,
				DropRate: step.DropRate,
			}
		}
	}

	return funnel
}
