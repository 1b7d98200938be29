package analytics

import (
	"time"

	"shopsignals/internal/events"
	"shopsignals/internal/timeframe"
)

// Overview is the composed storefront dashboard for one period.
type Overview struct {
	From                  time.Time           `json:"from"`
	To                    time.Time           `json:"to"`
	Timezone              string              `json:"timezone"`
	Filters               Filters             `json:"filters"`
	EventCount            int                 `json:"event_count"`
	Truncated             bool                `json:"truncated"`
	KPIs                  KPIs                `json:"kpis"`
	PreviousKPIs          KPIs                `json:"previous_kpis"`
	Comparison            KPIComparison       `json:"comparison"`
	Funnel                Funnel              `json:"funnel"`
	Devices               []Segment           `json:"devices"`
	TrafficSources        []Segment           `json:"traffic_sources"`
	MobileUnderperforming bool                `json:"mobile_underperforming"`
	CheckoutErrors        CheckoutErrors      `json:"checkout_errors"`
	FormAbandonment       FormAbandonment     `json:"form_abandonment"`
	Cart                  CartAnalysis        `json:"cart"`
	TopReferrers          []MetricCountResult `json:"top_referrers"`
	TopUTMSources         []MetricCountResult `json:"top_utm_sources"`
	TopCampaigns          []MetricCountResult `json:"top_campaigns"`
	TopPages              []MetricCountResult `json:"top_pages"`
	Countries             []CountryCount      `json:"countries"`
	Trend                 Trend               `json:"trend"`
}

// BuildOverview computes every report over current and compares its KPIs
// with previous. Both slices must already be filtered.
func BuildOverview(current, previous []events.Event, tf *timeframe.TimeFrame, filters Filters, topN int) Overview {
	devices := SegmentByDevice(current)
	kpis := ComputeKPIs(current)
	prevKPIs := ComputeKPIs(previous)

	return Overview{
		From:                  tf.From,
		To:                    tf.To,
		Timezone:              tf.Tz.String(),
		Filters:               filters,
		EventCount:            len(current),
		KPIs:                  kpis,
		PreviousKPIs:          prevKPIs,
		Comparison:            CompareKPIs(kpis, prevKPIs),
		Funnel:                ComputeFunnel(current, DefaultFunnelSteps),
		Devices:               devices,
		TrafficSources:        SegmentByTrafficSource(current),
		MobileUnderperforming: MobileUnderperforming(devices),
		CheckoutErrors:        AnalyzeCheckoutErrors(current),
		FormAbandonment:       AnalyzeFormAbandonment(current),
		Cart:                  AnalyzeCart(current, topN),
		TopReferrers:          TopReferrers(current, topN),
		TopUTMSources:         TopUTMSources(current, topN),
		TopCampaigns:          TopCampaigns(current, topN),
		TopPages:              TopPages(current, topN),
		Countries:             CountryBreakdown(current, topN),
		Trend:                 DailyTrend(current, tf),
	}
}
