package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"shopsignals/internal/analytics"
	"shopsignals/internal/events"
	"shopsignals/internal/pipeline"
)

// ReportsHandler serves the storefront reports. Every report accepts from, to,
// tz, device, source and top query parameters.
type ReportsHandler struct {
	p *pipeline.Pipeline
}

func NewReportsHandler(p *pipeline.Pipeline) *ReportsHandler {
	return &ReportsHandler{p: p}
}

// SegmentsReport groups conversion by device and by traffic source.
type SegmentsReport struct {
	Devices               []analytics.Segment `json:"devices"`
	TrafficSources        []analytics.Segment `json:"traffic_sources"`
	MobileUnderperforming bool                `json:"mobile_underperforming"`
}

// SourcesReport lists the top acquisition channels.
type SourcesReport struct {
	Referrers      []analytics.MetricCountResult `json:"referrers"`
	TrafficSources []analytics.MetricCountResult `json:"traffic_sources"`
	UTMSources     []analytics.MetricCountResult `json:"utm_sources"`
	UTMMediums     []analytics.MetricCountResult `json:"utm_mediums"`
	Campaigns      []analytics.MetricCountResult `json:"campaigns"`
}

// Overview serves the cached dashboard with period comparison.
func (h *ReportsHandler) Overview(ctx *cartridge.Context) error {
	params, ok := h.params(ctx)
	if !ok {
		return nil
	}
	overview, err := h.p.Reporter.Overview(ctx.UserContext(), params)
	if err != nil {
		return reportFailed(ctx, "overview", err)
	}
	return ctx.JSON(overview)
}

func (h *ReportsHandler) Funnel(ctx *cartridge.Context) error {
	return h.serve(ctx, "funnel", func(evs []events.Event, _ analytics.QueryParams) any {
		return analytics.ComputeFunnel(evs, analytics.DefaultFunnelSteps)
	})
}

func (h *ReportsHandler) Segments(ctx *cartridge.Context) error {
	return h.serve(ctx, "segments", func(evs []events.Event, _ analytics.QueryParams) any {
		devices := analytics.SegmentByDevice(evs)
		return SegmentsReport{
			Devices:               devices,
			TrafficSources:        analytics.SegmentByTrafficSource(evs),
			MobileUnderperforming: analytics.MobileUnderperforming(devices),
		}
	})
}

func (h *ReportsHandler) CheckoutErrors(ctx *cartridge.Context) error {
	return h.serve(ctx, "checkout-errors", func(evs []events.Event, _ analytics.QueryParams) any {
		return analytics.AnalyzeCheckoutErrors(evs)
	})
}

func (h *ReportsHandler) FormAbandonment(ctx *cartridge.Context) error {
	return h.serve(ctx, "form-abandonment", func(evs []events.Event, _ analytics.QueryParams) any {
		return analytics.AnalyzeFormAbandonment(evs)
	})
}

func (h *ReportsHandler) Cart(ctx *cartridge.Context) error {
	return h.serve(ctx, "cart", func(evs []events.Event, params analytics.QueryParams) any {
		return analytics.AnalyzeCart(evs, params.TopN)
	})
}

func (h *ReportsHandler) Referrers(ctx *cartridge.Context) error {
	return h.serve(ctx, "referrers", func(evs []events.Event, params analytics.QueryParams) any {
		return SourcesReport{
			Referrers:      analytics.TopReferrers(evs, params.TopN),
			TrafficSources: analytics.TopTrafficSources(evs, params.TopN),
			UTMSources:     analytics.TopUTMSources(evs, params.TopN),
			UTMMediums:     analytics.TopUTMMediums(evs, params.TopN),
			Campaigns:      analytics.TopCampaigns(evs, params.TopN),
		}
	})
}

func (h *ReportsHandler) Countries(ctx *cartridge.Context) error {
	return h.serve(ctx, "countries", func(evs []events.Event, params analytics.QueryParams) any {
		return fiber.Map{"countries": analytics.CountryBreakdown(evs, params.TopN)}
	})
}

func (h *ReportsHandler) Trend(ctx *cartridge.Context) error {
	return h.serve(ctx, "trend", func(evs []events.Event, params analytics.QueryParams) any {
		return analytics.DailyTrend(evs, params.TimeFrame)
	})
}

// serve fetches the requested period and renders build's result.
func (h *ReportsHandler) serve(ctx *cartridge.Context, name string, build func([]events.Event, analytics.QueryParams) any) error {
	params, ok := h.params(ctx)
	if !ok {
		return nil
	}
	evs, err := h.p.Reporter.Events(ctx.UserContext(), params)
	if err != nil {
		return reportFailed(ctx, name, err)
	}
	return ctx.JSON(build(evs, params))
}

func (h *ReportsHandler) params(ctx *cartridge.Context) (analytics.QueryParams, bool) {
	q := analytics.RequestQuery{
		From:   ctx.Query("from"),
		To:     ctx.Query("to"),
		Tz:     ctx.Query("tz"),
		Device: ctx.Query("device"),
		Source: ctx.Query("source"),
		TopN:   ctx.Query("top"),
	}
	params, err := q.Params(h.p.Parser)
	if err != nil {
		ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		return analytics.QueryParams{}, false
	}
	return params, true
}

func reportFailed(ctx *cartridge.Context, report string, err error) error {
	ctx.Logger.Error("Failed to build report", slog.String("report", report), slog.Any("error", err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to build report",
	})
}
