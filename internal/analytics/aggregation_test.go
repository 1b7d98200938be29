package analytics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"shopsignals/internal/analytics"
	"shopsignals/internal/events"
	"shopsignals/internal/timeframe"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type eventOption func(*events.Event)

func newEvent(session string, t events.EventType, opts ...eventOption) events.Event {
	category, _ := t.Category()
	e := events.Event{
		SessionID:     session,
		EventType:     t,
		EventCategory: category,
		CreatedAt:     baseTime,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func at(offset time.Duration) eventOption {
	return func(e *events.Event) { e.CreatedAt = baseTime.Add(offset) }
}

func device(d string) eventOption {
	return func(e *events.Event) { e.DeviceType = events.StringPtr(d) }
}

func referrer(r string) eventOption {
	return func(e *events.Event) { e.Referrer = events.StringPtr(r) }
}

func user(id string) eventOption {
	return func(e *events.Event) { e.UserID = events.StringPtr(id) }
}

func country(code string) eventOption {
	return func(e *events.Event) { e.Country = events.StringPtr(code) }
}

func product(id, name string) eventOption {
	return func(e *events.Event) {
		e.ProductID = events.StringPtr(id)
		e.ProductName = events.StringPtr(name)
	}
}

func payload(p events.Payload) eventOption {
	return func(e *events.Event) {
		raw, err := events.EncodePayload(p)
		if err != nil {
			panic(err)
		}
		e.Metadata = raw
	}
}

func rawMetadata(s string) eventOption {
	return func(e *events.Event) { e.Metadata = datatypes.JSON(s) }
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

// scenarioEvents: 10 sessions, 8 product views, 5 adds to cart, 3 checkout
// starts and 2 WhatsApp redirects.
func scenarioEvents() []events.Event {
	var evs []events.Event
	add := func(n int, t events.EventType) {
		for i := 0; i < n; i++ {
			evs = append(evs, newEvent(fmt.Sprintf("s%d", i), t, at(time.Duration(len(evs))*time.Second)))
		}
	}
	add(10, events.EventSessionStart)
	add(8, events.EventProductView)
	add(5, events.EventAddToCart)
	add(3, events.EventCheckoutStart)
	add(2, events.EventWhatsAppRedirect)
	return evs
}

func TestEndToEndScenario(t *testing.T) {
	evs := scenarioEvents()

	kpis := analytics.ComputeKPIs(evs)
	assert.Equal(t, 10, kpis.Sessions)
	assert.Equal(t, 8, kpis.ProductViews)
	assert.Equal(t, 5, kpis.AddToCart)
	assert.Equal(t, 3, kpis.CheckoutStarts)
	assert.Equal(t, 2, kpis.WhatsAppRedirects)
	assert.InDelta(t, 20.0, kpis.ConversionRate, 1e-9)
	assert.InDelta(t, 60.0, kpis.CartConversionRate, 1e-9)
	assert.InDelta(t, 40.0, kpis.CartAbandonmentRate, 1e-9)

	funnel := analytics.ComputeFunnel(evs, analytics.DefaultFunnelSteps)
	counts := make([]int, len(funnel.Steps))
	for i, s := range funnel.Steps {
		counts[i] = s.Count
	}
	assert.Equal(t, []int{10, 8, 5, 3, 2}, counts)
	assert.InDelta(t, 37.5, funnel.Steps[2].DropRate, 1e-9)
	assert.InDelta(t, 40.0, funnel.Steps[3].DropRate, 1e-9)
	assert.InDelta(t, 20.0, funnel.OverallConversion, 1e-9)

	require.NotNil(t, funnel.LargestDrop)
	assert.Equal(t, "Add to Cart", funnel.LargestDrop.From)
	assert.Equal(t, "Checkout Start", funnel.LargestDrop.To)
	assert.Equal(t, "Add to Cart → Checkout Start", funnel.LargestDrop.Label)
	assert.InDelta(t, 40.0, funnel.LargestDrop.DropRate, 1e-9)
}

func TestFunnelRatesAreComplementary(t *testing.T) {
	funnel := analytics.ComputeFunnel(scenarioEvents(), analytics.DefaultFunnelSteps)

	for i := 1; i < len(funnel.Steps); i++ {
		step := funnel.Steps[i]
		assert.InDelta(t, 100.0, step.AdvanceRate+step.DropRate, 1e-9, step.Label)
	}
	assert.Zero(t, funnel.Steps[0].AdvanceRate)
	assert.Zero(t, funnel.Steps[0].DropRate)
}

func staticSteps(counts ...int) []analytics.FunnelStep {
	steps := make([]analytics.FunnelStep, len(counts))
	for i, n := range counts {
		n := n
		steps[i] = analytics.FunnelStep{
			Label: fmt.Sprintf("step%d", i),
			Count: func([]events.Event) int { return n },
		}
	}
	return steps
}

func TestFunnelEdgeCases(t *testing.T) {
	t.Run("ties resolve to the first transition", func(t *testing.T) {
		funnel := analytics.ComputeFunnel(nil, staticSteps(10, 5, 10, 5))
		require.NotNil(t, funnel.LargestDrop)
		assert.Equal(t, "step0", funnel.LargestDrop.From)
		assert.Equal(t, "step1", funnel.LargestDrop.To)
	})

	t.Run("counts may grow between steps", func(t *testing.T) {
		funnel := analytics.ComputeFunnel(nil, staticSteps(2, 5))
		assert.InDelta(t, 250.0, funnel.Steps[1].AdvanceRate, 1e-9)
		assert.InDelta(t, -150.0, funnel.Steps[1].DropRate, 1e-9)
		assert.Nil(t, funnel.LargestDrop)
	})

	t.Run("zero previous step yields zero rates", func(t *testing.T) {
		funnel := analytics.ComputeFunnel(nil, staticSteps(0, 3))
		assert.Zero(t, funnel.Steps[1].AdvanceRate)
		assert.Zero(t, funnel.Steps[1].DropRate)
		assert.Zero(t, funnel.OverallConversion)
	})

	t.Run("no steps", func(t *testing.T) {
		funnel := analytics.ComputeFunnel(nil, nil)
		assert.Empty(t, funnel.Steps)
		assert.Nil(t, funnel.LargestDrop)
	})
}

func TestKPIsWithoutData(t *testing.T) {
	kpis := analytics.ComputeKPIs(nil)

	assert.Zero(t, kpis.Sessions)
	assert.Zero(t, kpis.ConversionRate)
	assert.Zero(t, kpis.CartConversionRate)
	assert.Zero(t, kpis.CartAbandonmentRate)
}

func TestUniqueUsersIgnoresAnonymous(t *testing.T) {
	evs := []events.Event{
		newEvent("s1", events.EventPageView, user("u1")),
		newEvent("s2", events.EventPageView, user("u1")),
		newEvent("s3", events.EventPageView, user("u2")),
		newEvent("s4", events.EventPageView),
	}

	assert.Equal(t, 2, analytics.UniqueUsers(evs))
	assert.Equal(t, 4, analytics.UniqueSessions(evs))
}

func TestPercentChange(t *testing.T) {
	change := analytics.PercentChange(15, 10)
	require.NotNil(t, change)
	assert.InDelta(t, 50.0, *change, 1e-9)

	assert.Nil(t, analytics.PercentChange(15, 0))
	assert.Nil(t, analytics.PercentChange(15, -1))

	cmp := analytics.CompareKPIs(analytics.KPIs{Sessions: 8}, analytics.KPIs{Sessions: 10})
	require.NotNil(t, cmp.SessionsChange)
	assert.InDelta(t, -20.0, *cmp.SessionsChange, 1e-9)
	assert.Nil(t, cmp.RedirectsChange)
}

func TestSegmentByDevice(t *testing.T) {
	evs := []events.Event{
		newEvent("m1", events.EventSessionStart, device("Mobile")),
		newEvent("m2", events.EventSessionStart, device("Mobile")),
		newEvent("m2", events.EventWhatsAppRedirect, device("Mobile")),
		newEvent("d1", events.EventSessionStart, device("Desktop")),
		newEvent("x1", events.EventSessionStart),
	}

	segments := analytics.SegmentByDevice(evs)
	require.Len(t, segments, 3)

	mobile, ok := analytics.FindSegment(segments, "Mobile")
	require.True(t, ok)
	assert.Equal(t, 2, mobile.Sessions)
	assert.Equal(t, 1, mobile.Conversions)
	assert.InDelta(t, 50.0, mobile.ConversionRate, 1e-9)
	assert.InDelta(t, 50.0, mobile.AbandonmentRate, 1e-9)

	unknown, ok := analytics.FindSegment(segments, analytics.UnknownSegment)
	require.True(t, ok)
	assert.Equal(t, 1, unknown.Sessions)

	assert.Equal(t, "Mobile", segments[0].Label)
}

func TestSegmentByTrafficSource(t *testing.T) {
	evs := []events.Event{
		newEvent("a", events.EventSessionStart, referrer("l.instagram.com")),
		newEvent("a", events.EventWhatsAppRedirect, referrer("l.instagram.com")),
		newEvent("b", events.EventSessionStart, referrer("www.google.com.br")),
		newEvent("c", events.EventSessionStart),
	}

	segments := analytics.SegmentByTrafficSource(evs)

	instagram, ok := analytics.FindSegment(segments, "Instagram")
	require.True(t, ok)
	assert.Equal(t, 1, instagram.Conversions)

	_, ok = analytics.FindSegment(segments, "Google")
	assert.True(t, ok)
	_, ok = analytics.FindSegment(segments, "Direto")
	assert.True(t, ok)
}

func TestMobileUnderperforming(t *testing.T) {
	tests := []struct {
		name     string
		segments []analytics.Segment
		want     bool
	}{
		{
			name: "mobile well below desktop",
			segments: []analytics.Segment{
				{Label: "Mobile", Sessions: 10, ConversionRate: 10},
				{Label: "Desktop", Sessions: 10, ConversionRate: 50},
			},
			want: true,
		},
		{
			name: "mobile within 70 percent",
			segments: []analytics.Segment{
				{Label: "Mobile", Sessions: 10, ConversionRate: 40},
				{Label: "Desktop", Sessions: 10, ConversionRate: 50},
			},
			want: false,
		},
		{
			name: "no desktop sessions",
			segments: []analytics.Segment{
				{Label: "Mobile", Sessions: 10, ConversionRate: 30},
				{Label: "Desktop", Sessions: 0},
			},
			want: false,
		},
		{
			name:     "no desktop segment",
			segments: []analytics.Segment{{Label: "Mobile", Sessions: 10, ConversionRate: 30}},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analytics.MobileUnderperforming(tt.segments))
		})
	}
}

func TestAnalyzeCheckoutErrors(t *testing.T) {
	formError := func(session, errType string) events.Event {
		return newEvent(session, events.EventCheckoutFormError,
			payload(&events.CheckoutFormErrorPayload{ErrorType: errType, Field: "cpf"}))
	}
	evs := []events.Event{
		formError("a", "validation"),
		formError("b", "validation"),
		formError("c", "validation"),
		formError("d", "payment"),
		newEvent("e", events.EventCheckoutFormError),
		newEvent("a", events.EventCheckoutStart),
		newEvent("b", events.EventCheckoutStart),
		newEvent("c", events.EventCheckoutStart),
		newEvent("d", events.EventCheckoutStart),
		newEvent("a", events.EventCheckoutSuccess),
	}

	result := analytics.AnalyzeCheckoutErrors(evs)

	assert.Equal(t, 5, result.TotalErrors)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, analytics.ErrorShare{ErrorType: "validation", Count: 3, Share: 60}, result.Errors[0])
	assert.Equal(t, "other", result.Errors[1].ErrorType)
	assert.Equal(t, "payment", result.Errors[2].ErrorType)
	assert.InDelta(t, 20.0, result.Errors[2].Share, 1e-9)
	assert.InDelta(t, 25.0, result.SuccessRate, 1e-9)
}

func TestAnalyzeCheckoutErrorsEmpty(t *testing.T) {
	result := analytics.AnalyzeCheckoutErrors(nil)
	assert.Empty(t, result.Errors)
	assert.Zero(t, result.SuccessRate)
}

func TestAnalyzeFormAbandonment(t *testing.T) {
	evs := []events.Event{
		newEvent("a", events.EventCheckoutFormOpen),
		newEvent("b", events.EventCheckoutFormOpen),
		newEvent("c", events.EventCheckoutFormOpen),
		newEvent("d", events.EventCheckoutFormOpen),
		newEvent("a", events.EventCheckoutFormAbandon, payload(&events.CheckoutFormAbandonPayload{
			FilledFields:     []string{"fullName", "cpf"},
			TimeSpentSeconds: floatPtr(30),
		})),
		newEvent("b", events.EventCheckoutFormAbandon, payload(&events.CheckoutFormAbandonPayload{
			FilledFields: []string{"fullName"},
		})),
	}

	result := analytics.AnalyzeFormAbandonment(evs)

	assert.Equal(t, 4, result.Opens)
	assert.Equal(t, 2, result.Abandons)
	assert.InDelta(t, 50.0, result.AbandonmentRate, 1e-9)

	require.NotNil(t, result.AvgTimeSpentSecs)
	assert.InDelta(t, 30.0, *result.AvgTimeSpentSecs, 1e-9)

	assert.Equal(t, []analytics.FieldCount{
		{Field: "fullName", Count: 2},
		{Field: "cpf", Count: 1},
	}, result.FieldHistogram)

	require.NotNil(t, result.DropOff)
	assert.Equal(t, analytics.FieldDropOff{After: "fullName", Field: "cpf", Decrease: 1}, *result.DropOff)
}

func TestAnalyzeFormAbandonmentWithoutReports(t *testing.T) {
	evs := []events.Event{
		newEvent("a", events.EventCheckoutFormAbandon),
		newEvent("b", events.EventCheckoutFormAbandon, rawMetadata(`{"filledFields": "broken"}`)),
		newEvent("c", events.EventCheckoutFormAbandon, payload(&events.CheckoutFormAbandonPayload{
			FilledFields: []string{"email", "email", "giftMessage"},
		})),
	}

	result := analytics.AnalyzeFormAbandonment(evs)

	assert.Equal(t, 3, result.Abandons)
	assert.Zero(t, result.AbandonmentRate)
	assert.Nil(t, result.AvgTimeSpentSecs)
	assert.Equal(t, []analytics.FieldCount{
		{Field: "email", Count: 1},
		{Field: "giftMessage", Count: 1},
	}, result.FieldHistogram)

	require.NotNil(t, result.DropOff)
	assert.Equal(t, "phone", result.DropOff.Field)
}

func TestFormFieldHistogramCountsAbandonsNotOccurrences(t *testing.T) {
	evs := []events.Event{
		newEvent("a", events.EventCheckoutFormAbandon, payload(&events.CheckoutFormAbandonPayload{
			FilledFields: []string{"fullName", "fullName", "fullName", "cpf"},
		})),
		newEvent("b", events.EventCheckoutFormAbandon, payload(&events.CheckoutFormAbandonPayload{
			FilledFields: []string{"fullName", ""},
		})),
	}

	result := analytics.AnalyzeFormAbandonment(evs)

	assert.Equal(t, []analytics.FieldCount{
		{Field: "fullName", Count: 2},
		{Field: "cpf", Count: 1},
	}, result.FieldHistogram)
	for _, fc := range result.FieldHistogram {
		assert.LessOrEqual(t, fc.Count, result.Abandons)
	}
}

func TestAnalyzeCart(t *testing.T) {
	cartItem := func(size int, value float64) eventOption {
		return payload(&events.CartItemPayload{Quantity: 1, CartSize: intPtr(size), CartValue: floatPtr(value)})
	}
	evs := []events.Event{
		newEvent("a", events.EventAddToCart, at(0), product("p1", "Vaso"), cartItem(1, 50)),
		newEvent("a", events.EventAddToCart, at(time.Minute), product("p2", "Prato"), cartItem(2, 80)),
		newEvent("a", events.EventCheckoutStart, at(3*time.Minute)),
		newEvent("b", events.EventAddToCart, at(0), product("p1", "Vaso"), cartItem(6, 300)),
		newEvent("b", events.EventRemoveFromCart, at(time.Minute), product("p1", "Vaso")),
		newEvent("c", events.EventAddToCart, at(0), product("p1", "Vaso")),
		// A checkout start recorded before the first add does not count.
		newEvent("c", events.EventCheckoutStart, at(-time.Minute)),
		newEvent("d", events.EventViewCart),
	}

	result := analytics.AnalyzeCart(evs, 10)

	assert.Equal(t, 4, result.AddToCart)
	assert.Equal(t, 1, result.RemoveFromCart)
	assert.Equal(t, 1, result.ViewCart)
	assert.Equal(t, 2, result.CheckoutStarts)
	assert.Equal(t, 2, result.SessionsWithCart)

	require.Len(t, result.SizeDistribution, 5)
	assert.Equal(t, analytics.CartSizeBucket{Size: "2", Sessions: 1}, result.SizeDistribution[1])
	assert.Equal(t, analytics.CartSizeBucket{Size: "5+", Sessions: 1}, result.SizeDistribution[4])

	require.NotNil(t, result.AvgCartSize)
	assert.InDelta(t, 4.0, *result.AvgCartSize, 1e-9)
	require.NotNil(t, result.AvgCartValue)
	assert.InDelta(t, 190.0, *result.AvgCartValue, 1e-9)

	require.NotNil(t, result.AvgTimeToCheckoutSeconds)
	assert.InDelta(t, 180.0, *result.AvgTimeToCheckoutSeconds, 1e-9)

	require.Len(t, result.TopProducts, 2)
	assert.Equal(t, "p1", result.TopProducts[0].ProductID)
	assert.Equal(t, 3, result.TopProducts[0].Adds)
	assert.Equal(t, "Vaso", result.TopProducts[0].ProductName)
}

func TestAnalyzeCartWithoutSnapshots(t *testing.T) {
	evs := []events.Event{newEvent("a", events.EventAddToCart)}

	result := analytics.AnalyzeCart(evs, 10)

	assert.Zero(t, result.SessionsWithCart)
	assert.Nil(t, result.AvgCartSize)
	assert.Nil(t, result.AvgCartValue)
	assert.Nil(t, result.AvgTimeToCheckoutSeconds)
}

func TestFilterEvents(t *testing.T) {
	evs := []events.Event{
		newEvent("a", events.EventPageView, device("Mobile"), referrer("l.instagram.com")),
		newEvent("b", events.EventPageView, device("Mobile")),
		newEvent("c", events.EventPageView, device("Desktop"), referrer("l.instagram.com")),
		newEvent("d", events.EventPageView, referrer("www.bing.com")),
	}

	tests := []struct {
		name    string
		filters analytics.Filters
		want    []string
	}{
		{"no filters", analytics.Filters{}, []string{"a", "b", "c", "d"}},
		{"device", analytics.Filters{DeviceType: "Mobile"}, []string{"a", "b"}},
		{"device is case insensitive", analytics.Filters{DeviceType: "mobile"}, []string{"a", "b"}},
		{"unknown device", analytics.Filters{DeviceType: "Outro"}, []string{"d"}},
		{"source", analytics.Filters{TrafficSource: "Instagram"}, []string{"a", "c"}},
		{"direct", analytics.Filters{TrafficSource: "Direto"}, []string{"b"}},
		{"both", analytics.Filters{DeviceType: "Mobile", TrafficSource: "Instagram"}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analytics.FilterEvents(evs, tt.filters)
			ids := make([]string, len(got))
			for i := range got {
				ids[i] = got[i].SessionID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
	assert.Len(t, evs, 4)
}

func TestTopReferrersAndCampaigns(t *testing.T) {
	campaign := func(c string) eventOption {
		return func(e *events.Event) { e.UTMCampaign = events.StringPtr(c) }
	}
	evs := []events.Event{
		newEvent("a", events.EventSessionStart, referrer("l.instagram.com"), campaign("verao")),
		newEvent("a", events.EventPageView, referrer("l.instagram.com"), campaign("verao")),
		newEvent("b", events.EventSessionStart, referrer("instagram.com"), campaign("verao")),
		newEvent("c", events.EventSessionStart, referrer("www.google.com")),
		newEvent("d", events.EventSessionStart),
	}

	assert.Equal(t, []analytics.MetricCountResult{
		{Name: "Instagram", Count: 2},
		{Name: "Google", Count: 1},
	}, analytics.TopReferrers(evs, 10))

	assert.Equal(t, []analytics.MetricCountResult{{Name: "verao", Count: 2}}, analytics.TopCampaigns(evs, 10))
	assert.Len(t, analytics.TopReferrers(evs, 1), 1)
}

func TestCountryBreakdown(t *testing.T) {
	evs := []events.Event{
		newEvent("a", events.EventSessionStart, country("BR")),
		newEvent("b", events.EventSessionStart, country("br")),
		newEvent("c", events.EventSessionStart, country("PT")),
		newEvent("d", events.EventSessionStart),
	}

	result := analytics.CountryBreakdown(evs, 10)

	require.Len(t, result, 3)
	assert.Equal(t, analytics.CountryCount{Code: "BR", Name: "Brazil", Sessions: 2}, result[0])
	assert.Equal(t, "Portugal", analytics.CountryName("PT"))
	assert.Equal(t, analytics.UnknownCountry, analytics.CountryName(analytics.UnknownCountry))
	assert.Equal(t, "ZZ", analytics.CountryName("ZZ"))
}

func TestDailyTrend(t *testing.T) {
	from := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)
	tf, err := timeframe.NewTimeFrame(from, to, timeframe.TimeFrameBucketSizeDay, time.UTC)
	require.NoError(t, err)

	evs := []events.Event{
		newEvent("a", events.EventSessionStart, at(-48*time.Hour)),
		newEvent("a", events.EventWhatsAppRedirect, at(-47*time.Hour)),
		newEvent("b", events.EventSessionStart, at(0)),
		newEvent("c", events.EventSessionStart, at(time.Hour)),
		// Outside the frame.
		newEvent("z", events.EventSessionStart, at(-96*time.Hour)),
	}

	trend := analytics.DailyTrend(evs, tf)

	require.Len(t, trend.Sessions, 3)
	assert.Equal(t, []int{1, 0, 2}, []int{trend.Sessions[0].Count, trend.Sessions[1].Count, trend.Sessions[2].Count})
	assert.Equal(t, 1, trend.Conversions[0].Count)
	assert.InDelta(t, 0.5, trend.Slope, 1e-9)
}

func TestBuildOverview(t *testing.T) {
	from := baseTime.Add(-24 * time.Hour)
	tf, err := timeframe.NewTimeFrame(from, baseTime.Add(time.Hour), timeframe.TimeFrameBucketSizeHour, time.UTC)
	require.NoError(t, err)

	current := scenarioEvents()
	previous := []events.Event{
		newEvent("p1", events.EventSessionStart, at(-30*time.Hour)),
		newEvent("p2", events.EventSessionStart, at(-30*time.Hour)),
		newEvent("p3", events.EventSessionStart, at(-30*time.Hour)),
		newEvent("p4", events.EventSessionStart, at(-30*time.Hour)),
		newEvent("p5", events.EventSessionStart, at(-30*time.Hour)),
	}

	overview := analytics.BuildOverview(current, previous, tf, analytics.Filters{}, 5)

	assert.Equal(t, len(current), overview.EventCount)
	assert.Equal(t, 10, overview.KPIs.Sessions)
	assert.Equal(t, 5, overview.PreviousKPIs.Sessions)
	require.NotNil(t, overview.Comparison.SessionsChange)
	assert.InDelta(t, 100.0, *overview.Comparison.SessionsChange, 1e-9)
	assert.Nil(t, overview.Comparison.RedirectsChange)
	require.NotNil(t, overview.Funnel.LargestDrop)
	assert.Equal(t, "UTC", overview.Timezone)
	assert.NotEmpty(t, overview.Trend.Sessions)
}
