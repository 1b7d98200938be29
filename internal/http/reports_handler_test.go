package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsignals/internal/analytics"
	"shopsignals/internal/events"
	"shopsignals/internal/testsupport"
)

// reportsApp serves three sessions: a mobile shopper who reaches WhatsApp,
// a desktop browser who only views a product, and a mobile bounce.
func reportsApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	app, _ := testsupport.CreateMinimalTestApp(t, db)

	base := time.Now().UTC().Add(-3 * time.Hour)
	mobile := testsupport.WithDevice("Mobile")
	desktop := testsupport.WithDevice("Desktop")
	testsupport.InsertEvents(t, db,
		testsupport.NewEvent("buyer", events.EventSessionStart, base, mobile),
		testsupport.NewEvent("buyer", events.EventProductView, base.Add(time.Minute), mobile),
		testsupport.NewEvent("buyer", events.EventAddToCart, base.Add(2*time.Minute), mobile),
		testsupport.NewEvent("buyer", events.EventCheckoutStart, base.Add(3*time.Minute), mobile),
		testsupport.NewEvent("buyer", events.EventWhatsAppRedirect, base.Add(4*time.Minute), mobile),
		testsupport.NewEvent("browser", events.EventSessionStart, base, desktop),
		testsupport.NewEvent("browser", events.EventProductView, base.Add(time.Minute), desktop),
		testsupport.NewEvent("bounce", events.EventSessionStart, base, mobile),
	)
	return app
}

func getReport(t *testing.T, app *fiber.App, target string, out any) int {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	req.Header.Set("Authorization", "Bearer "+testsupport.APIKey)
	resp, err := app.Test(req, 30000)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.StatusCode == http.StatusOK && out != nil {
		require.NoErrorf(t, json.Unmarshal(body, out), "body: %s", body)
	}
	return resp.StatusCode
}

func TestFunnelReport(t *testing.T) {
	app := reportsApp(t)

	var funnel analytics.Funnel
	require.Equal(t, http.StatusOK, getReport(t, app, "/api/v1/reports/funnel", &funnel))

	counts := make([]int, 0, len(funnel.Steps))
	for _, s := range funnel.Steps {
		counts = append(counts, s.Count)
	}
	assert.Equal(t, []int{3, 2, 1, 1, 1}, counts)
	assert.Equal(t, "Sessions", funnel.Steps[0].Label)
	assert.InDelta(t, 50.0, funnel.Steps[2].DropRate, 1e-9)

	require.NotNil(t, funnel.LargestDrop)
	assert.Equal(t, "Product View", funnel.LargestDrop.From)
	assert.Equal(t, "Add to Cart", funnel.LargestDrop.To)

	t.Run("device filter narrows the funnel", func(t *testing.T) {
		var desktopOnly analytics.Funnel
		require.Equal(t, http.StatusOK, getReport(t, app, "/api/v1/reports/funnel?device=desktop", &desktopOnly))
		assert.Equal(t, 1, desktopOnly.Steps[0].Count)
		assert.Equal(t, 1, desktopOnly.Steps[1].Count)
		assert.Zero(t, desktopOnly.Steps[2].Count)
	})
}

func TestSegmentsReport(t *testing.T) {
	app := reportsApp(t)

	var report struct {
		Devices               []analytics.Segment `json:"devices"`
		TrafficSources        []analytics.Segment `json:"traffic_sources"`
		MobileUnderperforming bool                `json:"mobile_underperforming"`
	}
	require.Equal(t, http.StatusOK, getReport(t, app, "/api/v1/reports/segments", &report))

	require.Len(t, report.Devices, 2)
	assert.Equal(t, analytics.Segment{
		Label: "Mobile", Sessions: 2, Conversions: 1, ConversionRate: 50, AbandonmentRate: 50,
	}, report.Devices[0])
	assert.Equal(t, "Desktop", report.Devices[1].Label)
	assert.Zero(t, report.Devices[1].Conversions)
	assert.False(t, report.MobileUnderperforming)

	require.Len(t, report.TrafficSources, 1)
	assert.Equal(t, 3, report.TrafficSources[0].Sessions)
}

func TestOverviewReport(t *testing.T) {
	app := reportsApp(t)

	var overview analytics.Overview
	require.Equal(t, http.StatusOK, getReport(t, app, "/api/v1/reports/overview?tz=America/Sao_Paulo", &overview))

	assert.Equal(t, 8, overview.EventCount)
	assert.False(t, overview.Truncated)
	assert.Equal(t, "America/Sao_Paulo", overview.Timezone)
	assert.Equal(t, 3, overview.KPIs.Sessions)
	assert.Equal(t, 2, overview.KPIs.ProductViews)
	assert.Equal(t, 1, overview.KPIs.AddToCart)
	assert.Equal(t, 1, overview.KPIs.WhatsAppRedirects)
	assert.Zero(t, overview.PreviousKPIs.Sessions)
	require.Len(t, overview.Funnel.Steps, 5)
}

func TestReportsRejectBadParameters(t *testing.T) {
	app := reportsApp(t)

	for _, target := range []string{
		"/api/v1/reports/overview?from=2025-13-01",
		"/api/v1/reports/funnel?tz=Mars/Olympus",
		"/api/v1/reports/segments?device=smartwatch",
		"/api/v1/reports/cart?top=0",
	} {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, getReport(t, app, target, nil))
		})
	}

	t.Run("requires the API key", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/reports/funnel", nil), 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
