package v1

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browserOnlyApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/v1/track", BrowserOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})
	return app
}

func trackPayload(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(TrackParams{
		Type:     "page_view",
		PagePath: "/produtos",
		URL:      "https://loja.example.com/produtos",
	})
	require.NoError(t, err)
	return body
}

func TestBrowserOnly(t *testing.T) {
	app := browserOnlyApp()
	payload := trackPayload(t)

	tests := []struct {
		name           string
		secFetchSite   string
		expectedStatus int
	}{
		{name: "cross-site browser request", secFetchSite: "cross-site", expectedStatus: fiber.StatusAccepted},
		{name: "same-site browser request", secFetchSite: "same-site", expectedStatus: fiber.StatusAccepted},
		{name: "same-origin browser request", secFetchSite: "same-origin", expectedStatus: fiber.StatusAccepted},
		{name: "direct navigation", secFetchSite: "none", expectedStatus: fiber.StatusAccepted},
		{name: "missing header", secFetchSite: "", expectedStatus: fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/track", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", "Mozilla/5.0 (Test Browser)")
			if tt.secFetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.secFetchSite)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestBrowserOnlyBlocksScriptedClients(t *testing.T) {
	app := browserOnlyApp()
	payload := trackPayload(t)

	for _, agent := range []string{
		"curl/7.68.0",
		"PostmanRuntime/7.29.0",
		"python-requests/2.28.1",
		"node-fetch/1.0",
	} {
		t.Run(agent, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/track", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", agent)
			req.Header.Set("Origin", "https://loja.example.com")

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		})
	}
}
