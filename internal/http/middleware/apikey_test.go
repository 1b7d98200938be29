package middleware

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		configured string
		header     string
		want       int
	}{
		{name: "valid key", configured: "s3cret", header: "Bearer s3cret", want: fiber.StatusOK},
		{name: "missing header", configured: "s3cret", header: "", want: fiber.StatusUnauthorized},
		{name: "wrong scheme", configured: "s3cret", header: "Basic s3cret", want: fiber.StatusUnauthorized},
		{name: "empty key", configured: "s3cret", header: "Bearer ", want: fiber.StatusUnauthorized},
		{name: "wrong key", configured: "s3cret", header: "Bearer s3cre7", want: fiber.StatusUnauthorized},
		{name: "no key configured", configured: "", header: "Bearer anything", want: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/api/v1/events", APIKeyAuth(tt.configured, logger), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest("GET", "/api/v1/events", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
