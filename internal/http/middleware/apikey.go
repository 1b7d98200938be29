package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// APIKeyAuth validates the API key for the query and report endpoints.
// Expects: Authorization: Bearer <api_key>
func APIKeyAuth(apiKey string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid Authorization header format. Expected: Bearer <api_key>",
			})
		}

		providedKey := strings.TrimPrefix(authHeader, "Bearer ")
		if providedKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is empty",
			})
		}

		if apiKey == "" {
			logger.Warn("API key not configured, rejecting query request")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key not configured. Set SHOPSIGNALS_PRIVATE_KEY.",
			})
		}

		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			logger.Debug("Rejected request with invalid API key", slog.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		return c.Next()
	}
}
