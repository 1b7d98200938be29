package v1

import (
	"github.com/gofiber/fiber/v2"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"
)

// BrowserOnly rejects POSTs that were not issued by a browser page. Browsers
// always send Sec-Fetch-Site; curl and server-side scripts do not.
func BrowserOnly() fiber.Handler {
	secFetch := cartridgemiddleware.SecFetchSiteMiddleware(cartridgemiddleware.SecFetchSiteConfig{
		AllowedValues: []string{"cross-site", "same-site", "same-origin", "none"},
		Methods:       []string{fiber.MethodPost},
	})
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost && c.Get("Sec-Fetch-Site") == "" {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return secFetch(c)
	}
}
