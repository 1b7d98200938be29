package v1

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"shopsignals/internal/pkg/referrers"
	"shopsignals/internal/session"
	"shopsignals/internal/tracker"
)

// SessionInfo reports the context the pipeline would attach to the caller's
// next event. It mints the session cookie when there is none yet.
func (h *Handler) SessionInfo(ctx *cartridge.Context) error {
	sess := session.NewProvider(session.NewCookieStorage(ctx.Ctx, h.p.Config.SessionCookieName, h.p.Config.IsProduction()))
	userAgent := requestUserAgent(ctx)
	snap := tracker.Capture(tracker.StaticEnvironment{
		Path:     ctx.Query("path"),
		Ref:      ctx.Get("Referer"),
		Agent:    userAgent,
		Location: ctx.Query("url"),
	})

	var country *string
	if code := h.p.Locator.CountryCode(getClientIP(ctx.Ctx)); code != "" {
		country = &code
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"sessionId":     sess.SessionID(),
		"started":       sess.Started(),
		"deviceType":    snap.DeviceType,
		"browser":       snap.Browser,
		"country":       country,
		"referrer":      snap.Referrer,
		"trafficSource": referrers.TrafficSource(ctx.Get("Referer")),
		"utm":           snap.UTM,
		"generatedAt":   time.Now().UTC().Format(time.RFC3339),
	})
}
