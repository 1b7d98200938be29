package v1

import (
	"bytes"
	_ "embed"
	"log/slog"
	"text/template"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

//go:embed sdk.js
var sdkSource string

var sdkTemplate = template.Must(template.New("sdk.js").Parse(sdkSource))

// SDK serves the storefront snippet that posts interactions to /api/v1/track.
// It is rendered with the server's base URL and cached by ETag.
func (h *Handler) SDK(ctx *cartridge.Context) error {
	var buf bytes.Buffer
	if err := sdkTemplate.Execute(&buf, map[string]string{"BaseURL": ctx.BaseURL()}); err != nil {
		ctx.Logger.Error("Failed to render SDK template", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	content := buf.Bytes()
	etag := generateETag(content)
	if ctx.Get("If-None-Match") == etag {
		return ctx.Status(fiber.StatusNotModified).Send(nil)
	}

	ctx.Set("Content-Type", "application/javascript")
	ctx.Set("Cache-Control", "public, max-age=3600")
	ctx.Set("ETag", etag)
	ctx.Set("Cross-Origin-Resource-Policy", "cross-origin")
	return ctx.Send(content)
}
