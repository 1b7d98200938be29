package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// proxyHeaders carry a single client address set by a reverse proxy or CDN.
var proxyHeaders = []string{
	"X-Real-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Client-IP",
}

// loopback is returned when the request carries no public address; the
// locator resolves it to no country.
const loopback = "127.0.0.1"

// getClientIP returns the shopper's public address for country lookup.
// Proxy headers are consulted before the socket address.
func getClientIP(c *fiber.Ctx) string {
	if ip := selectPreferredIP(strings.Split(c.Get(fiber.HeaderXForwardedFor), ",")); ip != "" {
		return ip
	}
	for _, header := range proxyHeaders {
		if ip := selectPreferredIP([]string{c.Get(header)}); ip != "" {
			return ip
		}
	}
	if forwarded := c.Get("Forwarded"); forwarded != "" {
		if ip := selectPreferredIP(parseForwardedHeader(forwarded)); ip != "" {
			return ip
		}
	}
	if ip := selectPreferredIP([]string{c.Context().RemoteAddr().String(), c.IP()}); ip != "" {
		return ip
	}
	return loopback
}

// selectPreferredIP picks the first public IPv4 address of values, falling
// back to the first public IPv6 one.
func selectPreferredIP(values []string) string {
	var v6 netip.Addr
	for _, raw := range values {
		addr, ok := normalizeIP(raw)
		if !ok || !isPublic(addr) {
			continue
		}
		if addr.Is4() {
			return addr.String()
		}
		if !v6.IsValid() {
			v6 = addr
		}
	}
	if v6.IsValid() {
		return v6.String()
	}
	return ""
}

// normalizeIP accepts a bare, quoted, bracketed or host:port address and
// returns it with the zone dropped and IPv4-mapped addresses unmapped.
func normalizeIP(raw string) (netip.Addr, bool) {
	clean := strings.Trim(strings.TrimSpace(raw), `"`)
	if clean == "" {
		return netip.Addr{}, false
	}

	if ap, err := netip.ParseAddrPort(clean); err == nil {
		return ap.Addr().WithZone("").Unmap(), true
	}
	if host, _, err := net.SplitHostPort(clean); err == nil {
		clean = host
	}
	clean = strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")

	addr, err := netip.ParseAddr(clean)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.WithZone("").Unmap(), true
}

// isPublic reports whether addr can be located: private, loopback,
// link-local and unspecified addresses cannot.
func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		!addr.IsUnspecified() &&
		!addr.IsPrivate() &&
		!addr.IsLoopback() &&
		!addr.IsLinkLocalUnicast()
}

// parseForwardedHeader returns the raw for= values of an RFC 7239 header.
func parseForwardedHeader(header string) []string {
	var candidates []string
	for _, entry := range strings.Split(header, ",") {
		for _, part := range strings.Split(entry, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
			if ok && strings.EqualFold(key, "for") {
				candidates = append(candidates, value)
			}
		}
	}
	return candidates
}

// generateETag creates a strong ETag for the rendered SDK.
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
