package session

import (
	"github.com/gofiber/fiber/v2"
)

// CookieStorage persists session values in browser-session cookies (no
// expiry, so they die with the browsing session). Values written during the
// current request are read back from request locals.
type CookieStorage struct {
	c      *fiber.Ctx
	prefix string
	secure bool
}

// NewCookieStorage binds storage to a single request. Cookie names are
// prefix + "_" + key.
func NewCookieStorage(c *fiber.Ctx, prefix string, secure bool) *CookieStorage {
	return &CookieStorage{c: c, prefix: prefix, secure: secure}
}

func (s *CookieStorage) name(key string) string {
	return s.prefix + "_" + key
}

func (s *CookieStorage) Get(key string) (string, bool) {
	name := s.name(key)
	if v, ok := s.c.Locals(name).(string); ok {
		return v, true
	}
	v := s.c.Cookies(name)
	if v == "" {
		return "", false
	}
	return v, true
}

func (s *CookieStorage) Set(key, value string) {
	name := s.name(key)
	s.c.Locals(name, value)
	s.c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
