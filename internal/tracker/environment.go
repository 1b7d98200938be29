package tracker

import (
	"context"

	"shopsignals/internal/events"
	"shopsignals/internal/pkg/referrers"
	ua "shopsignals/internal/pkg/user_agent"
	"shopsignals/internal/pkg/utm"
)

// Environment exposes the host's navigation state at the moment an event fires.
type Environment interface {
	PagePath() string
	Referrer() string
	UserAgent() string
	URL() string
}

// StaticEnvironment is a fixed Environment, used by server-side callers that
// already know the request context.
type StaticEnvironment struct {
	Path     string
	Ref      string
	Agent    string
	Location string
}

func (s StaticEnvironment) PagePath() string  { return s.Path }
func (s StaticEnvironment) Referrer() string  { return s.Ref }
func (s StaticEnvironment) UserAgent() string { return s.Agent }
func (s StaticEnvironment) URL() string       { return s.Location }

// Identity is the authenticated actor, when there is one.
type Identity struct {
	UserID    *string
	UserEmail *string
}

// IdentityResolver looks up the current actor. It must not fail: absence of
// an authenticated actor is an empty Identity.
type IdentityResolver interface {
	Identity(ctx context.Context) Identity
}

// IdentityFunc adapts a function to IdentityResolver.
type IdentityFunc func(ctx context.Context) Identity

func (f IdentityFunc) Identity(ctx context.Context) Identity { return f(ctx) }

// Anonymous resolves every caller to no identity.
var Anonymous IdentityResolver = IdentityFunc(func(context.Context) Identity { return Identity{} })

// Snapshot is the classified context attached to an event.
type Snapshot struct {
	PagePath   *string
	Referrer   *string
	DeviceType *string
	Browser    *string
	UTM        utm.Attribution
}

// Capture classifies env. It is evaluated per event because path and
// referrer change between events.
func Capture(env Environment) Snapshot {
	s := Snapshot{
		PagePath: events.StringPtr(env.PagePath()),
		UTM:      utm.Extract(env.URL()),
	}
	if domain, ok := referrers.ExtractDomain(env.Referrer()); ok {
		s.Referrer = events.StringPtr(domain)
	}
	agent := env.UserAgent()
	device := ua.ClassifyDevice(agent)
	browser := ua.ClassifyBrowser(agent)
	s.DeviceType = &device
	s.Browser = &browser
	return s
}
