// Package tracker is the instrumentation API: it turns typed storefront
// interactions into enriched events and hands them to the dispatcher without
// ever blocking or failing the caller.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shopsignals/internal/events"
	"shopsignals/internal/session"
)

// ErrPayloadMismatch is returned when a payload variant does not belong to the
// event type it is attached to.
var ErrPayloadMismatch = errors.New("payload does not match event type")

// Tracker owns delivery. Per browsing context emitters are created with For.
type Tracker struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the timestamp source for created_at.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a Tracker delivering through dispatcher.
func New(dispatcher *Dispatcher, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{dispatcher: dispatcher, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Dispatcher returns the underlying dispatcher.
func (t *Tracker) Dispatcher() *Dispatcher {
	return t.dispatcher
}

// For binds the tracker to one browsing context.
func (t *Tracker) For(sess *session.Provider, env Environment, identity IdentityResolver) *Emitter {
	if identity == nil {
		identity = Anonymous
	}
	if env == nil {
		env = StaticEnvironment{}
	}
	return &Emitter{tracker: t, session: sess, env: env, identity: identity}
}

// Product identifies the product an event is about.
type Product struct {
	ID    string
	Name  string
	Price *float64
}

// Input is the minimal payload a call site provides.
type Input struct {
	Type     events.EventType
	Category events.Category // optional; must agree with Type when set
	PagePath string          // defaults to the environment's current path
	Product  *Product
	Payload  events.Payload
}

// Outcome reports what happened to a tracking call. Callers are free to
// ignore it.
type Outcome struct {
	Event   events.Event
	Queued  bool
	Skipped bool
	Err     error
}

// Emitter emits events for a single browsing context.
type Emitter struct {
	tracker  *Tracker
	session  *session.Provider
	env      Environment
	identity IdentityResolver
	country  *string
}

// WithCountry attaches a resolved country code to every event of the emitter.
func (e *Emitter) WithCountry(code string) *Emitter {
	cp := *e
	cp.country = events.StringPtr(code)
	return &cp
}

// SessionID exposes the bound session's identifier.
func (e *Emitter) SessionID() string {
	return e.session.SessionID()
}

// Build assembles the full event for in without dispatching it.
func (e *Emitter) Build(ctx context.Context, in Input) (events.Event, error) {
	category, err := events.ResolveCategory(in.Type, in.Category)
	if err != nil {
		return events.Event{}, err
	}
	if in.Payload != nil && !events.PayloadMatches(in.Type, in.Payload) {
		return events.Event{}, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, in.Payload, in.Type)
	}
	metadata, err := events.EncodePayload(in.Payload)
	if err != nil {
		return events.Event{}, err
	}

	id := e.resolveIdentity(ctx)
	snap := Capture(e.env)

	ev := events.Event{
		SessionID:     e.session.SessionID(),
		UserID:        events.StringPtr(events.Deref(id.UserID)),
		UserEmail:     events.StringPtr(events.Deref(id.UserEmail)),
		EventType:     in.Type,
		EventCategory: category,
		PagePath:      snap.PagePath,
		Referrer:      snap.Referrer,
		UTMSource:     snap.UTM.Source,
		UTMMedium:     snap.UTM.Medium,
		UTMCampaign:   snap.UTM.Campaign,
		DeviceType:    snap.DeviceType,
		Browser:       snap.Browser,
		Country:       e.country,
		Metadata:      metadata,
		CreatedAt:     e.tracker.now().UTC(),
	}
	if p := events.StringPtr(in.PagePath); p != nil {
		ev.PagePath = p
	}
	if in.Product != nil {
		ev.ProductID = events.StringPtr(in.Product.ID)
		ev.ProductName = events.StringPtr(in.Product.Name)
		ev.ProductPrice = in.Product.Price
	}
	return ev, nil
}

// TrackEvent builds and dispatches an event. It never blocks on the store and
// never panics into the caller.
func (e *Emitter) TrackEvent(ctx context.Context, in Input) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.tracker.logger.Error("Panic recovered while tracking event",
				slog.String("event_type", string(in.Type)),
				slog.Any("panic", r))
			out = Outcome{Err: fmt.Errorf("tracking panic: %v", r)}
		}
	}()

	ev, err := e.Build(ctx, in)
	if err != nil {
		e.tracker.logger.Warn("Tracking event rejected",
			slog.String("event_type", string(in.Type)),
			slog.Any("error", err))
		return Outcome{Err: err}
	}
	return Outcome{Event: ev, Queued: e.tracker.dispatcher.Enqueue(ev)}
}

func (e *Emitter) resolveIdentity(ctx context.Context) (id Identity) {
	defer func() {
		if r := recover(); r != nil {
			e.tracker.logger.Warn("Identity lookup failed", slog.Any("panic", r))
			id = Identity{}
		}
	}()
	return e.identity.Identity(ctx)
}
