package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/google/uuid"

	"shopsignals/internal/events"
	"shopsignals/internal/session"
	"shopsignals/internal/tracker"
)

const (
	seedQueueSize = 2048
	seedWorkers   = 2
)

// Seeder generates synthetic storefront sessions and delivers them through
// the tracker, so seeded data goes through the same validation and
// classification as live traffic.
type Seeder struct {
	Sink     tracker.Sink
	Logger   *slog.Logger
	Sessions int
	Days     int

	rng *rand.Rand
	now time.Time
}

// Result summarizes a seeding run.
type Result struct {
	Sessions     int
	Events       int64
	DeadLettered int64
}

// NewSeeder creates a seeder writing sessions to sink. seed makes runs
// reproducible.
func NewSeeder(sink tracker.Sink, logger *slog.Logger, sessions, days int, seed uint64) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if days <= 0 {
		days = 30
	}
	return &Seeder{
		Sink:     sink,
		Logger:   logger,
		Sessions: sessions,
		Days:     days,
		rng:      rand.New(rand.NewPCG(seed, seed^0x5eed)),
	}
}

// Run seeds s.Sessions sessions spread over the last s.Days days.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	s.Logger.Info("Seeding storefront sessions...", slog.Int("sessions", s.Sessions), slog.Int("days", s.Days))

	dispatcher := tracker.NewDispatcher(s.Sink, s.Logger, tracker.DispatcherConfig{
		QueueSize: seedQueueSize,
		Workers:   seedWorkers,
	})
	if err := dispatcher.Start(); err != nil {
		return Result{}, fmt.Errorf("failed to start dispatcher: %w", err)
	}
	tr := tracker.New(dispatcher, s.Logger, tracker.WithClock(s.clock))

	var runErr error
	seeded := 0
	for ; seeded < s.Sessions; seeded++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		s.waitForCapacity(ctx, dispatcher)
		s.seedSession(ctx, tr)
		if (seeded+1)%500 == 0 {
			s.Logger.Info("Seeding progress", slog.Int("sessions", seeded+1))
		}
	}

	dispatcher.Stop()
	stats := dispatcher.Stats()
	res := Result{Sessions: seeded, Events: stats.Delivered, DeadLettered: stats.DeadLettered}

	s.Logger.Info("Seeding completed",
		slog.Int("sessions", res.Sessions),
		slog.Int64("events", res.Events),
		slog.Int64("dead_lettered", res.DeadLettered),
		slog.Duration("elapsed", time.Since(start)))
	return res, runErr
}

func (s *Seeder) clock() time.Time {
	return s.now
}

// waitForCapacity keeps the queue below half full so seeding never drops
// events for lack of room.
func (s *Seeder) waitForCapacity(ctx context.Context, d *tracker.Dispatcher) {
	for d.Stats().Pending > seedQueueSize/2 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// browsingEnv is the mutable navigation state of one synthetic visitor.
type browsingEnv struct {
	path, ref, agent, location string
}

func (b *browsingEnv) PagePath() string  { return b.path }
func (b *browsingEnv) Referrer() string  { return b.ref }
func (b *browsingEnv) UserAgent() string { return b.agent }
func (b *browsingEnv) URL() string       { return b.location }

func (b *browsingEnv) visit(base, path string, query url.Values) {
	b.path = path
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	b.location = u
}

func (s *Seeder) seedSession(ctx context.Context, tr *tracker.Tracker) {
	// Sessions last well under an hour; starting an hour back keeps every
	// event in the past.
	s.now = time.Now().UTC().
		Add(-time.Hour - time.Duration(s.rng.IntN(s.Days*24*60*60))*time.Second).
		Truncate(time.Second)

	src := sources[s.rng.IntN(len(sources))]
	env := &browsingEnv{ref: src.referrer, agent: userAgents[s.rng.IntN(len(userAgents))]}
	env.visit(storeURL, landingPages[s.rng.IntN(len(landingPages))], src.utm())

	identity := tracker.Anonymous
	if s.chance(0.25) {
		n := s.rng.IntN(500)
		id := tracker.Identity{
			UserID:    events.StringPtr(fmt.Sprintf("cliente-%03d", n)),
			UserEmail: events.StringPtr(fmt.Sprintf("cliente%03d@example.com", n)),
		}
		identity = tracker.IdentityFunc(func(context.Context) tracker.Identity { return id })
	}

	sess := session.NewProvider(session.NewMemoryStorage(), session.WithClock(s.clock))
	em := tr.For(sess, env, identity).WithCountry(countries[s.rng.IntN(len(countries))])

	em.TrackSessionStart(ctx)
	em.TrackPageView(ctx, "", "")
	// Attribution applies to the landing page only.
	env.location = storeURL + env.path

	cart := &tracker.Cart{}
	var inCart []product
	for i, views := 0, 1+s.rng.IntN(4); i < views; i++ {
		p := catalog[s.rng.IntN(len(catalog))]
		s.advance(20, 90)
		env.visit(storeURL, "/produto/"+p.id, nil)
		em.TrackProductView(ctx, p.ref(), p.category)

		if s.chance(0.35) {
			qty := 1 + s.rng.IntN(2)
			cart.Size += qty
			cart.Value += p.price * float64(qty)
			inCart = append(inCart, p)
			s.advance(5, 30)
			em.TrackAddToCart(ctx, p.ref(), qty, cart)
		}
	}
	if len(inCart) == 0 {
		return
	}

	if len(inCart) > 1 && s.chance(0.2) {
		p := inCart[len(inCart)-1]
		cart.Size--
		cart.Value -= p.price
		s.advance(5, 20)
		em.TrackRemoveFromCart(ctx, p.ref(), 1, cart)
	}

	s.advance(10, 60)
	env.visit(storeURL, "/carrinho", nil)
	em.TrackViewCart(ctx, cart)
	if !s.chance(0.7) {
		return
	}

	s.advance(5, 30)
	env.visit(storeURL, "/checkout", nil)
	em.TrackCheckoutFormOpen(ctx, cart)
	opened := s.now

	if s.chance(0.3) {
		fe := formErrors[s.rng.IntN(len(formErrors))]
		s.advance(10, 40)
		em.TrackCheckoutFormError(ctx, fe.kind, fe.field, fe.message)
	}

	if s.chance(0.35) {
		filled := checkoutFields[:s.rng.IntN(len(checkoutFields))]
		s.advance(15, 120)
		spent := s.now.Sub(opened)
		em.TrackCheckoutFormAbandon(ctx, filled, &spent)
		return
	}

	s.advance(30, 180)
	em.TrackCheckoutStart(ctx, cart)
	s.advance(2, 10)
	em.TrackCheckoutSuccess(ctx, uuid.NewString(), cart.Value, cart)
	if s.chance(0.8) {
		s.advance(1, 5)
		em.TrackWhatsAppRedirect(ctx, cart)
	}
}

func (s *Seeder) chance(p float64) bool {
	return s.rng.Float64() < p
}

// advance moves the session clock forward by a random number of seconds in
// [lo, hi).
func (s *Seeder) advance(lo, hi int) {
	s.now = s.now.Add(time.Duration(lo+s.rng.IntN(hi-lo)) * time.Second)
}
