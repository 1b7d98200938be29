package v1

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"

	"shopsignals/internal/analytics"
	"shopsignals/internal/events"
	"shopsignals/internal/jobs"
	"shopsignals/internal/pipeline"
	ua "shopsignals/internal/pkg/user_agent"
	"shopsignals/internal/session"
	"shopsignals/internal/tracker"
)

const (
	msgEventAccepted  = "Event accepted"
	msgEventIgnored   = "Event ignored"
	msgEventStored    = "Event stored"
	errInvalidRequest = "Invalid request"
)

// Handler serves the ingestion and query API on top of a pipeline.
type Handler struct {
	p *pipeline.Pipeline
}

func NewHandler(p *pipeline.Pipeline) *Handler {
	return &Handler{p: p}
}

// TrackProduct is the product reference of a track request.
type TrackProduct struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

// TrackParams is the minimal payload a storefront page posts.
type TrackParams struct {
	Type      string          `json:"type"`
	Category  string          `json:"category"`
	PagePath  string          `json:"page_path"`
	URL       string          `json:"url"`
	Referrer  string          `json:"referrer"`
	UserID    string          `json:"user_id"`
	UserEmail string          `json:"user_email"`
	Product   *TrackProduct   `json:"product"`
	Metadata  json.RawMessage `json:"metadata"`
}

// Track records a storefront interaction for the caller's session. The session
// lives in cookies; the first event of a session is preceded by session_start.
func (h *Handler) Track(ctx *cartridge.Context) error {
	var params TrackParams
	if err := ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse track request", slog.Any("error", err))
		return errorJSON(ctx, http.StatusBadRequest, errInvalidRequest)
	}

	userAgent := requestUserAgent(ctx)
	if ua.IsBot(userAgent) {
		ctx.Logger.Debug("Ignoring bot traffic", slog.String("userAgent", userAgent))
		return ctx.Status(http.StatusAccepted).JSON(fiber.Map{"message": msgEventIgnored})
	}

	input, err := params.input()
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !isEventShapeError(err) {
			status = http.StatusBadRequest
		}
		return errorJSON(ctx, status, err.Error())
	}

	sess := session.NewProvider(session.NewCookieStorage(ctx.Ctx, h.p.Config.SessionCookieName, h.p.Config.IsProduction()))
	emitter := h.p.Tracker.For(sess, h.environment(ctx, params, userAgent), identityOf(params))
	if country := h.p.Locator.CountryCode(getClientIP(ctx.Ctx)); country != "" {
		emitter = emitter.WithCountry(country)
	}

	reqCtx := ctx.UserContext()
	if input.Type == events.EventSessionStart {
		out := emitter.TrackSessionStart(reqCtx)
		return trackResponse(ctx, emitter, out)
	}
	if !sess.Started() {
		emitter.TrackSessionStart(reqCtx)
	}

	out := emitter.TrackEvent(reqCtx, input)
	if out.Err != nil {
		status := http.StatusInternalServerError
		if isEventShapeError(out.Err) {
			status = http.StatusUnprocessableEntity
		}
		return errorJSON(ctx, status, out.Err.Error())
	}
	return trackResponse(ctx, emitter, out)
}

func (p TrackParams) input() (tracker.Input, error) {
	t, err := events.ParseEventType(p.Type)
	if err != nil {
		return tracker.Input{}, err
	}
	in := tracker.Input{
		Type:     t,
		Category: events.Category(strings.TrimSpace(p.Category)),
		PagePath: p.PagePath,
	}
	if _, err := events.ResolveCategory(in.Type, in.Category); err != nil {
		return tracker.Input{}, err
	}
	if p.Product != nil && p.Product.ID != "" {
		in.Product = &tracker.Product{ID: p.Product.ID, Name: p.Product.Name, Price: p.Product.Price}
	}
	if len(p.Metadata) > 0 && string(p.Metadata) != "null" {
		payload, err := events.DecodePayload(t, []byte(p.Metadata))
		if err != nil {
			return tracker.Input{}, err
		}
		in.Payload = payload
	}
	return in, nil
}

func (h *Handler) environment(ctx *cartridge.Context, params TrackParams, userAgent string) tracker.StaticEnvironment {
	ref := params.Referrer
	if ref == "" {
		ref = ctx.Get("Referer")
	}
	return tracker.StaticEnvironment{
		Path:     params.PagePath,
		Ref:      ref,
		Agent:    userAgent,
		Location: params.URL,
	}
}

func identityOf(params TrackParams) tracker.IdentityResolver {
	id := tracker.Identity{
		UserID:    events.StringPtr(strings.TrimSpace(params.UserID)),
		UserEmail: events.StringPtr(strings.TrimSpace(params.UserEmail)),
	}
	return tracker.IdentityFunc(func(_ context.Context) tracker.Identity { return id })
}

func trackResponse(ctx *cartridge.Context, emitter *tracker.Emitter, out tracker.Outcome) error {
	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message":    msgEventAccepted,
		"session_id": emitter.SessionID(),
		"queued":     out.Queued,
		"skipped":    out.Skipped,
	})
}

// CreateEvent stores one event in the full wire shape synchronously. It is
// the endpoint HTTPSink delivers to.
func (h *Handler) CreateEvent(ctx *cartridge.Context) error {
	var ev events.Event
	if err := json.Unmarshal(ctx.Body(), &ev); err != nil {
		return errorJSON(ctx, http.StatusBadRequest, errInvalidRequest)
	}
	ev.ID = 0

	if err := h.p.Store.Insert(ctx.UserContext(), &ev); err != nil {
		var invalid events.ValidationErrors
		if errors.As(err, &invalid) {
			return ctx.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Invalid event",
				"fields": invalid,
			})
		}
		ctx.Logger.Error("Failed to store event", slog.Any("error", err))
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to store event")
	}

	return ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"message": msgEventStored,
		"id":      ev.ID,
	})
}

// ListEvents returns the events of a range, newest first.
func (h *Handler) ListEvents(ctx *cartridge.Context) error {
	params, ok := h.queryParams(ctx)
	if !ok {
		return nil
	}
	page, err := h.p.Fetcher.Fetch(ctx.UserContext(), params)
	if err != nil {
		return h.fetchFailed(ctx, err)
	}
	return ctx.JSON(fiber.Map{
		"events":    page.Events,
		"count":     len(page.Events),
		"truncated": page.Truncated,
	})
}

// EventCounts returns event totals per type.
func (h *Handler) EventCounts(ctx *cartridge.Context) error {
	params, ok := h.queryParams(ctx)
	if !ok {
		return nil
	}
	counts, err := h.p.Fetcher.GetEventCounts(ctx.UserContext(), params)
	if err != nil {
		return h.fetchFailed(ctx, err)
	}
	return ctx.JSON(fiber.Map{"counts": counts})
}

func (h *Handler) SessionCount(ctx *cartridge.Context) error {
	params, ok := h.queryParams(ctx)
	if !ok {
		return nil
	}
	n, err := h.p.Fetcher.GetUniqueSessions(ctx.UserContext(), params)
	if err != nil {
		return h.fetchFailed(ctx, err)
	}
	return ctx.JSON(fiber.Map{"count": n})
}

func (h *Handler) UserCount(ctx *cartridge.Context) error {
	params, ok := h.queryParams(ctx)
	if !ok {
		return nil
	}
	n, err := h.p.Fetcher.GetUniqueUsers(ctx.UserContext(), params)
	if err != nil {
		return h.fetchFailed(ctx, err)
	}
	return ctx.JSON(fiber.Map{"count": n})
}

// DeadLetters returns the retained undeliverable events and dispatcher counters.
func (h *Handler) DeadLetters(ctx *cartridge.Context) error {
	log := h.p.Dispatcher.DeadLetters()
	letters := log.Snapshot()
	return ctx.JSON(fiber.Map{
		"stats":        h.p.Dispatcher.Stats(),
		"capacity":     log.Capacity(),
		"total":        log.Total(),
		"reasons":      jobs.CountReasons(letters),
		"dead_letters": letters,
	})
}

// PurgeCache drops cached reports, in memory and in the database.
func (h *Handler) PurgeCache(ctx *cartridge.Context) error {
	h.p.Reporter.ClearCache()

	rowsAffected, err := cache.PurgeAllCaches(ctx.DBManager.GetConnection())
	if err != nil {
		ctx.Logger.Error("Failed to clear generic_cache", slog.Any("error", err))
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to clear caches")
	}

	ctx.Logger.Info("Caches purged successfully", slog.Int64("rows_deleted", rowsAffected))
	return ctx.JSON(fiber.Map{
		"message":      "Caches purged",
		"rows_deleted": rowsAffected,
	})
}

// queryParams parses the listing query string. On failure the 400 response is
// already written.
func (h *Handler) queryParams(ctx *cartridge.Context) (analytics.QueryParams, bool) {
	q := analytics.RequestQuery{
		From:      ctx.Query("startDate"),
		To:        ctx.Query("endDate"),
		Tz:        ctx.Query("tz"),
		EventType: ctx.Query("eventType"),
		Device:    ctx.Query("deviceType"),
		Source:    ctx.Query("source"),
		Limit:     ctx.Query("limit"),
	}
	params, err := q.Params(h.p.Parser)
	if err != nil {
		errorJSON(ctx, http.StatusBadRequest, err.Error())
		return analytics.QueryParams{}, false
	}
	return params, true
}

func (h *Handler) fetchFailed(ctx *cartridge.Context, err error) error {
	ctx.Logger.Error("Failed to query events", slog.Any("error", err))
	return errorJSON(ctx, http.StatusInternalServerError, "Failed to query events")
}

func isEventShapeError(err error) bool {
	return errors.Is(err, events.ErrUnknownEventType) ||
		errors.Is(err, events.ErrUnknownCategory) ||
		errors.Is(err, events.ErrCategoryMismatch) ||
		errors.Is(err, tracker.ErrPayloadMismatch)
}

func requestUserAgent(ctx *cartridge.Context) string {
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		return forwardedUA
	}
	return ctx.Get("User-Agent")
}

func errorJSON(ctx *cartridge.Context, status int, msg string) error {
	return ctx.Status(status).JSON(fiber.Map{"error": msg})
}
