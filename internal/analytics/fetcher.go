package analytics

import (
	"context"
	"fmt"
	"log/slog"

	"shopsignals/internal/events"
)

// Fetcher reads bounded event sets from the store for reporting.
type Fetcher struct {
	store   events.Store
	logger  *slog.Logger
	maxRows int
}

// NewFetcher creates a fetcher; maxRows is the store's row cap.
func NewFetcher(store events.Store, logger *slog.Logger, maxRows int) *Fetcher {
	return &Fetcher{store: store, logger: logger, maxRows: maxRows}
}

// Page is a fetched event set. Truncated is set when the store returned as
// many rows as its cap allows, so older events in the range were left out.
type Page struct {
	Events    []events.Event
	Truncated bool
}

// Fetch queries the store for the params' range, newest first, and applies
// the in-memory filters.
func (f *Fetcher) Fetch(ctx context.Context, params QueryParams) (Page, error) {
	filter := params.StoreFilter()
	limit := filter.EffectiveLimit(f.maxRows)

	evs, err := f.store.Query(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("error fetching events: %w", err)
	}
	page := Page{Truncated: len(evs) >= limit}

	if !params.Filters.Empty() {
		evs = FilterEvents(evs, params.Filters)
	}
	page.Events = evs

	if page.Truncated {
		f.logger.Warn("Event fetch hit the row cap, reports cover the newest events only",
			slog.Int("limit", limit),
			slog.Any("from", filter.From))
	}
	return page, nil
}

// GetEvents is Fetch without the truncation flag.
func (f *Fetcher) GetEvents(ctx context.Context, params QueryParams) ([]events.Event, error) {
	page, err := f.Fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	return page.Events, nil
}

// GetEventCounts counts fetched events per type.
func (f *Fetcher) GetEventCounts(ctx context.Context, params QueryParams) (map[events.EventType]int, error) {
	evs, err := f.GetEvents(ctx, params)
	if err != nil {
		return nil, err
	}
	return CountByType(evs), nil
}

// GetUniqueSessions counts distinct sessions among fetched events.
func (f *Fetcher) GetUniqueSessions(ctx context.Context, params QueryParams) (int, error) {
	evs, err := f.GetEvents(ctx, params)
	if err != nil {
		return 0, err
	}
	return UniqueSessions(evs), nil
}

// GetUniqueUsers counts distinct authenticated users among fetched events.
func (f *Fetcher) GetUniqueUsers(ctx context.Context, params QueryParams) (int, error) {
	evs, err := f.GetEvents(ctx, params)
	if err != nil {
		return 0, err
	}
	return UniqueUsers(evs), nil
}
