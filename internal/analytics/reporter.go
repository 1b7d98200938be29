package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/cache"

	"shopsignals/internal/events"
	"shopsignals/internal/pkg/async"
	"shopsignals/internal/timeframe"
)

const (
	currentPeriod  = "current"
	previousPeriod = "previous"
)

// overviewTimeout bounds a cached overview computation, which runs detached
// from the request that triggered it.
const overviewTimeout = 30 * time.Second

// Reporter fetches event sets for report requests and caches overviews.
type Reporter struct {
	fetcher  *Fetcher
	pool     *async.Pool
	logger   *slog.Logger
	overview *cache.Cache[string, Overview]
}

// NewReporter creates a reporter. A ttl <= 0 disables the overview cache.
func NewReporter(fetcher *Fetcher, logger *slog.Logger, ttl time.Duration) *Reporter {
	r := &Reporter{
		fetcher: fetcher,
		pool:    async.NewPool(2),
		logger:  logger,
	}
	if ttl > 0 {
		r.overview = cache.NewCache[string, Overview](logger, ttl, r.loadOverview)
	}
	return r
}

// Events fetches the filtered events of the params' period.
func (r *Reporter) Events(ctx context.Context, params QueryParams) ([]events.Event, error) {
	return r.fetcher.GetEvents(ctx, params)
}

// Periods fetches the period and the one before it concurrently.
func (r *Reporter) Periods(ctx context.Context, params QueryParams) (Page, Page, error) {
	previous := params.WithTimeFrame(params.TimeFrame.PreviousPeriod())

	results := r.pool.Execute(ctx, []async.Task{
		{Name: currentPeriod, Execute: func(ctx context.Context) (any, error) {
			return r.fetcher.Fetch(ctx, params)
		}},
		{Name: previousPeriod, Execute: func(ctx context.Context) (any, error) {
			return r.fetcher.Fetch(ctx, previous)
		}},
	})

	current, err := pageResult(results, currentPeriod)
	if err != nil {
		return Page{}, Page{}, err
	}
	prev, err := pageResult(results, previousPeriod)
	if err != nil {
		return Page{}, Page{}, err
	}
	return current, prev, nil
}

// Overview returns the dashboard for params, from cache when possible.
func (r *Reporter) Overview(ctx context.Context, params QueryParams) (Overview, error) {
	if r.overview == nil {
		return r.buildOverview(ctx, params)
	}
	key, err := encodeReportKey(params)
	if err != nil {
		return Overview{}, err
	}
	return r.overview.Get(key)
}

// ClearCache drops every cached overview.
func (r *Reporter) ClearCache() {
	if r.overview != nil {
		r.overview.Clear()
	}
}

func (r *Reporter) buildOverview(ctx context.Context, params QueryParams) (Overview, error) {
	current, previous, err := r.Periods(ctx, params)
	if err != nil {
		return Overview{}, err
	}
	overview := BuildOverview(current.Events, previous.Events, params.TimeFrame, params.Filters, params.TopN)
	overview.Truncated = current.Truncated
	return overview, nil
}

func (r *Reporter) loadOverview(key string) (Overview, error) {
	params, err := decodeReportKey(key)
	if err != nil {
		return Overview{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), overviewTimeout)
	defer cancel()

	r.logger.Debug("Computing overview", slog.String("key", key))
	return r.buildOverview(ctx, params)
}

func pageResult(results map[string]async.Result, name string) (Page, error) {
	res, ok := results[name]
	if !ok {
		return Page{}, fmt.Errorf("%s period was not fetched", name)
	}
	if res.Err != nil {
		return Page{}, fmt.Errorf("%s period: %w", name, res.Err)
	}
	page, _ := res.Data.(Page)
	return page, nil
}

// reportKey is the cache identity of an overview request.
type reportKey struct {
	From     time.Time                     `json:"from"`
	To       time.Time                     `json:"to"`
	Bucket   timeframe.TimeFrameBucketSize `json:"bucket"`
	Timezone string                        `json:"tz"`
	Filters  Filters                       `json:"filters"`
	Limit    int                           `json:"limit"`
	TopN     int                           `json:"top_n"`
}

func encodeReportKey(p QueryParams) (string, error) {
	tf := p.TimeFrame
	b, err := json.Marshal(reportKey{
		From:     tf.From.UTC(),
		To:       tf.To.UTC(),
		Bucket:   tf.BucketSize,
		Timezone: tf.Tz.String(),
		Filters:  p.Filters,
		Limit:    p.Limit,
		TopN:     p.TopN,
	})
	if err != nil {
		return "", fmt.Errorf("encoding report key: %w", err)
	}
	return string(b), nil
}

func decodeReportKey(key string) (QueryParams, error) {
	var k reportKey
	if err := json.Unmarshal([]byte(key), &k); err != nil {
		return QueryParams{}, fmt.Errorf("decoding report key: %w", err)
	}
	loc, err := time.LoadLocation(k.Timezone)
	if err != nil {
		return QueryParams{}, fmt.Errorf("decoding report key: %w", err)
	}
	tf, err := timeframe.NewTimeFrame(k.From, k.To, k.Bucket, loc)
	if err != nil {
		return QueryParams{}, err
	}
	params := NewQueryParams(tf)
	params.Filters = k.Filters
	params.Limit = k.Limit
	params.TopN = k.TopN
	return params, nil
}
