package analytics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopsignals/internal/events"
	"shopsignals/internal/timeframe"
)

// QueryParams contains the common parameters for report queries.
type QueryParams struct {
	TimeFrame *timeframe.TimeFrame
	EventType *events.EventType
	Limit     int     // rows fetched from the store, capped by the store
	TopN      int     // entries kept in top-N lists
	Filters   Filters // applied in memory after the fetch
}

// NewQueryParams creates query params for the given time frame.
func NewQueryParams(timeFrame *timeframe.TimeFrame) QueryParams {
	// Ensure timeFrame is not nil to prevent panics
	if timeFrame == nil {
		now := time.Now().UTC()
		timeFrame = &timeframe.TimeFrame{
			From:       now.AddDate(0, 0, -timeframe.DefaultRangeDays),
			To:         now,
			BucketSize: timeframe.TimeFrameBucketSizeDay,
			Tz:         time.UTC,
		}
	}

	return QueryParams{
		TimeFrame: timeFrame,
		TopN:      10,
	}
}

// WithTimeFrame returns a copy of p over another time frame.
func (p QueryParams) WithTimeFrame(tf *timeframe.TimeFrame) QueryParams {
	p.TimeFrame = tf
	return p
}

// StoreFilter translates the params into the store's range predicates. A
// known device type is pushed down as an exact match; traffic source cannot
// be, because it is derived from the referrer.
func (p QueryParams) StoreFilter() events.Filter {
	f := events.Filter{
		EventType: p.EventType,
		Limit:     p.Limit,
	}
	if p.TimeFrame != nil {
		from, to := p.TimeFrame.From, p.TimeFrame.To
		f.From = &from
		f.To = &to
	}
	// Stored labels are exact, so only the canonical spelling is pushed down.
	if device, ok := CanonicalDevice(p.Filters.DeviceType); ok && device != UnknownSegment {
		f.DeviceType = &device
	}
	return f
}

// RequestQuery is the raw query string of a report or event listing request.
type RequestQuery struct {
	From      string
	To        string
	Tz        string
	EventType string
	Device    string
	Source    string
	Limit     string
	TopN      string
}

// Params validates q and resolves its time frame with parser.
func (q RequestQuery) Params(parser *timeframe.TimeFrameParser) (QueryParams, error) {
	tf, err := parser.ParseTimeFrame(timeframe.TimeFrameParserParams{
		FromDate: q.From,
		ToDate:   q.To,
		Tz:       q.Tz,
	})
	if err != nil {
		return QueryParams{}, err
	}
	params := NewQueryParams(tf)
	params.Filters = Filters{TrafficSource: strings.TrimSpace(q.Source)}
	if strings.TrimSpace(q.Device) != "" {
		device, ok := CanonicalDevice(q.Device)
		if !ok {
			return QueryParams{}, fmt.Errorf("invalid 'deviceType': must be one of %s", strings.Join(deviceSegments, ", "))
		}
		params.Filters.DeviceType = device
	}

	if q.EventType != "" {
		t, err := events.ParseEventType(q.EventType)
		if err != nil {
			return QueryParams{}, err
		}
		params.EventType = &t
	}
	if params.Limit, err = positiveInt("limit", q.Limit, 0); err != nil {
		return QueryParams{}, err
	}
	if params.TopN, err = positiveInt("top", q.TopN, params.TopN); err != nil {
		return QueryParams{}, err
	}
	return params, nil
}

func positiveInt(name, raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid '%s': must be a positive integer", name)
	}
	return n, nil
}
