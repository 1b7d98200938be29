package timeframe

import (
	"fmt"
	"time"
)

// TimeWindowBuffer extends ranges that end "now" so events written a moment
// after the request, or stamped by a slightly skewed clock, are included.
const TimeWindowBuffer = 5 * time.Minute

// DefaultRangeDays is the lookback used when no from date is given.
const DefaultRangeDays = 30

type TimeFrameParserParams struct {
	FromDate string
	ToDate   string
	Tz       string
}

type TimeFrameParser struct {
	timeProvider TimeProvider
}

func NewTimeFrameParser(timeProvider ...TimeProvider) *TimeFrameParser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}

	return &TimeFrameParser{
		timeProvider: provider,
	}
}

// ParseTimeFrame reads YYYY-MM-DD dates in the Tz timezone (UTC when empty).
// A missing from date means DefaultRangeDays ago; a missing to date means now.
func (p *TimeFrameParser) ParseTimeFrame(params TimeFrameParserParams) (*TimeFrame, error) {
	tz := params.Tz
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone: %w", err)
	}

	now := p.timeProvider.Now(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	from, err := p.parseDateWithDefault(params.FromDate, today.AddDate(0, 0, -DefaultRangeDays), now, loc, false)
	if err != nil {
		return nil, fmt.Errorf("invalid 'from' date: %w", err)
	}

	to, err := p.parseDateWithDefault(params.ToDate, now, now, loc, true)
	if err != nil {
		return nil, fmt.Errorf("invalid 'to' date: %w", err)
	}

	if from.After(to) {
		return nil, fmt.Errorf("'from' date %s is after 'to' date %s", params.FromDate, params.ToDate)
	}

	return NewAutoTimeFrameFromClientTimezone(from, to, loc)
}

func (p *TimeFrameParser) parseDateWithDefault(dateStr string, defaultDate, now time.Time, loc *time.Location, isEndDate bool) (time.Time, error) {
	if dateStr == "" {
		return defaultDate, nil
	}

	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, err
	}

	if !isEndDate {
		return date, nil
	}

	endOfDay := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 999999999, loc)
	if endOfDay.After(now) {
		// Ongoing day: stop at now plus the buffer, never past the requested date.
		buffered := now.Add(TimeWindowBuffer)
		if buffered.After(endOfDay) {
			return endOfDay, nil
		}
		return buffered, nil
	}
	return endOfDay, nil
}
