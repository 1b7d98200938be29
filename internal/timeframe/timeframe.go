// Package timeframe turns report date ranges into UTC bounds and time buckets
// in the viewer's timezone.
package timeframe

import (
	"fmt"
	"time"
)

type DateStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type TimeFrameBucketSize string

const (
	TimeFrameBucketSizeYear  TimeFrameBucketSize = "year"
	TimeFrameBucketSizeMonth TimeFrameBucketSize = "month"
	TimeFrameBucketSizeWeek  TimeFrameBucketSize = "week"
	TimeFrameBucketSizeDay   TimeFrameBucketSize = "day"
	TimeFrameBucketSizeHour  TimeFrameBucketSize = "hour"
)

// maxPoints bounds bucket generation for very long ranges.
const maxPoints = 1000

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// TimeFrame is an inclusive period between two instants, stored in UTC, with
// the bucket size used to chart it and the viewer's timezone.
type TimeFrame struct {
	From       time.Time
	To         time.Time
	BucketSize TimeFrameBucketSize
	Tz         *time.Location
}

// DatePoint is one bucket of a time series. Key matches BucketKey for events
// falling into the bucket; Label is what clients display.
type DatePoint struct {
	Key   string
	Label string
}

func NewTimeFrame(from, to time.Time, bucket TimeFrameBucketSize, tz *time.Location) (*TimeFrame, error) {
	if from.After(to) {
		return nil, fmt.Errorf("fromTime must be before toTime")
	}
	if tz == nil {
		tz = time.UTC
	}
	return &TimeFrame{
		From:       from.UTC(),
		To:         to.UTC(),
		BucketSize: bucket,
		Tz:         tz,
	}, nil
}

// NewAutoTimeFrameFromClientTimezone picks a bucket size for the range and
// extends To to the end of its bucket in the client's timezone.
func NewAutoTimeFrameFromClientTimezone(fromTime, toTime time.Time, tz *time.Location) (*TimeFrame, error) {
	if tz == nil {
		tz = time.UTC
	}
	bucket := GetAppropriateBucketSize(fromTime, toTime)

	// Truncating in UTC would cross the client's day boundaries.
	end := TruncateToBucketInTimezone(toTime, bucket, tz)
	end = advance(end, bucket).Add(-time.Second)

	return NewTimeFrame(fromTime, end, bucket, tz)
}

func GetAppropriateBucketSize(fromTime, toTime time.Time) TimeFrameBucketSize {
	days := toTime.Sub(fromTime).Hours() / 24

	switch {
	case days >= 5*365:
		return TimeFrameBucketSizeYear
	case days >= 3*30:
		return TimeFrameBucketSizeMonth
	case days >= 2:
		return TimeFrameBucketSizeDay
	default:
		return TimeFrameBucketSizeHour
	}
}

func (tf *TimeFrame) Duration() time.Duration {
	return tf.To.Sub(tf.From)
}

// Contains reports whether t falls inside the frame, bounds included.
func (tf *TimeFrame) Contains(t time.Time) bool {
	return !t.Before(tf.From) && !t.After(tf.To)
}

// PreviousPeriod is the frame of equal length ending right before From. KPI
// comparisons run against it.
func (tf *TimeFrame) PreviousPeriod() *TimeFrame {
	to := tf.From.Add(-time.Nanosecond)
	return &TimeFrame{
		From:       to.Add(-tf.Duration()),
		To:         to,
		BucketSize: tf.BucketSize,
		Tz:         tf.Tz,
	}
}

// BucketKey returns the key of the bucket t falls into.
func (tf *TimeFrame) BucketKey(t time.Time) string {
	start := TruncateToBucketInTimezone(t, tf.BucketSize, tf.location())
	return start.Format(keyLayout(tf.BucketSize))
}

// GenerateDateTimePoints lists every bucket of the frame in order.
//
// Day and larger buckets are labelled with midnight UTC of the local date so
// that "Dec 1" renders as Dec 1 whatever the viewer's offset. Hourly labels
// are the real bucket start in UTC.
func (tf *TimeFrame) GenerateDateTimePoints() []DatePoint {
	loc := tf.location()
	current := TruncateToBucketInTimezone(tf.From, tf.BucketSize, loc)
	end := tf.To.In(loc)

	var points []DatePoint
	for i := 0; i < maxPoints && !current.After(end); i++ {
		label := current.UTC()
		if tf.BucketSize != TimeFrameBucketSizeHour {
			label = time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, time.UTC)
		}
		points = append(points, DatePoint{
			Key:   current.Format(keyLayout(tf.BucketSize)),
			Label: label.Format(time.RFC3339),
		})
		current = advance(current, tf.BucketSize)
	}
	return points
}

// BuildTimeSeriesPoints fills every bucket of the frame from counts keyed by
// BucketKey; missing buckets are zero.
func (tf *TimeFrame) BuildTimeSeriesPoints(counts map[string]int) []DateStat {
	points := tf.GenerateDateTimePoints()
	results := make([]DateStat, len(points))
	for i, p := range points {
		results[i] = DateStat{Date: p.Label, Count: counts[p.Key]}
	}
	return results
}

// CalculateTrend is the least-squares slope of the series.
func (tf *TimeFrame) CalculateTrend(points []DateStat) float64 {
	if len(points) < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(points))

	for i, point := range points {
		x := float64(i)
		y := float64(point.Count)

		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	return (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
}

func (tf *TimeFrame) location() *time.Location {
	if tf.Tz == nil {
		return time.UTC
	}
	return tf.Tz
}

// TruncateToBucketInTimezone truncates t to the start of its bucket in loc.
// Weeks start on Monday.
func TruncateToBucketInTimezone(t time.Time, bucketSize TimeFrameBucketSize, loc *time.Location) time.Time {
	localTime := t.In(loc)
	year, month, day := localTime.Year(), localTime.Month(), localTime.Day()

	switch bucketSize {
	case TimeFrameBucketSizeYear:
		return time.Date(year, 1, 1, 0, 0, 0, 0, loc)
	case TimeFrameBucketSizeMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, loc)
	case TimeFrameBucketSizeWeek:
		weekday := int(localTime.Weekday())
		if weekday == 0 { // Sunday
			weekday = 7
		}
		return time.Date(year, month, day-(weekday-1), 0, 0, 0, 0, loc)
	case TimeFrameBucketSizeDay:
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	case TimeFrameBucketSizeHour:
		return time.Date(year, month, day, localTime.Hour(), 0, 0, 0, loc)
	default:
		return localTime
	}
}

func advance(t time.Time, bucketSize TimeFrameBucketSize) time.Time {
	switch bucketSize {
	case TimeFrameBucketSizeYear:
		return t.AddDate(1, 0, 0)
	case TimeFrameBucketSizeMonth:
		return t.AddDate(0, 1, 0)
	case TimeFrameBucketSizeWeek:
		return t.AddDate(0, 0, 7)
	case TimeFrameBucketSizeDay:
		return t.AddDate(0, 0, 1)
	default:
		return t.Add(time.Hour)
	}
}

func keyLayout(bucketSize TimeFrameBucketSize) string {
	switch bucketSize {
	case TimeFrameBucketSizeHour:
		return "2006-01-02 15"
	case TimeFrameBucketSizeMonth:
		return "2006-01"
	case TimeFrameBucketSizeYear:
		return "2006"
	default:
		return "2006-01-02"
	}
}
