package analytics

import (
	"shopsignals/internal/events"
	"shopsignals/internal/timeframe"
)

// Trend is a per-bucket series of sessions and conversions over a frame.
type Trend struct {
	BucketSize  timeframe.TimeFrameBucketSize `json:"bucket_size"`
	Sessions    []timeframe.DateStat          `json:"sessions"`
	Conversions []timeframe.DateStat          `json:"conversions"`
	Slope       float64                       `json:"sessions_slope"`
}

// DailyTrend buckets events in the frame's timezone. A session counts in the
// bucket of its earliest event; conversions are whatsapp_redirect events.
// Events outside the frame are ignored.
func DailyTrend(evs []events.Event, tf *timeframe.TimeFrame) Trend {
	firstSeen := make(map[string]int)
	conversions := make(map[string]int)

	for i := range evs {
		e := &evs[i]
		if !tf.Contains(e.CreatedAt) {
			continue
		}
		if j, ok := firstSeen[e.SessionID]; !ok || e.CreatedAt.Before(evs[j].CreatedAt) {
			firstSeen[e.SessionID] = i
		}
		if e.EventType == events.EventWhatsAppRedirect {
			conversions[tf.BucketKey(e.CreatedAt)]++
		}
	}

	sessions := make(map[string]int)
	for _, i := range firstSeen {
		sessions[tf.BucketKey(evs[i].CreatedAt)]++
	}

	trend := Trend{
		BucketSize:  tf.BucketSize,
		Sessions:    tf.BuildTimeSeriesPoints(sessions),
		Conversions: tf.BuildTimeSeriesPoints(conversions),
	}
	trend.Slope = tf.CalculateTrend(trend.Sessions)
	return trend
}
