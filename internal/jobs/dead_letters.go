package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"shopsignals/internal/tracker"
)

// DeadLetterSource exposes dispatcher counters and the retained dead letters.
type DeadLetterSource interface {
	Stats() tracker.Stats
	DeadLetters() *tracker.DeadLetterLog
}

// DeadLetterReportJob logs a warning summarizing events dropped since its
// previous run. Dead letters are otherwise only visible through the API.
type DeadLetterReportJob struct {
	source DeadLetterSource
	logger *slog.Logger

	mu       sync.Mutex
	lastSeen int64
}

func NewDeadLetterReportJob(source DeadLetterSource, logger *slog.Logger) *DeadLetterReportJob {
	return &DeadLetterReportJob{source: source, logger: logger}
}

// ReasonCount is how many retained dead letters share a reason.
type ReasonCount struct {
	Reason tracker.Reason
	Count  int
}

func (j *DeadLetterReportJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stats := j.source.Stats()

	j.mu.Lock()
	dropped := stats.DeadLettered - j.lastSeen
	j.lastSeen = stats.DeadLettered
	j.mu.Unlock()

	if dropped <= 0 {
		return nil
	}

	attrs := []any{
		slog.Int64("dropped", dropped),
		slog.Int64("dead_lettered_total", stats.DeadLettered),
		slog.Int64("delivered_total", stats.Delivered),
		slog.Int("pending", stats.Pending),
	}
	for _, rc := range CountReasons(j.source.DeadLetters().Snapshot()) {
		attrs = append(attrs, slog.Int(string(rc.Reason), rc.Count))
	}
	j.logger.Warn("Tracking events were dropped", attrs...)
	return nil
}

// CountReasons groups dead letters by reason, most frequent first.
func CountReasons(letters []tracker.DeadLetter) []ReasonCount {
	counts := make(map[tracker.Reason]int)
	for _, dl := range letters {
		counts[dl.Reason]++
	}
	out := make([]ReasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Count != out[k].Count {
			return out[i].Count > out[k].Count
		}
		return out[i].Reason < out[k].Reason
	})
	return out
}
