package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"shopsignals/internal/events"
)

// Sink receives events one insert at a time. events.Store implementations
// satisfy it.
type Sink interface {
	Insert(ctx context.Context, e *events.Event) error
}

// DispatcherConfig sizes the delivery pipeline.
type DispatcherConfig struct {
	QueueSize          int
	Workers            int
	InsertTimeout      time.Duration
	DeadLetterCapacity int
}

// Stats are cumulative delivery counters.
type Stats struct {
	Queued       int64 `json:"queued"`
	Delivered    int64 `json:"delivered"`
	DeadLettered int64 `json:"dead_lettered"`
	Pending      int   `json:"pending"`
}

// Dispatcher delivers events to a Sink in the background. Enqueue never
// blocks: when the queue is full, or delivery fails, the event is recorded in
// the dead-letter log and dropped. It implements cartridge.BackgroundWorker.
type Dispatcher struct {
	sink        Sink
	logger      *slog.Logger
	cfg         DispatcherConfig
	queue       chan events.Event
	deadLetters *DeadLetterLog

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup

	queued    atomic.Int64
	delivered atomic.Int64
}

// NewDispatcher creates a stopped dispatcher; call Start to begin delivery.
func NewDispatcher(sink Sink, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = 5 * time.Second
	}
	if cfg.DeadLetterCapacity <= 0 {
		cfg.DeadLetterCapacity = 256
	}
	return &Dispatcher{
		sink:        sink,
		logger:      logger,
		cfg:         cfg,
		queue:       make(chan events.Event, cfg.QueueSize),
		deadLetters: NewDeadLetterLog(cfg.DeadLetterCapacity),
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return fmt.Errorf("dispatcher already stopped")
	}
	if d.started {
		return nil
	}
	d.started = true

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}

	d.logger.Info("Tracking dispatcher started",
		slog.Int("workers", d.cfg.Workers),
		slog.Int("queue_size", d.cfg.QueueSize))
	return nil
}

// Stop refuses new events, delivers what is already queued and waits for the
// workers to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		// Nothing will drain the buffer; account for it.
		for ev := range d.queue {
			d.deadLetter(ev, ReasonStopped, nil)
		}
		return
	}

	d.wg.Wait()
	d.logger.Info("Tracking dispatcher stopped",
		slog.Int64("delivered", d.delivered.Load()),
		slog.Int64("dead_lettered", d.deadLetters.Total()))
}

// Enqueue hands ev to the workers without blocking. It reports whether the
// event was accepted.
func (d *Dispatcher) Enqueue(ev events.Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.deadLetter(ev, ReasonStopped, nil)
		return false
	}

	select {
	case d.queue <- ev:
		d.queued.Add(1)
		return true
	default:
		d.deadLetter(ev, ReasonQueueFull, nil)
		return false
	}
}

// DeadLetters exposes the dead-letter log.
func (d *Dispatcher) DeadLetters() *DeadLetterLog {
	return d.deadLetters
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:       d.queued.Load(),
		Delivered:    d.delivered.Load(),
		DeadLettered: d.deadLetters.Total(),
		Pending:      len(d.queue),
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for ev := range d.queue {
		d.deliver(id, ev)
	}
}

func (d *Dispatcher) deliver(worker int, ev events.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic recovered while delivering event",
				slog.Int("worker", worker),
				slog.Any("panic", r))
			d.deadLetter(ev, ReasonInsertFailed, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.InsertTimeout)
	defer cancel()

	if err := d.sink.Insert(ctx, &ev); err != nil {
		d.deadLetter(ev, ReasonInsertFailed, err)
		return
	}
	d.delivered.Add(1)
}

func (d *Dispatcher) deadLetter(ev events.Event, reason Reason, err error) {
	dl := DeadLetter{Event: ev, Reason: reason, At: time.Now().UTC()}
	attrs := []any{
		slog.String("reason", string(reason)),
		slog.String("event_type", string(ev.EventType)),
		slog.String("session_id", ev.SessionID),
	}
	if err != nil {
		dl.Error = err.Error()
		attrs = append(attrs, slog.Any("error", err))
	}
	d.deadLetters.Add(dl)
	d.logger.Warn("Tracking event dropped", attrs...)
}
