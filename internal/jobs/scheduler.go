package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is a periodic background task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on their intervals. Each job runs once at start, and a
// run is skipped while the previous run of the same job is still going.
// It implements cartridge.BackgroundWorker.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	isRunning  bool
	processing map[string]bool
}

func NewScheduler(logger *slog.Logger, jobs ...Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:       jobs,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		processing: make(map[string]bool),
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("scheduler already stopped")
	}
	s.isRunning = true

	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.logger.Warn("Skipping job without interval", slog.String("job", job.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(job)
	}

	s.logger.Info("Background jobs started", slog.Int("jobs", len(s.jobs)))
	return nil
}

func (s *Scheduler) loop(job Job) {
	defer s.wg.Done()

	s.logger.Info("Starting job", slog.String("job", job.Name), slog.Duration("interval", job.Interval))
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.executeJobSafely(job)
	for {
		select {
		case <-ticker.C:
			s.executeJobSafely(job)
		case <-s.ctx.Done():
			s.logger.Info("Job stopped", slog.String("job", job.Name))
			return
		}
	}
}

// executeJobSafely runs a job unless its previous run is still executing.
// Errors and panics are logged, never propagated.
func (s *Scheduler) executeJobSafely(job Job) {
	s.mu.Lock()
	if s.processing[job.Name] {
		s.logger.Debug("Skipping job execution - previous run still going", slog.String("job", job.Name))
		s.mu.Unlock()
		return
	}
	s.processing[job.Name] = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", job.Name),
				slog.Any("panic", r))
		}

		s.mu.Lock()
		s.processing[job.Name] = false
		s.mu.Unlock()
	}()

	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("Error executing job", slog.String("job", job.Name), slog.Any("error", err))
	}
}

// RunNow executes the named job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return job.Run(s.ctx)
		}
	}
	return fmt.Errorf("unknown job: %s", name)
}

// Stop halts all background jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
