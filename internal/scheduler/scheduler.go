package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OpsPulse/opspulse/internal/config"
)

// Job defines a schedulable unit of work.
type Job struct {
	Name string                          // Unique job identifier.
	Cron *CronExpr                       // Parsed cron expression.
	Run  func(ctx context.Context) error // Invoked on each matching tick.
}

// RunRecorder persists the outcome of a job run (best-effort). The entity
// store's settings table satisfies it.
type RunRecorder interface {
	SetSetting(key, value string) error
}

// Scheduler manages job registration, tick dispatch, and concurrency control.
type Scheduler struct {
	cfg      config.SchedulerConfig
	jobs     map[string]*Job
	mu       sync.RWMutex
	sem      *Semaphore
	lock     *FileLock
	recorder RunRecorder
}

// New creates a Scheduler. recorder may be nil.
func New(cfg config.SchedulerConfig, recorder RunRecorder) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 60 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}

	return &Scheduler{
		cfg:      cfg,
		jobs:     make(map[string]*Job),
		sem:      NewSemaphore(cfg.MaxConcurrent),
		lock:     NewFileLock(cfg.LockPath),
		recorder: recorder,
	}
}

// Register adds a job to the scheduler.
func (s *Scheduler) Register(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = job
	slog.Info("Scheduler job registered", "name", job.Name)
}

// Unregister removes a job by name.
func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, name)
}

// Jobs returns the currently registered jobs (snapshot).
func (s *Scheduler) Jobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// Run starts the scheduler tick loop. Blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("Scheduler started", "tick", s.cfg.TickInterval, "jobs", len(s.jobs))
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return ctx.Err()
		case t := <-ticker.C:
			s.tick(ctx, t)
		}
	}
}

// tick runs once per TickInterval. It acquires the global file lock, then
// dispatches every job whose expression matches the tick time.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	acquired, err := s.lock.TryLock()
	if err != nil {
		slog.Warn("Scheduler lock error", "error", err)
		return
	}
	if !acquired {
		slog.Debug("Scheduler tick skipped: lock held by another process")
		return
	}
	defer s.lock.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		if !job.Cron.Matches(now) {
			continue
		}
		s.dispatch(ctx, job, now)
	}
}

// dispatch runs a job asynchronously if a semaphore slot is available.
func (s *Scheduler) dispatch(ctx context.Context, job *Job, now time.Time) {
	if !s.sem.TryAcquire() {
		slog.Warn("Scheduler job skipped: concurrency limit", "job", job.Name)
		s.logJobRun(job.Name, "skipped_concurrency", now)
		return
	}

	slog.Info("Scheduler dispatching job", "job", job.Name)

	go func() {
		defer s.sem.Release()

		if err := job.Run(ctx); err != nil {
			slog.Error("Scheduler job failed", "job", job.Name, "error", err)
			s.logJobRun(job.Name, "failed", now)
			return
		}
		s.logJobRun(job.Name, "completed", now)
	}()
}

// logJobRun persists the run status to the settings table (best-effort).
func (s *Scheduler) logJobRun(name, status string, tick time.Time) {
	if s.recorder == nil {
		return
	}
	key := fmt.Sprintf("scheduler.%s.last_run", name)
	_ = s.recorder.SetSetting(key, fmt.Sprintf("%s %s", status, tick.Format(time.RFC3339)))
}
