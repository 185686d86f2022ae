package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// JobFunc is one unit of periodic work. Errors are logged, not fatal;
// the job runs again on its next tick.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
	running  atomic.Bool
}

// Scheduler manages periodic jobs.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job
	log  *slog.Logger
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs: make(map[string]*job),
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers a periodic job. Registration must happen before Start.
func (s *Scheduler) AddJob(name string, interval time.Duration, run JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return ErrJobAlreadyRegistered
	}
	s.jobs[name] = &job{name: name, interval: interval, run: run}

	s.log.Info("registered periodic job",
		slog.String("job", name),
		slog.Duration("interval", interval))
	return nil
}

// Start runs every registered job once immediately, then on its interval,
// blocking until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	if len(jobs) == 0 {
		return ErrNoJobs
	}

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, j)
		}()
	}
	wg.Wait()

	s.log.Info("scheduler shut down")
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	s.runOnce(ctx, j)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

// runOnce executes the job unless its previous run is still in flight.
func (s *Scheduler) runOnce(ctx context.Context, j *job) {
	if !j.running.CompareAndSwap(false, true) {
		s.log.Warn("previous run still in progress, skipping tick",
			slog.String("job", j.name))
		return
	}
	defer j.running.Store(false)

	started := time.Now()
	if err := j.run(ctx); err != nil {
		s.log.ErrorContext(ctx, "periodic job failed",
			slog.String("job", j.name),
			slog.String("error", err.Error()))
		return
	}

	s.log.DebugContext(ctx, "periodic job finished",
		slog.String("job", j.name),
		slog.Duration("took", time.Since(started)))
}
