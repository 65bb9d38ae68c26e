package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler runs each registered fetcher immediately on Start and then at its
// own fixed interval. Jobs run in singleton mode, so a cycle that comes due
// while the previous one is still running is rescheduled instead of overlapping.
type Scheduler struct {
	sched  gocron.Scheduler
	status *StatusRegistry
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a stopped scheduler. Cycles receive a context that is
// cancelled by Shutdown.
func NewScheduler(status *StatusRegistry, logger *zap.Logger) (*Scheduler, error) {
	logger = loggerOrNop(logger)
	sched, err := gocron.NewScheduler(gocron.WithLogger(newGocronLogger(logger)))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if status == nil {
		status = NewStatusRegistry()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{sched: sched, status: status, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Add registers f to run every interval.
func (s *Scheduler) Add(f Fetcher, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("fetcher %s: interval must be positive, got %v", f.Name(), interval)
	}
	r := NewRunner(f, s.status, s.logger)
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { r.Run(s.ctx) }),
		gocron.WithName(f.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", f.Name(), err)
	}
	s.status.Register(f.Name(), interval)
	s.logger.Info("fetcher scheduled", zap.String("fetcher", f.Name()), zap.Duration("interval", interval))
	return nil
}

// Start begins running jobs. Non-blocking.
func (s *Scheduler) Start() {
	s.sched.Start()
	for _, job := range s.sched.Jobs() {
		next, _ := job.NextRun()
		s.logger.Info("job started", zap.String("job", job.Name()), zap.Time("next_run", next))
	}
}

// Shutdown cancels in-flight cycles and waits for the scheduler to stop.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	return nil
}

// JobCount returns the number of scheduled jobs.
func (s *Scheduler) JobCount() int {
	return len(s.sched.Jobs())
}
