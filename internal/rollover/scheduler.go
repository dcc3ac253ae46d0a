// Package rollover runs the daily status rollover on a cron schedule.
package rollover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

// Roller moves the day's WAITING appointments to SCHEDULED.
type Roller interface {
	RollOverWaiting(ctx context.Context, day time.Time) (int, error)
}

type Config struct {
	// DailySpec is a standard 5-field cron spec; "0 6 * * *" by default.
	DailySpec string
	// HourlySpec drives the hourly hook; empty disables it.
	HourlySpec string
	Location   *time.Location
	// Timeout bounds one run.
	Timeout time.Duration
}

type Scheduler struct {
	roller Roller
	cfg    Config
	logger *zap.Logger
	cron   *cron.Cron
	now    func() time.Time

	mu      sync.Mutex
	running bool
}

func NewScheduler(roller Roller, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DailySpec == "" {
		cfg.DailySpec = "0 6 * * *"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Scheduler{
		roller: roller,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(cron.WithLocation(cfg.Location)),
		now:    time.Now,
	}
}

// Start registers the jobs and starts the cron loop. Jobs run with a context
// derived from ctx, so cancelling ctx aborts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.DailySpec, func() { s.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("invalid rollover schedule %q: %w", s.cfg.DailySpec, err)
	}
	if s.cfg.HourlySpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.HourlySpec, func() { s.Hourly(ctx) }); err != nil {
			return fmt.Errorf("invalid hourly schedule %q: %w", s.cfg.HourlySpec, err)
		}
	}
	s.cron.Start()

	for _, e := range s.cron.Entries() {
		s.logger.Info("rollover job scheduled", zap.Time("next", e.Next))
	}
	return nil
}

// Stop stops scheduling and waits for a running job or ctx, whichever ends
// first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var ErrAlreadyRunning = fmt.Errorf("rollover already running: %w", apperr.ErrConflict)

// RunDaily rolls over today's appointments in the configured location. It is
// the job cron runs and also what the manual admin trigger calls.
func (s *Scheduler) RunDaily(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return 0, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	day := slot.DateOf(s.now().In(s.cfg.Location))

	n, err := s.roller.RollOverWaiting(ctx, day)
	if err != nil {
		return n, fmt.Errorf("rollover %s: %w", day.Format(slot.DateLayout), err)
	}
	return n, nil
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	start := time.Now()
	n, err := s.RunDaily(ctx)
	if err != nil {
		s.logger.Error("scheduled rollover failed", zap.Int("transitioned", n), zap.Error(err))
		return
	}
	s.logger.Info("scheduled rollover finished",
		zap.Int("transitioned", n),
		zap.Duration("duration", time.Since(start)))
}

// Hourly is an extension point; it currently only records that it ran.
func (s *Scheduler) Hourly(_ context.Context) {
	s.logger.Debug("hourly tick", zap.Time("at", s.now().In(s.cfg.Location)))
}
