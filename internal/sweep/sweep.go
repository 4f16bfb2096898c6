// Package sweep runs the aging sweep on a cron schedule.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

type Sweeper interface {
	RunAgingSweepAll(ctx context.Context) (creditline.SweepReport, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration

	base   context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	last *creditline.SweepReport
}

// New schedules sweeper with a standard five field cron expression or a
// descriptor such as "@hourly". Each run is bounded by timeout when it is
// positive. Overlapping runs are skipped.
func New(sweeper Sweeper, schedule string, timeout time.Duration) (*Scheduler, error) {
	logger := cronLogger{}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	base, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:    c,
		sweeper: sweeper,
		timeout: timeout,
		base:    base,
		cancel:  cancel,
	}

	if _, err := c.AddFunc(schedule, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("parsing sweep schedule %q: %w", schedule, err)
	}

	return s, nil
}

func (s *Scheduler) tick() {
	if _, err := s.RunNow(s.base); err != nil {
		slog.Error("scheduled aging sweep failed", "error", err)
	}
}

// RunNow runs one sweep immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (creditline.SweepReport, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)

		defer cancel()
	}

	start := time.Now()

	report, err := s.sweeper.RunAgingSweepAll(ctx)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	slog.Info("aging sweep run",
		"scanned", report.Scanned,
		"updated", report.Updated,
		"failed", report.Failed,
		"duration", time.Since(start),
	)

	return report, nil
}

// LastReport returns the report of the last successful run, if any.
func (s *Scheduler) LastReport() (creditline.SweepReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return creditline.SweepReport{}, false
	}

	return *s.last, true
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running sweep to finish. If ctx ends
// first the running sweep is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
