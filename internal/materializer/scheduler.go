package materializer

import (
	"context"
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
)

// Scheduler triggers RunToday periodically. Runs are idempotent, so the
// interval only bounds how late after midnight a day's instances appear.
type Scheduler struct {
	m            *Materializer
	interval     time.Duration
	runOnStartup bool
	log          *logger.Logger
}

func NewScheduler(m *Materializer, interval time.Duration, runOnStartup bool) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		m:            m,
		interval:     interval,
		runOnStartup: runOnStartup,
		log:          m.log.With("component", "scheduler"),
	}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if s.runOnStartup {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("scheduler_stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	res, err := s.m.RunToday(ctx)
	if err != nil {
		s.log.Error("scheduler_run_failed", "error", err)
		return
	}
	if ferr := res.Err(); ferr != nil {
		s.log.Warn("scheduler_run_partial", "error", ferr)
	}
}
