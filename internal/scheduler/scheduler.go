// Package scheduler runs scan cycles on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/jmylchreest/tablewatch/internal/logger"
)

// Cycle is one full scan invocation. It must contain its own failures:
// nothing a cycle does may stop the next one from running.
type Cycle func(ctx context.Context)

// Scheduler invokes the cycle immediately and then once per interval.
// Cycles run inline, so at most one is ever in flight; the shared browser
// session cannot survive overlapping cycles.
type Scheduler struct {
	Interval time.Duration
	Run      Cycle
}

// Start blocks until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	logger.Info("scheduler started", "interval", s.Interval)

	// kick immediately
	s.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return ctx.Err()
		case <-t.C:
			s.Run(ctx)
		}
	}
}
