package service

import (
	"context"
	"fmt"
	"time"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/history"
)

// DefaultSweepSchedule is used when no cache sweep schedule is configured.
const DefaultSweepSchedule = "@every 30m"

const sweepTimeout = 10 * time.Second

// RunCacheSweeper deletes expired cache entries and evicts idle history
// windows on schedule until ctx is done. Cache reads never depend on the
// sweep having run.
func (s *Service) RunCacheSweeper(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	c := rcron.New()
	if _, err := c.AddFunc(schedule, func() { s.sweepCache(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.log.Info("cache sweeper started", zap.String("schedule", schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Service) sweepCache(ctx context.Context) {
	if n := s.history.Evict(history.IdleTTL); n > 0 {
		s.log.Debug("evicted idle history windows", zap.Int("windows", n))
	}

	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.Cleanup(sweepCtx)
	if err != nil {
		s.log.Warn("cache sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("cache sweep", zap.Int64("deleted", n))
	}
}
