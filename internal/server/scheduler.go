package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/opencivic/alignator/config"
	"github.com/opencivic/alignator/internal/cache"
	"github.com/opencivic/alignator/models"
)

// Scheduler fires recurring scoring runs over a trailing window on a cron
// cadence. A Redis lock keeps multiple instances from double-firing.
type Scheduler struct {
	Runner *Runner
	Rdb    *redis.Client
	Cfg    config.SchedulerConfig
	Logger *log.Logger
	Stop   chan struct{}
}

// Start launches the tick loop in the background.
func (s *Scheduler) Start() {
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

func (s *Scheduler) tick(now time.Time) {
	ctx := context.Background()
	last, err := s.Runner.Store.LatestRunTime(ctx)
	if err != nil {
		s.Logger.Printf("reading last run time: %v", err)
		return
	}
	if !isDue(s.Cfg.Cron, last, now) {
		return
	}

	if s.Rdb != nil {
		held, err := cache.AcquireLock(ctx, s.Rdb, "alignator:sched:lock", 2*time.Minute)
		if err != nil {
			s.Logger.Printf("acquiring scheduler lock: %v", err)
			return
		}
		if !held {
			return
		}
		defer func() { _ = cache.ReleaseLock(ctx, s.Rdb, "alignator:sched:lock") }()
	}

	window := models.Window{
		Start: now.AddDate(0, 0, -s.Cfg.WindowDays).UTC(),
		End:   now.UTC(),
	}
	if _, _, err := s.Runner.Execute(ctx, window); err != nil {
		s.Logger.Printf("scheduled run failed: %v", err)
	}
}

// isDue reports whether a run should fire now given the cron spec and the
// last successful run. Supports @daily, @hourly, and 5-field expressions.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	switch cronSpec {
	case "@daily":
		return last == nil || now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		return last == nil || now.Sub(*last) >= time.Hour
	}
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return false
	}
	if last == nil {
		return true
	}
	next := expr.Next(*last)
	return !next.IsZero() && !next.After(now)
}
