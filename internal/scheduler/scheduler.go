package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"congress-alpha/internal/config"
	"congress-alpha/internal/engine"
	"congress-alpha/internal/logger"
	"congress-alpha/internal/storage"
)

// Scheduler fires trade cycles on an adaptive interval: frequent while US
// markets are open, sparse off hours, with jitter on every delay. Cycles
// are serialized through the shared cycle lock so an API-triggered run and
// a scheduled run never overlap.
type Scheduler struct {
	engine *engine.Engine
	lock   *engine.CycleLock
	repo   *storage.Repository
	config *config.Config
	logger *logger.Logger
	loc    *time.Location
}

func NewScheduler(
	eng *engine.Engine,
	lock *engine.CycleLock,
	repo *storage.Repository,
	cfg *config.Config,
	log *logger.Logger,
) *Scheduler {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("ET", -5*60*60)
	}
	return &Scheduler{
		engine: eng,
		lock:   lock,
		repo:   repo,
		config: cfg,
		logger: log,
		loc:    loc,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started")

	// Run immediately on start
	s.runCycle(ctx)

	for {
		delay := s.nextDelay(time.Now().In(s.loc))
		s.logger.Info("next trade cycle scheduled", "in", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in trade cycle", "panic", fmt.Sprint(r))
		}
	}()

	if !s.lock.TryAcquire() {
		s.logger.Info("trade cycle already running, skipping")
		return
	}
	defer s.lock.Release()

	results, err := s.engine.ProcessPending(ctx)
	if err != nil {
		s.logger.Error("trade cycle failed", "error", err)
		s.repo.LogEvent("ERROR", "scheduler", fmt.Sprintf("trade cycle failed: %v", err))
		return
	}

	var executed, held, rejected int
	for _, r := range results {
		switch {
		case r.Success:
			executed++
		case r.Message == "signal pending user confirmation":
			held++
		default:
			rejected++
		}
	}
	s.logger.Info("trade cycle complete",
		"signals", len(results), "executed", executed, "held", held, "rejected", rejected)
	s.repo.LogEvent("INFO", "scheduler",
		fmt.Sprintf("trade cycle complete: %d executed, %d held, %d rejected", executed, held, rejected))
}

// nextDelay picks the interval until the next cycle plus anti-pattern
// jitter.
func (s *Scheduler) nextDelay(now time.Time) time.Duration {
	sc := s.config.Scheduler

	var minutes int
	if s.isMarketHours(now) {
		spread := sc.MarketHoursMaxMinutes - sc.MarketHoursMinMinutes
		minutes = sc.MarketHoursMinMinutes
		if spread > 0 {
			minutes += rand.Intn(spread + 1)
		}
	} else {
		minutes = sc.OffHoursMinutes
	}

	jitter := sc.JitterMinSeconds
	if spread := sc.JitterMaxSeconds - sc.JitterMinSeconds; spread > 0 {
		jitter += rand.Intn(spread + 1)
	}

	return time.Duration(minutes)*time.Minute + time.Duration(jitter)*time.Second
}

func (s *Scheduler) isMarketHours(now time.Time) bool {
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	hour := now.Hour()
	return hour >= s.config.Scheduler.MarketOpenHour && hour < s.config.Scheduler.MarketCloseHour
}
