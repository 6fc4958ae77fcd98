package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/lesson-engine/internal/clock"
	"github.com/campushq/lesson-engine/internal/engine"
)

// Sweeper drives the engine's periodic maintenance: advancing lesson
// statuses against the clock, completing makeup credits whose replacement
// lesson finished, and expiring credits past their window.
type Sweeper struct {
	engine   *engine.Engine
	notifier engine.Notifier
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewSweeper(eng *engine.Engine, notifier engine.Notifier, clk clock.Clock, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		engine:   eng,
		notifier: notifier,
		clock:    clk,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background loop. The first pass runs immediately.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting background sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop halts the loop.
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping background sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("Sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Sweep task cancelled")
			return
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	now := s.clock.Now()

	completed, err := s.engine.Scheduler.AdvanceStatuses(ctx, now)
	if err != nil {
		s.logger.Error("Failed to advance lesson statuses", zap.Error(err))
		return
	}
	if err := s.engine.Makeups.CompleteForLessons(ctx, completed); err != nil {
		s.logger.Error("Failed to complete makeup credits", zap.Error(err))
		return
	}

	report, err := s.engine.Sweeper.RunSweep(ctx, now)
	if err != nil {
		s.logger.Error("Makeup sweep failed", zap.Error(err))
		return
	}
	s.notifier.SweepCompleted(ctx, report)
}
