// Package engine implements the lesson scheduling and lifecycle core:
// conflict-checked lesson placement, recurrence expansion, the
// cancellation workflow and the makeup-credit lifecycle.
package engine

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/lesson-engine/internal/clock"
	"github.com/campushq/lesson-engine/internal/store"
)

// Config carries the business knobs. Defaults match the school's standing
// policy but every value comes from configuration, not code.
type Config struct {
	MonthlyCancelLimit int           // pending+approved requests per student per calendar month
	CancelNotice       time.Duration // minimum lead time before lesson start
	MakeupValidity     time.Duration // credit lifetime from approval
	MakeupCeiling      time.Duration // hard extension ceiling from approval
	ReminderWindow     time.Duration // "expiring soon" threshold for the sweep report
}

func DefaultConfig() Config {
	return Config{
		MonthlyCancelLimit: 3,
		CancelNotice:       24 * time.Hour,
		MakeupValidity:     30 * 24 * time.Hour,
		MakeupCeiling:      60 * 24 * time.Hour,
		ReminderWindow:     7 * 24 * time.Hour,
	}
}

// Engine bundles the scheduling components over one store.
type Engine struct {
	Scheduler     *LessonScheduler
	Expander      *RecurrenceExpander
	Conflicts     *ConflictChecker
	Cancellations *CancellationWorkflow
	Makeups       *MakeupTracker
	Sweeper       *ExpirationSweeper
}

func New(st store.Store, clk clock.Clock, notifier Notifier, cfg Config, logger *zap.Logger) *Engine {
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	validate := validator.New()

	checker := NewConflictChecker(st)
	expander := NewRecurrenceExpander()
	scheduler := NewLessonScheduler(st, expander, clk, validate, logger)
	tracker := NewMakeupTracker(st, scheduler, clk, cfg, logger)
	workflow := NewCancellationWorkflow(st, scheduler, tracker, clk, notifier, cfg, logger)
	sweeper := NewExpirationSweeper(st, cfg, logger)

	return &Engine{
		Scheduler:     scheduler,
		Expander:      expander,
		Conflicts:     checker,
		Cancellations: workflow,
		Makeups:       tracker,
		Sweeper:       sweeper,
	}
}
