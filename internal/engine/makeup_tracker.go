package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/lesson-engine/internal/clock"
	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

// MakeupTracker owns the lifecycle of makeup credits: creation on
// approval, extension up to the hard ceiling, booking the replacement
// lesson and completion.
type MakeupTracker struct {
	store     store.Store
	scheduler *LessonScheduler
	clock     clock.Clock
	cfg       Config
	logger    *zap.Logger
}

func NewMakeupTracker(st store.Store, scheduler *LessonScheduler, clk clock.Clock, cfg Config, logger *zap.Logger) *MakeupTracker {
	return &MakeupTracker{
		store:     st,
		scheduler: scheduler,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
	}
}

// createTx grants the credit for an approved request inside the caller's
// transaction. The request id is the idempotency key: when a credit for
// it already exists (a retried approval), the existing credit is returned
// instead of a second one.
func (t *MakeupTracker) createTx(ctx context.Context, st store.Store, req *model.CancellationRequest, approvedAt time.Time) (*model.MakeupCredit, error) {
	credit := &model.MakeupCredit{
		ID:               uuid.New(),
		RequestID:        req.ID,
		OriginalLessonID: req.LessonID,
		StudentID:        req.StudentID,
		Status:           model.CreditStatusPending,
		ApprovedAt:       approvedAt,
		ExpiresAt:        approvedAt.Add(t.cfg.MakeupValidity),
		CreatedAt:        approvedAt,
	}
	if err := st.Makeups().Create(ctx, credit); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return st.Makeups().FindByRequest(ctx, req.ID)
		}
		return nil, fmt.Errorf("create makeup credit: %w", err)
	}

	t.logger.Info("Makeup credit granted",
		zap.String("credit_id", credit.ID.String()),
		zap.String("student_id", credit.StudentID.String()),
		zap.Time("expires_at", credit.ExpiresAt),
	)
	return credit, nil
}

// Extend pushes the credit's expiry out by additionalDays. The resulting
// expiry may never pass ApprovedAt plus the configured ceiling, no matter
// how many extensions were applied before.
func (t *MakeupTracker) Extend(ctx context.Context, creditID uuid.UUID, additionalDays int, reason string) (*model.MakeupCredit, error) {
	if additionalDays <= 0 {
		return nil, invalidf("additionalDays", "extension must be positive")
	}

	var credit *model.MakeupCredit
	err := t.store.Atomic(ctx, func(st store.Store) error {
		var err error
		credit, err = getCredit(ctx, st, creditID)
		if err != nil {
			return err
		}
		if !credit.IsOpen() {
			return &InvalidStateTransition{Entity: "makeup credit", ID: creditID, Status: string(credit.Status), Op: "extend"}
		}

		newExpiry := credit.ExpiresAt.AddDate(0, 0, additionalDays)
		if newExpiry.After(credit.ApprovedAt.Add(t.cfg.MakeupCeiling)) {
			return ErrLimitExceeded
		}

		credit.ExpiresAt = newExpiry
		if err := st.Makeups().Update(ctx, credit); err != nil {
			return fmt.Errorf("extend credit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("Makeup credit extended",
		zap.String("credit_id", creditID.String()),
		zap.Int("days", additionalDays),
		zap.String("reason", reason),
		zap.Time("expires_at", credit.ExpiresAt),
	)
	return credit, nil
}

// Schedule books the replacement lesson for a pending credit. The
// replacement goes through the scheduler's normal conflict rules in the
// same transaction that marks the credit scheduled.
func (t *MakeupTracker) Schedule(ctx context.Context, creditID uuid.UUID, spec LessonSpec) (*model.MakeupCredit, error) {
	if spec.Recurrence != nil {
		return nil, invalidf("Recurrence", "a makeup lesson does not recur")
	}
	if err := t.scheduler.validateSpec(&spec); err != nil {
		return nil, err
	}
	now := t.clock.Now().UTC()

	var credit *model.MakeupCredit
	err := t.store.Atomic(ctx, func(st store.Store) error {
		var err error
		credit, err = getCredit(ctx, st, creditID)
		if err != nil {
			return err
		}
		if credit.Status != model.CreditStatusPending {
			return &InvalidStateTransition{Entity: "makeup credit", ID: creditID, Status: string(credit.Status), Op: "schedule"}
		}
		if credit.ExpiredBy(now) {
			// The sweep has not caught it yet, but the window is gone.
			return &InvalidStateTransition{Entity: "makeup credit", ID: creditID, Status: string(model.CreditStatusExpired), Op: "schedule"}
		}

		lesson := t.scheduler.buildLesson(spec)
		if err := t.scheduler.createTx(ctx, st, lesson); err != nil {
			return err
		}

		replacementID := lesson.ID
		credit.Status = model.CreditStatusScheduled
		credit.ReplacementLessonID = &replacementID
		if err := st.Makeups().Update(ctx, credit); err != nil {
			return fmt.Errorf("mark credit scheduled: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("Makeup credit scheduled",
		zap.String("credit_id", creditID.String()),
		zap.String("replacement_lesson_id", credit.ReplacementLessonID.String()),
	)
	return credit, nil
}

// MarkCompleted transitions a scheduled credit to Completed once its
// replacement lesson took place.
func (t *MakeupTracker) MarkCompleted(ctx context.Context, creditID uuid.UUID) (*model.MakeupCredit, error) {
	var credit *model.MakeupCredit
	err := t.store.Atomic(ctx, func(st store.Store) error {
		var err error
		credit, err = getCredit(ctx, st, creditID)
		if err != nil {
			return err
		}
		if credit.Status != model.CreditStatusScheduled {
			return &InvalidStateTransition{Entity: "makeup credit", ID: creditID, Status: string(credit.Status), Op: "complete"}
		}
		credit.Status = model.CreditStatusCompleted
		if err := st.Makeups().Update(ctx, credit); err != nil {
			return fmt.Errorf("complete credit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("Makeup credit completed", zap.String("credit_id", creditID.String()))
	return credit, nil
}

// CompleteForLessons completes every scheduled credit whose replacement
// lesson is among the given completed lessons. Lost optimistic races are
// skipped; the next status pass retries them.
func (t *MakeupTracker) CompleteForLessons(ctx context.Context, lessonIDs []uuid.UUID) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	credits, err := t.store.Makeups().ListByReplacementLessons(ctx, lessonIDs)
	if err != nil {
		return fmt.Errorf("list credits by replacement: %w", err)
	}
	for _, credit := range credits {
		if credit.Status != model.CreditStatusScheduled {
			continue
		}
		credit.Status = model.CreditStatusCompleted
		if err := t.store.Makeups().Update(ctx, credit); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			return fmt.Errorf("complete credit: %w", err)
		}
		t.logger.Info("Makeup credit completed", zap.String("credit_id", credit.ID.String()))
	}
	return nil
}

// Get returns a credit by id.
func (t *MakeupTracker) Get(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error) {
	return getCredit(ctx, t.store, id)
}

// ListForStudent returns the student's credits.
func (t *MakeupTracker) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*model.MakeupCredit, error) {
	return t.store.Makeups().ListForStudent(ctx, studentID)
}

func getCredit(ctx context.Context, st store.Store, id uuid.UUID) (*model.MakeupCredit, error) {
	credit, err := st.Makeups().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get makeup credit: %w", err)
	}
	return credit, nil
}
