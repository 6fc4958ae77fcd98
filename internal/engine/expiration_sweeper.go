package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

// ExpirationSweeper runs the periodic expiry pass over makeup credits.
// It may run concurrently with normal traffic: every transition is a
// versioned update, so a credit that was scheduled or completed mid-sweep
// simply loses the race and is skipped this round.
type ExpirationSweeper struct {
	store  store.Store
	cfg    Config
	logger *zap.Logger
}

func NewExpirationSweeper(st store.Store, cfg Config, logger *zap.Logger) *ExpirationSweeper {
	return &ExpirationSweeper{store: st, cfg: cfg, logger: logger}
}

// RunSweep expires open credits whose window has passed and reports
// credits first seen inside the reminder window. A scheduled credit whose
// replacement lesson is still on the books is never expired: the
// replacement governs from the moment it is booked. The sweep checks ctx
// between credits so a long pass can be stopped safely.
func (s *ExpirationSweeper) RunSweep(ctx context.Context, now time.Time) (model.SweepReport, error) {
	now = now.UTC()
	report := model.SweepReport{RunAt: now}

	credits, err := s.store.Makeups().ListByStatus(ctx, []model.CreditStatus{
		model.CreditStatusPending,
		model.CreditStatusScheduled,
	})
	if err != nil {
		return report, fmt.Errorf("list open credits: %w", err)
	}

	for _, credit := range credits {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if credit.ExpiredBy(now) {
			governed, err := s.replacementGoverns(ctx, credit)
			if err != nil {
				return report, err
			}
			if governed {
				continue
			}

			credit.Status = model.CreditStatusExpired
			if err := s.store.Makeups().Update(ctx, credit); err != nil {
				if errors.Is(err, store.ErrVersionConflict) {
					report.Skipped++
					continue
				}
				return report, fmt.Errorf("expire credit: %w", err)
			}
			report.Expired = append(report.Expired, *credit)
			s.logger.Info("Makeup credit expired",
				zap.String("credit_id", credit.ID.String()),
				zap.Time("expires_at", credit.ExpiresAt),
			)
			continue
		}

		if credit.RemindedAt == nil && credit.ExpiresAt.Sub(now) <= s.cfg.ReminderWindow {
			remindedAt := now
			credit.RemindedAt = &remindedAt
			if err := s.store.Makeups().Update(ctx, credit); err != nil {
				if errors.Is(err, store.ErrVersionConflict) {
					report.Skipped++
					continue
				}
				return report, fmt.Errorf("stamp reminder: %w", err)
			}
			report.ExpiringSoon = append(report.ExpiringSoon, *credit)
		}
	}
	return report, nil
}

// replacementGoverns decides whether a scheduled credit is shielded from
// expiry by its replacement lesson. Only a cancelled (or missing)
// replacement hands the credit back to the expiry rule.
func (s *ExpirationSweeper) replacementGoverns(ctx context.Context, credit *model.MakeupCredit) (bool, error) {
	if credit.Status != model.CreditStatusScheduled || credit.ReplacementLessonID == nil {
		return false, nil
	}
	lesson, err := s.store.Lessons().Get(ctx, *credit.ReplacementLessonID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get replacement lesson: %w", err)
	}
	return lesson.Status != model.LessonStatusCancelled, nil
}
