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

// CancellationWorkflow governs a student's cancellation request from
// submission to decision. Approval cancels the lesson, grants exactly one
// makeup credit and closes the request as a single atomic unit.
type CancellationWorkflow struct {
	store     store.Store
	scheduler *LessonScheduler
	tracker   *MakeupTracker
	clock     clock.Clock
	notifier  Notifier
	cfg       Config
	logger    *zap.Logger
}

func NewCancellationWorkflow(st store.Store, scheduler *LessonScheduler, tracker *MakeupTracker, clk clock.Clock, notifier Notifier, cfg Config, logger *zap.Logger) *CancellationWorkflow {
	return &CancellationWorkflow{
		store:     st,
		scheduler: scheduler,
		tracker:   tracker,
		clock:     clk,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// Submit files a cancellation request. It rejects with ErrTooLate inside
// the notice period, ErrQuotaExceeded over the monthly limit and
// ErrDuplicateRequest when a pending request already exists for the pair.
func (w *CancellationWorkflow) Submit(ctx context.Context, lessonID, studentID uuid.UUID, reason string) (*model.CancellationRequest, error) {
	now := w.clock.Now().UTC()

	var req *model.CancellationRequest
	err := w.store.Atomic(ctx, func(st store.Store) error {
		lesson, err := getLesson(ctx, st, lessonID)
		if err != nil {
			return err
		}
		if lesson.Status != model.LessonStatusScheduled {
			return &InvalidStateTransition{Entity: "lesson", ID: lessonID, Status: string(lesson.Status), Op: "request cancellation"}
		}
		if !lesson.HasStudent(studentID) {
			return invalidf("student", "student %s is not enrolled in lesson %s", studentID, lessonID)
		}

		if lesson.Start.Sub(now) < w.cfg.CancelNotice {
			return ErrTooLate
		}

		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, 0)
		count, err := st.Cancellations().CountForStudentBetween(ctx, studentID,
			[]model.RequestStatus{model.RequestStatusPending, model.RequestStatusApproved},
			monthStart, monthEnd)
		if err != nil {
			return fmt.Errorf("count monthly requests: %w", err)
		}
		if count >= w.cfg.MonthlyCancelLimit {
			return ErrQuotaExceeded
		}

		if _, err := st.Cancellations().FindPending(ctx, lessonID, studentID); err == nil {
			return ErrDuplicateRequest
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("find pending request: %w", err)
		}

		req = &model.CancellationRequest{
			ID:        uuid.New(),
			LessonID:  lessonID,
			StudentID: studentID,
			Reason:    reason,
			Status:    model.RequestStatusPending,
			CreatedAt: now,
		}
		if err := st.Cancellations().Create(ctx, req); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrDuplicateRequest
			}
			return fmt.Errorf("create request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("Cancellation requested",
		zap.String("request_id", req.ID.String()),
		zap.String("lesson_id", lessonID.String()),
		zap.String("student_id", studentID.String()),
	)
	return req, nil
}

// Decide approves or rejects a pending request. Approval cancels the
// lesson through the scheduler's transition logic, grants the makeup
// credit and marks the request approved, all inside one transaction so no
// intermediate state is ever observable. Deciding a non-pending request
// is an InvalidStateTransition, not a no-op.
func (w *CancellationWorkflow) Decide(ctx context.Context, requestID uuid.UUID, approve bool, actor, comment string) (*model.CancellationRequest, error) {
	now := w.clock.Now().UTC()

	var req *model.CancellationRequest
	var credit *model.MakeupCredit
	err := w.store.Atomic(ctx, func(st store.Store) error {
		var err error
		req, err = st.Cancellations().Get(ctx, requestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("get request: %w", err)
		}
		if !req.IsPending() {
			return &InvalidStateTransition{Entity: "cancellation request", ID: requestID, Status: string(req.Status), Op: "decide"}
		}

		if approve {
			if _, err := w.scheduler.cancelTx(ctx, st, req.LessonID, actor); err != nil {
				return err
			}
			credit, err = w.tracker.createTx(ctx, st, req, now)
			if err != nil {
				return err
			}
			req.Status = model.RequestStatusApproved
		} else {
			req.Status = model.RequestStatusRejected
		}
		req.DecisionComment = comment
		req.DecidedBy = &actor
		req.DecidedAt = &now
		if err := st.Cancellations().Update(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := model.DecisionEvent{
		RequestID: req.ID,
		LessonID:  req.LessonID,
		StudentID: req.StudentID,
		Approved:  approve,
		DecidedBy: actor,
		DecidedAt: now,
	}
	if credit != nil {
		id := credit.ID
		event.CreditID = &id
	}
	w.notifier.CancellationDecided(ctx, event)

	w.logger.Info("Cancellation decided",
		zap.String("request_id", requestID.String()),
		zap.Bool("approved", approve),
		zap.String("actor", actor),
	)
	return req, nil
}

// Get returns a request by id.
func (w *CancellationWorkflow) Get(ctx context.Context, id uuid.UUID) (*model.CancellationRequest, error) {
	req, err := w.store.Cancellations().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}
