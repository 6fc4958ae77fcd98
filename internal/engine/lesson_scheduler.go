package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/lesson-engine/internal/clock"
	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

// BatchPolicy decides what happens when some occurrences of a recurring
// spec conflict.
type BatchPolicy int

const (
	// FailBatch rejects the whole series when any occurrence conflicts.
	FailBatch BatchPolicy = iota
	// AcceptPartial persists the conflict-free occurrences and drops the
	// rest. The anchor occurrence must still be clean.
	AcceptPartial
)

// LessonSpec is the input for creating a lesson or a recurring series.
type LessonSpec struct {
	SubjectID       uuid.UUID   `validate:"required"`
	TutorID         uuid.UUID   `validate:"required"`
	RoomID          uuid.UUID   `validate:"required"`
	Level           string      `validate:"max=64"`
	StudentIDs      []uuid.UUID `validate:"required,min=1"`
	Start           time.Time   `validate:"required"`
	End             time.Time   `validate:"required"`
	IsGroup         bool
	MaxParticipants int
	Recurrence      *model.RecurrenceRule
	Policy          BatchPolicy
}

// LessonScheduler is the single writer of lesson timing data. Every
// mutation re-checks conflicts inside the same store transaction that
// commits the write.
type LessonScheduler struct {
	store    store.Store
	expander *RecurrenceExpander
	clock    clock.Clock
	validate *validator.Validate
	logger   *zap.Logger
}

func NewLessonScheduler(st store.Store, expander *RecurrenceExpander, clk clock.Clock, validate *validator.Validate, logger *zap.Logger) *LessonScheduler {
	return &LessonScheduler{
		store:    st,
		expander: expander,
		clock:    clk,
		validate: validate,
		logger:   logger,
	}
}

// Create places a single lesson, or the whole series when the spec carries
// a recurrence rule, and returns the (anchor) lesson.
func (s *LessonScheduler) Create(ctx context.Context, spec LessonSpec) (*model.Lesson, error) {
	if spec.Recurrence != nil {
		series, err := s.CreateRecurring(ctx, spec)
		if err != nil {
			return nil, err
		}
		return series[0], nil
	}

	if err := s.validateSpec(&spec); err != nil {
		return nil, err
	}

	lesson := s.buildLesson(spec)
	err := s.store.Atomic(ctx, func(st store.Store) error {
		return s.createTx(ctx, st, lesson)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lesson created",
		zap.String("lesson_id", lesson.ID.String()),
		zap.String("tutor_id", lesson.TutorID.String()),
		zap.Time("start", lesson.Start),
		zap.Time("end", lesson.End),
	)
	return lesson, nil
}

// CreateRecurring expands the spec's rule and persists the series in one
// transaction. Under FailBatch any conflicting occurrence rejects the
// whole series; under AcceptPartial only the clean occurrences are kept.
func (s *LessonScheduler) CreateRecurring(ctx context.Context, spec LessonSpec) ([]*model.Lesson, error) {
	if spec.Recurrence == nil {
		return nil, invalidf("recurrence", "recurring create needs a rule")
	}
	if err := s.validateSpec(&spec); err != nil {
		return nil, err
	}

	anchor := s.buildLesson(spec)
	anchor.Recurrence = spec.Recurrence
	instances, err := s.expander.Expand(anchor, *spec.Recurrence)
	if err != nil {
		return nil, err
	}

	var accepted []*model.Lesson
	err = s.store.Atomic(ctx, func(st store.Store) error {
		results, err := s.expander.CheckBatch(ctx, st.Lessons(), instances)
		if err != nil {
			return err
		}

		accepted = accepted[:0]
		var all []model.Conflict
		anchorBlocked := false
		for i, res := range results {
			if len(res.Conflicts) == 0 {
				accepted = append(accepted, res.Lesson)
				continue
			}
			all = append(all, res.Conflicts...)
			if i == 0 {
				anchorBlocked = true
			}
		}
		// A conflicting anchor sinks the series even under AcceptPartial:
		// the instances reference it. The error carries every conflict in
		// the batch, not just the first occurrence's.
		if len(all) > 0 && (spec.Policy == FailBatch || anchorBlocked) {
			return &ConflictError{Conflicts: all}
		}
		if err := st.Lessons().CreateBatch(ctx, accepted); err != nil {
			return fmt.Errorf("persist series: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recurring series created",
		zap.String("series_id", anchor.ID.String()),
		zap.Int("occurrences", len(accepted)),
		zap.Int("expanded", len(instances)),
	)
	return accepted, nil
}

// Move reschedules a lesson to a new window, re-checking conflicts with
// the lesson itself excluded. Completed and cancelled lessons do not move.
func (s *LessonScheduler) Move(ctx context.Context, id uuid.UUID, newWindow model.TimeWindow, actor string) (*model.Lesson, error) {
	return s.reschedule(ctx, id, actor, "move", func(l *model.Lesson) model.TimeWindow {
		return newWindow
	})
}

// Resize changes a lesson's end, holding the start fixed.
func (s *LessonScheduler) Resize(ctx context.Context, id uuid.UUID, newEnd time.Time, actor string) (*model.Lesson, error) {
	return s.reschedule(ctx, id, actor, "resize", func(l *model.Lesson) model.TimeWindow {
		return model.TimeWindow{Start: l.Start, End: newEnd}
	})
}

func (s *LessonScheduler) reschedule(ctx context.Context, id uuid.UUID, actor, op string, wnd func(*model.Lesson) model.TimeWindow) (*model.Lesson, error) {
	var updated *model.Lesson
	err := s.store.Atomic(ctx, func(st store.Store) error {
		lesson, err := getLesson(ctx, st, id)
		if err != nil {
			return err
		}
		if lesson.IsTerminal() {
			return &InvalidStateTransition{Entity: "lesson", ID: id, Status: string(lesson.Status), Op: op}
		}

		window := wnd(lesson).UTC()
		if !window.IsValid() {
			return invalidf("window", "end must be after start")
		}

		conflicts, err := findConflicts(ctx, st.Lessons(), window, &lesson.TutorID, &lesson.RoomID, lesson.StudentIDs(), &lesson.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		lesson.Start = window.Start
		lesson.End = window.End
		lesson.UpdatedAt = s.clock.Now().UTC()
		if err := st.Lessons().Update(ctx, lesson); err != nil {
			return fmt.Errorf("%s lesson: %w", op, err)
		}
		updated = lesson
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lesson rescheduled",
		zap.String("lesson_id", id.String()),
		zap.String("op", op),
		zap.String("actor", actor),
		zap.Time("start", updated.Start),
		zap.Time("end", updated.End),
	)
	return updated, nil
}

// Cancel transitions the lesson to Cancelled. Idempotent on an already
// cancelled lesson. This is the direct admin path: no makeup credit is
// created here, only the cancellation workflow's approval grants credits.
func (s *LessonScheduler) Cancel(ctx context.Context, id uuid.UUID, actor string) (*model.Lesson, error) {
	var cancelled *model.Lesson
	err := s.store.Atomic(ctx, func(st store.Store) error {
		var err error
		cancelled, err = s.cancelTx(ctx, st, id, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// cancelTx runs the cancel transition inside the caller's transaction so
// the approval path can compose it with credit creation.
func (s *LessonScheduler) cancelTx(ctx context.Context, st store.Store, id uuid.UUID, actor string) (*model.Lesson, error) {
	lesson, err := getLesson(ctx, st, id)
	if err != nil {
		return nil, err
	}
	if lesson.Status == model.LessonStatusCancelled {
		return lesson, nil
	}
	if lesson.Status == model.LessonStatusCompleted {
		return nil, &InvalidStateTransition{Entity: "lesson", ID: id, Status: string(lesson.Status), Op: "cancel"}
	}

	lesson.Status = model.LessonStatusCancelled
	lesson.CancelledBy = &actor
	lesson.UpdatedAt = s.clock.Now().UTC()
	if err := st.Lessons().Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("cancel lesson: %w", err)
	}

	s.logger.Info("Lesson cancelled",
		zap.String("lesson_id", id.String()),
		zap.String("actor", actor),
	)
	return lesson, nil
}

// AdvanceStatuses runs the clock-driven Scheduled -> Ongoing -> Completed
// progression for every lesson whose window has been reached. It returns
// the ids of lessons that reached Completed so makeup credits linked to
// them can be completed. A lesson whose version moved mid-pass is skipped;
// the next pass picks it up.
func (s *LessonScheduler) AdvanceStatuses(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	now = now.UTC()
	due, err := s.store.Lessons().ListActiveBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due lessons: %w", err)
	}

	var completed []uuid.UUID
	for _, lesson := range due {
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		target := model.LessonStatusOngoing
		if !lesson.End.After(now) {
			target = model.LessonStatusCompleted
		}
		if target == lesson.Status {
			continue
		}

		lesson.Status = target
		lesson.UpdatedAt = now
		if err := s.store.Lessons().Update(ctx, lesson); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			return completed, fmt.Errorf("advance lesson status: %w", err)
		}
		if target == model.LessonStatusCompleted {
			completed = append(completed, lesson.ID)
		}
	}

	if len(due) > 0 {
		s.logger.Debug("Lesson statuses advanced",
			zap.Int("candidates", len(due)),
			zap.Int("completed", len(completed)),
		)
	}
	return completed, nil
}

// RecordAttendance stores the attendance value reported by the tutor-facing
// collaborator. The engine attaches no business meaning to it.
func (s *LessonScheduler) RecordAttendance(ctx context.Context, lessonID, studentID uuid.UUID, status model.AttendanceStatus) error {
	if !model.ValidAttendanceStatus(status) {
		return invalidf("attendance", "unknown status %q", status)
	}
	if err := s.store.Lessons().SetAttendance(ctx, lessonID, studentID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

// Get returns a lesson by id.
func (s *LessonScheduler) Get(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	return getLesson(ctx, s.store, id)
}

// ListForStudent returns the student's lessons overlapping the window.
func (s *LessonScheduler) ListForStudent(ctx context.Context, studentID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	return s.store.Lessons().ListForStudent(ctx, studentID, window.UTC())
}

// ListForTutor returns the tutor's lessons overlapping the window.
func (s *LessonScheduler) ListForTutor(ctx context.Context, tutorID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	return s.store.Lessons().ListForTutor(ctx, tutorID, window.UTC())
}

// ListForRoom returns the room's lessons overlapping the window.
func (s *LessonScheduler) ListForRoom(ctx context.Context, roomID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	return s.store.Lessons().ListForRoom(ctx, roomID, window.UTC())
}

func (s *LessonScheduler) createTx(ctx context.Context, st store.Store, lesson *model.Lesson) error {
	conflicts, err := findConflicts(ctx, st.Lessons(), lesson.Window(), &lesson.TutorID, &lesson.RoomID, lesson.StudentIDs(), nil)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	if err := st.Lessons().Create(ctx, lesson); err != nil {
		return fmt.Errorf("persist lesson: %w", err)
	}
	return nil
}

func (s *LessonScheduler) buildLesson(spec LessonSpec) *model.Lesson {
	now := s.clock.Now().UTC()
	id := uuid.New()

	enrollments := make([]model.Enrollment, len(spec.StudentIDs))
	for i, studentID := range spec.StudentIDs {
		enrollments[i] = model.Enrollment{
			LessonID:   id,
			StudentID:  studentID,
			Attendance: model.AttendanceUnknown,
		}
	}

	return &model.Lesson{
		ID:              id,
		SubjectID:       spec.SubjectID,
		TutorID:         spec.TutorID,
		RoomID:          spec.RoomID,
		Level:           spec.Level,
		Start:           spec.Start.UTC(),
		End:             spec.End.UTC(),
		IsGroup:         spec.IsGroup,
		MaxParticipants: spec.MaxParticipants,
		Status:          model.LessonStatusScheduled,
		Enrollments:     enrollments,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *LessonScheduler) validateSpec(spec *LessonSpec) error {
	if err := s.validate.Struct(spec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return invalidf(verrs[0].Field(), "failed %q validation", verrs[0].Tag())
		}
		return invalidf("", "%v", err)
	}

	spec.Start = spec.Start.UTC()
	spec.End = spec.End.UTC()
	if !spec.End.After(spec.Start) {
		return invalidf("End", "end must be after start")
	}
	if spec.Start.Before(s.clock.Now().UTC()) {
		return invalidf("Start", "start is in the past")
	}

	seen := make(map[uuid.UUID]struct{}, len(spec.StudentIDs))
	for _, id := range spec.StudentIDs {
		if _, dup := seen[id]; dup {
			return invalidf("StudentIDs", "student %s enrolled twice", id)
		}
		seen[id] = struct{}{}
	}

	if spec.IsGroup {
		if spec.MaxParticipants < 1 {
			return invalidf("MaxParticipants", "group lesson needs a positive participant limit")
		}
		if len(spec.StudentIDs) > spec.MaxParticipants {
			return invalidf("StudentIDs", "%d students exceed the limit of %d", len(spec.StudentIDs), spec.MaxParticipants)
		}
	} else if len(spec.StudentIDs) != 1 {
		return invalidf("StudentIDs", "a non-group lesson has exactly one student")
	}
	return nil
}

func getLesson(ctx context.Context, st store.Store, id uuid.UUID) (*model.Lesson, error) {
	lesson, err := st.Lessons().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return lesson, nil
}
