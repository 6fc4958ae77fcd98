// Package store declares the persistence boundary the engine is written
// against. The engine owns the interfaces; postgres and inmem provide them.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/lesson-engine/internal/model"
)

// LessonRepository persists lessons together with their enrollments.
type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	CreateBatch(ctx context.Context, lessons []*model.Lesson) error
	Get(ctx context.Context, id uuid.UUID) (*model.Lesson, error)
	// Update applies a versioned write: it fails with ErrVersionConflict
	// when the stored version moved past lesson.Version, and bumps
	// lesson.Version on success.
	Update(ctx context.Context, lesson *model.Lesson) error
	// ListOverlapping returns non-cancelled lessons whose window overlaps
	// the given one on an open interval, optionally excluding one lesson id.
	ListOverlapping(ctx context.Context, window model.TimeWindow, exclude *uuid.UUID) ([]*model.Lesson, error)
	// ListActiveBefore returns scheduled/ongoing lessons with Start <= now,
	// the candidates for a clock-driven status advance.
	ListActiveBefore(ctx context.Context, now time.Time) ([]*model.Lesson, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error)
	ListForTutor(ctx context.Context, tutorID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error)
	ListForRoom(ctx context.Context, roomID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error)
	SetAttendance(ctx context.Context, lessonID, studentID uuid.UUID, status model.AttendanceStatus) error
}

// CancellationRepository persists cancellation requests.
type CancellationRepository interface {
	Create(ctx context.Context, req *model.CancellationRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.CancellationRequest, error)
	Update(ctx context.Context, req *model.CancellationRequest) error
	// FindPending returns the pending request for the pair, or ErrNotFound.
	FindPending(ctx context.Context, lessonID, studentID uuid.UUID) (*model.CancellationRequest, error)
	// CountForStudentBetween counts the student's requests in the given
	// statuses created within [from, to).
	CountForStudentBetween(ctx context.Context, studentID uuid.UUID, statuses []model.RequestStatus, from, to time.Time) (int, error)
}

// MakeupRepository persists makeup credits.
type MakeupRepository interface {
	// Create fails with ErrDuplicate when a credit for the same request
	// already exists.
	Create(ctx context.Context, credit *model.MakeupCredit) error
	Get(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error)
	FindByRequest(ctx context.Context, requestID uuid.UUID) (*model.MakeupCredit, error)
	Update(ctx context.Context, credit *model.MakeupCredit) error
	ListByStatus(ctx context.Context, statuses []model.CreditStatus) ([]*model.MakeupCredit, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*model.MakeupCredit, error)
	ListByReplacementLessons(ctx context.Context, lessonIDs []uuid.UUID) ([]*model.MakeupCredit, error)
}

// Store bundles the repositories with an atomic unit-of-work boundary.
type Store interface {
	Lessons() LessonRepository
	Cancellations() CancellationRepository
	Makeups() MakeupRepository
	// Atomic runs fn against a store whose writes commit together or not
	// at all. Reads inside fn observe the same transaction, so a conflict
	// check and the write it guards cannot interleave with another writer.
	Atomic(ctx context.Context, fn func(Store) error) error
}
