package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

// ConflictChecker determines which bookings a proposed window would
// double-book. It is a pure read over the lesson store's time-indexed
// view; the scheduler runs the same check inside its write transaction.
type ConflictChecker struct {
	store store.Store
}

func NewConflictChecker(st store.Store) *ConflictChecker {
	return &ConflictChecker{store: st}
}

// FindConflicts reports each violated dimension separately: a double-booked
// tutor, a double-booked room, and every double-booked student. A nil
// tutorRef or roomRef skips that dimension. excludeLessonID lets an update
// check against all other lessons. The returned slice is empty, never nil,
// when the window is clean.
func (c *ConflictChecker) FindConflicts(ctx context.Context, window model.TimeWindow, tutorRef, roomRef *uuid.UUID, studentRefs []uuid.UUID, excludeLessonID *uuid.UUID) ([]model.Conflict, error) {
	return findConflicts(ctx, c.store.Lessons(), window, tutorRef, roomRef, studentRefs, excludeLessonID)
}

func findConflicts(ctx context.Context, lessons store.LessonRepository, window model.TimeWindow, tutorRef, roomRef *uuid.UUID, studentRefs []uuid.UUID, excludeLessonID *uuid.UUID) ([]model.Conflict, error) {
	window = window.UTC()

	overlapping, err := lessons.ListOverlapping(ctx, window, excludeLessonID)
	if err != nil {
		return nil, fmt.Errorf("list overlapping lessons: %w", err)
	}

	students := make(map[uuid.UUID]struct{}, len(studentRefs))
	for _, id := range studentRefs {
		students[id] = struct{}{}
	}

	conflicts := make([]model.Conflict, 0)
	for _, other := range overlapping {
		if tutorRef != nil && other.TutorID == *tutorRef {
			conflicts = append(conflicts, model.Conflict{
				Kind:       model.ConflictTutor,
				ResourceID: other.TutorID,
				LessonID:   other.ID,
				Window:     other.Window(),
			})
		}
		if roomRef != nil && other.RoomID == *roomRef {
			conflicts = append(conflicts, model.Conflict{
				Kind:       model.ConflictRoom,
				ResourceID: other.RoomID,
				LessonID:   other.ID,
				Window:     other.Window(),
			})
		}
		for _, e := range other.Enrollments {
			if _, ok := students[e.StudentID]; ok {
				conflicts = append(conflicts, model.Conflict{
					Kind:       model.ConflictStudent,
					ResourceID: e.StudentID,
					LessonID:   other.ID,
					Window:     other.Window(),
				})
			}
		}
	}
	return conflicts, nil
}

// conflictsBetween reports the dimensions two unpersisted lessons would
// contend on. Used when a recurrence batch is checked against itself.
func conflictsBetween(a, b *model.Lesson) []model.Conflict {
	if !a.Window().Overlaps(b.Window()) {
		return nil
	}
	conflicts := make([]model.Conflict, 0, 2)
	if a.TutorID == b.TutorID {
		conflicts = append(conflicts, model.Conflict{
			Kind:       model.ConflictTutor,
			ResourceID: b.TutorID,
			LessonID:   b.ID,
			Window:     b.Window(),
		})
	}
	if a.RoomID == b.RoomID {
		conflicts = append(conflicts, model.Conflict{
			Kind:       model.ConflictRoom,
			ResourceID: b.RoomID,
			LessonID:   b.ID,
			Window:     b.Window(),
		})
	}
	for _, e := range a.Enrollments {
		if b.HasStudent(e.StudentID) {
			conflicts = append(conflicts, model.Conflict{
				Kind:       model.ConflictStudent,
				ResourceID: e.StudentID,
				LessonID:   b.ID,
				Window:     b.Window(),
			})
		}
	}
	return conflicts
}
