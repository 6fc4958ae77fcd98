package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

type lessonRepository struct {
	s *Store
}

func (r *lessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	unlock := r.s.lock()
	defer unlock()

	if _, ok := r.s.lessons[lesson.ID]; ok {
		return store.ErrDuplicate
	}
	if lesson.Version == 0 {
		lesson.Version = 1
	}
	r.s.lessons[lesson.ID] = cloneLesson(*lesson)
	return nil
}

func (r *lessonRepository) CreateBatch(ctx context.Context, lessons []*model.Lesson) error {
	for _, l := range lessons {
		if err := r.Create(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *lessonRepository) Get(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	unlock := r.s.rlock()
	defer unlock()

	l, ok := r.s.lessons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneLesson(l)
	return &out, nil
}

func (r *lessonRepository) Update(ctx context.Context, lesson *model.Lesson) error {
	unlock := r.s.lock()
	defer unlock()

	current, ok := r.s.lessons[lesson.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != lesson.Version {
		return store.ErrVersionConflict
	}
	lesson.Version++
	r.s.lessons[lesson.ID] = cloneLesson(*lesson)
	return nil
}

func (r *lessonRepository) ListOverlapping(ctx context.Context, window model.TimeWindow, exclude *uuid.UUID) ([]*model.Lesson, error) {
	return r.list(func(l model.Lesson) bool {
		if exclude != nil && l.ID == *exclude {
			return false
		}
		return l.IsActive() && l.Window().Overlaps(window)
	})
}

func (r *lessonRepository) ListActiveBefore(ctx context.Context, now time.Time) ([]*model.Lesson, error) {
	return r.list(func(l model.Lesson) bool {
		if l.Status != model.LessonStatusScheduled && l.Status != model.LessonStatusOngoing {
			return false
		}
		return !l.Start.After(now)
	})
}

func (r *lessonRepository) ListForStudent(ctx context.Context, studentID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	return r.list(func(l model.Lesson) bool {
		return l.HasStudent(studentID) && l.Window().Overlaps(window)
	})
}

func (r *lessonRepository) ListForTutor(ctx context.Context, tutorID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	return r.list(func(l model.Lesson) bool {
		return l.TutorID == tutorID && l.Window().Overlaps(window)
	})
}

func (r *lessonRepository) ListForRoom(ctx context.Context, roomID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	return r.list(func(l model.Lesson) bool {
		return l.RoomID == roomID && l.Window().Overlaps(window)
	})
}

func (r *lessonRepository) SetAttendance(ctx context.Context, lessonID, studentID uuid.UUID, status model.AttendanceStatus) error {
	unlock := r.s.lock()
	defer unlock()

	l, ok := r.s.lessons[lessonID]
	if !ok {
		return store.ErrNotFound
	}
	for i := range l.Enrollments {
		if l.Enrollments[i].StudentID == studentID {
			l.Enrollments[i].Attendance = status
			r.s.lessons[lessonID] = l
			return nil
		}
	}
	return store.ErrNotFound
}

func (r *lessonRepository) list(match func(model.Lesson) bool) ([]*model.Lesson, error) {
	unlock := r.s.rlock()
	defer unlock()

	out := make([]*model.Lesson, 0)
	for _, l := range r.s.lessons {
		if match(l) {
			c := cloneLesson(l)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
