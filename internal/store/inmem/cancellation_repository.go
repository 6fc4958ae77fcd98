package inmem

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

type cancellationRepository struct {
	s *Store
}

func (r *cancellationRepository) Create(ctx context.Context, req *model.CancellationRequest) error {
	unlock := r.s.lock()
	defer unlock()

	if _, ok := r.s.requests[req.ID]; ok {
		return store.ErrDuplicate
	}
	// Mirror the partial unique index: one pending request per pair.
	if req.Status == model.RequestStatusPending {
		for _, existing := range r.s.requests {
			if existing.IsPending() && existing.LessonID == req.LessonID && existing.StudentID == req.StudentID {
				return store.ErrDuplicate
			}
		}
	}
	if req.Version == 0 {
		req.Version = 1
	}
	r.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r *cancellationRepository) Get(ctx context.Context, id uuid.UUID) (*model.CancellationRequest, error) {
	unlock := r.s.rlock()
	defer unlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneRequest(req)
	return &out, nil
}

func (r *cancellationRepository) Update(ctx context.Context, req *model.CancellationRequest) error {
	unlock := r.s.lock()
	defer unlock()

	current, ok := r.s.requests[req.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != req.Version {
		return store.ErrVersionConflict
	}
	req.Version++
	r.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r *cancellationRepository) FindPending(ctx context.Context, lessonID, studentID uuid.UUID) (*model.CancellationRequest, error) {
	unlock := r.s.rlock()
	defer unlock()

	for _, req := range r.s.requests {
		if req.IsPending() && req.LessonID == lessonID && req.StudentID == studentID {
			out := cloneRequest(req)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *cancellationRepository) CountForStudentBetween(ctx context.Context, studentID uuid.UUID, statuses []model.RequestStatus, from, to time.Time) (int, error) {
	unlock := r.s.rlock()
	defer unlock()

	count := 0
	for _, req := range r.s.requests {
		if req.StudentID != studentID {
			continue
		}
		if req.CreatedAt.Before(from) || !req.CreatedAt.Before(to) {
			continue
		}
		for _, st := range statuses {
			if req.Status == st {
				count++
				break
			}
		}
	}
	return count, nil
}
