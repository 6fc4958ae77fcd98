package inmem

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

type makeupRepository struct {
	s *Store
}

func (r *makeupRepository) Create(ctx context.Context, credit *model.MakeupCredit) error {
	unlock := r.s.lock()
	defer unlock()

	if _, ok := r.s.credits[credit.ID]; ok {
		return store.ErrDuplicate
	}
	// One credit per approved request.
	for _, existing := range r.s.credits {
		if existing.RequestID == credit.RequestID {
			return store.ErrDuplicate
		}
	}
	if credit.Version == 0 {
		credit.Version = 1
	}
	r.s.credits[credit.ID] = cloneCredit(*credit)
	return nil
}

func (r *makeupRepository) Get(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error) {
	unlock := r.s.rlock()
	defer unlock()

	c, ok := r.s.credits[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneCredit(c)
	return &out, nil
}

func (r *makeupRepository) FindByRequest(ctx context.Context, requestID uuid.UUID) (*model.MakeupCredit, error) {
	unlock := r.s.rlock()
	defer unlock()

	for _, c := range r.s.credits {
		if c.RequestID == requestID {
			out := cloneCredit(c)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *makeupRepository) Update(ctx context.Context, credit *model.MakeupCredit) error {
	unlock := r.s.lock()
	defer unlock()

	current, ok := r.s.credits[credit.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != credit.Version {
		return store.ErrVersionConflict
	}
	credit.Version++
	r.s.credits[credit.ID] = cloneCredit(*credit)
	return nil
}

func (r *makeupRepository) ListByStatus(ctx context.Context, statuses []model.CreditStatus) ([]*model.MakeupCredit, error) {
	return r.list(func(c model.MakeupCredit) bool {
		for _, st := range statuses {
			if c.Status == st {
				return true
			}
		}
		return false
	})
}

func (r *makeupRepository) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*model.MakeupCredit, error) {
	return r.list(func(c model.MakeupCredit) bool {
		return c.StudentID == studentID
	})
}

func (r *makeupRepository) ListByReplacementLessons(ctx context.Context, lessonIDs []uuid.UUID) ([]*model.MakeupCredit, error) {
	ids := make(map[uuid.UUID]struct{}, len(lessonIDs))
	for _, id := range lessonIDs {
		ids[id] = struct{}{}
	}
	return r.list(func(c model.MakeupCredit) bool {
		if c.ReplacementLessonID == nil {
			return false
		}
		_, ok := ids[*c.ReplacementLessonID]
		return ok
	})
}

func (r *makeupRepository) list(match func(model.MakeupCredit) bool) ([]*model.MakeupCredit, error) {
	unlock := r.s.rlock()
	defer unlock()

	out := make([]*model.MakeupCredit, 0)
	for _, c := range r.s.credits {
		if match(c) {
			clone := cloneCredit(c)
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}
