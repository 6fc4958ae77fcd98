// Package inmem is a mutex-guarded in-memory Store used by the engine's
// tests and by demo wiring. It mirrors the postgres behavior: versioned
// updates, uniqueness rules and an all-or-nothing Atomic scope.
package inmem

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	inTx bool

	lessons  map[uuid.UUID]model.Lesson
	requests map[uuid.UUID]model.CancellationRequest
	credits  map[uuid.UUID]model.MakeupCredit
}

func NewStore() *Store {
	return &Store{
		lessons:  make(map[uuid.UUID]model.Lesson),
		requests: make(map[uuid.UUID]model.CancellationRequest),
		credits:  make(map[uuid.UUID]model.MakeupCredit),
	}
}

func (s *Store) Lessons() store.LessonRepository             { return &lessonRepository{s} }
func (s *Store) Cancellations() store.CancellationRepository { return &cancellationRepository{s} }
func (s *Store) Makeups() store.MakeupRepository             { return &makeupRepository{s} }

// Atomic takes the write lock for the whole scope and runs fn against a
// snapshot. The snapshot replaces live state only when fn succeeds, so a
// failed multi-write leaves nothing behind.
func (s *Store) Atomic(ctx context.Context, fn func(store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return store.NewStoreError("atomic", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{
		inTx:     true,
		lessons:  cloneLessonMap(s.lessons),
		requests: cloneRequestMap(s.requests),
		credits:  cloneCreditMap(s.credits),
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.lessons = tx.lessons
	s.requests = tx.requests
	s.credits = tx.credits
	return nil
}

// read/write guards are no-ops inside a transaction: Atomic already holds
// the write lock.

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func cloneLesson(l model.Lesson) model.Lesson {
	out := l
	out.SeriesID = clonePtr(l.SeriesID)
	out.Recurrence = clonePtr(l.Recurrence)
	out.CancelledBy = clonePtr(l.CancelledBy)
	out.Enrollments = append([]model.Enrollment(nil), l.Enrollments...)
	return out
}

func cloneRequest(r model.CancellationRequest) model.CancellationRequest {
	out := r
	out.DecidedBy = clonePtr(r.DecidedBy)
	out.DecidedAt = clonePtr(r.DecidedAt)
	return out
}

func cloneCredit(c model.MakeupCredit) model.MakeupCredit {
	out := c
	out.ReplacementLessonID = clonePtr(c.ReplacementLessonID)
	out.RemindedAt = clonePtr(c.RemindedAt)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLessonMap(in map[uuid.UUID]model.Lesson) map[uuid.UUID]model.Lesson {
	out := make(map[uuid.UUID]model.Lesson, len(in))
	for k, v := range in {
		out[k] = cloneLesson(v)
	}
	return out
}

func cloneRequestMap(in map[uuid.UUID]model.CancellationRequest) map[uuid.UUID]model.CancellationRequest {
	out := make(map[uuid.UUID]model.CancellationRequest, len(in))
	for k, v := range in {
		out[k] = cloneRequest(v)
	}
	return out
}

func cloneCreditMap(in map[uuid.UUID]model.MakeupCredit) map[uuid.UUID]model.MakeupCredit {
	out := make(map[uuid.UUID]model.MakeupCredit, len(in))
	for k, v := range in {
		out[k] = cloneCredit(v)
	}
	return out
}
