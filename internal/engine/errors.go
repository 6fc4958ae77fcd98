package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/campushq/lesson-engine/internal/model"
)

// Business rejections the caller presents to the user as-is. Infrastructure
// failures surface separately as *store.StoreError.
var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("engine: not found")
	// ErrTooLate rejects a cancellation submitted inside the notice period.
	ErrTooLate = errors.New("engine: lesson starts too soon to cancel")
	// ErrQuotaExceeded rejects a cancellation over the monthly limit.
	ErrQuotaExceeded = errors.New("engine: monthly cancellation quota exceeded")
	// ErrDuplicateRequest rejects a second pending request for the same
	// lesson and student.
	ErrDuplicateRequest = errors.New("engine: cancellation request already pending")
	// ErrLimitExceeded rejects a makeup extension past the hard ceiling.
	ErrLimitExceeded = errors.New("engine: makeup extension limit exceeded")
)

// ValidationError reports malformed input, caught before any store access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError carries every resource dimension the proposed window
// would double-book.
type ConflictError struct {
	Conflicts []model.Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		c := e.Conflicts[0]
		return fmt.Sprintf("scheduling conflict: %s %s already booked by lesson %s", c.Kind, c.ResourceID, c.LessonID)
	}
	return fmt.Sprintf("scheduling conflict: %d overlapping bookings", len(e.Conflicts))
}

// InvalidStateTransition reports an operation that is not valid for the
// entity's current status.
type InvalidStateTransition struct {
	Entity string
	ID     uuid.UUID
	Status string
	Op     string
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("%s %s: cannot %s while %s", e.Entity, e.ID, e.Op, e.Status)
}
