package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrVersionConflict indicates a versioned update lost an optimistic race.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrDuplicate indicates a uniqueness rule was violated.
	ErrDuplicate = errors.New("store: duplicate")
)

// StoreError wraps an infrastructure failure (connectivity, timeout,
// driver). Callers may retry the whole operation with backoff.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError annotates err with the failed operation.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
