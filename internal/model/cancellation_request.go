package model

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// CancellationRequest is a student's ask to cancel an upcoming lesson.
// At most one pending request may exist per (lesson, student) pair.
// Approved and Rejected are terminal.
type CancellationRequest struct {
	ID        uuid.UUID     `json:"id"`
	LessonID  uuid.UUID     `json:"lesson_id"`
	StudentID uuid.UUID     `json:"student_id"`
	Reason    string        `json:"reason"`
	Status    RequestStatus `json:"status"`

	DecisionComment string     `json:"decision_comment,omitempty"`
	DecidedBy       *string    `json:"decided_by,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// IsPending checks if the request still awaits a decision.
func (r *CancellationRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// IsApproved checks if the request was approved.
func (r *CancellationRequest) IsApproved() bool {
	return r.Status == RequestStatusApproved
}

// IsRejected checks if the request was rejected.
func (r *CancellationRequest) IsRejected() bool {
	return r.Status == RequestStatusRejected
}
