package model

import (
	"time"

	"github.com/google/uuid"
)

type CreditStatus string

const (
	CreditStatusPending   CreditStatus = "pending"   // entitlement exists, no replacement booked
	CreditStatusScheduled CreditStatus = "scheduled" // replacement lesson booked
	CreditStatusCompleted CreditStatus = "completed" // replacement lesson took place
	CreditStatusExpired   CreditStatus = "expired"   // validity window passed unused
)

// MakeupCredit entitles a student to re-book one lesson after an approved
// cancellation. RequestID is the idempotency key: one credit per approved
// request, enforced by the store.
type MakeupCredit struct {
	ID               uuid.UUID    `json:"id"`
	RequestID        uuid.UUID    `json:"request_id"`
	OriginalLessonID uuid.UUID    `json:"original_lesson_id"`
	StudentID        uuid.UUID    `json:"student_id"`
	Status           CreditStatus `json:"status"`

	ApprovedAt          time.Time  `json:"approved_at"`
	ExpiresAt           time.Time  `json:"expires_at"`
	ReplacementLessonID *uuid.UUID `json:"replacement_lesson_id,omitempty"`
	RemindedAt          *time.Time `json:"reminded_at,omitempty"` // expiry reminder already reported

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOpen reports whether the credit can still change state: expiration,
// extension and scheduling only apply to pending or scheduled credits.
func (c *MakeupCredit) IsOpen() bool {
	return c.Status == CreditStatusPending || c.Status == CreditStatusScheduled
}

// ExpiredBy reports whether the validity window has passed at now.
func (c *MakeupCredit) ExpiredBy(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
