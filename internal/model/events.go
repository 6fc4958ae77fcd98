package model

import (
	"time"

	"github.com/google/uuid"
)

// DecisionEvent is emitted after a cancellation request reaches a terminal
// state. Dispatch (email, push) is an external collaborator's job.
type DecisionEvent struct {
	RequestID uuid.UUID  `json:"request_id"`
	LessonID  uuid.UUID  `json:"lesson_id"`
	StudentID uuid.UUID  `json:"student_id"`
	Approved  bool       `json:"approved"`
	DecidedBy string     `json:"decided_by"`
	DecidedAt time.Time  `json:"decided_at"`
	CreditID  *uuid.UUID `json:"credit_id,omitempty"` // set on approval
}

// SweepReport summarizes one expiration pass over makeup credits.
type SweepReport struct {
	RunAt        time.Time      `json:"run_at"`
	Expired      []MakeupCredit `json:"expired"`
	ExpiringSoon []MakeupCredit `json:"expiring_soon"` // first seen inside the reminder window
	Skipped      int            `json:"skipped"`       // lost optimistic races, retried next sweep
}
