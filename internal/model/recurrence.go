package model

import (
	"errors"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// MaxOccurrences bounds how many instances a single rule may generate.
// A rule that would exceed it is rejected outright, never truncated.
const MaxOccurrences = 366

var (
	ErrUnknownFrequency   = errors.New("recurrence: unknown frequency")
	ErrNoEndCondition     = errors.New("recurrence: rule needs exactly one of count or until")
	ErrTooManyOccurrences = errors.New("recurrence: rule exceeds the occurrence limit")
)

// RecurrenceRule describes how a series repeats from its anchor lesson.
// Exactly one end condition is set: a fixed occurrence count or an
// inclusive end date for occurrence starts.
type RecurrenceRule struct {
	Freq  Frequency  `json:"freq"`
	Count int        `json:"count,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

// Validate checks the rule at the boundary so expansion never has to
// interpret a malformed rule.
func (r RecurrenceRule) Validate() error {
	switch r.Freq {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return ErrUnknownFrequency
	}
	hasCount := r.Count > 0
	hasUntil := r.Until != nil
	if hasCount == hasUntil {
		return ErrNoEndCondition
	}
	if r.Count > MaxOccurrences {
		return ErrTooManyOccurrences
	}
	return nil
}

// NextStart returns the start of occurrence k (k >= 0) anchored at start.
func (r RecurrenceRule) NextStart(start time.Time, k int) time.Time {
	switch r.Freq {
	case FrequencyDaily:
		return start.AddDate(0, 0, k)
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*k)
	case FrequencyMonthly:
		return start.AddDate(0, k, 0)
	}
	return start
}
