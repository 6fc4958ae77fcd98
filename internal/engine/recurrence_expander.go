package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

// RecurrenceExpander turns a recurrence rule plus an anchor lesson into
// the concrete instances of the series. Expansion is pure; pairing each
// instance with its conflicts is a separate step so the caller owns the
// accept/reject policy.
type RecurrenceExpander struct{}

func NewRecurrenceExpander() *RecurrenceExpander {
	return &RecurrenceExpander{}
}

// ExpansionResult pairs a generated instance with the conflicts found for
// it. Conflicts is empty when the instance is clean.
type ExpansionResult struct {
	Lesson    *model.Lesson
	Conflicts []model.Conflict
}

// Expand generates the full series including the anchor occurrence. Every
// instance inherits the anchor's non-temporal fields and carries a
// reference to the anchor as its series; duration is preserved. A rule
// that would generate more than model.MaxOccurrences instances is a
// validation error, never a silently truncated series.
func (e *RecurrenceExpander) Expand(anchor *model.Lesson, rule model.RecurrenceRule) ([]*model.Lesson, error) {
	if err := rule.Validate(); err != nil {
		return nil, invalidf("recurrence", "%v", err)
	}

	duration := anchor.End.Sub(anchor.Start)
	instances := make([]*model.Lesson, 0, max(rule.Count, 1))

	for k := 0; ; k++ {
		start := rule.NextStart(anchor.Start, k)
		if rule.Count > 0 && k >= rule.Count {
			break
		}
		if rule.Until != nil && start.After(*rule.Until) {
			break
		}
		if len(instances) >= model.MaxOccurrences {
			return nil, invalidf("recurrence", "%v", model.ErrTooManyOccurrences)
		}

		inst := *anchor
		inst.Start = start
		inst.End = start.Add(duration)
		if k == 0 {
			// The anchor is the first occurrence and the only one
			// carrying the rule.
			instances = append(instances, &inst)
			continue
		}
		inst.ID = uuid.New()
		inst.Recurrence = nil
		seriesID := anchor.ID
		inst.SeriesID = &seriesID
		inst.Enrollments = make([]model.Enrollment, len(anchor.Enrollments))
		for i, en := range anchor.Enrollments {
			inst.Enrollments[i] = model.Enrollment{
				LessonID:   inst.ID,
				StudentID:  en.StudentID,
				Attendance: model.AttendanceUnknown,
			}
		}
		instances = append(instances, &inst)
	}
	return instances, nil
}

// CheckBatch runs every instance through the conflict check and reports
// the result per instance. Conflicting occurrences are not skipped; the
// caller decides between failing the whole batch and accepting a partial
// series. Instances are also checked against each other, since none of
// them is visible to the store yet.
func (e *RecurrenceExpander) CheckBatch(ctx context.Context, lessons store.LessonRepository, instances []*model.Lesson) ([]ExpansionResult, error) {
	results := make([]ExpansionResult, 0, len(instances))
	for i, inst := range instances {
		conflicts, err := findConflicts(ctx, lessons, inst.Window(), &inst.TutorID, &inst.RoomID, inst.StudentIDs(), nil)
		if err != nil {
			return nil, err
		}
		for j := 0; j < i; j++ {
			conflicts = append(conflicts, conflictsBetween(inst, instances[j])...)
		}
		results = append(results, ExpansionResult{Lesson: inst, Conflicts: conflicts})
	}
	return results, nil
}
