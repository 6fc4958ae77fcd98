package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/lesson-engine/internal/model"
)

func anchorLesson(start, end time.Time) *model.Lesson {
	id := uuid.New()
	return &model.Lesson{
		ID:        id,
		SubjectID: uuid.New(),
		TutorID:   uuid.New(),
		RoomID:    uuid.New(),
		Start:     start,
		End:       end,
		Status:    model.LessonStatusScheduled,
		Enrollments: []model.Enrollment{
			{LessonID: id, StudentID: uuid.New(), Attendance: model.AttendanceUnknown},
		},
	}
}

func TestExpandWeeklyByCount(t *testing.T) {
	expander := NewRecurrenceExpander()
	start := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	anchor := anchorLesson(start, start.Add(time.Hour))
	anchor.Recurrence = &model.RecurrenceRule{Freq: model.FrequencyWeekly, Count: 4}

	instances, err := expander.Expand(anchor, *anchor.Recurrence)
	require.NoError(t, err)
	require.Len(t, instances, 4)

	wantDays := []int{1, 8, 15, 22}
	for i, inst := range instances {
		assert.Equal(t, time.Date(2025, 9, wantDays[i], 10, 0, 0, 0, time.UTC), inst.Start)
		assert.Equal(t, time.Hour, inst.End.Sub(inst.Start))
		assert.Equal(t, anchor.TutorID, inst.TutorID)
		require.Len(t, inst.Enrollments, 1)
		assert.Equal(t, anchor.Enrollments[0].StudentID, inst.Enrollments[0].StudentID)
	}

	// Only the anchor keeps the rule; the rest reference it as series.
	assert.Equal(t, anchor.ID, instances[0].ID)
	assert.NotNil(t, instances[0].Recurrence)
	for _, inst := range instances[1:] {
		assert.Nil(t, inst.Recurrence)
		require.NotNil(t, inst.SeriesID)
		assert.Equal(t, anchor.ID, *inst.SeriesID)
		assert.Equal(t, inst.ID, inst.Enrollments[0].LessonID)
	}
}

func TestExpandDailyUntilInclusive(t *testing.T) {
	expander := NewRecurrenceExpander()
	start := time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC)
	anchor := anchorLesson(start, start.Add(30*time.Minute))
	until := time.Date(2025, 9, 3, 18, 0, 0, 0, time.UTC)

	instances, err := expander.Expand(anchor, model.RecurrenceRule{Freq: model.FrequencyDaily, Until: &until})
	require.NoError(t, err)
	// Sept 1, 2 and 3: an occurrence starting exactly at the end date counts.
	require.Len(t, instances, 3)
	assert.Equal(t, until, instances[2].Start)
}

func TestExpandMonthlyPreservesDuration(t *testing.T) {
	expander := NewRecurrenceExpander()
	start := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	anchor := anchorLesson(start, start.Add(2*time.Hour))

	instances, err := expander.Expand(anchor, model.RecurrenceRule{Freq: model.FrequencyMonthly, Count: 2})
	require.NoError(t, err)
	require.Len(t, instances, 2)
	// time.AddDate normalizes Jan 31 + 1 month to Mar 3.
	assert.Equal(t, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), instances[1].Start)
	assert.Equal(t, 2*time.Hour, instances[1].End.Sub(instances[1].Start))
}

func TestExpandRejectsMalformedRules(t *testing.T) {
	expander := NewRecurrenceExpander()
	start := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	anchor := anchorLesson(start, start.Add(time.Hour))
	until := start.AddDate(0, 1, 0)

	cases := []struct {
		name string
		rule model.RecurrenceRule
	}{
		{"unknown frequency", model.RecurrenceRule{Freq: "hourly", Count: 3}},
		{"no end condition", model.RecurrenceRule{Freq: model.FrequencyWeekly}},
		{"both end conditions", model.RecurrenceRule{Freq: model.FrequencyWeekly, Count: 3, Until: &until}},
		{"count over limit", model.RecurrenceRule{Freq: model.FrequencyDaily, Count: model.MaxOccurrences + 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := expander.Expand(anchor, tc.rule)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestExpandRejectsUnboundedUntil(t *testing.T) {
	expander := NewRecurrenceExpander()
	start := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	anchor := anchorLesson(start, start.Add(time.Hour))

	// Daily for two years exceeds the occurrence limit and is rejected,
	// never truncated.
	until := start.AddDate(2, 0, 0)
	_, err := expander.Expand(anchor, model.RecurrenceRule{Freq: model.FrequencyDaily, Until: &until})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
