package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/lesson-engine/internal/model"
)

// approvedCredit drives a lesson through submit+approve and returns the
// granted credit.
func approvedCredit(t *testing.T, eng *Engine, student uuid.UUID, lessonStart time.Time) *model.MakeupCredit {
	t.Helper()
	ctx := context.Background()

	lesson := createLessonAt(t, eng, lessonStart, student)
	req, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "away")
	require.NoError(t, err)
	_, err = eng.Cancellations.Decide(ctx, req.ID, true, "admin", "")
	require.NoError(t, err)

	credits, err := eng.Makeups.ListForStudent(ctx, student)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	return credits[0]
}

func TestExtendUpToCeiling(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	credit := approvedCredit(t, eng, uuid.New(), testNow.Add(48*time.Hour))

	// approval+30d -> +40 -> +50 -> +60.
	for i := 0; i < 3; i++ {
		var err error
		credit, err = eng.Makeups.Extend(ctx, credit.ID, 10, "family situation")
		require.NoError(t, err)
	}
	assert.Equal(t, credit.ApprovedAt.Add(60*24*time.Hour), credit.ExpiresAt)

	// The fourth ten-day extension would pass approval+60d.
	_, err := eng.Makeups.Extend(ctx, credit.ID, 10, "once more")
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestExtendValidation(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	credit := approvedCredit(t, eng, uuid.New(), testNow.Add(48*time.Hour))

	_, err := eng.Makeups.Extend(ctx, credit.ID, 0, "noop")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = eng.Makeups.Extend(ctx, uuid.New(), 5, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScheduleReplacementLesson(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	credit := approvedCredit(t, eng, student, testNow.Add(48*time.Hour))

	start := testNow.Add(5 * 24 * time.Hour)
	scheduled, err := eng.Makeups.Schedule(ctx, credit.ID, soloSpec(start, start.Add(time.Hour), uuid.New(), uuid.New(), student))
	require.NoError(t, err)
	assert.Equal(t, model.CreditStatusScheduled, scheduled.Status)
	require.NotNil(t, scheduled.ReplacementLessonID)

	replacement, err := eng.Scheduler.Get(ctx, *scheduled.ReplacementLessonID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusScheduled, replacement.Status)

	// A second booking on the same credit is rejected.
	_, err = eng.Makeups.Schedule(ctx, credit.ID, soloSpec(start.Add(2*time.Hour), start.Add(3*time.Hour), uuid.New(), uuid.New(), student))
	var serr *InvalidStateTransition
	require.ErrorAs(t, err, &serr)
}

func TestScheduleSubjectToConflictRules(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	credit := approvedCredit(t, eng, student, testNow.Add(48*time.Hour))

	tutor := uuid.New()
	start := testNow.Add(5 * 24 * time.Hour)
	_, err := eng.Scheduler.Create(ctx, soloSpec(start, start.Add(time.Hour), tutor, uuid.New(), uuid.New()))
	require.NoError(t, err)

	_, err = eng.Makeups.Schedule(ctx, credit.ID, soloSpec(start.Add(30*time.Minute), start.Add(90*time.Minute), tutor, uuid.New(), student))
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)

	// The failed booking left the credit untouched.
	got, err := eng.Makeups.Get(ctx, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CreditStatusPending, got.Status)
	assert.Nil(t, got.ReplacementLessonID)
}

func TestSchedulePastExpiryRejected(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	credit := approvedCredit(t, eng, student, testNow.Add(48*time.Hour))

	clk.Set(credit.ExpiresAt.Add(time.Second))
	start := clk.Now().Add(48 * time.Hour)
	_, err := eng.Makeups.Schedule(ctx, credit.ID, soloSpec(start, start.Add(time.Hour), uuid.New(), uuid.New(), student))
	var serr *InvalidStateTransition
	require.ErrorAs(t, err, &serr)
}

func TestMarkCompleted(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	credit := approvedCredit(t, eng, student, testNow.Add(48*time.Hour))

	// Completing an unscheduled credit is invalid.
	_, err := eng.Makeups.MarkCompleted(ctx, credit.ID)
	var serr *InvalidStateTransition
	require.ErrorAs(t, err, &serr)

	start := testNow.Add(5 * 24 * time.Hour)
	_, err = eng.Makeups.Schedule(ctx, credit.ID, soloSpec(start, start.Add(time.Hour), uuid.New(), uuid.New(), student))
	require.NoError(t, err)

	done, err := eng.Makeups.MarkCompleted(ctx, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CreditStatusCompleted, done.Status)
}

func TestCompleteForLessonsBridgesStatusAdvance(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	credit := approvedCredit(t, eng, student, testNow.Add(48*time.Hour))

	start := testNow.Add(5 * 24 * time.Hour)
	scheduled, err := eng.Makeups.Schedule(ctx, credit.ID, soloSpec(start, start.Add(time.Hour), uuid.New(), uuid.New(), student))
	require.NoError(t, err)

	clk.Set(start.Add(2 * time.Hour))
	completed, err := eng.Scheduler.AdvanceStatuses(ctx, clk.Now())
	require.NoError(t, err)
	require.Contains(t, completed, *scheduled.ReplacementLessonID)
	require.NoError(t, eng.Makeups.CompleteForLessons(ctx, completed))

	got, err := eng.Makeups.Get(ctx, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CreditStatusCompleted, got.Status)
}
