package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/lesson-engine/internal/model"
)

func createLessonAt(t *testing.T, eng *Engine, start time.Time, student uuid.UUID) *model.Lesson {
	t.Helper()
	lesson, err := eng.Scheduler.Create(context.Background(),
		soloSpec(start, start.Add(time.Hour), uuid.New(), uuid.New(), student))
	require.NoError(t, err)
	return lesson
}

func TestSubmitRejectsTooLate(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	lesson := createLessonAt(t, eng, testNow.Add(23*time.Hour), student)

	_, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "sick")
	require.ErrorIs(t, err, ErrTooLate)

	// 25 hours out is fine.
	lesson = createLessonAt(t, eng, testNow.Add(25*time.Hour), student)
	req, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "sick")
	require.NoError(t, err)
	assert.True(t, req.IsPending())
}

func TestSubmitRejectsOverQuota(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	for i := 0; i < 3; i++ {
		lesson := createLessonAt(t, eng, testNow.Add(time.Duration(48+24*i)*time.Hour), student)
		_, err := eng.Cancellations.Submit(ctx, lesson.ID, student, fmt.Sprintf("reason %d", i))
		require.NoError(t, err)
	}

	lesson := createLessonAt(t, eng, testNow.Add(25*time.Hour), student)
	_, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "one too many")
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// Another student is unaffected.
	other := uuid.New()
	lesson = createLessonAt(t, eng, testNow.Add(72*time.Hour), other)
	_, err = eng.Cancellations.Submit(ctx, lesson.ID, other, "fine")
	require.NoError(t, err)
}

func TestSubmitQuotaResetsNextMonth(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	for i := 0; i < 3; i++ {
		lesson := createLessonAt(t, eng, testNow.Add(time.Duration(48+24*i)*time.Hour), student)
		_, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "august")
		require.NoError(t, err)
	}

	// The quota counts requests created in the current calendar month.
	clk.Set(time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC))
	lesson := createLessonAt(t, eng, clk.Now().Add(48*time.Hour), student)
	_, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "september")
	require.NoError(t, err)
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	lesson := createLessonAt(t, eng, testNow.Add(48*time.Hour), student)

	_, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "first")
	require.NoError(t, err)
	_, err = eng.Cancellations.Submit(ctx, lesson.ID, student, "second")
	require.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestSubmitRejectsNonEnrolledStudent(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	lesson := createLessonAt(t, eng, testNow.Add(48*time.Hour), uuid.New())

	_, err := eng.Cancellations.Submit(ctx, lesson.ID, uuid.New(), "not mine")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApproveAtomicOutcome(t *testing.T) {
	eng, _, clk := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	lesson := createLessonAt(t, eng, testNow.Add(48*time.Hour), student)
	req, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "travel")
	require.NoError(t, err)

	decidedAt := clk.Advance(time.Hour)
	decided, err := eng.Cancellations.Decide(ctx, req.ID, true, "admin", "ok")
	require.NoError(t, err)
	assert.True(t, decided.IsApproved())
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, decidedAt, *decided.DecidedAt)

	got, err := eng.Scheduler.Get(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusCancelled, got.Status)

	credits, err := eng.Makeups.ListForStudent(ctx, student)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, lesson.ID, credits[0].OriginalLessonID)
	assert.Equal(t, model.CreditStatusPending, credits[0].Status)
	assert.Equal(t, decidedAt.Add(30*24*time.Hour), credits[0].ExpiresAt)
}

func TestRejectLeavesLessonUntouched(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	lesson := createLessonAt(t, eng, testNow.Add(48*time.Hour), student)
	req, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "maybe not")
	require.NoError(t, err)

	decided, err := eng.Cancellations.Decide(ctx, req.ID, false, "admin", "lesson stands")
	require.NoError(t, err)
	assert.True(t, decided.IsRejected())

	got, err := eng.Scheduler.Get(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusScheduled, got.Status)

	credits, err := eng.Makeups.ListForStudent(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, credits)
}

func TestDecideTwiceIsAnError(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	lesson := createLessonAt(t, eng, testNow.Add(48*time.Hour), student)
	req, err := eng.Cancellations.Submit(ctx, lesson.ID, student, "travel")
	require.NoError(t, err)

	_, err = eng.Cancellations.Decide(ctx, req.ID, true, "admin", "")
	require.NoError(t, err)

	_, err = eng.Cancellations.Decide(ctx, req.ID, false, "admin", "changed my mind")
	var serr *InvalidStateTransition
	require.ErrorAs(t, err, &serr)

	// Still exactly one credit.
	credits, err := eng.Makeups.ListForStudent(ctx, student)
	require.NoError(t, err)
	assert.Len(t, credits, 1)
}

func TestSubmitForCancelledLesson(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	lesson := createLessonAt(t, eng, testNow.Add(48*time.Hour), student)
	_, err := eng.Scheduler.Cancel(ctx, lesson.ID, "admin")
	require.NoError(t, err)

	_, err = eng.Cancellations.Submit(ctx, lesson.ID, student, "already gone")
	var serr *InvalidStateTransition
	require.ErrorAs(t, err, &serr)
}
