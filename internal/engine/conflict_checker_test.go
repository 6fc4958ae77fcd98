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

func TestFindConflictsReportsEachDimension(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	tutor := uuid.New()
	room := uuid.New()
	student := uuid.New()
	start := testNow.Add(48 * time.Hour)

	existing, err := eng.Scheduler.Create(ctx, soloSpec(start, start.Add(time.Hour), tutor, room, student))
	require.NoError(t, err)

	conflicts, err := eng.Conflicts.FindConflicts(ctx,
		window(start.Add(30*time.Minute), time.Hour),
		&tutor, &room, []uuid.UUID{student}, nil)
	require.NoError(t, err)
	require.Len(t, conflicts, 3)

	kinds := map[model.ConflictKind]model.Conflict{}
	for _, c := range conflicts {
		kinds[c.Kind] = c
		assert.Equal(t, existing.ID, c.LessonID)
	}
	assert.Equal(t, tutor, kinds[model.ConflictTutor].ResourceID)
	assert.Equal(t, room, kinds[model.ConflictRoom].ResourceID)
	assert.Equal(t, student, kinds[model.ConflictStudent].ResourceID)
}

func TestFindConflictsTouchingEndpointsDoNotConflict(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	tutor := uuid.New()
	room := uuid.New()
	start := testNow.Add(48 * time.Hour)

	_, err := eng.Scheduler.Create(ctx, soloSpec(start, start.Add(time.Hour), tutor, room, uuid.New()))
	require.NoError(t, err)

	// [11:00, 12:00) right after [10:00, 11:00).
	conflicts, err := eng.Conflicts.FindConflicts(ctx,
		window(start.Add(time.Hour), time.Hour),
		&tutor, &room, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}

func TestFindConflictsExcludesLesson(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	tutor := uuid.New()
	start := testNow.Add(48 * time.Hour)

	lesson, err := eng.Scheduler.Create(ctx, soloSpec(start, start.Add(time.Hour), tutor, uuid.New(), uuid.New()))
	require.NoError(t, err)

	// The lesson's own window conflicts with itself unless excluded.
	conflicts, err := eng.Conflicts.FindConflicts(ctx, lesson.Window(), &tutor, nil, nil, nil)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)

	conflicts, err = eng.Conflicts.FindConflicts(ctx, lesson.Window(), &tutor, nil, nil, &lesson.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestFindConflictsIgnoresCancelledLessons(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	tutor := uuid.New()
	start := testNow.Add(48 * time.Hour)

	lesson, err := eng.Scheduler.Create(ctx, soloSpec(start, start.Add(time.Hour), tutor, uuid.New(), uuid.New()))
	require.NoError(t, err)
	_, err = eng.Scheduler.Cancel(ctx, lesson.ID, "admin")
	require.NoError(t, err)

	conflicts, err := eng.Conflicts.FindConflicts(ctx, lesson.Window(), &tutor, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestFindConflictsStudentAcrossGroupLessons(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	student := uuid.New()
	start := testNow.Add(48 * time.Hour)

	_, err := eng.Scheduler.Create(ctx, groupSpec(start, start.Add(time.Hour), uuid.New(), uuid.New(), student, uuid.New()))
	require.NoError(t, err)

	// Same student with a different tutor and room still conflicts.
	conflicts, err := eng.Conflicts.FindConflicts(ctx,
		window(start.Add(15*time.Minute), time.Hour),
		nil, nil, []uuid.UUID{student}, nil)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, model.ConflictStudent, conflicts[0].Kind)
}
