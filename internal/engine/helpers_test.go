package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/lesson-engine/internal/clock"
	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store/inmem"
)

// All engine tests run against the in-memory store with the clock pinned
// to a known instant.
var testNow = time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *inmem.Store, *clock.Mock) {
	t.Helper()
	st := inmem.NewStore()
	clk := clock.NewMock(testNow)
	eng := New(st, clk, nil, DefaultConfig(), zap.NewNop())
	return eng, st, clk
}

func soloSpec(start, end time.Time, tutor, room, student uuid.UUID) LessonSpec {
	return LessonSpec{
		SubjectID:  uuid.New(),
		TutorID:    tutor,
		RoomID:     room,
		Level:      "B2",
		StudentIDs: []uuid.UUID{student},
		Start:      start,
		End:        end,
	}
}

func groupSpec(start, end time.Time, tutor, room uuid.UUID, students ...uuid.UUID) LessonSpec {
	return LessonSpec{
		SubjectID:       uuid.New(),
		TutorID:         tutor,
		RoomID:          room,
		StudentIDs:      students,
		Start:           start,
		End:             end,
		IsGroup:         true,
		MaxParticipants: len(students) + 2,
	}
}

func window(start time.Time, d time.Duration) model.TimeWindow {
	return model.TimeWindow{Start: start, End: start.Add(d)}
}
