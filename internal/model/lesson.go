package model

import (
	"time"

	"github.com/google/uuid"
)

type LessonStatus string

const (
	LessonStatusScheduled LessonStatus = "scheduled"
	LessonStatusOngoing   LessonStatus = "ongoing"
	LessonStatusCompleted LessonStatus = "completed"
	LessonStatusCancelled LessonStatus = "cancelled"
)

// Lesson occupies a tutor, a room and its enrolled students for the
// [Start, End) window. Tutor/room/subject ids are opaque references
// owned by the account and catalog collaborators.
type Lesson struct {
	ID              uuid.UUID  `json:"id"`
	SeriesID        *uuid.UUID `json:"series_id"` // anchor lesson of the recurrence series, nil for standalone
	SubjectID       uuid.UUID  `json:"subject_id"`
	TutorID         uuid.UUID  `json:"tutor_id"`
	RoomID          uuid.UUID  `json:"room_id"`
	Level           string     `json:"level"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	IsGroup         bool       `json:"is_group"`
	MaxParticipants int        `json:"max_participants"` // group lessons only

	Status      LessonStatus    `json:"status"`
	Recurrence  *RecurrenceRule `json:"recurrence,omitempty"` // set on the series anchor only
	Enrollments []Enrollment    `json:"enrollments"`
	CancelledBy *string         `json:"cancelled_by,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Window returns the lesson's occupancy window.
func (l *Lesson) Window() TimeWindow {
	return TimeWindow{Start: l.Start, End: l.End}
}

// IsActive reports whether the lesson still occupies its window for
// conflict purposes.
func (l *Lesson) IsActive() bool {
	return l.Status != LessonStatusCancelled
}

// IsTerminal reports whether no further scheduling transitions apply.
func (l *Lesson) IsTerminal() bool {
	return l.Status == LessonStatusCompleted || l.Status == LessonStatusCancelled
}

// HasStudent reports whether the student is enrolled in this lesson.
func (l *Lesson) HasStudent(studentID uuid.UUID) bool {
	for _, e := range l.Enrollments {
		if e.StudentID == studentID {
			return true
		}
	}
	return false
}

// StudentIDs returns the enrolled student references in enrollment order.
func (l *Lesson) StudentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(l.Enrollments))
	for _, e := range l.Enrollments {
		ids = append(ids, e.StudentID)
	}
	return ids
}
