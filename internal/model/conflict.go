package model

import "github.com/google/uuid"

type ConflictKind string

const (
	// ConflictTutor indicates the tutor is double-booked.
	ConflictTutor ConflictKind = "tutor"
	// ConflictRoom indicates the room is double-booked.
	ConflictRoom ConflictKind = "room"
	// ConflictStudent indicates a student is already enrolled in an
	// overlapping lesson.
	ConflictStudent ConflictKind = "student"
)

// Conflict reports one resource dimension violated by a proposed window,
// with a reference to the lesson already holding it.
type Conflict struct {
	Kind       ConflictKind `json:"kind"`
	ResourceID uuid.UUID    `json:"resource_id"`
	LessonID   uuid.UUID    `json:"lesson_id"`
	Window     TimeWindow   `json:"window"`
}
