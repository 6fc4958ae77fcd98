package model

import "github.com/google/uuid"

type AttendanceStatus string

const (
	AttendanceUnknown AttendanceStatus = "unknown"
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// ValidAttendanceStatus reports whether s is one of the closed set of
// attendance values.
func ValidAttendanceStatus(s AttendanceStatus) bool {
	switch s {
	case AttendanceUnknown, AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Enrollment ties a student to a lesson. Attendance is recorded after the
// fact by the tutor-facing collaborator; the engine only stores the value.
type Enrollment struct {
	LessonID   uuid.UUID        `json:"lesson_id"`
	StudentID  uuid.UUID        `json:"student_id"`
	Attendance AttendanceStatus `json:"attendance"`
}
