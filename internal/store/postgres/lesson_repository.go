package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

type lessonRepository struct {
	s *Store
}

const lessonColumns = `
	id, series_id, subject_id, tutor_id, room_id, level,
	start_time, end_time, is_group, max_participants, status,
	recur_freq, recur_count, recur_until, cancelled_by,
	version, created_at, updated_at`

func (r *lessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO lessons (
			id, series_id, subject_id, tutor_id, room_id, level,
			start_time, end_time, is_group, max_participants, status,
			recur_freq, recur_count, recur_until, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING version
	`

	var freq *string
	var count *int
	var until *time.Time
	if rule := lesson.Recurrence; rule != nil {
		f := string(rule.Freq)
		freq = &f
		if rule.Count > 0 {
			c := rule.Count
			count = &c
		}
		until = rule.Until
	}

	err := r.s.db.QueryRow(
		ctx, query,
		lesson.ID,
		lesson.SeriesID,
		lesson.SubjectID,
		lesson.TutorID,
		lesson.RoomID,
		lesson.Level,
		lesson.Start,
		lesson.End,
		lesson.IsGroup,
		lesson.MaxParticipants,
		lesson.Status,
		freq,
		count,
		until,
		lesson.CreatedAt,
		lesson.UpdatedAt,
	).Scan(&lesson.Version)
	if err != nil {
		return wrapErr("create lesson", err)
	}

	for i := range lesson.Enrollments {
		e := &lesson.Enrollments[i]
		_, err := r.s.db.Exec(ctx, `
			INSERT INTO lesson_enrollments (lesson_id, student_id, attendance)
			VALUES ($1, $2, $3)
		`, lesson.ID, e.StudentID, e.Attendance)
		if err != nil {
			return wrapErr("create enrollment", err)
		}
	}
	return nil
}

func (r *lessonRepository) CreateBatch(ctx context.Context, lessons []*model.Lesson) error {
	for _, l := range lessons {
		if err := r.Create(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *lessonRepository) Get(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	lesson, err := scanLesson(r.s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapErr("get lesson", err)
	}
	if err := r.attachEnrollments(ctx, []*model.Lesson{lesson}); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *lessonRepository) Update(ctx context.Context, lesson *model.Lesson) error {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `
		UPDATE lessons
		SET start_time = $1, end_time = $2, status = $3, cancelled_by = $4,
		    updated_at = $5, version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version
	`

	err := r.s.db.QueryRow(
		ctx, query,
		lesson.Start,
		lesson.End,
		lesson.Status,
		lesson.CancelledBy,
		lesson.UpdatedAt,
		lesson.ID,
		lesson.Version,
	).Scan(&lesson.Version)
	if err != nil {
		// The caller read the row in this same transaction, so no rows
		// means the version moved, not that the lesson vanished.
		if err == pgx.ErrNoRows {
			return store.ErrVersionConflict
		}
		return wrapErr("update lesson", err)
	}
	return nil
}

func (r *lessonRepository) ListOverlapping(ctx context.Context, window model.TimeWindow, exclude *uuid.UUID) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE status <> 'cancelled'
		  AND start_time < $2
		  AND end_time > $1
		  AND ($3::uuid IS NULL OR id <> $3)
		ORDER BY start_time
	`
	return r.query(ctx, "list overlapping lessons", query, window.Start, window.End, exclude)
}

func (r *lessonRepository) ListActiveBefore(ctx context.Context, now time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE status IN ('scheduled', 'ongoing')
		  AND start_time <= $1
		ORDER BY start_time
	`
	return r.query(ctx, "list due lessons", query, now)
}

func (r *lessonRepository) ListForStudent(ctx context.Context, studentID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE start_time < $3
		  AND end_time > $2
		  AND id IN (SELECT lesson_id FROM lesson_enrollments WHERE student_id = $1)
		ORDER BY start_time
	`
	return r.query(ctx, "list lessons for student", query, studentID, window.Start, window.End)
}

func (r *lessonRepository) ListForTutor(ctx context.Context, tutorID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE tutor_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`
	return r.query(ctx, "list lessons for tutor", query, tutorID, window.Start, window.End)
}

func (r *lessonRepository) ListForRoom(ctx context.Context, roomID uuid.UUID, window model.TimeWindow) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE room_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`
	return r.query(ctx, "list lessons for room", query, roomID, window.Start, window.End)
}

func (r *lessonRepository) SetAttendance(ctx context.Context, lessonID, studentID uuid.UUID, status model.AttendanceStatus) error {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	result, err := r.s.db.Exec(ctx, `
		UPDATE lesson_enrollments
		SET attendance = $1
		WHERE lesson_id = $2 AND student_id = $3
	`, status, lessonID, studentID)
	if err != nil {
		return wrapErr("set attendance", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *lessonRepository) query(ctx context.Context, op, query string, args ...any) ([]*model.Lesson, error) {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	rows, err := r.s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	if err := r.attachEnrollments(ctx, lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepository) attachEnrollments(ctx context.Context, lessons []*model.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(lessons))
	byID := make(map[uuid.UUID]*model.Lesson, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
		byID[l.ID] = l
		l.Enrollments = nil
	}

	rows, err := r.s.db.Query(ctx, `
		SELECT lesson_id, student_id, attendance
		FROM lesson_enrollments
		WHERE lesson_id = ANY($1)
	`, ids)
	if err != nil {
		return wrapErr("load enrollments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.LessonID, &e.StudentID, &e.Attendance); err != nil {
			return wrapErr("scan enrollment", err)
		}
		if l, ok := byID[e.LessonID]; ok {
			l.Enrollments = append(l.Enrollments, e)
		}
	}
	if err := rows.Err(); err != nil {
		return wrapErr("load enrollments", err)
	}
	return nil
}

func scanLesson(row pgx.Row) (*model.Lesson, error) {
	var lesson model.Lesson
	var freq *string
	var count *int
	var until *time.Time

	err := row.Scan(
		&lesson.ID,
		&lesson.SeriesID,
		&lesson.SubjectID,
		&lesson.TutorID,
		&lesson.RoomID,
		&lesson.Level,
		&lesson.Start,
		&lesson.End,
		&lesson.IsGroup,
		&lesson.MaxParticipants,
		&lesson.Status,
		&freq,
		&count,
		&until,
		&lesson.CancelledBy,
		&lesson.Version,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if freq != nil {
		rule := &model.RecurrenceRule{Freq: model.Frequency(*freq), Until: until}
		if count != nil {
			rule.Count = *count
		}
		lesson.Recurrence = rule
	}
	return &lesson, nil
}
