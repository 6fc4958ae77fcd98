package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

type cancellationRepository struct {
	s *Store
}

const requestColumns = `
	id, lesson_id, student_id, reason, status,
	decision_comment, decided_by, decided_at, version, created_at`

func (r *cancellationRepository) Create(ctx context.Context, req *model.CancellationRequest) error {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO cancellation_requests (id, lesson_id, student_id, reason, status, decision_comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING version
	`

	err := r.s.db.QueryRow(
		ctx, query,
		req.ID,
		req.LessonID,
		req.StudentID,
		req.Reason,
		req.Status,
		req.DecisionComment,
		req.CreatedAt,
	).Scan(&req.Version)
	if err != nil {
		return wrapErr("create cancellation request", err)
	}
	return nil
}

func (r *cancellationRepository) Get(ctx context.Context, id uuid.UUID) (*model.CancellationRequest, error) {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `SELECT ` + requestColumns + ` FROM cancellation_requests WHERE id = $1`

	req, err := scanRequest(r.s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapErr("get cancellation request", err)
	}
	return req, nil
}

func (r *cancellationRepository) Update(ctx context.Context, req *model.CancellationRequest) error {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `
		UPDATE cancellation_requests
		SET status = $1, decision_comment = $2, decided_by = $3, decided_at = $4,
		    version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	err := r.s.db.QueryRow(
		ctx, query,
		req.Status,
		req.DecisionComment,
		req.DecidedBy,
		req.DecidedAt,
		req.ID,
		req.Version,
	).Scan(&req.Version)
	if err != nil {
		if err == pgx.ErrNoRows {
			return store.ErrVersionConflict
		}
		return wrapErr("update cancellation request", err)
	}
	return nil
}

func (r *cancellationRepository) FindPending(ctx context.Context, lessonID, studentID uuid.UUID) (*model.CancellationRequest, error) {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `
		SELECT ` + requestColumns + `
		FROM cancellation_requests
		WHERE lesson_id = $1 AND student_id = $2 AND status = 'pending'
	`

	req, err := scanRequest(r.s.db.QueryRow(ctx, query, lessonID, studentID))
	if err != nil {
		return nil, wrapErr("find pending request", err)
	}
	return req, nil
}

func (r *cancellationRepository) CountForStudentBetween(ctx context.Context, studentID uuid.UUID, statuses []model.RequestStatus, from, to time.Time) (int, error) {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*)
		FROM cancellation_requests
		WHERE student_id = $1
		  AND status = ANY($2)
		  AND created_at >= $3
		  AND created_at < $4
	`

	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}

	var count int
	if err := r.s.db.QueryRow(ctx, query, studentID, values, from, to).Scan(&count); err != nil {
		return 0, wrapErr("count cancellation requests", err)
	}
	return count, nil
}

func scanRequest(row pgx.Row) (*model.CancellationRequest, error) {
	var req model.CancellationRequest
	err := row.Scan(
		&req.ID,
		&req.LessonID,
		&req.StudentID,
		&req.Reason,
		&req.Status,
		&req.DecisionComment,
		&req.DecidedBy,
		&req.DecidedAt,
		&req.Version,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
