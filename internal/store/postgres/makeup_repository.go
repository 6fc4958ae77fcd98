package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campushq/lesson-engine/internal/model"
	"github.com/campushq/lesson-engine/internal/store"
)

type makeupRepository struct {
	s *Store
}

const creditColumns = `
	id, request_id, original_lesson_id, student_id, status,
	approved_at, expires_at, replacement_lesson_id, reminded_at,
	version, created_at`

func (r *makeupRepository) Create(ctx context.Context, credit *model.MakeupCredit) error {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO makeup_credits (id, request_id, original_lesson_id, student_id, status, approved_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING version
	`

	err := r.s.db.QueryRow(
		ctx, query,
		credit.ID,
		credit.RequestID,
		credit.OriginalLessonID,
		credit.StudentID,
		credit.Status,
		credit.ApprovedAt,
		credit.ExpiresAt,
		credit.CreatedAt,
	).Scan(&credit.Version)
	if err != nil {
		return wrapErr("create makeup credit", err)
	}
	return nil
}

func (r *makeupRepository) Get(ctx context.Context, id uuid.UUID) (*model.MakeupCredit, error) {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `SELECT ` + creditColumns + ` FROM makeup_credits WHERE id = $1`

	credit, err := scanCredit(r.s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapErr("get makeup credit", err)
	}
	return credit, nil
}

func (r *makeupRepository) FindByRequest(ctx context.Context, requestID uuid.UUID) (*model.MakeupCredit, error) {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `SELECT ` + creditColumns + ` FROM makeup_credits WHERE request_id = $1`

	credit, err := scanCredit(r.s.db.QueryRow(ctx, query, requestID))
	if err != nil {
		return nil, wrapErr("find credit by request", err)
	}
	return credit, nil
}

func (r *makeupRepository) Update(ctx context.Context, credit *model.MakeupCredit) error {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	query := `
		UPDATE makeup_credits
		SET status = $1, expires_at = $2, replacement_lesson_id = $3, reminded_at = $4,
		    version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	err := r.s.db.QueryRow(
		ctx, query,
		credit.Status,
		credit.ExpiresAt,
		credit.ReplacementLessonID,
		credit.RemindedAt,
		credit.ID,
		credit.Version,
	).Scan(&credit.Version)
	if err != nil {
		if err == pgx.ErrNoRows {
			return store.ErrVersionConflict
		}
		return wrapErr("update makeup credit", err)
	}
	return nil
}

func (r *makeupRepository) ListByStatus(ctx context.Context, statuses []model.CreditStatus) ([]*model.MakeupCredit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM makeup_credits
		WHERE status = ANY($1)
		ORDER BY expires_at
	`
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	return r.query(ctx, "list credits by status", query, values)
}

func (r *makeupRepository) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*model.MakeupCredit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM makeup_credits
		WHERE student_id = $1
		ORDER BY expires_at
	`
	return r.query(ctx, "list credits for student", query, studentID)
}

func (r *makeupRepository) ListByReplacementLessons(ctx context.Context, lessonIDs []uuid.UUID) ([]*model.MakeupCredit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM makeup_credits
		WHERE replacement_lesson_id = ANY($1)
		ORDER BY expires_at
	`
	return r.query(ctx, "list credits by replacement", query, lessonIDs)
}

func (r *makeupRepository) query(ctx context.Context, op, query string, args ...any) ([]*model.MakeupCredit, error) {
	ctx, cancel := r.s.opCtx(ctx)
	defer cancel()

	rows, err := r.s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var credits []*model.MakeupCredit
	for rows.Next() {
		credit, err := scanCredit(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		credits = append(credits, credit)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return credits, nil
}

func scanCredit(row pgx.Row) (*model.MakeupCredit, error) {
	var credit model.MakeupCredit
	err := row.Scan(
		&credit.ID,
		&credit.RequestID,
		&credit.OriginalLessonID,
		&credit.StudentID,
		&credit.Status,
		&credit.ApprovedAt,
		&credit.ExpiresAt,
		&credit.ReplacementLessonID,
		&credit.RemindedAt,
		&credit.Version,
		&credit.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &credit, nil
}
