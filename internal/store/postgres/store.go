// Package postgres implements the store over pgx. Atomic scopes run as
// serializable transactions so a conflict check and the write it guards
// cannot interleave with another service instance; serialization
// failures are retried with backoff.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/campushq/lesson-engine/internal/store"
)

// DB is the querying surface shared by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool    *pgxpool.Pool // nil inside a transaction scope
	db      DB
	timeout time.Duration
}

func NewStore(pool *pgxpool.Pool, timeout time.Duration) *Store {
	return &Store{pool: pool, db: pool, timeout: timeout}
}

func (s *Store) Lessons() store.LessonRepository             { return &lessonRepository{s} }
func (s *Store) Cancellations() store.CancellationRepository { return &cancellationRepository{s} }
func (s *Store) Makeups() store.MakeupRepository             { return &makeupRepository{s} }

func (s *Store) Atomic(ctx context.Context, fn func(store.Store) error) error {
	if s.pool == nil {
		// Already transactional, reuse the scope.
		return fn(s)
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return store.NewStoreError("begin tx", err)
		}
		defer tx.Rollback(ctx)

		txStore := &Store{db: tx, timeout: s.timeout}
		if err := fn(txStore); err != nil {
			if isSerializationFailure(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			if isSerializationFailure(err) {
				return retry.RetryableError(err)
			}
			return store.NewStoreError("commit tx", err)
		}
		return nil
	})
}

// opCtx applies the per-call store timeout.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// wrapErr maps driver failures onto the store error contract.
func wrapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrDuplicate
	}
	return store.NewStoreError(op, err)
}
