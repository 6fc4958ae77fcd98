package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/lesson-engine/internal/store"
)

func TestWrapErrMapsDriverFailures(t *testing.T) {
	assert.ErrorIs(t, wrapErr("get lesson", pgx.ErrNoRows), store.ErrNotFound)

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "makeup_credits_request_id_key"}
	assert.ErrorIs(t, wrapErr("create credit", unique), store.ErrDuplicate)

	// The mapping sees through fmt.Errorf wrapping.
	assert.ErrorIs(t, wrapErr("create credit", fmt.Errorf("insert: %w", unique)), store.ErrDuplicate)

	cause := &pgconn.PgError{Code: "23503"}
	err := wrapErr("persist lesson", cause)
	var serr *store.StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "persist lesson", serr.Op)
	assert.ErrorIs(t, err, cause)

	err = wrapErr("scan lesson", errors.New("conn closed"))
	require.ErrorAs(t, err, &serr)
	assert.NotErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, store.ErrDuplicate)
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, isSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, isSerializationFailure(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))

	assert.False(t, isSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isSerializationFailure(errors.New("conn closed")))
	assert.False(t, isSerializationFailure(nil))
}
