package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapWriteError(t *testing.T) {
	assert.NoError(t, mapWriteError(nil))

	err := mapWriteError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_assignments_current"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "uq_assignments_current")

	checkViolation := &pgconn.PgError{Code: "23514", ConstraintName: "assignments_status_check"}
	assert.Same(t, checkViolation, mapWriteError(checkViolation))

	other := errors.New("connection reset")
	assert.False(t, errors.Is(mapWriteError(other), ErrDuplicate))
	assert.ErrorIs(t, mapWriteError(pgx.ErrNoRows), pgx.ErrNoRows)
}
