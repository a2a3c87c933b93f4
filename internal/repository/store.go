package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStatusConflict is returned by a compare-and-swap status update when the
// stored status no longer matches the expected one.
var ErrStatusConflict = errors.New("service request status changed concurrently")

// ErrDuplicate is returned when an insert collides with a unique constraint,
// such as a second current assignment or an already registered email.
var ErrDuplicate = errors.New("record already exists")

const uniqueViolation = "23505"

// mapWriteError translates unique violations into ErrDuplicate, keeping the
// constraint name in the message.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles the repositories that share one connection or
// transaction.
type Repositories struct {
	ServiceRequests ServiceRequestRepository
	History         StatusHistoryRepository
	Assignments     AssignmentRepository
	Users           UserRepository
}

// Store is the unit-of-work boundary of the persistence layer. Every write
// that must land together runs inside one WithinTx call; returning an error
// from fn discards all of them.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type postgresStore struct {
	pool  *pgxpool.Pool
	repos Repositories
}

// NewPostgresStore builds a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, repos: newRepositories(pool)}
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		ServiceRequests: NewServiceRequestRepository(db),
		History:         NewStatusHistoryRepository(db),
		Assignments:     NewAssignmentRepository(db),
		Users:           NewUserRepository(db),
	}
}

func (s *postgresStore) Repositories() Repositories {
	return s.repos
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}
