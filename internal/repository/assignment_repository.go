package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/equiply/workflow-service/internal/domain"
)

// AssignmentRepository persists operator assignments.
type AssignmentRepository interface {
	// Create returns ErrDuplicate when the request already has a current
	// assignment.
	Create(ctx context.Context, assignment *domain.Assignment) error
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
	// GetCurrentByRequest returns the PENDING or ACTIVE assignment of a
	// request, or pgx.ErrNoRows when there is none.
	GetCurrentByRequest(ctx context.Context, requestID string) (*domain.Assignment, error)
	Update(ctx context.Context, assignment *domain.Assignment) error
}

type assignmentRepository struct {
	db DBTX
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(db DBTX) AssignmentRepository {
	return &assignmentRepository{db: db}
}

const assignmentColumns = `id, service_request_id, operator_id, manager_id, status, rate, estimated_hours,
               assigned_at, accepted_at, completed_at, cancelled_at`

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO assignments (service_request_id, operator_id, manager_id, status, rate, estimated_hours)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, assigned_at`
	err := r.db.QueryRow(ctx, query,
		assignment.ServiceRequestID,
		assignment.OperatorID,
		assignment.ManagerID,
		assignment.Status,
		assignment.Rate,
		assignment.EstimatedHours,
	).Scan(&assignment.ID, &assignment.AssignedAt)
	return mapWriteError(err)
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id=$1`
	return scanAssignment(r.db.QueryRow(ctx, query, id))
}

func (r *assignmentRepository) GetCurrentByRequest(ctx context.Context, requestID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
        FROM assignments WHERE service_request_id=$1 AND status IN ('PENDING','ACTIVE')
        ORDER BY assigned_at DESC LIMIT 1`
	return scanAssignment(r.db.QueryRow(ctx, query, requestID))
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        UPDATE assignments SET status=$1, rate=$2, estimated_hours=$3, accepted_at=$4, completed_at=$5, cancelled_at=$6
        WHERE id=$7`
	cmd, err := r.db.Exec(ctx, query,
		assignment.Status,
		assignment.Rate,
		assignment.EstimatedHours,
		assignment.AcceptedAt,
		assignment.CompletedAt,
		assignment.CancelledAt,
		assignment.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var assignment domain.Assignment
	if err := row.Scan(
		&assignment.ID,
		&assignment.ServiceRequestID,
		&assignment.OperatorID,
		&assignment.ManagerID,
		&assignment.Status,
		&assignment.Rate,
		&assignment.EstimatedHours,
		&assignment.AssignedAt,
		&assignment.AcceptedAt,
		&assignment.CompletedAt,
		&assignment.CancelledAt,
	); err != nil {
		return nil, err
	}
	return &assignment, nil
}
