package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/equiply/workflow-service/internal/domain"
)

// ServiceRequestRepository encapsulates service request persistence.
type ServiceRequestRepository interface {
	Create(ctx context.Context, request *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	// UpdateStatus moves the request to next only if its stored status is
	// still expected, returning ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, id string, expected, next domain.ServiceRequestStatus) (time.Time, error)
	SetAssignedManager(ctx context.Context, id, managerID string) error
}

type serviceRequestRepository struct {
	db DBTX
}

// NewServiceRequestRepository instantiates repository.
func NewServiceRequestRepository(db DBTX) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

func (r *serviceRequestRepository) Create(ctx context.Context, request *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (title, description, user_id, status, equipment_category, job_site,
            start_date, end_date, duration_type, duration_value, base_rate, rate_type, transport,
            total_estimate, assigned_manager_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		request.Title,
		request.Description,
		request.UserID,
		request.Status,
		request.EquipmentCategory,
		request.JobSite,
		request.StartDate,
		request.EndDate,
		request.DurationType,
		request.DurationValue,
		request.BaseRate,
		request.RateType,
		request.Transport,
		request.TotalEstimate,
		request.AssignedManagerID,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	const query = `
        SELECT id, title, description, user_id, status, equipment_category, job_site, start_date, end_date,
               duration_type, duration_value, base_rate, rate_type, transport, total_estimate,
               assigned_manager_id, created_at, updated_at
        FROM service_requests WHERE id=$1`
	var request domain.ServiceRequest
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.Title,
		&request.Description,
		&request.UserID,
		&request.Status,
		&request.EquipmentCategory,
		&request.JobSite,
		&request.StartDate,
		&request.EndDate,
		&request.DurationType,
		&request.DurationValue,
		&request.BaseRate,
		&request.RateType,
		&request.Transport,
		&request.TotalEstimate,
		&request.AssignedManagerID,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *serviceRequestRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.ServiceRequestStatus) (time.Time, error) {
	const query = `
        UPDATE service_requests SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING updated_at`
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, query, next, id, expected).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrStatusConflict
	}
	return updatedAt, err
}

func (r *serviceRequestRepository) SetAssignedManager(ctx context.Context, id, managerID string) error {
	const query = `UPDATE service_requests SET assigned_manager_id=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, managerID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
