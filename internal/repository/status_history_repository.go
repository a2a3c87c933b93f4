package repository

import (
	"context"

	"github.com/equiply/workflow-service/internal/domain"
)

// StatusHistoryRepository stores append-only audit entries.
type StatusHistoryRepository interface {
	Create(ctx context.Context, entry *domain.StatusHistoryEntry) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.StatusHistoryEntry, error)
}

type statusHistoryRepository struct {
	db DBTX
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(db DBTX) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

func (r *statusHistoryRepository) Create(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO service_request_status_history (service_request_id, from_status, to_status, changed_by, reason, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.ServiceRequestID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ChangedBy,
		entry.Reason,
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByRequest returns entries oldest first; seq breaks ties between entries
// written in the same transaction.
func (r *statusHistoryRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.StatusHistoryEntry, error) {
	const query = `
        SELECT id, service_request_id, from_status, to_status, changed_by, reason, notes, created_at
        FROM service_request_status_history WHERE service_request_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.StatusHistoryEntry{}
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ServiceRequestID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ChangedBy,
			&entry.Reason,
			&entry.Notes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
