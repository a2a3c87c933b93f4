package dto

import (
	"time"

	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/workflow"
)

// ChangeStatusRequest payload for POST /service-requests/:id/status.
type ChangeStatusRequest struct {
	NewStatus      domain.ServiceRequestStatus  `json:"newStatus"`
	ExpectedStatus *domain.ServiceRequestStatus `json:"expectedStatus"`
	Reason         *string                      `json:"reason"`
	Notes          *string                      `json:"notes"`
}

// AssignOperatorRequest payload.
type AssignOperatorRequest struct {
	OperatorID     string   `json:"operatorId"`
	Rate           *float64 `json:"rate"`
	EstimatedHours *float64 `json:"estimatedHours"`
}

// CancelAssignmentRequest payload; the body is optional.
type CancelAssignmentRequest struct {
	Reason *string `json:"reason"`
}

// StatusHistoryResponse is one audit entry.
type StatusHistoryResponse struct {
	ID         string                       `json:"id"`
	FromStatus *domain.ServiceRequestStatus `json:"fromStatus"`
	ToStatus   domain.ServiceRequestStatus  `json:"toStatus"`
	ChangedBy  string                       `json:"changedBy"`
	Reason     *string                      `json:"reason"`
	Notes      *string                      `json:"notes"`
	CreatedAt  time.Time                    `json:"createdAt"`
}

// AssignmentResponse is the API view of an assignment.
type AssignmentResponse struct {
	ID               string                  `json:"id"`
	ServiceRequestID string                  `json:"serviceRequestId"`
	OperatorID       string                  `json:"operatorId"`
	ManagerID        string                  `json:"managerId"`
	Status           domain.AssignmentStatus `json:"status"`
	Rate             *float64                `json:"rate"`
	EstimatedHours   *float64                `json:"estimatedHours"`
	AssignedAt       time.Time               `json:"assignedAt"`
	AcceptedAt       *time.Time              `json:"acceptedAt"`
	CompletedAt      *time.Time              `json:"completedAt"`
	CancelledAt      *time.Time              `json:"cancelledAt"`
}

// TransitionsResponse wraps the annotated edges leaving a status.
type TransitionsResponse struct {
	CurrentStatus domain.ServiceRequestStatus `json:"currentStatus"`
	Transitions   []workflow.TransitionOption `json:"transitions"`
}

// NewStatusHistoryResponse maps history entries, preserving order.
func NewStatusHistoryResponse(entries []domain.StatusHistoryEntry) []StatusHistoryResponse {
	items := make([]StatusHistoryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, StatusHistoryResponse{
			ID:         e.ID,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			ChangedBy:  e.ChangedBy,
			Reason:     e.Reason,
			Notes:      e.Notes,
			CreatedAt:  e.CreatedAt,
		})
	}
	return items
}

// NewAssignmentResponse maps an assignment.
func NewAssignmentResponse(a *domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:               a.ID,
		ServiceRequestID: a.ServiceRequestID,
		OperatorID:       a.OperatorID,
		ManagerID:        a.ManagerID,
		Status:           a.Status,
		Rate:             a.Rate,
		EstimatedHours:   a.EstimatedHours,
		AssignedAt:       a.AssignedAt,
		AcceptedAt:       a.AcceptedAt,
		CompletedAt:      a.CompletedAt,
		CancelledAt:      a.CancelledAt,
	}
}
