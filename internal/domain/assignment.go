package domain

import "time"

// AssignmentStatus enumerates operator assignment states.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentActive    AssignmentStatus = "ACTIVE"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
)

// Assignment links an operator to a service request.
type Assignment struct {
	ID               string
	ServiceRequestID string
	OperatorID       string
	ManagerID        string
	Status           AssignmentStatus
	Rate             *float64
	EstimatedHours   *float64
	AssignedAt       time.Time
	AcceptedAt       *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
}

// IsCurrent reports whether the assignment still binds its operator to the
// request.
func (a *Assignment) IsCurrent() bool {
	return a != nil && (a.Status == AssignmentPending || a.Status == AssignmentActive)
}
