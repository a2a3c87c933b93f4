package domain

import "time"

// StatusHistoryEntry is an immutable audit record of one status change.
// FromStatus is nil only for the entry written at creation.
type StatusHistoryEntry struct {
	ID               string
	ServiceRequestID string
	FromStatus       *ServiceRequestStatus
	ToStatus         ServiceRequestStatus
	ChangedBy        string
	Reason           *string
	Notes            *string
	CreatedAt        time.Time
}
