package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/equiply/workflow-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventServiceRequestCreated EventType = "service_request_created"
	EventStatusChanged         EventType = "service_request_status_changed"
	EventOperatorAssigned      EventType = "operator_assigned"
	EventAssignmentCancelled   EventType = "assignment_cancelled"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a workflow event emitted after a committed change.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RequestID string    `json:"service_request_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, requestID string, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ServiceRequestCreatedPayload payload.
type ServiceRequestCreatedPayload struct {
	Title             string                      `json:"title"`
	Status            domain.ServiceRequestStatus `json:"status"`
	EquipmentCategory domain.EquipmentCategory    `json:"equipment_category"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	FromStatus domain.ServiceRequestStatus `json:"from_status"`
	ToStatus   domain.ServiceRequestStatus `json:"to_status"`
	Reason     *string                     `json:"reason,omitempty"`
}

// OperatorAssignedPayload payload.
type OperatorAssignedPayload struct {
	AssignmentID string `json:"assignment_id"`
	OperatorID   string `json:"operator_id"`
	ManagerID    string `json:"manager_id"`
}

// AssignmentCancelledPayload payload.
type AssignmentCancelledPayload struct {
	AssignmentID string `json:"assignment_id"`
	OperatorID   string `json:"operator_id"`
}
