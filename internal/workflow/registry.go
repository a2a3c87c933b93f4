// Package workflow holds the service-request state machine: the status
// registry, the role permission matrix and the transition validator. It has
// no I/O; orchestration against storage lives in the service package.
package workflow

import (
	"fmt"

	"github.com/equiply/workflow-service/internal/domain"
)

// transitions is the directed edge set of the state machine. A status that is
// present with no targets is terminal.
var transitions = map[domain.ServiceRequestStatus][]domain.ServiceRequestStatus{
	domain.StatusDraft:              {domain.StatusSubmitted, domain.StatusCancelled},
	domain.StatusSubmitted:          {domain.StatusUnderReview, domain.StatusCancelled},
	domain.StatusUnderReview:        {domain.StatusApproved, domain.StatusRejected, domain.StatusCancelled},
	domain.StatusApproved:           {domain.StatusOperatorMatching, domain.StatusCancelled},
	domain.StatusRejected:           {domain.StatusSubmitted, domain.StatusCancelled},
	domain.StatusOperatorMatching:   {domain.StatusOperatorAssigned, domain.StatusCancelled},
	domain.StatusOperatorAssigned:   {domain.StatusEquipmentChecking, domain.StatusOperatorMatching, domain.StatusCancelled},
	domain.StatusEquipmentChecking:  {domain.StatusEquipmentConfirmed, domain.StatusOperatorMatching, domain.StatusCancelled},
	domain.StatusEquipmentConfirmed: {domain.StatusDepositRequested, domain.StatusCancelled},
	domain.StatusDepositRequested:   {domain.StatusDepositPending, domain.StatusCancelled},
	domain.StatusDepositPending:     {domain.StatusDepositReceived, domain.StatusCancelled},
	domain.StatusDepositReceived:    {domain.StatusJobScheduled, domain.StatusCancelled},
	domain.StatusJobScheduled:       {domain.StatusJobInProgress, domain.StatusCancelled},
	domain.StatusJobInProgress:      {domain.StatusJobCompleted, domain.StatusCancelled},
	domain.StatusJobCompleted:       {domain.StatusInvoiced},
	domain.StatusInvoiced:           {domain.StatusPaymentPending},
	domain.StatusPaymentPending:     {domain.StatusPaymentReceived},
	domain.StatusPaymentReceived:    {domain.StatusClosed},
	domain.StatusClosed:             {},
	domain.StatusCancelled:          {},
}

// orderedStatuses is the canonical display order of the registry.
var orderedStatuses = []domain.ServiceRequestStatus{
	domain.StatusDraft,
	domain.StatusSubmitted,
	domain.StatusUnderReview,
	domain.StatusApproved,
	domain.StatusRejected,
	domain.StatusOperatorMatching,
	domain.StatusOperatorAssigned,
	domain.StatusEquipmentChecking,
	domain.StatusEquipmentConfirmed,
	domain.StatusDepositRequested,
	domain.StatusDepositPending,
	domain.StatusDepositReceived,
	domain.StatusJobScheduled,
	domain.StatusJobInProgress,
	domain.StatusJobCompleted,
	domain.StatusInvoiced,
	domain.StatusPaymentPending,
	domain.StatusPaymentReceived,
	domain.StatusClosed,
	domain.StatusCancelled,
}

// terminal lists statuses that end the request's active life. JOB_COMPLETED
// and REJECTED keep their documented follow-up edges (billing, resubmission).
var terminal = map[domain.ServiceRequestStatus]bool{
	domain.StatusJobCompleted: true,
	domain.StatusRejected:     true,
	domain.StatusClosed:       true,
	domain.StatusCancelled:    true,
}

// Statuses returns every registered status in display order.
func Statuses() []domain.ServiceRequestStatus {
	out := make([]domain.ServiceRequestStatus, len(orderedStatuses))
	copy(out, orderedStatuses)
	return out
}

// IsKnown reports whether status is a registry member.
func IsKnown(status domain.ServiceRequestStatus) bool {
	_, ok := transitions[status]
	return ok
}

// ParseStatus validates a raw status value coming from outside the process
// against the registry.
func ParseStatus(raw string) (domain.ServiceRequestStatus, error) {
	status := domain.ServiceRequestStatus(raw)
	if !IsKnown(status) {
		return "", fmt.Errorf("unknown service request status %q", raw)
	}
	return status, nil
}

// IsTerminal reports whether status is one of the terminal statuses.
func IsTerminal(status domain.ServiceRequestStatus) bool {
	return terminal[status]
}

// IsValidInitialStatus reports whether a request may be created in status.
func IsValidInitialStatus(status domain.ServiceRequestStatus) bool {
	return status == domain.StatusDraft || status == domain.StatusSubmitted
}

// ValidNextStatuses returns the statuses directly reachable from current.
// Unknown input yields an empty slice, never an error; callers that accept
// external input must parse it first.
func ValidNextStatuses(current domain.ServiceRequestStatus) []domain.ServiceRequestStatus {
	next := transitions[current]
	out := make([]domain.ServiceRequestStatus, len(next))
	copy(out, next)
	return out
}

// IsEdge reports whether from -> to exists in the registry.
func IsEdge(from, to domain.ServiceRequestStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
