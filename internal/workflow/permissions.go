package workflow

import "github.com/equiply/workflow-service/internal/domain"

// Transition is a directed edge between two statuses.
type Transition struct {
	From domain.ServiceRequestStatus
	To   domain.ServiceRequestStatus
}

var (
	ownerOrManager = []domain.Role{domain.RoleUser, domain.RoleManager}
	operator       = []domain.Role{domain.RoleOperator}
	management     = []domain.Role{domain.RoleManager}
	fieldChecks    = []domain.Role{domain.RoleOperator, domain.RoleManager}
)

// matrix names, per edge, the role classes that may take it. ADMIN is never
// listed: RoleSatisfies grants it every entry.
var matrix = map[Transition][]domain.Role{
	{domain.StatusDraft, domain.StatusSubmitted}:    {domain.RoleUser},
	{domain.StatusRejected, domain.StatusSubmitted}: {domain.RoleUser},

	{domain.StatusDraft, domain.StatusCancelled}:            ownerOrManager,
	{domain.StatusSubmitted, domain.StatusCancelled}:        ownerOrManager,
	{domain.StatusUnderReview, domain.StatusCancelled}:      ownerOrManager,
	{domain.StatusApproved, domain.StatusCancelled}:         ownerOrManager,
	{domain.StatusRejected, domain.StatusCancelled}:         ownerOrManager,
	{domain.StatusOperatorMatching, domain.StatusCancelled}: ownerOrManager,

	{domain.StatusSubmitted, domain.StatusUnderReview}:             management,
	{domain.StatusUnderReview, domain.StatusApproved}:              management,
	{domain.StatusUnderReview, domain.StatusRejected}:              management,
	{domain.StatusApproved, domain.StatusOperatorMatching}:         management,
	{domain.StatusOperatorMatching, domain.StatusOperatorAssigned}: management,
	{domain.StatusOperatorAssigned, domain.StatusOperatorMatching}: management,
	{domain.StatusOperatorAssigned, domain.StatusCancelled}:        management,

	{domain.StatusOperatorAssigned, domain.StatusEquipmentChecking}:   fieldChecks,
	{domain.StatusEquipmentChecking, domain.StatusEquipmentConfirmed}: fieldChecks,
	{domain.StatusEquipmentChecking, domain.StatusOperatorMatching}:   management,
	{domain.StatusEquipmentChecking, domain.StatusCancelled}:          management,

	{domain.StatusEquipmentConfirmed, domain.StatusDepositRequested}: management,
	{domain.StatusEquipmentConfirmed, domain.StatusCancelled}:        management,
	{domain.StatusDepositRequested, domain.StatusDepositPending}:     management,
	{domain.StatusDepositRequested, domain.StatusCancelled}:          management,
	{domain.StatusDepositPending, domain.StatusDepositReceived}:      management,
	{domain.StatusDepositPending, domain.StatusCancelled}:            management,
	{domain.StatusDepositReceived, domain.StatusJobScheduled}:        management,
	{domain.StatusDepositReceived, domain.StatusCancelled}:           management,
	{domain.StatusJobScheduled, domain.StatusCancelled}:              management,
	{domain.StatusJobInProgress, domain.StatusCancelled}:             management,

	{domain.StatusJobScheduled, domain.StatusJobInProgress}: operator,
	{domain.StatusJobInProgress, domain.StatusJobCompleted}: operator,

	{domain.StatusJobCompleted, domain.StatusInvoiced}:          management,
	{domain.StatusInvoiced, domain.StatusPaymentPending}:        management,
	{domain.StatusPaymentPending, domain.StatusPaymentReceived}: management,
	{domain.StatusPaymentReceived, domain.StatusClosed}:         management,
}

// RoleSatisfies is the single place the role hierarchy is declared: a role
// satisfies a requirement when it equals it, and ADMIN satisfies everything.
func RoleSatisfies(actual, required domain.Role) bool {
	if actual == domain.RoleAdmin {
		return true
	}
	return actual == required
}

// RoleSatisfiesAny reports whether actual satisfies at least one of required.
func RoleSatisfiesAny(actual domain.Role, required ...domain.Role) bool {
	for _, r := range required {
		if RoleSatisfies(actual, r) {
			return true
		}
	}
	return false
}

// IsTransitionAllowedForRole answers whether the role class, in the abstract,
// may take from -> to. Standing over a particular request is evaluated by the
// caller. Edges missing from the registry are never allowed.
func IsTransitionAllowedForRole(from, to domain.ServiceRequestStatus, role domain.Role) bool {
	if !IsEdge(from, to) {
		return false
	}
	return RoleSatisfiesAny(role, matrix[Transition{From: from, To: to}]...)
}

// RequiredRoles returns the role classes listed for from -> to.
func RequiredRoles(from, to domain.ServiceRequestStatus) []domain.Role {
	roles := matrix[Transition{From: from, To: to}]
	out := make([]domain.Role, len(roles))
	copy(out, roles)
	return out
}
