package workflow

import (
	"fmt"

	"github.com/equiply/workflow-service/internal/domain"
)

// DenyReason classifies why a transition was refused.
type DenyReason string

const (
	ReasonInvalidTransition       DenyReason = "INVALID_TRANSITION"
	ReasonInsufficientPermissions DenyReason = "INSUFFICIENT_PERMISSIONS"
)

// Decision is the outcome of Validate.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Message string
}

// Validate decides whether role may move a request from current to requested.
// Structural invalidity is reported before permission so that a missing edge
// never reads as "someone else could do this".
func Validate(current, requested domain.ServiceRequestStatus, role domain.Role) Decision {
	if !IsEdge(current, requested) {
		return Decision{
			Reason:  ReasonInvalidTransition,
			Message: fmt.Sprintf("cannot transition from %s to %s", current, requested),
		}
	}
	if !IsTransitionAllowedForRole(current, requested, role) {
		return Decision{
			Reason:  ReasonInsufficientPermissions,
			Message: fmt.Sprintf("role %s may not transition from %s to %s", role, current, requested),
		}
	}
	return Decision{Allowed: true}
}

// TransitionOption describes one outgoing edge annotated for a role.
type TransitionOption struct {
	FromStatus    domain.ServiceRequestStatus `json:"fromStatus"`
	ToStatus      domain.ServiceRequestStatus `json:"toStatus"`
	IsValid       bool                        `json:"isValid"`
	HasPermission bool                        `json:"hasPermission"`
	Reason        string                      `json:"reason,omitempty"`
}

// Annotate lists every edge leaving current with the role's permission.
func Annotate(current domain.ServiceRequestStatus, role domain.Role) []TransitionOption {
	next := ValidNextStatuses(current)
	options := make([]TransitionOption, 0, len(next))
	for _, to := range next {
		decision := Validate(current, to, role)
		option := TransitionOption{
			FromStatus:    current,
			ToStatus:      to,
			IsValid:       true,
			HasPermission: decision.Allowed,
		}
		if !decision.Allowed {
			option.Reason = decision.Message
		}
		options = append(options, option)
	}
	return options
}
