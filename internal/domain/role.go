package domain

import "fmt"

// Role enumerates actor classifications.
type Role string

const (
	RoleUser     Role = "USER"
	RoleOperator Role = "OPERATOR"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Roles lists every role in ascending privilege order.
var Roles = []Role{RoleUser, RoleOperator, RoleManager, RoleAdmin}

// IsKnown reports whether r is a member of the enumeration.
func (r Role) IsKnown() bool {
	switch r {
	case RoleUser, RoleOperator, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.IsKnown() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}
