package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/workflow"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

// RequireRole ensures the principal satisfies one of the required roles.
// ADMIN satisfies every role.
func RequireRole(required ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(required) > 0 && !workflow.RoleSatisfiesAny(principal.Role(), required...) {
			return apperrors.NewInsufficientPermissions(fmt.Sprintf("role %s is not permitted here", principal.Role()))
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal is present.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}
