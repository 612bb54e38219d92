package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// RequireRole admits principals acting for one of the allowed departments.
// With no roles given any authenticated staff member passes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Actor.Role]; !exists {
			return apperrors.NewDomainError("FORBIDDEN", "insufficient role", fiber.StatusForbidden,
				map[string]any{"role": string(principal.Actor.Role)})
		}
		return c.Next()
	}
}
