package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evolution-fly/flight-service/internal/domain"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// RequireRole ensures the principal holds one of the allowed roles. With no
// arguments any authenticated caller passes.
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
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireClient restricts a route to the client role.
func RequireClient() fiber.Handler {
	return RequireRole(domain.RoleClient)
}

// RequireOperator restricts a route to operators and admins.
func RequireOperator() fiber.Handler {
	return RequireRole(domain.RoleOperator, domain.RoleAdmin)
}

// RequireAdmin restricts a route to admins.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
