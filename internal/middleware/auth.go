package middleware

import (
	"strings"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/internal/api/presenters"
	"Label-Scanner-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware admits only bearer tokens that carry the admin role.
func (m *middleware) AuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedGetToken, domain.ErrTokenNotFound)
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, domain.ErrTokenInvalid)
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		operator, role, err := jwtService.GetOperatorByToken(token)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, err)
		}
		if role != domain.RoleAdmin {
			return presenters.ErrorResponse(c, fiber.StatusForbidden, domain.MesaageUserNotAllowed, domain.ErrUserNotAllowed)
		}

		c.Locals("operator", operator)
		c.Locals("role", role)
		return c.Next()
	}
}
