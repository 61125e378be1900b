package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"sweetshop/internal/models"
	"sweetshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// TokenValidator resolves a bearer token to a principal.
type TokenValidator interface {
	ValidateToken(token string) (*models.Principal, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		principal, err := validator.ValidateToken(parts[1])
		if err != nil {
			slog.DebugContext(c.UserContext(), "jwt validation failed", slog.Any("error", err))
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// RequireRole rejects principals that may not act in role. It must run after AuthRequired.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := services.Authorize(PrincipalFrom(c), role)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, models.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Admin privileges required",
				"error":   models.ErrorKind(err),
			})
		default:
			return unauthorized(c, "Invalid or expired token")
		}
	}
}

// PrincipalFrom returns the principal stored by AuthRequired, or nil.
func PrincipalFrom(c *fiber.Ctx) *models.Principal {
	principal, _ := c.Locals(principalKey).(*models.Principal)
	return principal
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"error":   models.ErrorKind(models.ErrUnauthenticated),
	})
}
