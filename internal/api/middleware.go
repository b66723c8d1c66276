package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/ws"
)

const localsUser = "user"

// AuthMiddleware resolves the bearer token through the identity
// collaborator and stashes the user on the request.
func AuthMiddleware(auth ws.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		token := strings.TrimPrefix(h, "Bearer ")
		user, err := auth.VerifyToken(c.Context(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(localsUser, *user)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) identity.User {
	u, _ := c.Locals(localsUser).(identity.User)
	return u
}
