package middleware

import (
	"errors"

	"terrafund-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		// Attach auth context for handlers (same key)
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// Actor is the authenticated caller identity handlers pass into services.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// GetActor extracts the session user's id and role. Returns an error when the
// session shape is missing or malformed.
func GetActor(c *fiber.Ctx) (Actor, error) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return Actor{}, errors.New("not authenticated")
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Actor{}, errors.New("invalid session user id")
	}
	role, _ := m["role"].(string)
	return Actor{ID: id, Role: role}, nil
}
