package auth

import (
	"context"

	"terrafund-backend/internal/middleware"
	"terrafund-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	UserFinder UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// Login POST /api/v1/auth/login — sets the session cookie on success.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var input LoginInput
	if err := c.BodyParser(&input); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if h.UserFinder == nil {
		return response.Error(c, "Auth not configured", fiber.StatusInternalServerError, nil)
	}
	u, err := h.UserFinder.FindByEmailAndPassword(input.Email, input.Password)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	}

	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     u.Role,
	})
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sid
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{
		"user_id":  u.UserID,
		"fullname": u.Fullname,
		"email":    u.Email,
		"role":     u.Role,
	}, nil)
}

// Me GET /api/v1/auth/me — returns the session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	shape, err := VerifyUser(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}
	return response.Success(c, "Authenticated", shape, nil)
}

// Logout DELETE /api/v1/auth/logout — destroys the session.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if sid := middleware.GetSessionID(c); sid != "" && h.Rdb != nil {
		h.Rdb.Del(context.Background(), middleware.SessionRedisPrefix+sid)
	}
	middleware.DestroySession(c)
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Logged out", nil, nil)
}
