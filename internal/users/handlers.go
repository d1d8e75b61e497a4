package users

import (
	"terrafund-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// Create POST /api/v1/users — admin provisions a new identity with a wallet.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var input CreateInput
	if err := c.BodyParser(&input); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	user, err := h.Service.Create(c.Context(), input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "User created", user, nil)
}

// UpdateRole PATCH /api/v1/users/update-role — admin grants or revokes a role.
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	var body struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		return response.Error(c, "Invalid user id", fiber.StatusBadRequest, nil)
	}
	user, err := h.Service.UpdateRole(c.Context(), userID, body.Role)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Role updated", user, nil)
}
