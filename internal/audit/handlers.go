package audit

import (
	"terrafund-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handlers struct {
	DB *gorm.DB
}

// List GET /api/v1/audit/:projectId?limit=50 — newest-first event trail.
func (h *Handlers) List(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("projectId"))
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	events, err := ListByProject(h.DB, projectID, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Audit events fetched", events, nil)
}
