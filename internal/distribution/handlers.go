package distribution

import (
	"math/big"

	"terrafund-backend/internal/middleware"
	"terrafund-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

func projectParam(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("projectId"))
}

// Initiate POST /api/v1/distributions/:projectId/initiate
func (h *Handlers) Initiate(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		SalePrice       string `json:"sale_price"`
		TotalCosts      string `json:"total_costs"`
		ClaimPeriodDays int    `json:"claim_period_days"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	salePrice, ok := new(big.Int).SetString(body.SalePrice, 10)
	if !ok {
		return response.Error(c, "Sale price must be an integer string", fiber.StatusBadRequest, nil)
	}
	totalCosts, ok := new(big.Int).SetString(body.TotalCosts, 10)
	if !ok {
		return response.Error(c, "Total costs must be an integer string", fiber.StatusBadRequest, nil)
	}
	d, err := h.Service.Initiate(c.Context(), actor.ID, actor.Role, projectID, salePrice, totalCosts, body.ClaimPeriodDays)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Distribution initiated", d, nil)
}

// Claim POST /api/v1/distributions/:projectId/claim
func (h *Handlers) Claim(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	amount, err := h.Service.Claim(c.Context(), actor.ID, projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profit claimed", fiber.Map{"amount": amount.String()}, nil)
}

// BatchClaim POST /api/v1/distributions/:projectId/batch-claim
func (h *Handlers) BatchClaim(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		InvestorIDs []string `json:"investor_ids"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	ids := make([]uuid.UUID, 0, len(body.InvestorIDs))
	for _, raw := range body.InvestorIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, "Invalid investor id", fiber.StatusBadRequest, nil)
		}
		ids = append(ids, id)
	}
	paid, err := h.Service.BatchClaim(c.Context(), actor.ID, actor.Role, projectID, ids)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Batch claim processed", fiber.Map{"paid": paid}, nil)
}

// Complete POST /api/v1/distributions/:projectId/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Complete(c.Context(), actor.ID, actor.Role, projectID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Distribution completed", nil, nil)
}

// Recover POST /api/v1/distributions/:projectId/recover
func (h *Handlers) Recover(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	swept, err := h.Service.Recover(c.Context(), actor.ID, actor.Role, projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Uncollected funds recovered", fiber.Map{"amount": swept.String()}, nil)
}

// Get GET /api/v1/distributions/:projectId
func (h *Handlers) Get(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	d, err := h.Service.Get(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Distribution fetched", d, nil)
}

// Claimable GET /api/v1/distributions/:projectId/claimable — the caller's
// unclaimed entitlement and claim status.
func (h *Handlers) Claimable(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	amount, claimed, err := h.Service.Claimable(c.Context(), projectID, actor.ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Claimable amount fetched", fiber.Map{
		"claimable": amount.String(),
		"claimed":   claimed,
	}, nil)
}
