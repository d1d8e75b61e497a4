package escrow

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

func parseAmount(raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	return amount, ok && amount.Sign() > 0
}

// Account GET /api/v1/escrow/:projectId
func (h *Handlers) Account(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	acct, err := h.Service.Account(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Escrow account fetched", acct, nil)
}

// Balance GET /api/v1/escrow/:projectId/balance
func (h *Handlers) Balance(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	avail, err := h.Service.Available(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Available balance fetched", fiber.Map{"available": avail.String()}, nil)
}

// Contingency GET /api/v1/escrow/:projectId/contingency
func (h *Handlers) Contingency(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	remaining, err := h.Service.ContingencyRemaining(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Contingency remaining fetched", fiber.Map{"remaining": remaining.String()}, nil)
}

// Payout GET /api/v1/escrow/:projectId/payouts/:index
func (h *Handlers) Payout(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return response.Error(c, "Invalid milestone index", fiber.StatusBadRequest, nil)
	}
	rec, err := h.Service.PaymentRecord(c.Context(), projectID, index)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment record fetched", rec, nil)
}

// UseContingency POST /api/v1/escrow/:projectId/use-contingency
func (h *Handlers) UseContingency(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Amount      string `json:"amount"`
		Reason      string `json:"reason"`
		RecipientID string `json:"recipient_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	amount, ok := parseAmount(body.Amount)
	if !ok {
		return response.Error(c, "Amount must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	recipientID, err := uuid.Parse(body.RecipientID)
	if err != nil {
		return response.Error(c, "Invalid recipient id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.UseContingency(c.Context(), actor.ID, actor.Role, projectID, amount, body.Reason, recipientID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Contingency funds released", nil, nil)
}

// CollectPlatformFee POST /api/v1/escrow/:projectId/collect-platform-fee
func (h *Handlers) CollectPlatformFee(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Amount string `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	amount, ok := parseAmount(body.Amount)
	if !ok {
		return response.Error(c, "Amount must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.CollectPlatformFee(c.Context(), actor.ID, actor.Role, projectID, amount); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Platform fee collected", nil, nil)
}

// EmergencyWithdraw POST /api/v1/escrow/:projectId/emergency-withdraw
func (h *Handlers) EmergencyWithdraw(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.EmergencyWithdraw(c.Context(), actor.ID, actor.Role, projectID, body.Reason); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Emergency withdrawal executed", nil, nil)
}
