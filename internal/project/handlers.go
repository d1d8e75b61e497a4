package project

import (
	"math/big"
	"time"

	"terrafund-backend/internal/middleware"
	"terrafund-backend/internal/pkg/response"
	"terrafund-backend/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
	Tokens  *token.Service
}

func projectParam(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("projectId"))
}

func parseAmount(raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	return amount, ok && amount.Sign() > 0
}

// Create POST /api/v1/projects
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		Name            string    `json:"name"`
		ContractorID    string    `json:"contractor_id"`
		HardCap         string    `json:"hard_cap"`
		SoftCap         string    `json:"soft_cap"`
		TokenPrice      string    `json:"token_price"`
		MintingDeadline time.Time `json:"minting_deadline"`
		ProjectDeadline time.Time `json:"project_deadline"`
		ContingencyBps  int64     `json:"contingency_bps"`
		PlatformFeeBps  int64     `json:"platform_fee_bps"`
		MetadataRef     string    `json:"metadata_ref"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	contractorID, err := uuid.Parse(body.ContractorID)
	if err != nil {
		return response.Error(c, "Invalid contractor id", fiber.StatusBadRequest, nil)
	}
	hardCap, ok := parseAmount(body.HardCap)
	if !ok {
		return response.Error(c, "Hard cap must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	softCap, ok := parseAmount(body.SoftCap)
	if !ok {
		return response.Error(c, "Soft cap must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	tokenPrice, ok := parseAmount(body.TokenPrice)
	if !ok {
		return response.Error(c, "Token price must be a positive integer string", fiber.StatusBadRequest, nil)
	}

	p, err := h.Service.CreateProject(c.Context(), actor.ID, CreateParams{
		Name:            body.Name,
		ContractorID:    contractorID,
		HardCap:         hardCap,
		SoftCap:         softCap,
		TokenPrice:      tokenPrice,
		MintingDeadline: body.MintingDeadline,
		ProjectDeadline: body.ProjectDeadline,
		ContingencyBps:  body.ContingencyBps,
		PlatformFeeBps:  body.PlatformFeeBps,
		MetadataRef:     body.MetadataRef,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Project created", p, nil)
}

// AddMilestone POST /api/v1/projects/:projectId/milestones
func (h *Handlers) AddMilestone(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Description       string `json:"description"`
		BudgetBps         int64  `json:"budget_bps"`
		RequiredApprovals int    `json:"required_approvals"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	m, err := h.Service.AddMilestone(c.Context(), actor.ID, projectID, body.Description, body.BudgetBps, body.RequiredApprovals)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Milestone added", m, nil)
}

// AddVerifier POST /api/v1/projects/:projectId/verifiers
func (h *Handlers) AddVerifier(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		VerifierID string `json:"verifier_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	verifierID, err := uuid.Parse(body.VerifierID)
	if err != nil {
		return response.Error(c, "Invalid verifier id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.AddVerifier(c.Context(), actor.ID, projectID, verifierID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Verifier assigned", nil, nil)
}

// Invest POST /api/v1/projects/:projectId/invest
func (h *Handlers) Invest(c *fiber.Ctx) error {
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
	position, err := h.Service.Invest(c.Context(), actor.ID, projectID, amount)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Investment recorded", position, nil)
}

func (h *Handlers) transitionHandler(transition func(c *fiber.Ctx, actorID, projectID uuid.UUID) error, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := middleware.GetActor(c)
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		projectID, err := projectParam(c)
		if err != nil {
			return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
		}
		if err := transition(c, actor.ID, projectID); err != nil {
			return response.FromError(c, err)
		}
		return response.Success(c, message, nil, nil)
	}
}

// StartBuilding POST /api/v1/projects/:projectId/start-building
func (h *Handlers) StartBuilding() fiber.Handler {
	return h.transitionHandler(func(c *fiber.Ctx, actorID, projectID uuid.UUID) error {
		return h.Service.StartBuilding(c.Context(), actorID, projectID)
	}, "Building phase started")
}

// StartTrading POST /api/v1/projects/:projectId/start-trading
func (h *Handlers) StartTrading() fiber.Handler {
	return h.transitionHandler(func(c *fiber.Ctx, actorID, projectID uuid.UUID) error {
		return h.Service.StartTrading(c.Context(), actorID, projectID)
	}, "Trading phase started")
}

// StartFinalSale POST /api/v1/projects/:projectId/start-final-sale
func (h *Handlers) StartFinalSale() fiber.Handler {
	return h.transitionHandler(func(c *fiber.Ctx, actorID, projectID uuid.UUID) error {
		return h.Service.StartFinalSale(c.Context(), actorID, projectID)
	}, "Final sale started")
}

// Cancel POST /api/v1/projects/:projectId/cancel
func (h *Handlers) Cancel() fiber.Handler {
	return h.transitionHandler(func(c *fiber.Ctx, actorID, projectID uuid.UUID) error {
		return h.Service.CancelProject(c.Context(), actorID, projectID)
	}, "Project cancelled")
}

// Complete POST /api/v1/projects/:projectId/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		SalePrice string `json:"sale_price"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	salePrice, ok := parseAmount(body.SalePrice)
	if !ok {
		return response.Error(c, "Sale price must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.CompleteProject(c.Context(), actor.ID, projectID, salePrice); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project completed", nil, nil)
}

// SubmitMilestone POST /api/v1/projects/:projectId/milestones/:index/submit
func (h *Handlers) SubmitMilestone(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return response.Error(c, "Invalid milestone index", fiber.StatusBadRequest, nil)
	}
	var body struct {
		DocRef string `json:"doc_ref"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.SubmitMilestone(c.Context(), actor.ID, projectID, index, body.DocRef); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Milestone submitted", nil, nil)
}

// VerifyMilestone POST /api/v1/projects/:projectId/milestones/:index/verify
func (h *Handlers) VerifyMilestone(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return response.Error(c, "Invalid milestone index", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.VerifyMilestone(c.Context(), actor.ID, projectID, index); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Milestone approval recorded", nil, nil)
}

// DisputeMilestone POST /api/v1/projects/:projectId/milestones/:index/dispute
func (h *Handlers) DisputeMilestone(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return response.Error(c, "Invalid milestone index", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DisputeMilestone(c.Context(), actor.ID, projectID, index, body.Reason); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Milestone disputed", nil, nil)
}

// ResolveDispute POST /api/v1/projects/:projectId/milestones/:index/resolve
func (h *Handlers) ResolveDispute(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return response.Error(c, "Invalid milestone index", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Approved bool `json:"approved"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.ResolveDispute(c.Context(), actor.ID, projectID, index, body.Approved); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Dispute resolved", nil, nil)
}

// ClaimRefund POST /api/v1/projects/:projectId/claim-refund
func (h *Handlers) ClaimRefund(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	refund, err := h.Service.ClaimRefund(c.Context(), actor.ID, projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Refund paid", fiber.Map{"refund": refund.String()}, nil)
}

// Get GET /api/v1/projects/:projectId
func (h *Handlers) Get(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	p, err := h.Service.Get(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project fetched", p, nil)
}

// Milestones GET /api/v1/projects/:projectId/milestones
func (h *Handlers) Milestones(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	ms, err := h.Service.Milestones(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Milestones fetched", ms, nil)
}

// Position GET /api/v1/projects/:projectId/position — the caller's stake.
func (h *Handlers) Position(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	position, err := h.Service.Position(c.Context(), projectID, actor.ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Position fetched", position, nil)
}

// TokenInfo GET /api/v1/projects/:projectId/token — supply figures plus the
// caller's registry balance.
func (h *Handlers) TokenInfo(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	unit, err := h.Tokens.UnitByProject(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	balance, err := h.Tokens.Balance(c.Context(), unit.UnitID, actor.ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Token unit fetched", fiber.Map{
		"unit":    unit,
		"balance": balance.String(),
	}, nil)
}
