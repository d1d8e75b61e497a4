package amm

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

// optional minimum: empty string means no floor.
func parseMin(raw string) (*big.Int, bool) {
	if raw == "" {
		return nil, true
	}
	min, ok := new(big.Int).SetString(raw, 10)
	return min, ok && min.Sign() >= 0
}

// CreatePool POST /api/v1/amm/:projectId/create-pool
func (h *Handlers) CreatePool(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		InitialTokens string `json:"initial_tokens"`
		InitialStable string `json:"initial_stable"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	tokens, ok := parseAmount(body.InitialTokens)
	if !ok {
		return response.Error(c, "Initial tokens must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	stable, ok := parseAmount(body.InitialStable)
	if !ok {
		return response.Error(c, "Initial stable must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	pool, err := h.Service.CreatePool(c.Context(), actor.ID, projectID, tokens, stable)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Pool created", pool, nil)
}

// AddLiquidity POST /api/v1/amm/:projectId/add-liquidity
func (h *Handlers) AddLiquidity(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		TokenAmount  string `json:"token_amount"`
		StableAmount string `json:"stable_amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	tokens, ok := parseAmount(body.TokenAmount)
	if !ok {
		return response.Error(c, "Token amount must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	stable, ok := parseAmount(body.StableAmount)
	if !ok {
		return response.Error(c, "Stable amount must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	shares, err := h.Service.AddLiquidity(c.Context(), actor.ID, projectID, tokens, stable)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Liquidity added", fiber.Map{"shares": shares.String()}, nil)
}

// RemoveLiquidity POST /api/v1/amm/:projectId/remove-liquidity
func (h *Handlers) RemoveLiquidity(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Shares string `json:"shares"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	shares, ok := parseAmount(body.Shares)
	if !ok {
		return response.Error(c, "Shares must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	tokensOut, stableOut, err := h.Service.RemoveLiquidity(c.Context(), actor.ID, projectID, shares)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Liquidity removed", fiber.Map{
		"tokens": tokensOut.String(),
		"stable": stableOut.String(),
	}, nil)
}

func (h *Handlers) swapHandler(stableIn bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := middleware.GetActor(c)
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		projectID, err := projectParam(c)
		if err != nil {
			return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
		}
		var body struct {
			AmountIn   string `json:"amount_in"`
			MinimumOut string `json:"minimum_out"`
		}
		if err := c.BodyParser(&body); err != nil {
			return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
		}
		amountIn, ok := parseAmount(body.AmountIn)
		if !ok {
			return response.Error(c, "Input amount must be a positive integer string", fiber.StatusBadRequest, nil)
		}
		minOut, ok := parseMin(body.MinimumOut)
		if !ok {
			return response.Error(c, "Minimum out must be a non-negative integer string", fiber.StatusBadRequest, nil)
		}
		var result *SwapResult
		if stableIn {
			result, err = h.Service.SwapStableForTokens(c.Context(), actor.ID, projectID, amountIn, minOut)
		} else {
			result, err = h.Service.SwapTokensForStable(c.Context(), actor.ID, projectID, amountIn, minOut)
		}
		if err != nil {
			return response.FromError(c, err)
		}
		return response.Success(c, "Swap executed", fiber.Map{
			"amount_in":       result.AmountIn.String(),
			"amount_out":      result.AmountOut.String(),
			"new_price":       result.NewPrice.String(),
			"breaker_tripped": result.BreakerTripped,
		}, nil)
	}
}

// SwapStableForTokens POST /api/v1/amm/:projectId/swap-stable-for-tokens
func (h *Handlers) SwapStableForTokens() fiber.Handler {
	return h.swapHandler(true)
}

// SwapTokensForStable POST /api/v1/amm/:projectId/swap-tokens-for-stable
func (h *Handlers) SwapTokensForStable() fiber.Handler {
	return h.swapHandler(false)
}

// Pause POST /api/v1/amm/:projectId/pause
func (h *Handlers) Pause(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.PauseTrading(c.Context(), actor.ID, actor.Role, projectID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Trading paused", nil, nil)
}

// Resume POST /api/v1/amm/:projectId/resume
func (h *Handlers) Resume(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.ResumeTrading(c.Context(), actor.ID, actor.Role, projectID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Trading resumed", nil, nil)
}

// CollectFees POST /api/v1/amm/:projectId/collect-fees
func (h *Handlers) CollectFees(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	collected, err := h.Service.CollectFees(c.Context(), actor.ID, actor.Role, projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Fees collected", fiber.Map{"amount": collected.String()}, nil)
}

// EmergencyWithdraw POST /api/v1/amm/:projectId/emergency-withdraw
func (h *Handlers) EmergencyWithdraw(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.EmergencyWithdrawLiquidity(c.Context(), actor.ID, actor.Role, projectID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pool drained to treasury", nil, nil)
}

// UpdateConfig PATCH /api/v1/amm/:projectId/config
func (h *Handlers) UpdateConfig(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	var cfg PoolConfig
	if err := c.BodyParser(&cfg); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.UpdatePoolConfig(c.Context(), actor.ID, actor.Role, projectID, cfg); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pool configuration updated", nil, nil)
}

// Pool GET /api/v1/amm/:projectId
func (h *Handlers) Pool(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	pool, err := h.Service.Pool(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pool fetched", pool, nil)
}

// Price GET /api/v1/amm/:projectId/price
func (h *Handlers) Price(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	price, err := h.Service.SpotPrice(c.Context(), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Spot price fetched", fiber.Map{"price": price.String()}, nil)
}

// Quote GET /api/v1/amm/:projectId/quote?amount_in=…&stable_in=true
func (h *Handlers) Quote(c *fiber.Ctx) error {
	projectID, err := projectParam(c)
	if err != nil {
		return response.Error(c, "Invalid project id", fiber.StatusBadRequest, nil)
	}
	amountIn, ok := parseAmount(c.Query("amount_in"))
	if !ok {
		return response.Error(c, "amount_in must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	stableIn := c.QueryBool("stable_in", true)
	out, err := h.Service.GetAmountOut(c.Context(), projectID, amountIn, stableIn)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Quote computed", fiber.Map{"amount_out": out.String()}, nil)
}
