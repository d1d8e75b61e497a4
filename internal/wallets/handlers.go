package wallets

import (
	"math/big"
	"strconv"

	"terrafund-backend/internal/middleware"
	"terrafund-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service       *Service
	IntentCreator PaymentIntentCreator
}

// Balance GET /api/v1/wallets/balance — the caller's stable-asset balance.
func (h *Handlers) Balance(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	w, err := h.Service.Get(c.Context(), actor.ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Wallet fetched", w, nil)
}

// TopUp POST /api/v1/wallets/top-up — creates a Stripe PaymentIntent whose
// webhook settlement credits the caller's wallet.
func (h *Handlers) TopUp(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	amount, ok := new(big.Int).SetString(body.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return response.Error(c, "Amount must be a positive integer string", fiber.StatusBadRequest, nil)
	}
	if !amount.IsInt64() {
		return response.Error(c, "Amount exceeds supported top-up size", fiber.StatusBadRequest, nil)
	}
	currency := body.Currency
	if currency == "" {
		currency = "usd"
	}
	if h.IntentCreator == nil {
		return response.Error(c, "Stripe not configured", fiber.StatusInternalServerError, nil)
	}

	pi, err := h.IntentCreator.Create(amount.Int64(), currency, map[string]string{
		"user_id": actor.ID.String(),
		"amount":  strconv.FormatInt(amount.Int64(), 10),
	})
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Payment intent created", fiber.Map{
		"payment_intent_id": pi.ID,
		"client_secret":     pi.ClientSecret,
	}, nil)
}
