package wallets

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/middleware"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubIntentCreator struct {
	lastAmount   int64
	lastMetadata map[string]string
}

func (s *stubIntentCreator) Create(amountCents int64, currency string, metadata map[string]string) (*PaymentIntentResult, error) {
	s.lastAmount = amountCents
	s.lastMetadata = metadata
	return &PaymentIntentResult{ID: "pi_test", ClientSecret: "cs_test"}, nil
}

func sessionStub(userID uuid.UUID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"role":    role,
		})
		return c.Next()
	}
}

func setupWalletApp(t *testing.T, userID uuid.UUID) (*fiber.App, *stubIntentCreator) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Wallet{}))

	creator := &stubIntentCreator{}
	h := &Handlers{Service: &Service{DB: db}, IntentCreator: creator}
	app := fiber.New()
	app.Use(sessionStub(userID, constants.Investor), middleware.RequireAuth())
	app.Get("/wallets/balance", h.Balance)
	app.Post("/wallets/top-up", h.TopUp)
	return app, creator
}

func TestHandlers_BalanceLazyCreates(t *testing.T) {
	userID := uuid.New()
	app, _ := setupWalletApp(t, userID)

	resp, err := app.Test(httptest.NewRequest("GET", "/wallets/balance", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			UserID  string `json:"user_id"`
			Balance string `json:"balance"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, userID.String(), body.Data.UserID)
	assert.Equal(t, "0", body.Data.Balance)
}

func TestHandlers_TopUpCreatesIntent(t *testing.T) {
	userID := uuid.New()
	app, creator := setupWalletApp(t, userID)

	payload, _ := json.Marshal(fiber.Map{"amount": "2500"})
	req := httptest.NewRequest("POST", "/wallets/top-up", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2500), creator.lastAmount)
	assert.Equal(t, userID.String(), creator.lastMetadata["user_id"])

	var body struct {
		Data struct {
			PaymentIntentID string `json:"payment_intent_id"`
			ClientSecret    string `json:"client_secret"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "pi_test", body.Data.PaymentIntentID)
}

func TestHandlers_TopUpRejectsBadAmount(t *testing.T) {
	app, _ := setupWalletApp(t, uuid.New())

	payload, _ := json.Marshal(fiber.Map{"amount": "zero"})
	req := httptest.NewRequest("POST", "/wallets/top-up", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
