package escrow

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionStub injects a session user the way middleware.Session would.
func sessionStub(userID uuid.UUID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"role":    role,
		})
		return c.Next()
	}
}

func setupEscrowApp(t *testing.T, actorID uuid.UUID, role string) (*fiber.App, *Service, uuid.UUID) {
	svc, _, _ := setupEscrowTest(t)

	h := &Handlers{Service: svc}
	app := fiber.New()
	app.Use(sessionStub(actorID, role), middleware.RequireAuth())
	app.Get("/escrow/:projectId", h.Account)
	app.Get("/escrow/:projectId/balance", h.Balance)
	app.Post("/escrow/:projectId/use-contingency", h.UseContingency)
	app.Post("/escrow/:projectId/emergency-withdraw", h.EmergencyWithdraw)
	projectID := uuid.New()
	return app, svc, projectID
}

func TestHandlers_BalanceAfterDeposit(t *testing.T) {
	app, svc, projectID := setupEscrowApp(t, uuid.New(), constants.Admin)
	deposit(t, svc, svc.DB, projectID, uuid.New(), 7_500, 500)

	resp, err := app.Test(httptest.NewRequest("GET", "/escrow/"+projectID.String()+"/balance", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Available string `json:"available"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "7500", body.Data.Available)
}

func TestHandlers_AccountNotInitialized(t *testing.T) {
	app, _, projectID := setupEscrowApp(t, uuid.New(), constants.Admin)

	resp, err := app.Test(httptest.NewRequest("GET", "/escrow/"+projectID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Error  struct {
			StatusCode int                    `json:"statusCode"`
			Details    map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, fiber.StatusConflict, body.Error.StatusCode)
	assert.Equal(t, "state_conflict", body.Error.Details["kind"])
}

func TestHandlers_UseContingencyForbiddenForInvestor(t *testing.T) {
	app, svc, projectID := setupEscrowApp(t, uuid.New(), constants.Investor)
	deposit(t, svc, svc.DB, projectID, uuid.New(), 10_000, 500)

	payload, _ := json.Marshal(fiber.Map{
		"amount":       "100",
		"reason":       "unexpected rebar cost",
		"recipient_id": uuid.New().String(),
	})
	req := httptest.NewRequest("POST", "/escrow/"+projectID.String()+"/use-contingency", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHandlers_EmergencyWithdrawRequiresReason(t *testing.T) {
	app, svc, projectID := setupEscrowApp(t, uuid.New(), constants.Admin)
	deposit(t, svc, svc.DB, projectID, uuid.New(), 10_000, 500)

	payload, _ := json.Marshal(fiber.Map{"reason": ""})
	req := httptest.NewRequest("POST", "/escrow/"+projectID.String()+"/emergency-withdraw", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
