package amm

import (
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

func sessionStub(userID uuid.UUID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"role":    role,
		})
		return c.Next()
	}
}

func setupAMMApp(t *testing.T, actorID uuid.UUID, role string) (*fiber.App, *ammFixture) {
	f := setupAMMTest(t)

	h := &Handlers{Service: f.svc}
	app := fiber.New()
	app.Use(sessionStub(actorID, role), middleware.RequireAuth())
	app.Get("/amm/:projectId", h.Pool)
	app.Get("/amm/:projectId/price", h.Price)
	app.Get("/amm/:projectId/quote", h.Quote)
	return app, f
}

func TestHandlers_PoolNotFound(t *testing.T) {
	app, f := setupAMMApp(t, uuid.New(), constants.Investor)

	resp, err := app.Test(httptest.NewRequest("GET", "/amm/"+f.projectID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandlers_QuoteAndPrice(t *testing.T) {
	app, f := setupAMMApp(t, uuid.New(), constants.Investor)
	f.seedPool(t)

	resp, err := app.Test(httptest.NewRequest("GET",
		"/amm/"+f.projectID.String()+"/quote?amount_in=10000&stable_in=true", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			AmountOut string `json:"amount_out"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "90661", body.Data.AmountOut)

	priceResp, err := app.Test(httptest.NewRequest("GET", "/amm/"+f.projectID.String()+"/price", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, priceResp.StatusCode)
}

func TestHandlers_QuoteRejectsBadAmount(t *testing.T) {
	app, f := setupAMMApp(t, uuid.New(), constants.Investor)
	f.seedPool(t)

	resp, err := app.Test(httptest.NewRequest("GET",
		"/amm/"+f.projectID.String()+"/quote?amount_in=-5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
