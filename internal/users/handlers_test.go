package users

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"terrafund-backend/internal/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUsersApp(t *testing.T) (*fiber.App, *Service) {
	svc, _ := setupUserTest(t)

	h := &Handlers{Service: svc}
	app := fiber.New()
	app.Post("/users", h.Create)
	app.Patch("/users/update-role", h.UpdateRole)
	return app, svc
}

func TestHandlers_CreateUser(t *testing.T) {
	app, _ := setupUsersApp(t)

	payload, _ := json.Marshal(CreateInput{
		Fullname: "Grace Hopper",
		Email:    "grace@example.com",
		Password: "S3cure!pass",
		Role:     constants.Verifier,
	})
	req := httptest.NewRequest("POST", "/users", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			UserID string `json:"user_id"`
			Email  string `json:"email"`
			Role   string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "grace@example.com", body.Data.Email)
	assert.Equal(t, constants.Verifier, body.Data.Role)

	// update role through the handler
	rolePayload, _ := json.Marshal(fiber.Map{"user_id": body.Data.UserID, "role": constants.Contractor})
	roleReq := httptest.NewRequest("PATCH", "/users/update-role", bytes.NewReader(rolePayload))
	roleReq.Header.Set("Content-Type", "application/json")

	roleResp, err := app.Test(roleReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, roleResp.StatusCode)
}

func TestHandlers_CreateUserInvalid(t *testing.T) {
	app, _ := setupUsersApp(t)

	payload, _ := json.Marshal(CreateInput{
		Fullname: "No Email",
		Email:    "not-an-email",
		Password: "S3cure!pass",
	})
	req := httptest.NewRequest("POST", "/users", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
