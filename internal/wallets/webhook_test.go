package wallets

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"terrafund-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

func setupWebhookTest(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Payment{},
		&domain.Wallet{},
		&domain.AuditEvent{},
	))

	wh := &WebhookHandler{DB: db, WebhookSecret: testWebhookSecret}
	app := fiber.New()
	app.Post("/api/v1/stripe/webhook", wh.HandleWebhook)
	return app, db
}

func signPayload(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10) + "." + string(payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func intentPayload(eventID, intentID string, userID uuid.UUID, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": %q,
			"amount_received": %d,
			"currency": "usd",
			"status": "succeeded",
			"metadata": {"user_id": %q, "amount": "%d"}
		}}
	}`, eventID, intentID, amount, userID.String(), amount))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, sig string) int {
	req := httptest.NewRequest("POST", "/api/v1/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestWebhook_CreditsWallet(t *testing.T) {
	app, db := setupWebhookTest(t)
	userID := uuid.New()
	payload := intentPayload("evt_1", "pi_1", userID, 5_000)

	status := postWebhook(t, app, payload, signPayload(payload, testWebhookSecret, time.Now().Unix()))
	assert.Equal(t, 200, status)

	var w domain.Wallet
	require.NoError(t, db.First(&w, "user_id = ?", userID).Error)
	assert.Equal(t, int64(5_000), w.Balance.Big().Int64())

	var payment domain.Payment
	require.NoError(t, db.First(&payment, "stripe_payment_intent_id = ?", "pi_1").Error)
	assert.Equal(t, "evt_1", payment.StripeEventID)
	assert.Equal(t, userID, payment.UserID)
}

func TestWebhook_IdempotentPerIntent(t *testing.T) {
	app, db := setupWebhookTest(t)
	userID := uuid.New()
	payload := intentPayload("evt_1", "pi_1", userID, 5_000)
	sig := signPayload(payload, testWebhookSecret, time.Now().Unix())

	assert.Equal(t, 200, postWebhook(t, app, payload, sig))
	assert.Equal(t, 200, postWebhook(t, app, payload, sig))

	var w domain.Wallet
	require.NoError(t, db.First(&w, "user_id = ?", userID).Error)
	assert.Equal(t, int64(5_000), w.Balance.Big().Int64(), "retry must not double-credit")

	var count int64
	require.NoError(t, db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	app, db := setupWebhookTest(t)
	userID := uuid.New()
	payload := intentPayload("evt_1", "pi_1", userID, 5_000)

	assert.Equal(t, 400, postWebhook(t, app, payload, ""))
	assert.Equal(t, 400, postWebhook(t, app, payload, signPayload(payload, "whsec_wrong", time.Now().Unix())))

	// stale timestamp outside tolerance
	stale := signPayload(payload, testWebhookSecret, time.Now().Add(-10*time.Minute).Unix())
	assert.Equal(t, 400, postWebhook(t, app, payload, stale))

	var count int64
	require.NoError(t, db.Model(&domain.Wallet{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWebhook_IgnoresOtherEvents(t *testing.T) {
	app, db := setupWebhookTest(t)
	payload := []byte(`{"id": "evt_2", "type": "payment_intent.created", "data": {"object": {}}}`)

	status := postWebhook(t, app, payload, signPayload(payload, testWebhookSecret, time.Now().Unix()))
	assert.Equal(t, 200, status)

	var count int64
	require.NoError(t, db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWebhook_SkipsNonTopUpIntent(t *testing.T) {
	app, db := setupWebhookTest(t)
	// metadata without user_id/amount keys is not a wallet top-up
	payload := []byte(`{
		"id": "evt_3",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_3", "currency": "usd", "status": "succeeded", "metadata": {}}}
	}`)

	status := postWebhook(t, app, payload, signPayload(payload, testWebhookSecret, time.Now().Unix()))
	assert.Equal(t, 200, status)

	var count int64
	require.NoError(t, db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
