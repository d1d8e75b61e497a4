package wallets

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"terrafund-backend/internal/audit"
	"terrafund-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookHandler processes Stripe payment_intent.succeeded events and credits
// the investor's wallet. Mounted before the session middleware so the raw body
// survives for signature verification.
type WebhookHandler struct {
	DB            *gorm.DB
	WebhookSecret string
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type paymentIntentObject struct {
	ID             string            `json:"id"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata"`
}

// HandleWebhook POST /api/v1/stripe/webhook — raw body, signature verification,
// then process. Domain errors still return 200 so Stripe does not retry.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Stripe-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Stripe webhook received empty body")
		return c.Status(400).SendString("Webhook Error: empty body")
	}

	if err := verifyStripeSignature(rawBody, sig, wh.WebhookSecret); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Msg("Stripe webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event stripeEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if event.Type == "payment_intent.succeeded" {
		var pi paymentIntentObject
		if err := json.Unmarshal(event.Data.Object, &pi); err != nil {
			return c.Status(200).SendString("ok")
		}
		if err := wh.handlePaymentIntentSucceeded(pi, event.ID, rawBody); err != nil {
			log.Warn().Err(err).Str("intent", pi.ID).Msg("Stripe webhook processing failed")
			return c.Status(200).SendString("ok")
		}
	}

	return c.Status(200).SendString("ok")
}

func (wh *WebhookHandler) handlePaymentIntentSucceeded(pi paymentIntentObject, eventID string, rawBody []byte) error {
	userIDStr := pi.Metadata["user_id"]
	amountStr := pi.Metadata["amount"]
	if userIDStr == "" || amountStr == "" {
		return nil // not a wallet top-up intent, skip silently
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil
	}
	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok || amount.Sign() <= 0 {
		return nil
	}

	return wh.DB.Transaction(func(tx *gorm.DB) error {
		// Idempotency: one Payment row per intent
		var existing domain.Payment
		if err := tx.Where("stripe_payment_intent_id = ?", pi.ID).First(&existing).Error; err == nil {
			return nil
		}

		payment := domain.Payment{
			StripePaymentIntentID: pi.ID,
			StripeEventID:         eventID,
			UserID:                userID,
			Amount:                domain.AmountFromBig(amount),
			Currency:              pi.Currency,
			Status:                pi.Status,
			RawPaymentIntent:      datatypes.JSON(rawBody),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if err := CreditTx(tx, userID, amount); err != nil {
			return err
		}
		return audit.Record(tx, audit.KindWalletCredited, uuid.Nil, &userID, map[string]interface{}{
			"amount": amount.String(),
			"intent": pi.ID,
		})
	})
}

// verifyStripeSignature verifies the Stripe-Signature header using the webhook secret.
func verifyStripeSignature(payload []byte, sigHeader, secret string) error {
	if sigHeader == "" || secret == "" {
		return errors.New("missing signature or secret")
	}

	var timestamp string
	var signatures []string

	parts := strings.Split(sigHeader, ",")
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return errors.New("invalid signature format")
	}

	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expectedSig)) {
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				return errors.New("invalid timestamp")
			}
			if time.Since(time.Unix(ts, 0)) > 5*time.Minute {
				return errors.New("timestamp outside tolerance")
			}
			return nil
		}
	}
	return errors.New("signature mismatch")
}
