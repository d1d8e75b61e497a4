package audit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"terrafund-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAuditTest(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AuditEvent{}))
	return db
}

func TestRecord_CommitsWithTransaction(t *testing.T) {
	db := setupAuditTest(t)
	projectID := uuid.New()
	actorID := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Record(tx, KindInvestment, projectID, &actorID, map[string]interface{}{
			"amount": "10000",
		})
	}))

	events, err := ListByProject(db, projectID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindInvestment, events[0].Kind)
	assert.Equal(t, actorID, *events[0].ActorID)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "10000", payload["amount"])
}

func TestRecord_RollsBackWithTransaction(t *testing.T) {
	db := setupAuditTest(t)
	projectID := uuid.New()

	sentinel := assert.AnError
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := Record(tx, KindMinted, projectID, nil, nil); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	events, err := ListByProject(db, projectID, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHandlers_List(t *testing.T) {
	db := setupAuditTest(t)
	projectID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, Record(db, KindSwap, projectID, nil, nil))
	}
	// another project's events stay out of the trail
	require.NoError(t, Record(db, KindSwap, uuid.New(), nil, nil))

	h := &Handlers{DB: db}
	app := fiber.New()
	app.Get("/audit/:projectId", h.List)

	resp, err := app.Test(httptest.NewRequest("GET", "/audit/"+projectID.String()+"?limit=2", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data []domain.AuditEvent `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Data, 2)
}
