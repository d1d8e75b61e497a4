package token

import (
	"context"
	"math/big"
	"testing"

	"terrafund-backend/internal/chain"
	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTokenTest(t *testing.T) (*Service, *chain.Fixed, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.TokenUnit{},
		&domain.TokenBalance{},
		&domain.AuditEvent{},
	))

	heights := &chain.Fixed{H: 100}
	svc := &Service{
		DB:             db,
		Heights:        heights,
		MaxPerBlock:    big.NewInt(1_000),
		LargeThreshold: big.NewInt(500),
		CooldownBlocks: 10,
	}
	return svc, heights, db
}

func createUnit(t *testing.T, svc *Service, db *gorm.DB) *domain.TokenUnit {
	var unit *domain.TokenUnit
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		unit, err = svc.CreateUnitTx(tx, uuid.New(), "ipfs://meta")
		return err
	}))
	return unit
}

func mint(svc *Service, db *gorm.DB, unitID, to uuid.UUID, amount int64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return svc.MintTx(tx, MintRequest{UnitID: unitID, To: to, Amount: big.NewInt(amount)})
	})
}

func TestCreateUnit_OncePerProject(t *testing.T) {
	svc, _, db := setupTokenTest(t)
	projectID := uuid.New()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.CreateUnitTx(tx, projectID, "")
		return err
	}))
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.CreateUnitTx(tx, projectID, "")
		return err
	})
	assert.True(t, apperr.IsKind(err, apperr.StateConflict))
}

func TestMint_UpdatesSupplyAndBalance(t *testing.T) {
	svc, _, db := setupTokenTest(t)
	unit := createUnit(t, svc, db)
	holder := uuid.New()

	require.NoError(t, mint(svc, db, unit.UnitID, holder, 400))

	bal, err := svc.Balance(context.Background(), unit.UnitID, holder)
	require.NoError(t, err)
	assert.Equal(t, int64(400), bal.Int64())

	var got domain.TokenUnit
	require.NoError(t, db.First(&got, "unit_id = ?", unit.UnitID).Error)
	assert.Equal(t, int64(400), got.TotalMinted.Big().Int64())
	assert.Equal(t, int64(400), got.TotalSupply.Big().Int64())
}

func TestMint_PerBlockCap(t *testing.T) {
	svc, heights, db := setupTokenTest(t)
	unit := createUnit(t, svc, db)
	holder := uuid.New()

	require.NoError(t, mint(svc, db, unit.UnitID, holder, 400))
	require.NoError(t, mint(svc, db, unit.UnitID, holder, 400))

	// 800 minted in this block, headroom 200
	err := mint(svc, db, unit.UnitID, holder, 300)
	require.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
	assert.Equal(t, "200", apperr.DetailsOf(err)["headroom"])

	// next block resets the window
	heights.Advance(1)
	require.NoError(t, mint(svc, db, unit.UnitID, holder, 300))
}

func TestMint_LargeCooldown(t *testing.T) {
	svc, heights, db := setupTokenTest(t)
	unit := createUnit(t, svc, db)
	holder := uuid.New()

	require.NoError(t, mint(svc, db, unit.UnitID, holder, 500))

	heights.Advance(3)
	err := mint(svc, db, unit.UnitID, holder, 500)
	require.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
	assert.Equal(t, uint64(7), apperr.DetailsOf(err)["blocks_remaining"])

	// small mints unaffected by the cooldown
	require.NoError(t, mint(svc, db, unit.UnitID, holder, 100))

	heights.Advance(7)
	require.NoError(t, mint(svc, db, unit.UnitID, holder, 500))
}

func TestBurn_Authorization(t *testing.T) {
	svc, _, db := setupTokenTest(t)
	svc.AuthorizedBurners = map[string]bool{"lifecycle": true}
	unit := createUnit(t, svc, db)
	holder := uuid.New()
	stranger := uuid.New()
	require.NoError(t, mint(svc, db, unit.UnitID, holder, 300))

	burn := func(callerID uuid.UUID, role string, amount int64) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return svc.BurnTx(tx, callerID, role, BurnRequest{
				UnitID: unit.UnitID, From: holder, Amount: big.NewInt(amount),
			})
		})
	}

	err := burn(stranger, constants.Investor, 100)
	assert.True(t, apperr.IsKind(err, apperr.Authorization))

	require.NoError(t, burn(holder, "", 100))
	require.NoError(t, burn(stranger, "lifecycle", 100))
	require.NoError(t, burn(stranger, constants.Admin, 100))

	bal, err := svc.Balance(context.Background(), unit.UnitID, holder)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Int64())
}

func TestBurn_InsufficientBalance(t *testing.T) {
	svc, _, db := setupTokenTest(t)
	unit := createUnit(t, svc, db)
	holder := uuid.New()
	require.NoError(t, mint(svc, db, unit.UnitID, holder, 100))

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.BurnTx(tx, holder, "", BurnRequest{
			UnitID: unit.UnitID, From: holder, Amount: big.NewInt(200),
		})
	})
	require.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
	assert.Equal(t, "100", apperr.DetailsOf(err)["available"])
}

func TestTransfer_MovesBalanceKeepsSupply(t *testing.T) {
	svc, _, db := setupTokenTest(t)
	unit := createUnit(t, svc, db)
	a, b := uuid.New(), uuid.New()
	require.NoError(t, mint(svc, db, unit.UnitID, a, 250))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.TransferTx(tx, unit.UnitID, a, b, big.NewInt(100))
	}))

	balA, _ := svc.Balance(context.Background(), unit.UnitID, a)
	balB, _ := svc.Balance(context.Background(), unit.UnitID, b)
	assert.Equal(t, int64(150), balA.Int64())
	assert.Equal(t, int64(100), balB.Int64())

	var got domain.TokenUnit
	require.NoError(t, db.First(&got, "unit_id = ?", unit.UnitID).Error)
	assert.Equal(t, int64(250), got.TotalSupply.Big().Int64())
}

func TestBatchMint_AllOrNothing(t *testing.T) {
	svc, _, db := setupTokenTest(t)
	unit := createUnit(t, svc, db)
	a, b := uuid.New(), uuid.New()

	err := svc.BatchMint(context.Background(), []MintRequest{
		{UnitID: unit.UnitID, To: a, Amount: big.NewInt(100)},
		{UnitID: unit.UnitID, To: b, Amount: big.NewInt(0)}, // invalid
	})
	require.True(t, apperr.IsKind(err, apperr.Validation))

	// first item must have rolled back
	balA, _ := svc.Balance(context.Background(), unit.UnitID, a)
	assert.Equal(t, int64(0), balA.Int64())
}

func TestBatchBurn_AllOrNothing(t *testing.T) {
	svc, _, db := setupTokenTest(t)
	unit := createUnit(t, svc, db)
	holder := uuid.New()
	require.NoError(t, mint(svc, db, unit.UnitID, holder, 100))

	err := svc.BatchBurn(context.Background(), holder, "", []BurnRequest{
		{UnitID: unit.UnitID, From: holder, Amount: big.NewInt(60)},
		{UnitID: unit.UnitID, From: holder, Amount: big.NewInt(60)}, // exceeds remainder
	})
	require.True(t, apperr.IsKind(err, apperr.ResourceExhausted))

	bal, _ := svc.Balance(context.Background(), unit.UnitID, holder)
	assert.Equal(t, int64(100), bal.Int64())
}
