package escrow

import (
	"context"
	"math/big"
	"testing"

	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupEscrowTest(t *testing.T) (*Service, *gorm.DB, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.EscrowAccount{},
		&domain.MilestonePaymentRecord{},
		&domain.Wallet{},
		&domain.AuditEvent{},
	))

	treasuryID := uuid.New()
	require.NoError(t, db.Create(&domain.Wallet{UserID: treasuryID}).Error)
	return &Service{DB: db, TreasuryID: treasuryID}, db, treasuryID
}

func deposit(t *testing.T, svc *Service, db *gorm.DB, projectID, investorID uuid.UUID, amount int64, contingencyBps int64) {
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.DepositTx(tx, RoleLifecycle, projectID, investorID, big.NewInt(amount), contingencyBps)
	}))
}

func walletBalance(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	var w domain.Wallet
	require.NoError(t, db.First(&w, "user_id = ?", userID).Error)
	return w.Balance.Big().Int64()
}

func TestDeposit_AutoInitializes(t *testing.T) {
	svc, db, _ := setupEscrowTest(t)
	projectID := uuid.New()

	deposit(t, svc, db, projectID, uuid.New(), 10_000, 500)

	acct, err := svc.Account(context.Background(), projectID)
	require.NoError(t, err)
	assert.True(t, acct.Initialized)
	assert.Equal(t, int64(500), acct.ContingencyBps)
	assert.Equal(t, int64(10_000), acct.TotalDeposited.Big().Int64())
}

func TestDeposit_RejectsSessionRoles(t *testing.T) {
	svc, db, _ := setupEscrowTest(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.DepositTx(tx, constants.Investor, uuid.New(), uuid.New(), big.NewInt(100), 0)
	})
	assert.True(t, apperr.IsKind(err, apperr.Authorization))
}

func TestRelease_NeverExceedsDeposits(t *testing.T) {
	svc, db, _ := setupEscrowTest(t)
	projectID := uuid.New()
	contractorID := uuid.New()
	require.NoError(t, db.Create(&domain.Wallet{UserID: contractorID}).Error)
	deposit(t, svc, db, projectID, uuid.New(), 1_000, 0)

	release := func(index int, amount int64) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return svc.ReleaseMilestonePaymentTx(tx, RoleLifecycle, projectID, index, contractorID, big.NewInt(amount))
		})
	}

	require.NoError(t, release(0, 600))
	assert.Equal(t, int64(600), walletBalance(t, db, contractorID))

	err := release(1, 500)
	require.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
	assert.Equal(t, "400", apperr.DetailsOf(err)["available"])

	require.NoError(t, release(1, 400))

	avail, err := svc.Available(context.Background(), projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), avail.Int64())
}

func TestRelease_RecordsPerIndex(t *testing.T) {
	svc, db, _ := setupEscrowTest(t)
	projectID := uuid.New()
	contractorID := uuid.New()
	require.NoError(t, db.Create(&domain.Wallet{UserID: contractorID}).Error)
	deposit(t, svc, db, projectID, uuid.New(), 1_000, 0)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.ReleaseMilestonePaymentTx(tx, RoleLifecycle, projectID, 2, contractorID, big.NewInt(300))
	}))

	rec, err := svc.PaymentRecord(context.Background(), projectID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(300), rec.Amount.Big().Int64())
	assert.Equal(t, contractorID, rec.PaidTo)
}

func TestUseContingency_CapAndLedger(t *testing.T) {
	svc, db, _ := setupEscrowTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	adminID := uuid.New()
	recipientID := uuid.New()
	require.NoError(t, db.Create(&domain.Wallet{UserID: recipientID}).Error)
	// 10% contingency on 10_000 deposits = 1_000 budget
	deposit(t, svc, db, projectID, uuid.New(), 10_000, 1_000)

	err := svc.UseContingency(ctx, adminID, constants.Investor, projectID, big.NewInt(100), "storm damage", recipientID)
	assert.True(t, apperr.IsKind(err, apperr.Authorization))

	err = svc.UseContingency(ctx, adminID, constants.Admin, projectID, big.NewInt(1_500), "storm damage", recipientID)
	require.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
	assert.Equal(t, "1000", apperr.DetailsOf(err)["available"])

	require.NoError(t, svc.UseContingency(ctx, adminID, constants.Admin, projectID, big.NewInt(600), "storm damage", recipientID))
	assert.Equal(t, int64(600), walletBalance(t, db, recipientID))

	remaining, err := svc.ContingencyRemaining(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), remaining.Int64())

	err = svc.UseContingency(ctx, adminID, constants.Admin, projectID, big.NewInt(500), "more damage", recipientID)
	assert.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
}

func TestProcessRefund_DebitsAvailable(t *testing.T) {
	svc, db, _ := setupEscrowTest(t)
	projectID := uuid.New()
	investorID := uuid.New()
	require.NoError(t, db.Create(&domain.Wallet{UserID: investorID}).Error)
	deposit(t, svc, db, projectID, investorID, 5_000, 0)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.ProcessRefundTx(tx, RoleLifecycle, projectID, investorID, big.NewInt(4_750))
	}))
	assert.Equal(t, int64(4_750), walletBalance(t, db, investorID))

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ProcessRefundTx(tx, RoleLifecycle, projectID, investorID, big.NewInt(500))
	})
	assert.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
}

func TestCollectPlatformFee_TreasuryOnly(t *testing.T) {
	svc, db, treasuryID := setupEscrowTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	actorID := uuid.New()
	deposit(t, svc, db, projectID, uuid.New(), 10_000, 0)

	err := svc.CollectPlatformFee(ctx, actorID, constants.Contractor, projectID, big.NewInt(500))
	assert.True(t, apperr.IsKind(err, apperr.Authorization))

	require.NoError(t, svc.CollectPlatformFee(ctx, actorID, constants.Treasury, projectID, big.NewInt(500)))
	assert.Equal(t, int64(500), walletBalance(t, db, treasuryID))

	acct, err := svc.Account(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), acct.PlatformFeeCollected.Big().Int64())
}

func TestEmergencyWithdraw_SweepsAvailable(t *testing.T) {
	svc, db, treasuryID := setupEscrowTest(t)
	ctx := context.Background()
	projectID := uuid.New()
	adminID := uuid.New()
	deposit(t, svc, db, projectID, uuid.New(), 8_000, 0)

	err := svc.EmergencyWithdraw(ctx, adminID, constants.Admin, projectID, "")
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	require.NoError(t, svc.EmergencyWithdraw(ctx, adminID, constants.Admin, projectID, "compromised contractor"))
	assert.Equal(t, int64(8_000), walletBalance(t, db, treasuryID))

	// nothing left to sweep
	err = svc.EmergencyWithdraw(ctx, adminID, constants.Admin, projectID, "again")
	assert.True(t, apperr.IsKind(err, apperr.ResourceExhausted))
}

func TestAccount_NotInitialized(t *testing.T) {
	svc, _, _ := setupEscrowTest(t)
	_, err := svc.Account(context.Background(), uuid.New())
	assert.True(t, apperr.IsKind(err, apperr.StateConflict))
}
