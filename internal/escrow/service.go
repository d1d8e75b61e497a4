package escrow

import (
	"context"
	"math/big"

	"terrafund-backend/internal/audit"
	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/pkg/apperr"
	"terrafund-backend/internal/pkg/numeric"
	"terrafund-backend/internal/wallets"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RoleLifecycle is the internal pseudo-role the project state machine uses
// when driving ledger mutations. It is never assignable to a session user, so
// deposit/release/refund cannot be reached from the HTTP surface directly.
const RoleLifecycle = "lifecycle"

// Service is the per-project fund custody ledger. All mutating operations are
// role-gated and run inside the caller's transaction (or open their own), so
// every failure leaves the account untouched.
type Service struct {
	DB         *gorm.DB
	TreasuryID uuid.UUID
}

func roleAllowed(role string, allowed ...string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func loadAccount(tx *gorm.DB, projectID uuid.UUID) (*domain.EscrowAccount, error) {
	var acct domain.EscrowAccount
	err := tx.Where("project_id = ?", projectID).First(&acct).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errNotInitialized()
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// available returns totalDeposited − totalPaidOut, clamped at zero.
func available(acct *domain.EscrowAccount) *big.Int {
	out := new(big.Int).Sub(acct.TotalDeposited.Big(), acct.TotalPaidOut.Big())
	if out.Sign() < 0 {
		return new(big.Int)
	}
	return out
}

func contingencyRemaining(acct *domain.EscrowAccount) *big.Int {
	cap_ := numeric.Bps(acct.TotalDeposited.Big(), acct.ContingencyBps)
	out := cap_.Sub(cap_, acct.ContingencyUsed.Big())
	if out.Sign() < 0 {
		return new(big.Int)
	}
	return out
}

// InitializeProjectTx creates the escrow account for a project. Fails if
// already initialized.
func (s *Service) InitializeProjectTx(tx *gorm.DB, role string, projectID uuid.UUID, contingencyBps int64) error {
	if !roleAllowed(role, RoleLifecycle, constants.Admin) {
		return errUnauthorized("initialize", role)
	}
	if contingencyBps < 0 || contingencyBps > constants.MaxContingencyBps {
		return apperr.New(apperr.Validation, "Contingency percent out of bounds").
			With("contingency_bps", contingencyBps).
			With("max_bps", constants.MaxContingencyBps)
	}
	var count int64
	if err := tx.Model(&domain.EscrowAccount{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errAlreadyInitialized()
	}
	return tx.Create(&domain.EscrowAccount{
		ProjectID:      projectID,
		ContingencyBps: contingencyBps,
		Initialized:    true,
	}).Error
}

// DepositTx records an investor deposit, auto-initializing on first call.
func (s *Service) DepositTx(tx *gorm.DB, role string, projectID, investorID uuid.UUID, amount *big.Int, contingencyBps int64) error {
	if !roleAllowed(role, RoleLifecycle, constants.Admin) {
		return errUnauthorized("deposit", role)
	}
	if !numeric.IsPositive(amount) {
		return apperr.New(apperr.Validation, "Deposit amount must be positive")
	}
	if investorID == uuid.Nil {
		return apperr.New(apperr.Validation, "Investor identity required")
	}

	acct, err := loadAccount(tx, projectID)
	if err != nil {
		if !apperr.IsKind(err, apperr.StateConflict) {
			return err
		}
		if initErr := s.InitializeProjectTx(tx, role, projectID, contingencyBps); initErr != nil {
			return initErr
		}
		if acct, err = loadAccount(tx, projectID); err != nil {
			return err
		}
	}

	acct.TotalDeposited = domain.AmountFromBig(new(big.Int).Add(acct.TotalDeposited.Big(), amount))
	if err := tx.Save(acct).Error; err != nil {
		return err
	}
	return audit.Record(tx, audit.KindEscrowDeposit, projectID, &investorID, map[string]interface{}{
		"amount":          amount.String(),
		"total_deposited": acct.TotalDeposited.String(),
	})
}

// ReleaseMilestonePaymentTx pays the contractor for one milestone index. The
// project state machine guarantees single invocation per index through the
// milestone status transition; the ledger records the amount per index and
// enforces the available-funds ceiling.
func (s *Service) ReleaseMilestonePaymentTx(tx *gorm.DB, role string, projectID uuid.UUID, index int, contractorID uuid.UUID, amount *big.Int) error {
	if !roleAllowed(role, RoleLifecycle, constants.Admin) {
		return errUnauthorized("release_milestone_payment", role)
	}
	if !numeric.IsPositive(amount) {
		return apperr.New(apperr.Validation, "Payment amount must be positive")
	}
	acct, err := loadAccount(tx, projectID)
	if err != nil {
		return err
	}
	avail := available(acct)
	if amount.Cmp(avail) > 0 {
		return errInsufficientFunds(amount.String(), avail.String())
	}

	acct.TotalPaidOut = domain.AmountFromBig(new(big.Int).Add(acct.TotalPaidOut.Big(), amount))
	if err := tx.Save(acct).Error; err != nil {
		return err
	}
	record := domain.MilestonePaymentRecord{
		ProjectID: projectID,
		Index:     index,
		Amount:    domain.AmountFromBig(amount),
		PaidTo:    contractorID,
	}
	if err := tx.Create(&record).Error; err != nil {
		return err
	}
	if err := wallets.CreditTx(tx, contractorID, amount); err != nil {
		return err
	}
	log.Info().
		Str("project_id", projectID.String()).
		Int("milestone", index).
		Str("amount", amount.String()).
		Msg("Milestone payment released")
	return audit.Record(tx, audit.KindEscrowRelease, projectID, &contractorID, map[string]interface{}{
		"milestone": index,
		"amount":    amount.String(),
		"paid_out":  acct.TotalPaidOut.String(),
	})
}

// UseContingency draws from the reserved contingency budget. Admin only.
func (s *Service) UseContingency(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID, amount *big.Int, reason string, recipientID uuid.UUID) error {
	if !roleAllowed(role, constants.Admin) {
		return errUnauthorized("use_contingency", role)
	}
	if !numeric.IsPositive(amount) {
		return apperr.New(apperr.Validation, "Contingency amount must be positive")
	}
	if reason == "" {
		return apperr.New(apperr.Validation, "Contingency reason required")
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := loadAccount(tx, projectID)
		if err != nil {
			return err
		}
		remaining := contingencyRemaining(acct)
		if amount.Cmp(remaining) > 0 {
			return apperr.New(apperr.ResourceExhausted, "Contingency budget exceeded").
				With("requested", amount.String()).
				With("available", remaining.String())
		}
		avail := available(acct)
		if amount.Cmp(avail) > 0 {
			return errInsufficientFunds(amount.String(), avail.String())
		}
		acct.ContingencyUsed = domain.AmountFromBig(new(big.Int).Add(acct.ContingencyUsed.Big(), amount))
		acct.TotalPaidOut = domain.AmountFromBig(new(big.Int).Add(acct.TotalPaidOut.Big(), amount))
		if err := tx.Save(acct).Error; err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, recipientID, amount); err != nil {
			return err
		}
		return audit.Record(tx, audit.KindContingencyUsed, projectID, &actorID, map[string]interface{}{
			"amount": amount.String(),
			"reason": reason,
			"used":   acct.ContingencyUsed.String(),
		})
	})
}

// ProcessRefundTx pays a refund to an investor out of available funds.
func (s *Service) ProcessRefundTx(tx *gorm.DB, role string, projectID, investorID uuid.UUID, amount *big.Int) error {
	if !roleAllowed(role, RoleLifecycle, constants.Admin) {
		return errUnauthorized("process_refund", role)
	}
	if !numeric.IsPositive(amount) {
		return apperr.New(apperr.Validation, "Refund amount must be positive")
	}
	acct, err := loadAccount(tx, projectID)
	if err != nil {
		return err
	}
	avail := available(acct)
	if amount.Cmp(avail) > 0 {
		return errInsufficientFunds(amount.String(), avail.String())
	}
	acct.TotalPaidOut = domain.AmountFromBig(new(big.Int).Add(acct.TotalPaidOut.Big(), amount))
	if err := tx.Save(acct).Error; err != nil {
		return err
	}
	if err := wallets.CreditTx(tx, investorID, amount); err != nil {
		return err
	}
	return audit.Record(tx, audit.KindRefundProcessed, projectID, &investorID, map[string]interface{}{
		"amount": amount.String(),
	})
}

// CollectPlatformFee moves the platform's fee share to the treasury wallet.
func (s *Service) CollectPlatformFee(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID, amount *big.Int) error {
	if !roleAllowed(role, constants.Treasury, constants.Admin) {
		return errUnauthorized("collect_platform_fee", role)
	}
	if !numeric.IsPositive(amount) {
		return apperr.New(apperr.Validation, "Fee amount must be positive")
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := loadAccount(tx, projectID)
		if err != nil {
			return err
		}
		avail := available(acct)
		if amount.Cmp(avail) > 0 {
			return errInsufficientFunds(amount.String(), avail.String())
		}
		acct.TotalPaidOut = domain.AmountFromBig(new(big.Int).Add(acct.TotalPaidOut.Big(), amount))
		acct.PlatformFeeCollected = domain.AmountFromBig(new(big.Int).Add(acct.PlatformFeeCollected.Big(), amount))
		if err := tx.Save(acct).Error; err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, s.TreasuryID, amount); err != nil {
			return err
		}
		return audit.Record(tx, audit.KindFeeCollected, projectID, &actorID, map[string]interface{}{
			"amount":        amount.String(),
			"fee_collected": acct.PlatformFeeCollected.String(),
		})
	})
}

// EmergencyWithdraw sweeps all available funds to the treasury. Admin only,
// deliberately irreversible.
func (s *Service) EmergencyWithdraw(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID, reason string) error {
	if !roleAllowed(role, constants.Admin) {
		return errUnauthorized("emergency_withdraw", role)
	}
	if reason == "" {
		return apperr.New(apperr.Validation, "Emergency withdrawal reason required")
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := loadAccount(tx, projectID)
		if err != nil {
			return err
		}
		avail := available(acct)
		if avail.Sign() == 0 {
			return errInsufficientFunds("all", "0")
		}
		acct.TotalPaidOut = domain.AmountFromBig(new(big.Int).Add(acct.TotalPaidOut.Big(), avail))
		if err := tx.Save(acct).Error; err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, s.TreasuryID, avail); err != nil {
			return err
		}
		log.Warn().
			Str("project_id", projectID.String()).
			Str("amount", avail.String()).
			Str("reason", reason).
			Msg("Emergency escrow withdrawal")
		return audit.Record(tx, audit.KindEmergencyWithdraw, projectID, &actorID, map[string]interface{}{
			"amount": avail.String(),
			"reason": reason,
		})
	})
}

// AvailableTx returns the available balance within the caller's transaction,
// used by the refund path to compute proportional shares.
func AvailableTx(tx *gorm.DB, projectID uuid.UUID) (*big.Int, error) {
	acct, err := loadAccount(tx, projectID)
	if err != nil {
		return nil, err
	}
	return available(acct), nil
}

// Account returns the escrow ledger for a project.
func (s *Service) Account(ctx context.Context, projectID uuid.UUID) (*domain.EscrowAccount, error) {
	return loadAccount(s.DB.WithContext(ctx), projectID)
}

// Available returns totalDeposited − totalPaidOut, clamped at zero.
func (s *Service) Available(ctx context.Context, projectID uuid.UUID) (*big.Int, error) {
	acct, err := loadAccount(s.DB.WithContext(ctx), projectID)
	if err != nil {
		return nil, err
	}
	return available(acct), nil
}

// ContingencyRemaining returns the unused contingency budget.
func (s *Service) ContingencyRemaining(ctx context.Context, projectID uuid.UUID) (*big.Int, error) {
	acct, err := loadAccount(s.DB.WithContext(ctx), projectID)
	if err != nil {
		return nil, err
	}
	return contingencyRemaining(acct), nil
}

// PaymentRecord returns the released amount for one milestone index.
func (s *Service) PaymentRecord(ctx context.Context, projectID uuid.UUID, index int) (*domain.MilestonePaymentRecord, error) {
	var rec domain.MilestonePaymentRecord
	err := s.DB.WithContext(ctx).Where("project_id = ? AND idx = ?", projectID, index).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.New(apperr.NotFound, "No payment recorded for milestone").With("milestone", index)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
