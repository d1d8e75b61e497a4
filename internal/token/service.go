package token

import (
	"context"
	"math/big"

	"terrafund-backend/internal/audit"
	"terrafund-backend/internal/chain"
	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/pkg/apperr"
	"terrafund-backend/internal/pkg/numeric"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the token registry: one fungible unit per project, with supply
// tracking and per-block mint rate limiting. Amounts are at 18-decimal scale.
type Service struct {
	DB      *gorm.DB
	Heights chain.Source

	// Rate limiting. MaxPerBlock caps total minting within one block;
	// mints of at least LargeThreshold must wait CooldownBlocks since the
	// last large mint.
	MaxPerBlock    *big.Int
	LargeThreshold *big.Int
	CooldownBlocks uint64

	// AuthorizedBurners may burn third-party balances (the project state
	// machine and the distribution engine, wired at startup).
	AuthorizedBurners map[string]bool
}

// MintRequest is one item of a (batch) mint.
type MintRequest struct {
	UnitID uuid.UUID
	To     uuid.UUID
	Amount *big.Int
}

// BurnRequest is one item of a (batch) burn.
type BurnRequest struct {
	UnitID uuid.UUID
	From   uuid.UUID
	Amount *big.Int
}

// CreateUnitTx creates the token unit for a project. Fails if one exists.
func (s *Service) CreateUnitTx(tx *gorm.DB, projectID uuid.UUID, metadataRef string) (*domain.TokenUnit, error) {
	var count int64
	if err := tx.Model(&domain.TokenUnit{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.New(apperr.StateConflict, "Token unit already exists for project").
			With("project_id", projectID.String())
	}
	unit := domain.TokenUnit{ProjectID: projectID, MetadataRef: metadataRef}
	if err := tx.Create(&unit).Error; err != nil {
		return nil, err
	}
	if err := audit.Record(tx, audit.KindUnitCreated, projectID, nil, map[string]interface{}{
		"unit_id": unit.UnitID.String(),
	}); err != nil {
		return nil, err
	}
	return &unit, nil
}

func loadUnit(tx *gorm.DB, unitID uuid.UUID) (*domain.TokenUnit, error) {
	var unit domain.TokenUnit
	err := tx.Where("unit_id = ?", unitID).First(&unit).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.New(apperr.NotFound, "Token unit not found").With("unit_id", unitID.String())
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// checkRateLimit validates the mint against the per-block cap and the
// large-mint cooldown, mutating the unit's window counters on success. The
// window resets naturally when the current block differs from the last
// recorded mint block.
func (s *Service) checkRateLimit(unit *domain.TokenUnit, amount *big.Int, height uint64) error {
	mintedThisBlock := unit.MintedThisBlock.Big()
	if unit.LastMintBlock != height {
		mintedThisBlock = new(big.Int)
	}

	if s.MaxPerBlock != nil && s.MaxPerBlock.Sign() > 0 {
		next := new(big.Int).Add(mintedThisBlock, amount)
		if next.Cmp(s.MaxPerBlock) > 0 {
			headroom := new(big.Int).Sub(s.MaxPerBlock, mintedThisBlock)
			if headroom.Sign() < 0 {
				headroom = new(big.Int)
			}
			return apperr.New(apperr.ResourceExhausted, "Mint rate limit exceeded for this block").
				With("requested", amount.String()).
				With("headroom", headroom.String())
		}
	}

	if s.LargeThreshold != nil && s.LargeThreshold.Sign() > 0 && amount.Cmp(s.LargeThreshold) >= 0 {
		if unit.LastLargeMintBlock != 0 && height < unit.LastLargeMintBlock+s.CooldownBlocks {
			remaining := unit.LastLargeMintBlock + s.CooldownBlocks - height
			return apperr.New(apperr.ResourceExhausted, "Large mint cooldown not satisfied").
				With("requested", amount.String()).
				With("blocks_remaining", remaining)
		}
		unit.LastLargeMintBlock = height
	}

	unit.LastMintBlock = height
	unit.MintedThisBlock = domain.AmountFromBig(mintedThisBlock.Add(mintedThisBlock, amount))
	return nil
}

// MintTx mints amount of unitID to the recipient inside the caller's
// transaction, updating supply, balance and rate-limit state together.
func (s *Service) MintTx(tx *gorm.DB, req MintRequest) error {
	if !numeric.IsPositive(req.Amount) {
		return apperr.New(apperr.Validation, "Mint amount must be positive")
	}
	if req.To == uuid.Nil {
		return apperr.New(apperr.Validation, "Mint recipient required")
	}
	unit, err := loadUnit(tx, req.UnitID)
	if err != nil {
		return err
	}
	if err := s.checkRateLimit(unit, req.Amount, s.Heights.Height()); err != nil {
		return err
	}
	unit.TotalMinted = domain.AmountFromBig(new(big.Int).Add(unit.TotalMinted.Big(), req.Amount))
	unit.TotalSupply = domain.AmountFromBig(new(big.Int).Add(unit.TotalSupply.Big(), req.Amount))
	if err := tx.Save(unit).Error; err != nil {
		return err
	}
	if err := creditBalance(tx, req.UnitID, req.To, req.Amount); err != nil {
		return err
	}
	return audit.Record(tx, audit.KindMinted, unit.ProjectID, &req.To, map[string]interface{}{
		"amount": req.Amount.String(),
		"supply": unit.TotalSupply.String(),
	})
}

// BurnTx destroys amount of unitID held by req.From. The caller role must be
// the holder themselves or an authorized burner.
func (s *Service) BurnTx(tx *gorm.DB, callerID uuid.UUID, callerRole string, req BurnRequest) error {
	if !numeric.IsPositive(req.Amount) {
		return apperr.New(apperr.Validation, "Burn amount must be positive")
	}
	if callerID != req.From && !s.AuthorizedBurners[callerRole] && callerRole != constants.Admin {
		return apperr.New(apperr.Authorization, "Caller may not burn this balance").
			With("holder", req.From.String())
	}
	unit, err := loadUnit(tx, req.UnitID)
	if err != nil {
		return err
	}
	if err := debitBalance(tx, req.UnitID, req.From, req.Amount); err != nil {
		return err
	}
	supply := unit.TotalSupply.Big()
	if supply.Cmp(req.Amount) < 0 {
		// balance check above makes this unreachable unless state diverged
		return apperr.New(apperr.ResourceExhausted, "Burn exceeds total supply").
			With("requested", req.Amount.String()).
			With("supply", supply.String())
	}
	unit.TotalSupply = domain.AmountFromBig(supply.Sub(supply, req.Amount))
	if err := tx.Save(unit).Error; err != nil {
		return err
	}
	return audit.Record(tx, audit.KindBurned, unit.ProjectID, &req.From, map[string]interface{}{
		"amount": req.Amount.String(),
		"supply": unit.TotalSupply.String(),
	})
}

// TransferTx moves balance between holders without changing supply.
func (s *Service) TransferTx(tx *gorm.DB, unitID, from, to uuid.UUID, amount *big.Int) error {
	if !numeric.IsPositive(amount) {
		return apperr.New(apperr.Validation, "Transfer amount must be positive")
	}
	if to == uuid.Nil {
		return apperr.New(apperr.Validation, "Transfer recipient required")
	}
	unit, err := loadUnit(tx, unitID)
	if err != nil {
		return err
	}
	if err := debitBalance(tx, unitID, from, amount); err != nil {
		return err
	}
	if err := creditBalance(tx, unitID, to, amount); err != nil {
		return err
	}
	return audit.Record(tx, audit.KindTransferred, unit.ProjectID, &from, map[string]interface{}{
		"to":     to.String(),
		"amount": amount.String(),
	})
}

// BatchMint mints every request or none: any invalid item rolls back the
// whole batch.
func (s *Service) BatchMint(ctx context.Context, reqs []MintRequest) error {
	if len(reqs) == 0 {
		return apperr.New(apperr.Validation, "Empty mint batch")
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, req := range reqs {
			if err := s.MintTx(tx, req); err != nil {
				return err
			}
		}
		return nil
	})
}

// BatchBurn burns every request or none.
func (s *Service) BatchBurn(ctx context.Context, callerID uuid.UUID, callerRole string, reqs []BurnRequest) error {
	if len(reqs) == 0 {
		return apperr.New(apperr.Validation, "Empty burn batch")
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, req := range reqs {
			if err := s.BurnTx(tx, callerID, callerRole, req); err != nil {
				return err
			}
		}
		return nil
	})
}

func creditBalance(tx *gorm.DB, unitID, holderID uuid.UUID, amount *big.Int) error {
	var bal domain.TokenBalance
	err := tx.Where("unit_id = ? AND holder_id = ?", unitID, holderID).First(&bal).Error
	if err == gorm.ErrRecordNotFound {
		bal = domain.TokenBalance{
			UnitID:   unitID,
			HolderID: holderID,
			Balance:  domain.AmountFromBig(amount),
		}
		return tx.Create(&bal).Error
	}
	if err != nil {
		return err
	}
	bal.Balance = domain.AmountFromBig(new(big.Int).Add(bal.Balance.Big(), amount))
	return tx.Save(&bal).Error
}

func debitBalance(tx *gorm.DB, unitID, holderID uuid.UUID, amount *big.Int) error {
	var bal domain.TokenBalance
	err := tx.Where("unit_id = ? AND holder_id = ?", unitID, holderID).First(&bal).Error
	if err == gorm.ErrRecordNotFound {
		return apperr.New(apperr.ResourceExhausted, "Insufficient token balance").
			With("requested", amount.String()).
			With("available", "0")
	}
	if err != nil {
		return err
	}
	cur := bal.Balance.Big()
	if cur.Cmp(amount) < 0 {
		return apperr.New(apperr.ResourceExhausted, "Insufficient token balance").
			With("requested", amount.String()).
			With("available", cur.String())
	}
	bal.Balance = domain.AmountFromBig(cur.Sub(cur, amount))
	return tx.Save(&bal).Error
}

// UnitByProject returns the token unit for a project.
func (s *Service) UnitByProject(ctx context.Context, projectID uuid.UUID) (*domain.TokenUnit, error) {
	var unit domain.TokenUnit
	err := s.DB.WithContext(ctx).Where("project_id = ?", projectID).First(&unit).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.New(apperr.NotFound, "Token unit not found").With("project_id", projectID.String())
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// Balance returns holder's balance for one unit (zero when no row exists).
func (s *Service) Balance(ctx context.Context, unitID, holderID uuid.UUID) (*big.Int, error) {
	return balanceTx(s.DB.WithContext(ctx), unitID, holderID)
}

// BalanceTx is the transaction-scoped variant used by snapshotting.
func BalanceTx(tx *gorm.DB, unitID, holderID uuid.UUID) (*big.Int, error) {
	return balanceTx(tx, unitID, holderID)
}

func balanceTx(tx *gorm.DB, unitID, holderID uuid.UUID) (*big.Int, error) {
	var bal domain.TokenBalance
	err := tx.Where("unit_id = ? AND holder_id = ?", unitID, holderID).First(&bal).Error
	if err == gorm.ErrRecordNotFound {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return bal.Balance.Big(), nil
}

// HoldersTx lists every nonzero balance row for one unit.
func HoldersTx(tx *gorm.DB, unitID uuid.UUID) ([]domain.TokenBalance, error) {
	var rows []domain.TokenBalance
	err := tx.Where("unit_id = ?", unitID).Find(&rows).Error
	return rows, err
}

// LogSupply emits a structured supply snapshot, used by operational tooling.
func (s *Service) LogSupply(ctx context.Context, unitID uuid.UUID) {
	unit, err := loadUnit(s.DB.WithContext(ctx), unitID)
	if err != nil {
		return
	}
	log.Info().
		Str("unit_id", unitID.String()).
		Str("supply", unit.TotalSupply.String()).
		Str("minted", unit.TotalMinted.String()).
		Msg("Token supply")
}
