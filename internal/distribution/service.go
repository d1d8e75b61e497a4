package distribution

import (
	"context"
	"math/big"
	"time"

	"terrafund-backend/internal/audit"
	"terrafund-backend/internal/chain"
	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/escrow"
	"terrafund-backend/internal/pkg/apperr"
	"terrafund-backend/internal/pkg/numeric"
	"terrafund-backend/internal/token"
	"terrafund-backend/internal/wallets"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the snapshot-based profit distribution engine. Entitlement is
// frozen at initiation by copying every registered investor's token balance,
// so position changes after the snapshot cannot shift shares. The profit pool
// is funded from the treasury wallet into escrow custody and paid out through
// the ledger.
type Service struct {
	DB         *gorm.DB
	Tokens     *token.Service
	Escrow     *escrow.Service
	Heights    chain.Source
	TreasuryID uuid.UUID
}

func loadDistribution(tx *gorm.DB, projectID uuid.UUID) (*domain.Distribution, error) {
	var d domain.Distribution
	err := tx.Where("project_id = ?", projectID).First(&d).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.New(apperr.NotFound, "No distribution for project")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Initiate opens profit distribution for a COMPLETED project. Admin only,
// once per project. Snapshots every registered investor's current token
// balance and the total supply, and moves the profit pool from the treasury
// wallet into escrow custody.
func (s *Service) Initiate(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID, salePrice, totalCosts *big.Int, claimPeriodDays int) (*domain.Distribution, error) {
	if role != constants.Admin {
		return nil, apperr.New(apperr.Authorization, "Only admin may initiate a distribution").
			With("role", role)
	}
	if !numeric.IsPositive(salePrice) {
		return nil, apperr.New(apperr.Validation, "Sale price must be positive")
	}
	if totalCosts == nil || totalCosts.Sign() < 0 {
		return nil, apperr.New(apperr.Validation, "Total costs must not be negative")
	}
	if claimPeriodDays < constants.MinClaimPeriodDays || claimPeriodDays > constants.MaxClaimPeriodDays {
		return nil, apperr.New(apperr.Validation, "Claim period out of bounds").
			With("claim_period_days", claimPeriodDays).
			With("min_days", constants.MinClaimPeriodDays).
			With("max_days", constants.MaxClaimPeriodDays)
	}

	var created domain.Distribution
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Project
		err := tx.Where("project_id = ?", projectID).First(&p).Error
		if err == gorm.ErrRecordNotFound {
			return apperr.New(apperr.NotFound, "Project not found")
		}
		if err != nil {
			return err
		}
		if p.Status != domain.ProjectStatusCompleted {
			return apperr.New(apperr.StateConflict, "Project is not completed").
				With("current", p.Status).
				With("required", domain.ProjectStatusCompleted)
		}
		var count int64
		if err := tx.Model(&domain.Distribution{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.New(apperr.StateConflict, "Distribution already exists for project")
		}

		var unit domain.TokenUnit
		if err := tx.Where("unit_id = ?", p.TokenUnitID).First(&unit).Error; err != nil {
			return err
		}
		if unit.TotalSupply.Sign() == 0 {
			return apperr.New(apperr.StateConflict, "Token supply is zero at snapshot")
		}

		profit := new(big.Int).Sub(salePrice, totalCosts)
		if profit.Sign() < 0 {
			profit = new(big.Int)
		}

		created = domain.Distribution{
			ProjectID:      projectID,
			SalePrice:      domain.AmountFromBig(salePrice),
			TotalCosts:     domain.AmountFromBig(totalCosts),
			TotalProfit:    domain.AmountFromBig(profit),
			SnapshotBlock:  s.Heights.Height(),
			SnapshotSupply: domain.AmountFromBig(unit.TotalSupply.Big()),
			ClaimDeadline:  time.Now().AddDate(0, 0, claimPeriodDays),
			Active:         true,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		var positions []domain.InvestorPosition
		if err := tx.Where("project_id = ?", projectID).Find(&positions).Error; err != nil {
			return err
		}
		for _, pos := range positions {
			balance, err := token.BalanceTx(tx, p.TokenUnitID, pos.InvestorID)
			if err != nil {
				return err
			}
			if balance.Sign() == 0 {
				continue
			}
			entry := domain.DistributionEntry{
				ProjectID:       projectID,
				InvestorID:      pos.InvestorID,
				SnapshotBalance: domain.AmountFromBig(balance),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		if profit.Sign() > 0 {
			if err := wallets.DebitTx(tx, s.TreasuryID, profit); err != nil {
				return err
			}
			if err := s.Escrow.DepositTx(tx, escrow.RoleLifecycle, projectID, s.TreasuryID, profit, p.ContingencyBps); err != nil {
				return err
			}
		}
		return audit.Record(tx, audit.KindDistributionOpened, projectID, &actorID, map[string]interface{}{
			"profit":          profit.String(),
			"snapshot_supply": unit.TotalSupply.String(),
			"claim_deadline":  created.ClaimDeadline,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("project_id", projectID.String()).
		Str("profit", created.TotalProfit.String()).
		Msg("Distribution initiated")
	return &created, nil
}

// claimTx pays out one investor's share inside the caller's transaction.
// callerRole authorizes burning the investor's tokens when the caller is not
// the investor themselves (the admin batch sweep).
func (s *Service) claimTx(tx *gorm.DB, callerID uuid.UUID, callerRole string, projectID, investorID uuid.UUID) (*big.Int, error) {
	d, err := loadDistribution(tx, projectID)
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, apperr.New(apperr.StateConflict, "Distribution is not active")
	}
	if time.Now().After(d.ClaimDeadline) {
		return nil, apperr.New(apperr.StateConflict, "Claim deadline has passed").
			With("deadline", d.ClaimDeadline)
	}

	var entry domain.DistributionEntry
	err = tx.Where("project_id = ? AND investor_id = ?", projectID, investorID).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.New(apperr.NotFound, "No distribution entry for investor")
	}
	if err != nil {
		return nil, err
	}
	if entry.Claimed {
		return nil, apperr.New(apperr.StateConflict, "Profit already claimed")
	}

	amount := numeric.MulDiv(d.TotalProfit.Big(), entry.SnapshotBalance.Big(), d.SnapshotSupply.Big())
	if entry.SnapshotBalance.Sign() == 0 || amount.Sign() == 0 {
		return nil, apperr.New(apperr.ResourceExhausted, "Nothing to claim").
			With("snapshot_balance", entry.SnapshotBalance.String())
	}

	var p domain.Project
	if err := tx.Where("project_id = ?", projectID).First(&p).Error; err != nil {
		return nil, err
	}
	if err := s.Tokens.BurnTx(tx, callerID, callerRole, token.BurnRequest{
		UnitID: p.TokenUnitID,
		From:   investorID,
		Amount: entry.SnapshotBalance.Big(),
	}); err != nil {
		return nil, err
	}

	var position domain.InvestorPosition
	err = tx.Where("project_id = ? AND investor_id = ?", projectID, investorID).First(&position).Error
	if err == nil {
		position.TokenBalance = domain.AmountFromBig(new(big.Int))
		if err := tx.Save(&position).Error; err != nil {
			return nil, err
		}
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err := s.Escrow.ProcessRefundTx(tx, escrow.RoleLifecycle, projectID, investorID, amount); err != nil {
		return nil, err
	}

	entry.Claimed = true
	entry.ClaimedAmount = domain.AmountFromBig(amount)
	if err := tx.Save(&entry).Error; err != nil {
		return nil, err
	}
	d.DistributedAmount = domain.AmountFromBig(new(big.Int).Add(d.DistributedAmount.Big(), amount))
	if err := tx.Save(d).Error; err != nil {
		return nil, err
	}
	if err := audit.Record(tx, audit.KindProfitClaimed, projectID, &investorID, map[string]interface{}{
		"amount":      amount.String(),
		"distributed": d.DistributedAmount.String(),
	}); err != nil {
		return nil, err
	}
	return amount, nil
}

// Claim pays out the calling investor's profit share once.
func (s *Service) Claim(ctx context.Context, investorID, projectID uuid.UUID) (*big.Int, error) {
	var amount *big.Int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		amount, err = s.claimTx(tx, investorID, "", projectID, investorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// BatchClaim sweeps claims for many investors at once. Admin only; investors
// that already claimed or have nothing to claim are skipped rather than
// failing the batch.
func (s *Service) BatchClaim(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID, investorIDs []uuid.UUID) (int, error) {
	if role != constants.Admin {
		return 0, apperr.New(apperr.Authorization, "Only admin may batch-claim").With("role", role)
	}
	if len(investorIDs) == 0 {
		return 0, apperr.New(apperr.Validation, "Empty investor list")
	}
	paid := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, investorID := range investorIDs {
			_, err := s.claimTx(tx, actorID, role, projectID, investorID)
			if err != nil {
				if kind := apperr.KindOf(err); kind == apperr.StateConflict || kind == apperr.ResourceExhausted || kind == apperr.NotFound {
					continue
				}
				return err
			}
			paid++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return paid, nil
}

// Complete marks the distribution finished. Admin only, only after the claim
// deadline.
func (s *Service) Complete(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID) error {
	if role != constants.Admin {
		return apperr.New(apperr.Authorization, "Only admin may complete a distribution").With("role", role)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := loadDistribution(tx, projectID)
		if err != nil {
			return err
		}
		if !time.Now().After(d.ClaimDeadline) {
			return apperr.New(apperr.StateConflict, "Claim deadline has not passed").
				With("deadline", d.ClaimDeadline)
		}
		if d.Completed {
			return apperr.New(apperr.StateConflict, "Distribution already completed")
		}
		d.Active = false
		d.Completed = true
		if err := tx.Save(d).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindDistributionClosed, projectID, &actorID, map[string]interface{}{
			"distributed": d.DistributedAmount.String(),
		})
	})
}

// Recover sweeps unclaimed profit back to the treasury after completion. The
// recovered flag prevents repeated sweeps.
func (s *Service) Recover(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID) (*big.Int, error) {
	if role != constants.Admin {
		return nil, apperr.New(apperr.Authorization, "Only admin may recover funds").With("role", role)
	}
	var swept *big.Int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := loadDistribution(tx, projectID)
		if err != nil {
			return err
		}
		if !d.Completed {
			return apperr.New(apperr.StateConflict, "Distribution is not completed")
		}
		if d.Recovered {
			return apperr.New(apperr.StateConflict, "Uncollected funds already recovered")
		}
		swept = new(big.Int).Sub(d.TotalProfit.Big(), d.DistributedAmount.Big())
		if swept.Sign() > 0 {
			if err := s.Escrow.ProcessRefundTx(tx, escrow.RoleLifecycle, projectID, s.TreasuryID, swept); err != nil {
				return err
			}
		}
		d.DistributedAmount = domain.AmountFromBig(d.TotalProfit.Big())
		d.Recovered = true
		if err := tx.Save(d).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindFundsRecovered, projectID, &actorID, map[string]interface{}{
			"amount": swept.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}

// Get returns the distribution record for a project.
func (s *Service) Get(ctx context.Context, projectID uuid.UUID) (*domain.Distribution, error) {
	return loadDistribution(s.DB.WithContext(ctx), projectID)
}

// Claimable returns the investor's unclaimed entitlement, zero once claimed.
func (s *Service) Claimable(ctx context.Context, projectID, investorID uuid.UUID) (*big.Int, bool, error) {
	db := s.DB.WithContext(ctx)
	d, err := loadDistribution(db, projectID)
	if err != nil {
		return nil, false, err
	}
	var entry domain.DistributionEntry
	err = db.Where("project_id = ? AND investor_id = ?", projectID, investorID).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return new(big.Int), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Claimed {
		return new(big.Int), true, nil
	}
	amount := numeric.MulDiv(d.TotalProfit.Big(), entry.SnapshotBalance.Big(), d.SnapshotSupply.Big())
	return amount, false, nil
}
