package project

import (
	"context"
	"math/big"
	"time"

	"terrafund-backend/internal/audit"
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

// Service orchestrates the project lifecycle: phase transitions, milestone
// verification, investment intake and refunds. It drives the escrow ledger and
// the token registry inside a single transaction per operation, so a caller
// observes either the complete effect of an operation or none of it.
type Service struct {
	DB     *gorm.DB
	Escrow *escrow.Service
	Tokens *token.Service
}

// CreateParams carries the validated inputs of CreateProject.
type CreateParams struct {
	Name            string
	ContractorID    uuid.UUID
	HardCap         *big.Int
	SoftCap         *big.Int
	TokenPrice      *big.Int
	MintingDeadline time.Time
	ProjectDeadline time.Time
	ContingencyBps  int64
	PlatformFeeBps  int64
	MetadataRef     string
}

func loadProject(tx *gorm.DB, projectID uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	err := tx.Where("project_id = ?", projectID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func loadMilestone(tx *gorm.DB, projectID uuid.UUID, index int) (*domain.Milestone, error) {
	var m domain.Milestone
	err := tx.Where("project_id = ? AND idx = ?", projectID, index).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.New(apperr.NotFound, "Milestone not found").With("milestone", index)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func isAssignedVerifier(tx *gorm.DB, projectID, verifierID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&domain.ProjectVerifier{}).
		Where("project_id = ? AND verifier_id = ?", projectID, verifierID).
		Count(&count).Error
	return count > 0, err
}

// CreateProject validates caps, price and deadlines, creates the token unit
// and the escrow account, and stores the project in MINTING status.
func (s *Service) CreateProject(ctx context.Context, actorID uuid.UUID, params CreateParams) (*domain.Project, error) {
	if params.Name == "" {
		return nil, apperr.New(apperr.Validation, "Project name required")
	}
	if params.ContractorID == uuid.Nil {
		return nil, apperr.New(apperr.Validation, "Contractor identity required")
	}
	if !numeric.IsPositive(params.HardCap) {
		return nil, apperr.New(apperr.Validation, "Hard cap must be positive")
	}
	if !numeric.IsPositive(params.TokenPrice) {
		return nil, apperr.New(apperr.Validation, "Token price must be positive")
	}
	if !numeric.IsPositive(params.SoftCap) || params.SoftCap.Cmp(params.HardCap) > 0 {
		return nil, apperr.New(apperr.Validation, "Soft cap must be positive and not exceed the hard cap")
	}
	// soft cap must be at least half the hard cap
	doubled := new(big.Int).Lsh(params.SoftCap, 1)
	if doubled.Cmp(params.HardCap) < 0 {
		return nil, apperr.New(apperr.Validation, "Soft cap must be at least 50% of the hard cap").
			With("soft_cap", params.SoftCap.String()).
			With("hard_cap", params.HardCap.String())
	}
	now := time.Now()
	if !params.MintingDeadline.After(now) {
		return nil, apperr.New(apperr.Validation, "Minting deadline must be in the future")
	}
	if !params.ProjectDeadline.After(params.MintingDeadline) {
		return nil, apperr.New(apperr.Validation, "Project deadline must be after the minting deadline")
	}
	if params.ContingencyBps < 0 || params.ContingencyBps > constants.MaxContingencyBps {
		return nil, apperr.New(apperr.Validation, "Contingency percent out of bounds").
			With("contingency_bps", params.ContingencyBps).
			With("max_bps", constants.MaxContingencyBps)
	}
	if params.PlatformFeeBps < 0 || params.PlatformFeeBps > constants.MaxPlatformFeeBps {
		return nil, apperr.New(apperr.Validation, "Platform fee percent out of bounds").
			With("platform_fee_bps", params.PlatformFeeBps).
			With("max_bps", constants.MaxPlatformFeeBps)
	}

	var created domain.Project
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created = domain.Project{
			Name:            params.Name,
			ContractorID:    params.ContractorID,
			HardCap:         domain.AmountFromBig(params.HardCap),
			SoftCap:         domain.AmountFromBig(params.SoftCap),
			TokenPrice:      domain.AmountFromBig(params.TokenPrice),
			MintingDeadline: params.MintingDeadline,
			ProjectDeadline: params.ProjectDeadline,
			Status:          domain.ProjectStatusMinting,
			ContingencyBps:  params.ContingencyBps,
			PlatformFeeBps:  params.PlatformFeeBps,
		}
		created.ProjectID = uuid.New()
		unit, err := s.Tokens.CreateUnitTx(tx, created.ProjectID, params.MetadataRef)
		if err != nil {
			return err
		}
		created.TokenUnitID = unit.UnitID
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		if err := s.Escrow.InitializeProjectTx(tx, escrow.RoleLifecycle, created.ProjectID, params.ContingencyBps); err != nil {
			return err
		}
		return audit.Record(tx, audit.KindProjectCreated, created.ProjectID, &actorID, map[string]interface{}{
			"name":     params.Name,
			"hard_cap": params.HardCap.String(),
			"soft_cap": params.SoftCap.String(),
			"status":   created.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("project_id", created.ProjectID.String()).
		Str("name", created.Name).
		Msg("Project created")
	return &created, nil
}

// AddMilestone appends a milestone while MINTING, enforcing the maximum count
// and the budget-sum invariant: all milestone budgets plus contingency plus
// platform fee must fit inside 10000 basis points.
func (s *Service) AddMilestone(ctx context.Context, actorID, projectID uuid.UUID, description string, budgetBps int64, requiredApprovals int) (*domain.Milestone, error) {
	if description == "" {
		return nil, apperr.New(apperr.Validation, "Milestone description required")
	}
	if budgetBps <= 0 {
		return nil, apperr.New(apperr.Validation, "Milestone budget must be positive")
	}
	if requiredApprovals < 1 {
		return nil, apperr.New(apperr.Validation, "At least one verifier approval required")
	}

	var created domain.Milestone
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		if p.Status != domain.ProjectStatusMinting {
			return errWrongPhase(p.Status, domain.ProjectStatusMinting)
		}
		if p.MilestoneCount >= constants.MaxMilestones {
			return apperr.New(apperr.ResourceExhausted, "Maximum milestone count reached").
				With("max", constants.MaxMilestones)
		}
		var budgetSum int64
		row := tx.Model(&domain.Milestone{}).
			Where("project_id = ?", projectID).
			Select("COALESCE(SUM(budget_bps), 0)").
			Row()
		if err := row.Scan(&budgetSum); err != nil {
			return err
		}
		if budgetSum+budgetBps+p.ContingencyBps+p.PlatformFeeBps > numeric.BasisPoints {
			return apperr.New(apperr.Validation, "Milestone budgets exceed 100% with contingency and fee").
				With("budget_sum_bps", budgetSum+budgetBps).
				With("contingency_bps", p.ContingencyBps).
				With("platform_fee_bps", p.PlatformFeeBps)
		}

		created = domain.Milestone{
			ProjectID:         projectID,
			Index:             p.MilestoneCount,
			Description:       description,
			BudgetBps:         budgetBps,
			RequiredApprovals: requiredApprovals,
			Status:            domain.MilestoneStatusPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		p.MilestoneCount++
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindMilestoneAdded, projectID, &actorID, map[string]interface{}{
			"milestone":  created.Index,
			"budget_bps": budgetBps,
		})
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// AddVerifier assigns a verifier identity to the project.
func (s *Service) AddVerifier(ctx context.Context, actorID, projectID, verifierID uuid.UUID) error {
	if verifierID == uuid.Nil {
		return apperr.New(apperr.Validation, "Verifier identity required")
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		if p.Terminal() {
			return errWrongPhase(p.Status, "non-terminal")
		}
		assigned, err := isAssignedVerifier(tx, projectID, verifierID)
		if err != nil {
			return err
		}
		if assigned {
			return apperr.New(apperr.StateConflict, "Verifier already assigned to project")
		}
		if err := tx.Create(&domain.ProjectVerifier{ProjectID: projectID, VerifierID: verifierID}).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindVerifierAdded, projectID, &actorID, map[string]interface{}{
			"verifier_id": verifierID.String(),
		})
	})
}

// Invest moves stable funds from the investor's wallet into escrow custody and
// mints project tokens at the fixed token price. Only while MINTING and before
// the minting deadline; the hard cap is a strict ceiling.
func (s *Service) Invest(ctx context.Context, investorID, projectID uuid.UUID, amount *big.Int) (*domain.InvestorPosition, error) {
	if !numeric.IsPositive(amount) {
		return nil, apperr.New(apperr.Validation, "Investment amount must be positive")
	}

	var position domain.InvestorPosition
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		if p.Status != domain.ProjectStatusMinting {
			return errWrongPhase(p.Status, domain.ProjectStatusMinting)
		}
		if time.Now().After(p.MintingDeadline) {
			return apperr.New(apperr.StateConflict, "Minting deadline has passed").
				With("deadline", p.MintingDeadline)
		}
		newTotal := new(big.Int).Add(p.TotalRaised.Big(), amount)
		if newTotal.Cmp(p.HardCap.Big()) > 0 {
			headroom := new(big.Int).Sub(p.HardCap.Big(), p.TotalRaised.Big())
			return apperr.New(apperr.ResourceExhausted, "Investment exceeds the hard cap").
				With("requested", amount.String()).
				With("available", headroom.String())
		}

		tokensToMint := numeric.MulDiv(amount, numeric.TokenScale, p.TokenPrice.Big())
		if tokensToMint.Sign() == 0 {
			return apperr.New(apperr.Validation, "Investment too small to mint any tokens").
				With("token_price", p.TokenPrice.String())
		}

		if err := wallets.DebitTx(tx, investorID, amount); err != nil {
			return err
		}
		if err := s.Escrow.DepositTx(tx, escrow.RoleLifecycle, projectID, investorID, amount, p.ContingencyBps); err != nil {
			return err
		}
		if err := s.Tokens.MintTx(tx, token.MintRequest{UnitID: p.TokenUnitID, To: investorID, Amount: tokensToMint}); err != nil {
			return err
		}

		err = tx.Where("project_id = ? AND investor_id = ?", projectID, investorID).First(&position).Error
		if err == gorm.ErrRecordNotFound {
			position = domain.InvestorPosition{ProjectID: projectID, InvestorID: investorID}
			err = nil
		}
		if err != nil {
			return err
		}
		position.TokenBalance = domain.AmountFromBig(new(big.Int).Add(position.TokenBalance.Big(), tokensToMint))
		position.Deposited = domain.AmountFromBig(new(big.Int).Add(position.Deposited.Big(), amount))
		if err := tx.Save(&position).Error; err != nil {
			return err
		}

		p.TotalRaised = domain.AmountFromBig(newTotal)
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindInvestment, projectID, &investorID, map[string]interface{}{
			"amount":       amount.String(),
			"tokens":       tokensToMint.String(),
			"total_raised": newTotal.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (s *Service) transition(ctx context.Context, actorID, projectID uuid.UUID, from, to string, guard func(tx *gorm.DB, p *domain.Project) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		if p.Status != from {
			return errWrongPhase(p.Status, from)
		}
		if guard != nil {
			if err := guard(tx, p); err != nil {
				return err
			}
		}
		p.Status = to
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		log.Info().
			Str("project_id", projectID.String()).
			Str("from", from).
			Str("to", to).
			Msg("Project phase transition")
		return audit.Record(tx, audit.KindPhaseTransition, projectID, &actorID, map[string]interface{}{
			"from": from,
			"to":   to,
		})
	})
}

// StartBuilding moves MINTING→BUILDING once the soft cap is met and at least
// one milestone is defined.
func (s *Service) StartBuilding(ctx context.Context, actorID, projectID uuid.UUID) error {
	return s.transition(ctx, actorID, projectID, domain.ProjectStatusMinting, domain.ProjectStatusBuilding,
		func(tx *gorm.DB, p *domain.Project) error {
			if p.TotalRaised.Big().Cmp(p.SoftCap.Big()) < 0 {
				return apperr.New(apperr.StateConflict, "Soft cap not reached").
					With("total_raised", p.TotalRaised.String()).
					With("soft_cap", p.SoftCap.String())
			}
			if p.MilestoneCount == 0 {
				return apperr.New(apperr.StateConflict, "Project has no milestones")
			}
			return nil
		})
}

// StartTrading moves BUILDING→TRADING once every milestone is paid.
func (s *Service) StartTrading(ctx context.Context, actorID, projectID uuid.UUID) error {
	return s.transition(ctx, actorID, projectID, domain.ProjectStatusBuilding, domain.ProjectStatusTrading,
		func(tx *gorm.DB, p *domain.Project) error {
			if p.CompletedMilestones != p.MilestoneCount {
				return apperr.New(apperr.StateConflict, "Not all milestones are paid").
					With("completed", p.CompletedMilestones).
					With("total", p.MilestoneCount)
			}
			return nil
		})
}

// StartFinalSale moves TRADING→FINAL_SALE.
func (s *Service) StartFinalSale(ctx context.Context, actorID, projectID uuid.UUID) error {
	return s.transition(ctx, actorID, projectID, domain.ProjectStatusTrading, domain.ProjectStatusFinalSale, nil)
}

// CompleteProject moves FINAL_SALE→COMPLETED and records the sale price.
func (s *Service) CompleteProject(ctx context.Context, actorID, projectID uuid.UUID, salePrice *big.Int) error {
	if !numeric.IsPositive(salePrice) {
		return apperr.New(apperr.Validation, "Sale price must be positive")
	}
	return s.transition(ctx, actorID, projectID, domain.ProjectStatusFinalSale, domain.ProjectStatusCompleted,
		func(tx *gorm.DB, p *domain.Project) error {
			now := time.Now()
			p.SalePrice = domain.AmountFromBig(salePrice)
			p.CompletedAt = &now
			return nil
		})
}

// CancelProject moves any non-terminal project to CANCELLED. The project row
// persists for refund bookkeeping.
func (s *Service) CancelProject(ctx context.Context, actorID, projectID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		if p.Terminal() {
			return errWrongPhase(p.Status, "non-terminal")
		}
		from := p.Status
		p.Status = domain.ProjectStatusCancelled
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		log.Warn().
			Str("project_id", projectID.String()).
			Str("from", from).
			Msg("Project cancelled")
		return audit.Record(tx, audit.KindPhaseTransition, projectID, &actorID, map[string]interface{}{
			"from": from,
			"to":   domain.ProjectStatusCancelled,
		})
	})
}

// SubmitMilestone transitions a pending milestone to Submitted. Contractor
// only, while BUILDING, and strictly sequential: the prior index must be paid.
func (s *Service) SubmitMilestone(ctx context.Context, callerID, projectID uuid.UUID, index int, docRef string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		if callerID != p.ContractorID {
			return errNotContractor()
		}
		if p.Status != domain.ProjectStatusBuilding {
			return errWrongPhase(p.Status, domain.ProjectStatusBuilding)
		}
		m, err := loadMilestone(tx, projectID, index)
		if err != nil {
			return err
		}
		if m.Status != domain.MilestoneStatusPending {
			return errMilestoneStatus(m.Status, domain.MilestoneStatusPending)
		}
		if index > 0 {
			prev, err := loadMilestone(tx, projectID, index-1)
			if err != nil {
				return err
			}
			if prev.Status != domain.MilestoneStatusPaid {
				return apperr.New(apperr.StateConflict, "Preceding milestone is not paid").
					With("milestone", index-1).
					With("current", prev.Status)
			}
		}
		now := time.Now()
		m.Status = domain.MilestoneStatusSubmitted
		m.DocRef = docRef
		m.SubmittedAt = &now
		if err := tx.Save(m).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindMilestoneSubmitted, projectID, &callerID, map[string]interface{}{
			"milestone": index,
			"doc_ref":   docRef,
		})
	})
}

// payMilestone performs the one-shot Verified→Paid release: computes the
// budget share of totalRaised, drives the escrow payout to the contractor and
// bumps the project's completed count.
func (s *Service) payMilestone(tx *gorm.DB, p *domain.Project, m *domain.Milestone) error {
	payment := numeric.Bps(p.TotalRaised.Big(), m.BudgetBps)
	if err := s.Escrow.ReleaseMilestonePaymentTx(tx, escrow.RoleLifecycle, p.ProjectID, m.Index, p.ContractorID, payment); err != nil {
		return err
	}
	now := time.Now()
	m.Status = domain.MilestoneStatusPaid
	m.PaymentAmount = domain.AmountFromBig(payment)
	m.CompletedAt = &now
	if err := tx.Save(m).Error; err != nil {
		return err
	}
	p.CompletedMilestones++
	if err := tx.Save(p).Error; err != nil {
		return err
	}
	return audit.Record(tx, audit.KindMilestonePaid, p.ProjectID, &p.ContractorID, map[string]interface{}{
		"milestone": m.Index,
		"amount":    payment.String(),
	})
}

// VerifyMilestone records one assigned verifier's approval. The approval that
// crosses the required threshold triggers the payment release in the same
// operation; later votes fail because the milestone is no longer Submitted.
func (s *Service) VerifyMilestone(ctx context.Context, verifierID, projectID uuid.UUID, index int) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		assigned, err := isAssignedVerifier(tx, projectID, verifierID)
		if err != nil {
			return err
		}
		if !assigned {
			return errNotVerifier()
		}
		m, err := loadMilestone(tx, projectID, index)
		if err != nil {
			return err
		}
		if m.Status != domain.MilestoneStatusSubmitted {
			return errMilestoneStatus(m.Status, domain.MilestoneStatusSubmitted)
		}
		var voted int64
		if err := tx.Model(&domain.MilestoneApproval{}).
			Where("project_id = ? AND idx = ? AND verifier_id = ?", projectID, index, verifierID).
			Count(&voted).Error; err != nil {
			return err
		}
		if voted > 0 {
			return errAlreadyVerified()
		}
		if err := tx.Create(&domain.MilestoneApproval{
			ProjectID:  projectID,
			Index:      index,
			VerifierID: verifierID,
		}).Error; err != nil {
			return err
		}
		m.ApprovalCount++
		if err := audit.Record(tx, audit.KindMilestoneApproved, projectID, &verifierID, map[string]interface{}{
			"milestone": index,
			"approvals": m.ApprovalCount,
			"required":  m.RequiredApprovals,
		}); err != nil {
			return err
		}
		if m.ApprovalCount < m.RequiredApprovals {
			return tx.Save(m).Error
		}
		m.Status = domain.MilestoneStatusVerified
		return s.payMilestone(tx, p, m)
	})
}

// DisputeMilestone flags a submitted milestone. Contractor or any assigned
// verifier may raise a dispute.
func (s *Service) DisputeMilestone(ctx context.Context, callerID, projectID uuid.UUID, index int, reason string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		if callerID != p.ContractorID {
			assigned, err := isAssignedVerifier(tx, projectID, callerID)
			if err != nil {
				return err
			}
			if !assigned {
				return apperr.New(apperr.Authorization, "Only the contractor or an assigned verifier may dispute")
			}
		}
		m, err := loadMilestone(tx, projectID, index)
		if err != nil {
			return err
		}
		if m.Status != domain.MilestoneStatusSubmitted {
			return errMilestoneStatus(m.Status, domain.MilestoneStatusSubmitted)
		}
		m.Status = domain.MilestoneStatusDisputed
		if err := tx.Save(m).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindMilestoneDisputed, projectID, &callerID, map[string]interface{}{
			"milestone": index,
			"reason":    reason,
		})
	})
}

// ResolveDispute settles a disputed milestone. Approval triggers the same
// payment release as a verification quorum; rejection resets the milestone to
// Pending and clears all recorded approvals so it can be resubmitted.
func (s *Service) ResolveDispute(ctx context.Context, adminID, projectID uuid.UUID, index int, approved bool) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		m, err := loadMilestone(tx, projectID, index)
		if err != nil {
			return err
		}
		if m.Status != domain.MilestoneStatusDisputed {
			return errMilestoneStatus(m.Status, domain.MilestoneStatusDisputed)
		}
		if err := audit.Record(tx, audit.KindDisputeResolved, projectID, &adminID, map[string]interface{}{
			"milestone": index,
			"approved":  approved,
		}); err != nil {
			return err
		}
		if approved {
			m.Status = domain.MilestoneStatusVerified
			return s.payMilestone(tx, p, m)
		}
		if err := tx.Where("project_id = ? AND idx = ?", projectID, index).
			Delete(&domain.MilestoneApproval{}).Error; err != nil {
			return err
		}
		m.Status = domain.MilestoneStatusPending
		m.ApprovalCount = 0
		m.SubmittedAt = nil
		m.DocRef = ""
		return tx.Save(m).Error
	})
}

// ClaimRefund pays an investor back out of escrow. Eligible when the project
// is CANCELLED, or still MINTING past its deadline without reaching the soft
// cap. Projects that never started building refund the full deposit minus the
// platform fee share; otherwise the refund is proportional to what remains in
// escrow. The investor's tokens are burned and the position zeroed.
func (s *Service) ClaimRefund(ctx context.Context, investorID, projectID uuid.UUID) (*big.Int, error) {
	var refund *big.Int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, projectID)
		if err != nil {
			return err
		}
		eligible := p.Status == domain.ProjectStatusCancelled ||
			(p.Status == domain.ProjectStatusMinting &&
				time.Now().After(p.MintingDeadline) &&
				p.TotalRaised.Big().Cmp(p.SoftCap.Big()) < 0)
		if !eligible {
			return apperr.New(apperr.StateConflict, "Project is not refund-eligible").
				With("current", p.Status)
		}

		var position domain.InvestorPosition
		err = tx.Where("project_id = ? AND investor_id = ?", projectID, investorID).First(&position).Error
		if err == gorm.ErrRecordNotFound || (err == nil && position.Deposited.Sign() == 0) {
			return apperr.New(apperr.StateConflict, "No refundable deposit for caller")
		}
		if err != nil {
			return err
		}

		deposit := position.Deposited.Big()
		if p.Status == domain.ProjectStatusMinting || p.CompletedMilestones == 0 {
			fee := numeric.Bps(deposit, p.PlatformFeeBps)
			refund = new(big.Int).Sub(deposit, fee)
		} else {
			remaining, err := escrow.AvailableTx(tx, projectID)
			if err != nil {
				return err
			}
			refund = numeric.MulDiv(deposit, remaining, p.TotalRaised.Big())
		}
		if refund.Sign() == 0 {
			return apperr.New(apperr.ResourceExhausted, "Nothing left to refund").
				With("deposited", deposit.String())
		}

		if balance := position.TokenBalance.Big(); balance.Sign() > 0 {
			if err := s.Tokens.BurnTx(tx, investorID, "", token.BurnRequest{
				UnitID: p.TokenUnitID,
				From:   investorID,
				Amount: balance,
			}); err != nil {
				return err
			}
		}
		position.TokenBalance = domain.AmountFromBig(new(big.Int))
		position.Deposited = domain.AmountFromBig(new(big.Int))
		if err := tx.Save(&position).Error; err != nil {
			return err
		}
		if err := s.Escrow.ProcessRefundTx(tx, escrow.RoleLifecycle, projectID, investorID, refund); err != nil {
			return err
		}
		return audit.Record(tx, audit.KindRefundClaimed, projectID, &investorID, map[string]interface{}{
			"deposited": deposit.String(),
			"refund":    refund.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	return loadProject(s.DB.WithContext(ctx), projectID)
}

// Milestones lists a project's milestones in index order.
func (s *Service) Milestones(ctx context.Context, projectID uuid.UUID) ([]domain.Milestone, error) {
	var out []domain.Milestone
	err := s.DB.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("idx asc").
		Find(&out).Error
	return out, err
}

// Position returns one investor's stake in a project.
func (s *Service) Position(ctx context.Context, projectID, investorID uuid.UUID) (*domain.InvestorPosition, error) {
	var position domain.InvestorPosition
	err := s.DB.WithContext(ctx).
		Where("project_id = ? AND investor_id = ?", projectID, investorID).
		First(&position).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.New(apperr.NotFound, "No position for investor").
			With("project_id", projectID.String())
	}
	if err != nil {
		return nil, err
	}
	return &position, nil
}
