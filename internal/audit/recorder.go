// Package audit writes the structured event records required of every
// state-changing operation. Events are written inside the caller's database
// transaction so the audit trail commits or rolls back with the mutation it
// describes.
package audit

import (
	"encoding/json"

	"terrafund-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event kinds emitted by the core.
const (
	KindProjectCreated     = "project.created"
	KindMilestoneAdded     = "milestone.added"
	KindVerifierAdded      = "verifier.added"
	KindInvestment         = "project.invested"
	KindPhaseTransition    = "project.phase_transition"
	KindMilestoneSubmitted = "milestone.submitted"
	KindMilestoneApproved  = "milestone.approved"
	KindMilestonePaid      = "milestone.paid"
	KindMilestoneDisputed  = "milestone.disputed"
	KindDisputeResolved    = "milestone.dispute_resolved"
	KindRefundClaimed      = "project.refund_claimed"
	KindEscrowDeposit      = "escrow.deposit"
	KindEscrowRelease      = "escrow.release"
	KindContingencyUsed    = "escrow.contingency_used"
	KindRefundProcessed    = "escrow.refund"
	KindFeeCollected       = "escrow.fee_collected"
	KindEmergencyWithdraw  = "escrow.emergency_withdraw"
	KindUnitCreated        = "token.unit_created"
	KindMinted             = "token.minted"
	KindBurned             = "token.burned"
	KindTransferred        = "token.transferred"
	KindPoolCreated        = "amm.pool_created"
	KindLiquidityAdded     = "amm.liquidity_added"
	KindLiquidityRemoved   = "amm.liquidity_removed"
	KindSwap               = "amm.swap"
	KindBreakerTripped     = "amm.breaker_tripped"
	KindTradingPaused      = "amm.trading_paused"
	KindTradingResumed     = "amm.trading_resumed"
	KindFeesCollected      = "amm.fees_collected"
	KindPoolDrained        = "amm.emergency_withdraw"
	KindPoolConfigUpdated  = "amm.config_updated"
	KindDistributionOpened = "distribution.initiated"
	KindProfitClaimed      = "distribution.claimed"
	KindDistributionClosed = "distribution.completed"
	KindFundsRecovered     = "distribution.recovered"
	KindWalletCredited     = "wallet.credited"
)

// Record writes one audit event using tx. Payload values should be strings or
// numbers; BigAmount values marshal to decimal strings.
func Record(tx *gorm.DB, kind string, projectID uuid.UUID, actorID *uuid.UUID, payload map[string]interface{}) error {
	var raw datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = datatypes.JSON(b)
	}
	return tx.Create(&domain.AuditEvent{
		Kind:      kind,
		ProjectID: projectID,
		ActorID:   actorID,
		Payload:   raw,
	}).Error
}

// ListByProject returns the audit trail for one project, newest first.
func ListByProject(db *gorm.DB, projectID uuid.UUID, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var events []domain.AuditEvent
	err := db.Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
