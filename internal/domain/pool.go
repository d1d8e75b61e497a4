package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LiquidityPool is the per-project constant-product pool. Reserves and shares
// are integers; LastPrice is the stable value of one whole token (18-decimal
// scaled quotient) recorded after each swap for the circuit breaker.
type LiquidityPool struct {
	PoolID        uuid.UUID `gorm:"column:pool_id;type:uuid;primaryKey" json:"pool_id"`
	ProjectID     uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex" json:"project_id"`
	TokenReserve  BigAmount `gorm:"column:token_reserve;type:numeric(78,0);not null;default:0" json:"token_reserve"`
	StableReserve BigAmount `gorm:"column:stable_reserve;type:numeric(78,0);not null;default:0" json:"stable_reserve"`
	TotalShares   BigAmount `gorm:"column:total_shares;type:numeric(78,0);not null;default:0" json:"total_shares"`
	AccruedFees   BigAmount `gorm:"column:accrued_fees;type:numeric(78,0);not null;default:0" json:"accrued_fees"`
	LastPrice     BigAmount `gorm:"column:last_price;type:numeric(78,0);not null;default:0" json:"last_price"`
	TradingActive bool      `gorm:"column:trading_active;not null;default:true" json:"trading_active"`

	SwapFeeBps          int64  `gorm:"column:swap_fee_bps;not null" json:"swap_fee_bps"`
	LPFeeShareBps       int64  `gorm:"column:lp_fee_share_bps;not null" json:"lp_fee_share_bps"`
	MaxSlippageBps      int64  `gorm:"column:max_slippage_bps;not null" json:"max_slippage_bps"`
	MaxTransactionBps   int64  `gorm:"column:max_transaction_bps;not null" json:"max_transaction_bps"`
	BreakerThresholdBps int64  `gorm:"column:breaker_threshold_bps;not null" json:"breaker_threshold_bps"`
	BreakerCooldown     uint64 `gorm:"column:breaker_cooldown;not null" json:"breaker_cooldown"`
	BreakerTrippedAt    uint64 `gorm:"column:breaker_tripped_at;not null;default:0" json:"breaker_tripped_at"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (LiquidityPool) TableName() string {
	return "LiquidityPools"
}

func (p *LiquidityPool) BeforeCreate(tx *gorm.DB) error {
	if p.PoolID == uuid.Nil {
		p.PoolID = uuid.New()
	}
	return nil
}

// LiquidityPosition is one provider's share balance of one pool.
type LiquidityPosition struct {
	PositionID uuid.UUID `gorm:"column:position_id;type:uuid;primaryKey" json:"position_id"`
	ProjectID  uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_lp_position,priority:1" json:"project_id"`
	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;not null;uniqueIndex:idx_lp_position,priority:2" json:"provider_id"`
	Shares     BigAmount `gorm:"column:shares;type:numeric(78,0);not null;default:0" json:"shares"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (LiquidityPosition) TableName() string {
	return "LiquidityPositions"
}

func (p *LiquidityPosition) BeforeCreate(tx *gorm.DB) error {
	if p.PositionID == uuid.Nil {
		p.PositionID = uuid.New()
	}
	return nil
}
