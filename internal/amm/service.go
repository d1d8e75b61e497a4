package amm

import (
	"context"
	"math/big"

	"terrafund-backend/internal/audit"
	"terrafund-backend/internal/chain"
	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/pkg/apperr"
	"terrafund-backend/internal/pkg/numeric"
	"terrafund-backend/internal/token"
	"terrafund-backend/internal/wallets"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the per-project constant-product market maker. The pool itself
// is a custody identity: its PoolID holds the token reserve in the registry
// and the stable reserve in a wallet, so every reserve figure is backed by a
// real balance.
type Service struct {
	DB         *gorm.DB
	Tokens     *token.Service
	Heights    chain.Source
	TreasuryID uuid.UUID
}

// SwapResult reports the executed amounts of one swap.
type SwapResult struct {
	AmountIn       *big.Int `json:"amount_in"`
	AmountOut      *big.Int `json:"amount_out"`
	NewPrice       *big.Int `json:"new_price"`
	BreakerTripped bool     `json:"breaker_tripped"`
}

func loadPool(tx *gorm.DB, projectID uuid.UUID) (*domain.LiquidityPool, error) {
	var pool domain.LiquidityPool
	err := tx.Where("project_id = ?", projectID).First(&pool).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errPoolNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

func tokenUnitFor(tx *gorm.DB, projectID uuid.UUID) (uuid.UUID, error) {
	var p domain.Project
	err := tx.Where("project_id = ?", projectID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return uuid.Nil, apperr.New(apperr.NotFound, "Project not found")
	}
	if err != nil {
		return uuid.Nil, err
	}
	return p.TokenUnitID, nil
}

// spotPrice is the stable value of one whole token at the current reserves.
func spotPrice(tokenReserve, stableReserve *big.Int) *big.Int {
	return numeric.MulDiv(stableReserve, numeric.TokenScale, tokenReserve)
}

// CreatePool seeds a new pool with initial reserves. MINIMUM_LIQUIDITY shares
// stay permanently unassigned so the pool can never be drained into a
// degenerate divide-by-zero state.
func (s *Service) CreatePool(ctx context.Context, providerID, projectID uuid.UUID, initialTokens, initialStable *big.Int) (*domain.LiquidityPool, error) {
	if !numeric.IsPositive(initialTokens) || !numeric.IsPositive(initialStable) {
		return nil, apperr.New(apperr.Validation, "Initial reserves must both be positive")
	}

	var created domain.LiquidityPool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.LiquidityPool{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.New(apperr.StateConflict, "Pool already exists for project")
		}
		unitID, err := tokenUnitFor(tx, projectID)
		if err != nil {
			return err
		}

		product := new(big.Int).Mul(initialTokens, initialStable)
		shares := numeric.Sqrt(product)
		shares.Sub(shares, big.NewInt(constants.MinimumLiquidity))
		if shares.Sign() <= 0 {
			return apperr.New(apperr.EconomicGuard, "Initial liquidity below the minimum").
				With("minimum_shares", constants.MinimumLiquidity)
		}

		created = domain.LiquidityPool{
			ProjectID:           projectID,
			TokenReserve:        domain.AmountFromBig(initialTokens),
			StableReserve:       domain.AmountFromBig(initialStable),
			TotalShares:         domain.AmountFromBig(new(big.Int).Add(shares, big.NewInt(constants.MinimumLiquidity))),
			LastPrice:           domain.AmountFromBig(spotPrice(initialTokens, initialStable)),
			TradingActive:       true,
			SwapFeeBps:          constants.DefaultSwapFeeBps,
			LPFeeShareBps:       constants.DefaultLPFeeShareBps,
			MaxSlippageBps:      constants.DefaultMaxSlippageBps,
			MaxTransactionBps:   constants.DefaultMaxTransactionBps,
			BreakerThresholdBps: constants.DefaultBreakerThresholdBps,
			BreakerCooldown:     constants.DefaultBreakerCooldown,
		}
		created.PoolID = uuid.New()
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		if err := s.Tokens.TransferTx(tx, unitID, providerID, created.PoolID, initialTokens); err != nil {
			return err
		}
		if err := wallets.DebitTx(tx, providerID, initialStable); err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, created.PoolID, initialStable); err != nil {
			return err
		}
		if err := tx.Create(&domain.LiquidityPosition{
			ProjectID:  projectID,
			ProviderID: providerID,
			Shares:     domain.AmountFromBig(shares),
		}).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindPoolCreated, projectID, &providerID, map[string]interface{}{
			"tokens": initialTokens.String(),
			"stable": initialStable.String(),
			"shares": shares.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("project_id", projectID.String()).
		Str("pool_id", created.PoolID.String()).
		Msg("Liquidity pool created")
	return &created, nil
}

// AddLiquidity deposits a reserve-ratio-preserving pair and mints shares. The
// smaller implied amount rule decides which offered amount is used in full.
func (s *Service) AddLiquidity(ctx context.Context, providerID, projectID uuid.UUID, tokenAmount, stableAmount *big.Int) (*big.Int, error) {
	if !numeric.IsPositive(tokenAmount) || !numeric.IsPositive(stableAmount) {
		return nil, apperr.New(apperr.Validation, "Both amounts must be positive")
	}

	var minted *big.Int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		unitID, err := tokenUnitFor(tx, projectID)
		if err != nil {
			return err
		}
		tokenReserve := pool.TokenReserve.Big()
		stableReserve := pool.StableReserve.Big()

		actualToken := new(big.Int).Set(tokenAmount)
		actualStable := numeric.MulDiv(tokenAmount, stableReserve, tokenReserve)
		if actualStable.Cmp(stableAmount) > 0 {
			actualStable = new(big.Int).Set(stableAmount)
			actualToken = numeric.MulDiv(stableAmount, tokenReserve, stableReserve)
		}
		if actualToken.Sign() == 0 || actualStable.Sign() == 0 {
			return errZeroOutput()
		}

		minted = numeric.MulDiv(actualToken, pool.TotalShares.Big(), tokenReserve)
		if minted.Sign() == 0 {
			return errZeroOutput()
		}

		if err := s.Tokens.TransferTx(tx, unitID, providerID, pool.PoolID, actualToken); err != nil {
			return err
		}
		if err := wallets.DebitTx(tx, providerID, actualStable); err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, pool.PoolID, actualStable); err != nil {
			return err
		}

		pool.TokenReserve = domain.AmountFromBig(tokenReserve.Add(tokenReserve, actualToken))
		pool.StableReserve = domain.AmountFromBig(stableReserve.Add(stableReserve, actualStable))
		pool.TotalShares = domain.AmountFromBig(new(big.Int).Add(pool.TotalShares.Big(), minted))
		if err := tx.Save(pool).Error; err != nil {
			return err
		}

		var position domain.LiquidityPosition
		err = tx.Where("project_id = ? AND provider_id = ?", projectID, providerID).First(&position).Error
		if err == gorm.ErrRecordNotFound {
			position = domain.LiquidityPosition{ProjectID: projectID, ProviderID: providerID}
			err = nil
		}
		if err != nil {
			return err
		}
		position.Shares = domain.AmountFromBig(new(big.Int).Add(position.Shares.Big(), minted))
		if err := tx.Save(&position).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindLiquidityAdded, projectID, &providerID, map[string]interface{}{
			"tokens": actualToken.String(),
			"stable": actualStable.String(),
			"shares": minted.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// RemoveLiquidity burns shares and returns the proportional reserves. Fails
// with a zero-output guard when rounding yields nothing of either asset.
func (s *Service) RemoveLiquidity(ctx context.Context, providerID, projectID uuid.UUID, shareAmount *big.Int) (tokensOut, stableOut *big.Int, err error) {
	if !numeric.IsPositive(shareAmount) {
		return nil, nil, apperr.New(apperr.Validation, "Share amount must be positive")
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		unitID, err := tokenUnitFor(tx, projectID)
		if err != nil {
			return err
		}
		var position domain.LiquidityPosition
		err = tx.Where("project_id = ? AND provider_id = ?", projectID, providerID).First(&position).Error
		if err == gorm.ErrRecordNotFound || (err == nil && position.Shares.Big().Cmp(shareAmount) < 0) {
			held := "0"
			if err == nil {
				held = position.Shares.String()
			}
			return apperr.New(apperr.ResourceExhausted, "Insufficient liquidity shares").
				With("requested", shareAmount.String()).
				With("available", held)
		}
		if err != nil {
			return err
		}

		totalShares := pool.TotalShares.Big()
		tokensOut = numeric.MulDiv(shareAmount, pool.TokenReserve.Big(), totalShares)
		stableOut = numeric.MulDiv(shareAmount, pool.StableReserve.Big(), totalShares)
		if tokensOut.Sign() == 0 || stableOut.Sign() == 0 {
			return errZeroOutput()
		}

		if err := s.Tokens.TransferTx(tx, unitID, pool.PoolID, providerID, tokensOut); err != nil {
			return err
		}
		if err := wallets.DebitTx(tx, pool.PoolID, stableOut); err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, providerID, stableOut); err != nil {
			return err
		}

		pool.TokenReserve = domain.AmountFromBig(new(big.Int).Sub(pool.TokenReserve.Big(), tokensOut))
		pool.StableReserve = domain.AmountFromBig(new(big.Int).Sub(pool.StableReserve.Big(), stableOut))
		pool.TotalShares = domain.AmountFromBig(new(big.Int).Sub(totalShares, shareAmount))
		if err := tx.Save(pool).Error; err != nil {
			return err
		}
		position.Shares = domain.AmountFromBig(new(big.Int).Sub(position.Shares.Big(), shareAmount))
		if err := tx.Save(&position).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindLiquidityRemoved, projectID, &providerID, map[string]interface{}{
			"shares": shareAmount.String(),
			"tokens": tokensOut.String(),
			"stable": stableOut.String(),
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return tokensOut, stableOut, nil
}

// amountOut is the fee-on-input constant-product quote:
// out = inWithFee·otherReserve / (thisReserve·10000 + inWithFee)
// where inWithFee = in·(10000 − feeBps).
func amountOut(in, thisReserve, otherReserve *big.Int, feeBps int64) *big.Int {
	inWithFee := new(big.Int).Mul(in, big.NewInt(numeric.BasisPoints-feeBps))
	num := new(big.Int).Mul(inWithFee, otherReserve)
	den := new(big.Int).Mul(thisReserve, big.NewInt(numeric.BasisPoints))
	den.Add(den, inWithFee)
	if den.Sign() == 0 {
		return new(big.Int)
	}
	return num.Quo(num, den)
}

// checkSwapGate rejects the swap when trading is halted or the breaker
// cooldown window since the last trigger has not elapsed. Cooldown expiry
// never re-enables trading on its own; only an admin resume clears the trip.
func checkSwapGate(pool *domain.LiquidityPool, height uint64) error {
	if !pool.TradingActive {
		return errTradingHalted()
	}
	if pool.BreakerTrippedAt != 0 && height < pool.BreakerTrippedAt+pool.BreakerCooldown {
		return apperr.New(apperr.EconomicGuard, "Circuit breaker cooldown in effect").
			With("blocks_remaining", pool.BreakerTrippedAt+pool.BreakerCooldown-height)
	}
	return nil
}

// settleSwap updates reserves and price, then measures price deviation and
// trips the breaker when it exceeds the configured threshold. The triggering
// swap itself stays committed.
func (s *Service) settleSwap(tx *gorm.DB, pool *domain.LiquidityPool, traderID uuid.UUID, result *SwapResult) error {
	newPrice := spotPrice(pool.TokenReserve.Big(), pool.StableReserve.Big())
	last := pool.LastPrice.Big()
	tripped := false
	if last.Sign() > 0 {
		diff := new(big.Int).Sub(newPrice, last)
		diff.Abs(diff)
		deviation := numeric.MulDiv(diff, big.NewInt(numeric.BasisPoints), last)
		if deviation.Cmp(big.NewInt(pool.BreakerThresholdBps)) > 0 {
			pool.TradingActive = false
			pool.BreakerTrippedAt = s.Heights.Height()
			tripped = true
		}
	}
	pool.LastPrice = domain.AmountFromBig(newPrice)
	if err := tx.Save(pool).Error; err != nil {
		return err
	}
	result.NewPrice = newPrice
	result.BreakerTripped = tripped
	if !tripped {
		return nil
	}
	log.Warn().
		Str("project_id", pool.ProjectID.String()).
		Str("price", newPrice.String()).
		Uint64("block", pool.BreakerTrippedAt).
		Msg("Circuit breaker tripped")
	return audit.Record(tx, audit.KindBreakerTripped, pool.ProjectID, &traderID, map[string]interface{}{
		"price": newPrice.String(),
		"block": pool.BreakerTrippedAt,
	})
}

// SwapTokensForStable sells project tokens into the pool for stable funds.
func (s *Service) SwapTokensForStable(ctx context.Context, traderID, projectID uuid.UUID, tokenIn, minStableOut *big.Int) (*SwapResult, error) {
	if !numeric.IsPositive(tokenIn) {
		return nil, apperr.New(apperr.Validation, "Input amount must be positive")
	}
	var result SwapResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		if err := checkSwapGate(pool, s.Heights.Height()); err != nil {
			return err
		}
		tokenReserve := pool.TokenReserve.Big()
		stableReserve := pool.StableReserve.Big()
		maxIn := numeric.Bps(tokenReserve, pool.MaxTransactionBps)
		if tokenIn.Cmp(maxIn) > 0 {
			return apperr.New(apperr.EconomicGuard, "Input exceeds the per-transaction reserve limit").
				With("requested", tokenIn.String()).
				With("maximum", maxIn.String())
		}

		out := amountOut(tokenIn, tokenReserve, stableReserve, pool.SwapFeeBps)
		if out.Sign() == 0 {
			return errZeroOutput()
		}
		if minStableOut != nil && out.Cmp(minStableOut) < 0 {
			return errSlippage(out.String(), minStableOut.String())
		}

		unitID, err := tokenUnitFor(tx, projectID)
		if err != nil {
			return err
		}
		if err := s.Tokens.TransferTx(tx, unitID, traderID, pool.PoolID, tokenIn); err != nil {
			return err
		}
		if err := wallets.DebitTx(tx, pool.PoolID, out); err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, traderID, out); err != nil {
			return err
		}

		pool.TokenReserve = domain.AmountFromBig(tokenReserve.Add(tokenReserve, tokenIn))
		pool.StableReserve = domain.AmountFromBig(stableReserve.Sub(stableReserve, out))
		result.AmountIn = tokenIn
		result.AmountOut = out
		if err := audit.Record(tx, audit.KindSwap, projectID, &traderID, map[string]interface{}{
			"direction": "tokens_for_stable",
			"in":        tokenIn.String(),
			"out":       out.String(),
		}); err != nil {
			return err
		}
		return s.settleSwap(tx, pool, traderID, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SwapStableForTokens buys project tokens from the pool with stable funds.
// The fee share destined for the treasury is tallied on this side, where it
// accrues in the stable reserve.
func (s *Service) SwapStableForTokens(ctx context.Context, traderID, projectID uuid.UUID, stableIn, minTokensOut *big.Int) (*SwapResult, error) {
	if !numeric.IsPositive(stableIn) {
		return nil, apperr.New(apperr.Validation, "Input amount must be positive")
	}
	var result SwapResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		if err := checkSwapGate(pool, s.Heights.Height()); err != nil {
			return err
		}
		tokenReserve := pool.TokenReserve.Big()
		stableReserve := pool.StableReserve.Big()
		maxIn := numeric.Bps(stableReserve, pool.MaxTransactionBps)
		if stableIn.Cmp(maxIn) > 0 {
			return apperr.New(apperr.EconomicGuard, "Input exceeds the per-transaction reserve limit").
				With("requested", stableIn.String()).
				With("maximum", maxIn.String())
		}

		out := amountOut(stableIn, stableReserve, tokenReserve, pool.SwapFeeBps)
		if out.Sign() == 0 {
			return errZeroOutput()
		}
		if minTokensOut != nil && out.Cmp(minTokensOut) < 0 {
			return errSlippage(out.String(), minTokensOut.String())
		}

		unitID, err := tokenUnitFor(tx, projectID)
		if err != nil {
			return err
		}
		if err := wallets.DebitTx(tx, traderID, stableIn); err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, pool.PoolID, stableIn); err != nil {
			return err
		}
		if err := s.Tokens.TransferTx(tx, unitID, pool.PoolID, traderID, out); err != nil {
			return err
		}

		fee := numeric.Bps(stableIn, pool.SwapFeeBps)
		pool.AccruedFees = domain.AmountFromBig(new(big.Int).Add(pool.AccruedFees.Big(), fee))
		pool.StableReserve = domain.AmountFromBig(stableReserve.Add(stableReserve, stableIn))
		pool.TokenReserve = domain.AmountFromBig(tokenReserve.Sub(tokenReserve, out))
		result.AmountIn = stableIn
		result.AmountOut = out
		if err := audit.Record(tx, audit.KindSwap, projectID, &traderID, map[string]interface{}{
			"direction": "stable_for_tokens",
			"in":        stableIn.String(),
			"out":       out.String(),
		}); err != nil {
			return err
		}
		return s.settleSwap(tx, pool, traderID, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// PauseTrading halts swaps. Admin only.
func (s *Service) PauseTrading(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID) error {
	if role != constants.Admin {
		return errUnauthorized("pause_trading", role)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		if !pool.TradingActive {
			return apperr.New(apperr.StateConflict, "Trading already halted")
		}
		pool.TradingActive = false
		if err := tx.Save(pool).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindTradingPaused, projectID, &actorID, nil)
	})
}

// ResumeTrading re-enables swaps and clears a breaker trip. Admin only; this
// is the only path back to active trading after the breaker fires.
func (s *Service) ResumeTrading(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID) error {
	if role != constants.Admin {
		return errUnauthorized("resume_trading", role)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		if pool.TradingActive {
			return apperr.New(apperr.StateConflict, "Trading already active")
		}
		pool.TradingActive = true
		pool.BreakerTrippedAt = 0
		if err := tx.Save(pool).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindTradingResumed, projectID, &actorID, nil)
	})
}

// CollectFees moves the treasury's configured share of accrued swap fees to
// the treasury wallet. The LP share stays compounded in the reserves.
func (s *Service) CollectFees(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID) (*big.Int, error) {
	if role != constants.Treasury && role != constants.Admin {
		return nil, errUnauthorized("collect_fees", role)
	}
	var collected *big.Int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		accrued := pool.AccruedFees.Big()
		collected = numeric.Bps(accrued, numeric.BasisPoints-pool.LPFeeShareBps)
		if collected.Sign() == 0 {
			return apperr.New(apperr.ResourceExhausted, "No fees to collect").
				With("accrued", accrued.String())
		}
		if err := wallets.DebitTx(tx, pool.PoolID, collected); err != nil {
			return err
		}
		if err := wallets.CreditTx(tx, s.TreasuryID, collected); err != nil {
			return err
		}
		pool.StableReserve = domain.AmountFromBig(new(big.Int).Sub(pool.StableReserve.Big(), collected))
		pool.AccruedFees = domain.AmountFromBig(new(big.Int))
		if err := tx.Save(pool).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindFeesCollected, projectID, &actorID, map[string]interface{}{
			"amount": collected.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return collected, nil
}

// EmergencyWithdrawLiquidity sweeps all pool assets to the treasury, zeroes
// the reserves and disables trading. Admin only, deliberately irreversible.
func (s *Service) EmergencyWithdrawLiquidity(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID) error {
	if role != constants.Admin {
		return errUnauthorized("emergency_withdraw_liquidity", role)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		unitID, err := tokenUnitFor(tx, projectID)
		if err != nil {
			return err
		}
		tokens := pool.TokenReserve.Big()
		stable := pool.StableReserve.Big()
		if tokens.Sign() > 0 {
			if err := s.Tokens.TransferTx(tx, unitID, pool.PoolID, s.TreasuryID, tokens); err != nil {
				return err
			}
		}
		if stable.Sign() > 0 {
			if err := wallets.DebitTx(tx, pool.PoolID, stable); err != nil {
				return err
			}
			if err := wallets.CreditTx(tx, s.TreasuryID, stable); err != nil {
				return err
			}
		}
		pool.TokenReserve = domain.AmountFromBig(new(big.Int))
		pool.StableReserve = domain.AmountFromBig(new(big.Int))
		pool.TradingActive = false
		if err := tx.Save(pool).Error; err != nil {
			return err
		}
		log.Warn().
			Str("project_id", projectID.String()).
			Str("tokens", tokens.String()).
			Str("stable", stable.String()).
			Msg("Pool emergency withdrawal")
		return audit.Record(tx, audit.KindPoolDrained, projectID, &actorID, map[string]interface{}{
			"tokens": tokens.String(),
			"stable": stable.String(),
		})
	})
}

// PoolConfig carries the tunable pool parameters of UpdatePoolConfig.
type PoolConfig struct {
	SwapFeeBps          int64  `json:"swap_fee_bps"`
	LPFeeShareBps       int64  `json:"lp_fee_share_bps"`
	MaxSlippageBps      int64  `json:"max_slippage_bps"`
	MaxTransactionBps   int64  `json:"max_transaction_bps"`
	BreakerThresholdBps int64  `json:"breaker_threshold_bps"`
	BreakerCooldown     uint64 `json:"breaker_cooldown"`
}

// UpdatePoolConfig replaces the pool's tunable parameters. Admin only,
// bounds-checked.
func (s *Service) UpdatePoolConfig(ctx context.Context, actorID uuid.UUID, role string, projectID uuid.UUID, cfg PoolConfig) error {
	if role != constants.Admin {
		return errUnauthorized("update_pool_config", role)
	}
	if cfg.SwapFeeBps < 0 || cfg.SwapFeeBps > constants.MaxPlatformFeeBps {
		return apperr.New(apperr.Validation, "Swap fee out of bounds").
			With("swap_fee_bps", cfg.SwapFeeBps).
			With("max_bps", constants.MaxPlatformFeeBps)
	}
	if cfg.LPFeeShareBps < 0 || cfg.LPFeeShareBps > numeric.BasisPoints {
		return apperr.New(apperr.Validation, "LP fee share out of bounds").
			With("lp_fee_share_bps", cfg.LPFeeShareBps)
	}
	if cfg.MaxSlippageBps <= 0 || cfg.MaxSlippageBps > numeric.BasisPoints {
		return apperr.New(apperr.Validation, "Max slippage out of bounds").
			With("max_slippage_bps", cfg.MaxSlippageBps)
	}
	if cfg.MaxTransactionBps <= 0 || cfg.MaxTransactionBps > numeric.BasisPoints {
		return apperr.New(apperr.Validation, "Max transaction percent out of bounds").
			With("max_transaction_bps", cfg.MaxTransactionBps)
	}
	if cfg.BreakerThresholdBps <= 0 || cfg.BreakerThresholdBps > numeric.BasisPoints {
		return apperr.New(apperr.Validation, "Breaker threshold out of bounds").
			With("breaker_threshold_bps", cfg.BreakerThresholdBps)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pool, err := loadPool(tx, projectID)
		if err != nil {
			return err
		}
		pool.SwapFeeBps = cfg.SwapFeeBps
		pool.LPFeeShareBps = cfg.LPFeeShareBps
		pool.MaxSlippageBps = cfg.MaxSlippageBps
		pool.MaxTransactionBps = cfg.MaxTransactionBps
		pool.BreakerThresholdBps = cfg.BreakerThresholdBps
		pool.BreakerCooldown = cfg.BreakerCooldown
		if err := tx.Save(pool).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.KindPoolConfigUpdated, projectID, &actorID, map[string]interface{}{
			"swap_fee_bps":          cfg.SwapFeeBps,
			"lp_fee_share_bps":      cfg.LPFeeShareBps,
			"max_transaction_bps":   cfg.MaxTransactionBps,
			"breaker_threshold_bps": cfg.BreakerThresholdBps,
		})
	})
}

// Pool returns the pool record for a project.
func (s *Service) Pool(ctx context.Context, projectID uuid.UUID) (*domain.LiquidityPool, error) {
	return loadPool(s.DB.WithContext(ctx), projectID)
}

// SpotPrice is the stable value of one whole token at current reserves.
func (s *Service) SpotPrice(ctx context.Context, projectID uuid.UUID) (*big.Int, error) {
	pool, err := loadPool(s.DB.WithContext(ctx), projectID)
	if err != nil {
		return nil, err
	}
	return spotPrice(pool.TokenReserve.Big(), pool.StableReserve.Big()), nil
}

// GetAmountOut quotes a swap without executing it.
func (s *Service) GetAmountOut(ctx context.Context, projectID uuid.UUID, amountIn *big.Int, stableIn bool) (*big.Int, error) {
	if !numeric.IsPositive(amountIn) {
		return nil, apperr.New(apperr.Validation, "Input amount must be positive")
	}
	pool, err := loadPool(s.DB.WithContext(ctx), projectID)
	if err != nil {
		return nil, err
	}
	if stableIn {
		return amountOut(amountIn, pool.StableReserve.Big(), pool.TokenReserve.Big(), pool.SwapFeeBps), nil
	}
	return amountOut(amountIn, pool.TokenReserve.Big(), pool.StableReserve.Big(), pool.SwapFeeBps), nil
}
