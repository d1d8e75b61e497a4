package amm

import "terrafund-backend/internal/pkg/apperr"

func errPoolNotFound() error {
	return apperr.New(apperr.NotFound, "No liquidity pool for project")
}

func errTradingHalted() error {
	return apperr.New(apperr.EconomicGuard, "Trading is halted for this pool")
}

func errZeroOutput() error {
	return apperr.New(apperr.EconomicGuard, "Output rounds to zero")
}

func errSlippage(out, min string) error {
	return apperr.New(apperr.EconomicGuard, "Output below the caller's minimum").
		With("output", out).
		With("minimum", min)
}

func errUnauthorized(op, role string) error {
	return apperr.New(apperr.Authorization, "Caller role not permitted for pool operation").
		With("operation", op).
		With("role", role)
}
