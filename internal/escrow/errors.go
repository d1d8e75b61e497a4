package escrow

import "terrafund-backend/internal/pkg/apperr"

func errUnauthorized(op, role string) error {
	return apperr.New(apperr.Authorization, "Caller role not permitted for escrow operation").
		With("operation", op).
		With("role", role)
}

func errNotInitialized() error {
	return apperr.New(apperr.StateConflict, "Escrow account not initialized")
}

func errAlreadyInitialized() error {
	return apperr.New(apperr.StateConflict, "Escrow account already initialized")
}

func errInsufficientFunds(requested, available string) error {
	return apperr.New(apperr.ResourceExhausted, "Insufficient escrow funds").
		With("requested", requested).
		With("available", available)
}
