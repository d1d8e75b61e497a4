package project

import (
	"terrafund-backend/internal/pkg/apperr"
)

func errNotFound() error {
	return apperr.New(apperr.NotFound, "Project not found")
}

func errWrongPhase(current, required string) error {
	return apperr.New(apperr.StateConflict, "Project is not in the required phase").
		With("current", current).
		With("required", required)
}

func errMilestoneStatus(current, required string) error {
	return apperr.New(apperr.StateConflict, "Milestone is not in the required status").
		With("current", current).
		With("required", required)
}

func errNotContractor() error {
	return apperr.New(apperr.Authorization, "Caller is not the project contractor")
}

func errNotVerifier() error {
	return apperr.New(apperr.Authorization, "Caller is not an assigned verifier for this project")
}

func errAlreadyVerified() error {
	return apperr.New(apperr.StateConflict, "Verifier has already approved this milestone")
}
