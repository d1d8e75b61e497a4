package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an operation failure so handlers and callers can decide
// whether to retry, adjust parameters, or abort.
type Kind string

const (
	Validation        Kind = "validation"
	Authorization     Kind = "authorization"
	StateConflict     Kind = "state_conflict"
	ResourceExhausted Kind = "resource_exhausted"
	EconomicGuard     Kind = "economic_guard"
	NotFound          Kind = "not_found"
)

// Error is a rejected operation. Details carries the structured quantities the
// caller needs (requested vs available amounts, current vs required state).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// With attaches a detail field and returns the same error for chaining.
func (e *Error) With(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// KindOf returns the kind of err, or empty string for non-apperr errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an apperr of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// DetailsOf returns the detail map of err (nil for non-apperr errors).
func DetailsOf(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// HTTPStatus maps an error to the HTTP status code handlers should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return fiber.StatusBadRequest
	case Authorization:
		return fiber.StatusForbidden
	case StateConflict:
		return fiber.StatusConflict
	case ResourceExhausted, EconomicGuard:
		return fiber.StatusUnprocessableEntity
	case NotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
