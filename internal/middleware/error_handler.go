package middleware

import (
	"terrafund-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Typed core errors keep their kind
// and quantities; fiber errors keep their status; anything else is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Message, e.Code, nil)
	}
	return response.FromError(c, err)
}
