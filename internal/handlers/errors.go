package handlers

import (
	"server/internal/apperrors"
	"server/internal/voterfile"

	"github.com/gofiber/fiber/v2"
)

// respondError maps domain errors onto the JSON error shape the client
// expects: {status, errorType, message}. Batch errors carry their full
// aggregated problem list in the message, so an operator can fix a voter
// file in one pass.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case apperrors.IsNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "Not Found", err)
	case apperrors.IsConflict(err):
		return errorResponse(c, fiber.StatusConflict, "Conflict", err)
	case apperrors.IsBadRequest(err), voterfile.IsBatchError(err):
		return errorResponse(c, fiber.StatusBadRequest, "Bad Request", err)
	default:
		return errorResponse(c, fiber.StatusInternalServerError, "Internal Server Error", err)
	}
}

func errorResponse(c *fiber.Ctx, status int, errorType string, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    "error",
		"errorType": errorType,
		"message":   err.Error(),
	})
}
