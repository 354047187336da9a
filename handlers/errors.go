// handlers/errors.go
package handlers

import (
	"context"
	"errors"
	"power-token-exchange/apperrors"
	"power-token-exchange/logger"

	"github.com/gofiber/fiber/v2"
)

var statusByCode = map[string]int{
	apperrors.ErrInvalidInput:        fiber.StatusBadRequest,
	apperrors.ErrInvalidCredentials:  fiber.StatusUnauthorized,
	apperrors.ErrNoSession:           fiber.StatusUnauthorized,
	apperrors.ErrForbidden:           fiber.StatusForbidden,
	apperrors.ErrNotFound:            fiber.StatusNotFound,
	apperrors.ErrDuplicateAccount:    fiber.StatusConflict,
	apperrors.ErrInsufficientBalance: fiber.StatusUnprocessableEntity,
	apperrors.ErrWalletRejected:      fiber.StatusForbidden,
	apperrors.ErrWalletUnavailable:   fiber.StatusPreconditionFailed,
	apperrors.ErrRemoteRejected:      fiber.StatusBadGateway,
	apperrors.ErrRemoteUnavailable:   fiber.StatusServiceUnavailable,
	apperrors.ErrContractCall:        fiber.StatusBadGateway,
	apperrors.ErrMetadataUpload:      fiber.StatusBadGateway,
	apperrors.ErrLocalStore:          fiber.StatusInternalServerError,
}

// respondError writes err as {"error", "code"} with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{"error": "request cancelled"})
		}
		logger.Error("❌ [API] ", c.Method(), " ", c.Path(), ": ", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	if status >= fiber.StatusInternalServerError {
		logger.Error("❌ [API] ", c.Method(), " ", c.Path(), ": ", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
