package handlers

import (
	"errors"
	"log/slog"

	"sweetshop/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondError translates a domain error into the JSON error body and its status code.
func respondError(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), message, slog.String("path", c.Path()), slog.Any("error", err))
	} else {
		slog.DebugContext(c.UserContext(), message, slog.String("path", c.Path()), slog.Any("error", err))
	}

	body := fiber.Map{
		"message": message,
		"error":   models.ErrorKind(err),
	}
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) && len(validationErr.Fields) > 0 {
		body["errors"] = validationErr.Fields
	}
	if errors.Is(err, models.ErrOutOfStockOrNotFound) {
		body["message"] = "Item is out of stock or does not exist"
	}
	return c.Status(status).JSON(body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrOutOfStockOrNotFound):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func invalidBody(err error) error {
	return models.NewValidationError("body", err.Error())
}
