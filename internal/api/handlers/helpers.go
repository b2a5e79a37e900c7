package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/network"
	"github.com/maheshrc27/socialflow/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(raw, 10, 64)
	return userID
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return int64(id), nil
}

// statusFor maps service and adapter errors to HTTP statuses. Anything it
// does not recognize is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidUserID):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest
	}

	var nerr *network.Error
	if errors.As(err, &nerr) {
		switch nerr.Kind {
		case network.KindValidation, network.KindNotConfigured, network.KindUnsupported:
			return fiber.StatusBadRequest
		default:
			return fiber.StatusBadGateway
		}
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error, message string) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		slog.Error(message, "error", err)
		return c.Status(status).JSON(fiber.Map{
			"error": message,
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
