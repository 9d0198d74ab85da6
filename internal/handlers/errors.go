package handlers

import (
	"errors"
	"log/slog"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/shafran-auth/internal/services"
)

var clientErrors = []struct {
	err    error
	status int
}{
	{services.ErrInvalidPhone, fiber.StatusBadRequest},
	{services.ErrAlreadyRegistered, fiber.StatusBadRequest},
	{services.ErrNotRegistered, fiber.StatusBadRequest},
	{services.ErrCodeNotFound, fiber.StatusBadRequest},
	{services.ErrCodeExpired, fiber.StatusBadRequest},
	{services.ErrInvalidCode, fiber.StatusBadRequest},
	{services.ErrUserVanished, fiber.StatusBadRequest},
	{services.ErrCooldown, fiber.StatusTooManyRequests},
	{services.ErrAttemptsExhausted, fiber.StatusForbidden},
	{services.ErrUserNotFound, fiber.StatusNotFound},
}

// ErrorHandler renders every error as {success:false, message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, message := classify(err)

	body := fiber.Map{
		"success": false,
		"message": message,
	}

	var cooldown *services.CooldownError
	if errors.As(err, &cooldown) {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(cooldown.RetryAfter.Seconds()))))
	}

	var invalid *services.InvalidCodeError
	if errors.As(err, &invalid) {
		body["attempts_left"] = invalid.Remaining
	}

	if status >= fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}

	return c.Status(status).JSON(body)
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			return ce.status, err.Error()
		}
	}

	if errors.Is(err, services.ErrDeliveryFailed) {
		return fiber.StatusInternalServerError, services.ErrDeliveryFailed.Error()
	}
	return fiber.StatusInternalServerError, "internal server error"
}
