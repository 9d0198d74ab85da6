package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/shafran-auth/internal/utils"
)

const userContextKey = "currentUserID"

// AuthMiddleware validates bearer session tokens and loads the user ID into context.
// A missing token is 401; a bad or expired one is 403.
func AuthMiddleware(sessions *utils.SessionIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization token")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization token")
		}

		claims, err := sessions.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				slog.DebugContext(c.UserContext(), "expired session token", "ip", c.IP())
			} else {
				slog.WarnContext(c.UserContext(), "invalid session token", "ip", c.IP(), "error", err)
			}
			return fiber.NewError(fiber.StatusForbidden, "invalid or expired token")
		}

		c.Locals(userContextKey, claims.UserID)
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(userContextKey).(uint)
	return id, ok
}
