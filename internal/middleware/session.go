package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Session attaches the caller's session and user identity to the request.
// Clients send X-Session-ID to correlate commands across a conversation; a
// request without one gets a fresh id, echoed back in the response header.
// X-User-ID is optional; requests without it run in the anonymous scope.
func Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Get("X-Session-ID")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		c.Locals("session_id", sessionID)
		c.Set("X-Session-ID", sessionID)

		userID := 0
		if raw := c.Get("X-User-ID"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				userID = n
			}
		}
		c.Locals("user_id", userID)

		return c.Next()
	}
}

// SessionID returns the session id attached by Session.
func SessionID(c *fiber.Ctx) string {
	if v, ok := c.Locals("session_id").(string); ok {
		return v
	}
	return ""
}

// UserID returns the user id attached by Session, 0 when anonymous.
func UserID(c *fiber.Ctx) int {
	if v, ok := c.Locals("user_id").(int); ok {
		return v
	}
	return 0
}
