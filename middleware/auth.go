// middleware/auth.go
package middleware

import (
	"power-token-exchange/logger"
	"power-token-exchange/services"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	SessionHeader    = "X-Session-Token"
	sessionLocalsKey = "session"
)

// SessionMiddleware resolves the X-Session-Token header to a live session
// and attaches it to the request.
func SessionMiddleware(registry *services.SessionRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get(SessionHeader))
		return attachSession(c, registry, token)
	}
}

func attachSession(c *fiber.Ctx, registry *services.SessionRegistry, token string) error {
	if token == "" {
		logger.Warnf("❌ [SESSION] %s missing on %s", SessionHeader, c.Path())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing session token, call POST /session first",
		})
	}

	sess, ok := registry.Get(token)
	if !ok {
		logger.Warnf("❌ [SESSION] unknown or expired session on %s", c.Path())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "session expired or unknown",
		})
	}

	c.Locals(sessionLocalsKey, sess)
	logger.Debug("👤 [SESSION] ", sess.ID, " mode=", sess.Mode(), " | Path: ", c.Path())
	return c.Next()
}

// SessionFrom returns the session attached by SessionMiddleware.
func SessionFrom(c *fiber.Ctx) *services.Session {
	sess, _ := c.Locals(sessionLocalsKey).(*services.Session)
	return sess
}
