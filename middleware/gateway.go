// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"power-token-exchange/logger"

	"github.com/gofiber/fiber/v2"
)

const ServiceTokenHeader = "X-Service-Token"

// ServiceTokenMiddleware rejects requests that do not carry the shared
// service token. An empty expected token disables the check.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		logger.Warn("⚠️ [GATEWAY_AUTH] SERVICE_TOKEN is not set, API is open")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		token := c.Get(ServiceTokenHeader)
		if token == "" {
			logger.Warnf("🚫 [GATEWAY_AUTH] Missing %s header for %s", ServiceTokenHeader, c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service token missing",
			})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			logger.Warnf("❌ [GATEWAY_AUTH] Invalid service token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}
