// middleware/sse_auth.go
package middleware

import (
	"power-token-exchange/services"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSESessionMiddleware is SessionMiddleware for EventSource clients, which
// cannot set headers: the session id comes from the `token` query param.
//
// Usage:
//
//	app.Get("/wallet/events", middleware.SSESessionMiddleware(registry), handler)
func SSESessionMiddleware(registry *services.SessionRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = strings.TrimSpace(c.Get(SessionHeader))
		}
		return attachSession(c, registry, token)
	}
}
