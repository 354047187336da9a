// handlers/session_routes.go
package handlers

import (
	"power-token-exchange/middleware"
	"power-token-exchange/models"
	"power-token-exchange/services"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type sessionResponse struct {
	SessionToken string          `json:"session_token,omitempty"`
	Mode         services.Mode   `json:"mode"`
	Account      *models.Account `json:"account"`
	Wallet       string          `json:"wallet,omitempty"`
}

func sessionView(sess *services.Session, withToken bool) sessionResponse {
	resp := sessionResponse{
		Mode:    sess.Mode(),
		Account: sess.Account(),
		Wallet:  sess.Wallet(),
	}
	if withToken {
		resp.SessionToken = sess.ID
	}
	return resp
}

func SetupSessionRoutes(app *fiber.App, store *services.Store, registry *services.SessionRegistry) {
	secured := middleware.SessionMiddleware(registry)

	// 🔓 Opens (or resumes) a session. A bearer token restores a remote login.
	app.Post("/session", func(c *fiber.Ctx) error {
		sess, ok := registry.Get(strings.TrimSpace(c.Get(middleware.SessionHeader)))
		if !ok {
			sess = registry.Create()
		}

		remoteToken := strings.TrimSpace(strings.TrimPrefix(c.Get("Authorization"), "Bearer "))
		if _, err := store.InitializeSession(c.UserContext(), sess, remoteToken); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sessionView(sess, true))
	})

	app.Post("/auth/register", secured, func(c *fiber.Ctx) error {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		sess := middleware.SessionFrom(c)
		if _, err := store.RegisterAccount(c.UserContext(), sess, req.Name, req.Email, req.Password); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sessionView(sess, false))
	})

	app.Post("/auth/login", secured, func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		sess := middleware.SessionFrom(c)
		if _, err := store.Authenticate(c.UserContext(), sess, req.Email, req.Password); err != nil {
			return respondError(c, err)
		}
		return c.JSON(sessionView(sess, false))
	})

	app.Post("/auth/logout", secured, func(c *fiber.Ctx) error {
		sess := middleware.SessionFrom(c)
		store.SignOut(c.UserContext(), sess)
		return c.JSON(sessionView(sess, false))
	})

	app.Get("/me", secured, func(c *fiber.Ctx) error {
		sess := middleware.SessionFrom(c)
		if _, err := store.Account(c.UserContext(), sess); err != nil {
			return respondError(c, err)
		}
		return c.JSON(sessionView(sess, false))
	})
}
