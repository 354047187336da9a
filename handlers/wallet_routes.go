// handlers/wallet_routes.go
package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"power-token-exchange/middleware"
	"power-token-exchange/services"
	"time"

	"github.com/gofiber/fiber/v2"
)

const sseKeepAlive = 15 * time.Second

func SetupWalletRoutes(app *fiber.App, store *services.Store, wallets *services.WalletService, registry *services.SessionRegistry) {
	secured := middleware.SessionMiddleware(registry)

	// Asks the wallet provider for accounts and links the first one.
	app.Post("/wallet/connect", secured, func(c *fiber.Ctx) error {
		sess := middleware.SessionFrom(c)
		address, err := wallets.Connect(c.UserContext(), sess)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"address": address, "account": sess.Account()})
	})

	// Links an address the client already holds.
	app.Put("/wallet", secured, func(c *fiber.Ctx) error {
		var req struct {
			Address string `json:"address"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		acct, err := store.LinkWallet(c.UserContext(), middleware.SessionFrom(c), req.Address)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(acct)
	})

	app.Get("/wallet/events", middleware.SSESessionMiddleware(registry), func(c *fiber.Ctx) error {
		return streamWalletEvents(c, wallets)
	})
}

// streamWalletEvents pushes account-change events as SSE until the client
// goes away.
func streamWalletEvents(c *fiber.Ctx, wallets *services.WalletService) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	events, unsubscribe := wallets.Subscribe()
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				payload, _ := json.Marshal(ev)
				fmt.Fprintf(w, "event: accountsChanged\ndata: %s\n\n", payload)
			case <-ticker.C:
				w.WriteString(":\n\n")
			case <-done:
				return
			}
			if err := w.Flush(); err != nil {
				// client disconnected
				return
			}
		}
	})

	return nil
}
