// handlers/marketplace_routes.go
package handlers

import (
	"power-token-exchange/middleware"
	"power-token-exchange/models"
	"power-token-exchange/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMarketplaceRoutes(app *fiber.App, market *services.MarketplaceService, registry *services.SessionRegistry) {
	secured := middleware.SessionMiddleware(registry)

	// 🔓 Public listing book
	app.Get("/listings", func(c *fiber.Ctx) error {
		kind := models.ListingKind(c.Query("kind"))
		if kind != "" && kind != models.ListingPowerToken && kind != models.ListingCarbonCredit {
			return badRequest(c, "kind must be power_token or carbon_credit")
		}
		return c.JSON(market.Listings(kind))
	})

	app.Post("/listings/power", secured, func(c *fiber.Ctx) error {
		var req struct {
			Amount float64 `json:"amount"`
			Price  float64 `json:"price"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		listing, err := market.CreatePowerTokenListing(c.UserContext(), middleware.SessionFrom(c), req.Amount, req.Price)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(listing)
	})

	// ?kind=carbon_credit buys an NFT listing, anything else a power token listing.
	app.Post("/listings/:id/buy", secured, func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return badRequest(c, "invalid listing id")
		}
		sess := middleware.SessionFrom(c)

		if models.ListingKind(c.Query("kind")) == models.ListingCarbonCredit {
			tx, nft, err := market.BuyNFT(c.UserContext(), sess, id)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(fiber.Map{"transaction": tx, "nft": nft})
		}

		tx, err := market.BuyPowerTokens(c.UserContext(), sess, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"transaction": tx, "account": sess.Account()})
	})

	app.Post("/checkout", secured, func(c *fiber.Ctx) error {
		var req struct {
			Items []services.CartItem `json:"items"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		receipt, err := market.Checkout(c.UserContext(), middleware.SessionFrom(c), req.Items)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(receipt)
	})
}
