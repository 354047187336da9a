// handlers/account_routes.go
package handlers

import (
	"fmt"
	"power-token-exchange/middleware"
	"power-token-exchange/models"
	"power-token-exchange/services"
	"time"

	"github.com/gofiber/fiber/v2"
)

// accountID resolves the account a list request is about: the `user_id`
// query param when given, otherwise the session's own account.
func accountID(c *fiber.Ctx, store *services.Store) (string, error) {
	if id := c.Query("user_id"); id != "" {
		return id, nil
	}
	acct, err := store.CurrentAccount(middleware.SessionFrom(c))
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

func SetupAccountRoutes(app *fiber.App, store *services.Store, minter *services.MintService, registry *services.SessionRegistry) {
	secured := middleware.SessionMiddleware(registry)

	app.Put("/balance", secured, func(c *fiber.Ctx) error {
		var req struct {
			Balance models.Balance `json:"balance"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "balance must look like \"500 PT\"")
		}
		acct, err := store.UpdateBalance(c.UserContext(), middleware.SessionFrom(c), req.Balance)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(acct)
	})

	// --- Transactions ---

	app.Get("/transactions", secured, func(c *fiber.Ctx) error {
		id, err := accountID(c, store)
		if err != nil {
			return respondError(c, err)
		}
		txs, err := store.ListTransactions(c.UserContext(), middleware.SessionFrom(c), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(txs)
	})

	app.Post("/transactions", secured, func(c *fiber.Ctx) error {
		var tx models.Transaction
		if err := c.BodyParser(&tx); err != nil {
			return badRequest(c, "Invalid request body")
		}
		recorded, err := store.RecordTransaction(c.UserContext(), middleware.SessionFrom(c), tx)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(recorded)
	})

	app.Get("/transactions/export", secured, func(c *fiber.Ctx) error {
		id, err := accountID(c, store)
		if err != nil {
			return respondError(c, err)
		}
		txs, err := store.ListTransactions(c.UserContext(), middleware.SessionFrom(c), id)
		if err != nil {
			return respondError(c, err)
		}
		buf, err := services.ExportTransactionsXLSX(txs)
		if err != nil {
			return respondError(c, err)
		}

		filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().UTC().Format("20060102"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
		return c.Send(buf.Bytes())
	})

	// --- Rewards ---

	app.Get("/rewards", secured, func(c *fiber.Ctx) error {
		id, err := accountID(c, store)
		if err != nil {
			return respondError(c, err)
		}
		rewards, err := store.ListRewards(c.UserContext(), middleware.SessionFrom(c), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rewards)
	})

	app.Post("/rewards", secured, func(c *fiber.Ctx) error {
		var reward models.Reward
		if err := c.BodyParser(&reward); err != nil {
			return badRequest(c, "Invalid request body")
		}
		created, err := store.AddReward(c.UserContext(), middleware.SessionFrom(c), reward)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	app.Post("/rewards/:id/claim", secured, func(c *fiber.Ctx) error {
		id, err := accountID(c, store)
		if err != nil {
			return respondError(c, err)
		}
		reward, nft, err := store.ClaimReward(c.UserContext(), middleware.SessionFrom(c), c.Params("id"), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"reward":    reward,
			"nft":       nft,
			"new_claim": nft != nil,
		})
	})

	// --- Credit NFTs ---

	app.Get("/nfts", secured, func(c *fiber.Ctx) error {
		id, err := accountID(c, store)
		if err != nil {
			return respondError(c, err)
		}
		nfts, err := store.ListCreditNFTs(c.UserContext(), middleware.SessionFrom(c), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(nfts)
	})

	app.Post("/nfts/:id/mint", secured, func(c *fiber.Ctx) error {
		nft, err := minter.Mint(c.UserContext(), middleware.SessionFrom(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(nft)
	})
}
