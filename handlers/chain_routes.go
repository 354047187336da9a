// handlers/chain_routes.go
package handlers

import (
	"context"
	"math/big"
	"power-token-exchange/apperrors"
	"power-token-exchange/contracts"
	"power-token-exchange/logger"
	"power-token-exchange/middleware"
	"power-token-exchange/models"
	"power-token-exchange/services"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ChainReader is the read side of the CarbonCreditNFT binding.
type ChainReader interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	OwnedTokens(ctx context.Context, owner common.Address) ([]contracts.OwnedToken, error)
	Listings(ctx context.Context) ([]contracts.ChainListing, error)
}

// ChainWriter sends signed transactions and returns the mined tx hash.
type ChainWriter interface {
	BuyTokens(ctx context.Context, amount int64) (string, error)
	SellTokens(ctx context.Context, amount int64) (string, error)
	CreateListing(ctx context.Context, tokenID *big.Int, priceEther string) (string, error)
	BuyItem(ctx context.Context, listingID int64, priceEther string) (string, error)
	TransferNFT(ctx context.Context, to common.Address, tokenID *big.Int) (string, error)
}

type Chain interface {
	ChainReader
	ChainWriter
}

const chainCounterparty = "CarbonCreditNFT"

func ownerParam(c *fiber.Ctx) (common.Address, bool) {
	addr := c.Query("address")
	if !common.IsHexAddress(addr) {
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}

func tokenIDParam(raw string) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || id.Sign() < 0 {
		return nil, false
	}
	return id, true
}

func etherFloat(wei *big.Int) float64 {
	f, _ := strconv.ParseFloat(contracts.FormatEther(wei), 64)
	return f
}

// recordChainTx appends a mined write to the caller's ledger. The chain state
// already changed, so a failed append is logged and not returned.
func recordChainTx(c *fiber.Ctx, store *services.Store, tx models.Transaction) {
	tx.Counterparty = chainCounterparty
	if _, err := store.RecordTransaction(c.UserContext(), middleware.SessionFrom(c), tx); err != nil {
		logger.WithFields(logrus.Fields{"tx": tx.TxHash, "error": err}).Warn("⚠️ [Chain] mined tx not recorded in ledger")
	}
}

// SetupChainRoutes exposes contract reads publicly and contract writes to
// signed-in sessions. chain may be nil when no RPC is configured, in which
// case every route answers 503.
func SetupChainRoutes(app *fiber.App, chain Chain, store *services.Store, registry *services.SessionRegistry) {
	secured := middleware.SessionMiddleware(registry)
	signedIn := func(c *fiber.Ctx) error {
		if _, err := store.CurrentAccount(middleware.SessionFrom(c)); err != nil {
			return respondError(c, err)
		}
		return c.Next()
	}

	group := app.Group("/chain")
	group.Use(func(c *fiber.Ctx) error {
		if chain == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "chain is not configured"})
		}
		return c.Next()
	})

	group.Get("/balance", func(c *fiber.Ctx) error {
		owner, ok := ownerParam(c)
		if !ok {
			return badRequest(c, "address query param must be a hex address")
		}
		balance, err := chain.BalanceOf(c.UserContext(), owner)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"address": owner.Hex(), "balance": balance.String()})
	})

	group.Get("/nfts", func(c *fiber.Ctx) error {
		owner, ok := ownerParam(c)
		if !ok {
			return badRequest(c, "address query param must be a hex address")
		}
		tokens, err := chain.OwnedTokens(c.UserContext(), owner)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(tokens)
	})

	group.Get("/listings", func(c *fiber.Ctx) error {
		listings, err := chain.Listings(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(listings)
	})

	// ⛓️ Token trades at the fixed 0.01 ETH price
	tokenTrade := func(buy bool) fiber.Handler {
		return func(c *fiber.Ctx) error {
			var req struct {
				Amount int64 `json:"amount"`
			}
			if err := c.BodyParser(&req); err != nil || req.Amount <= 0 {
				return badRequest(c, "amount must be a positive integer")
			}

			send, txType := chain.SellTokens, models.TransactionSell
			if buy {
				send, txType = chain.BuyTokens, models.TransactionBuy
			}
			hash, err := send(c.UserContext(), req.Amount)
			if err != nil {
				return respondError(c, err)
			}
			recordChainTx(c, store, models.Transaction{
				Type:      txType,
				TokenKind: models.TokenPower,
				Amount:    float64(req.Amount),
				Price:     etherFloat(contracts.TokenCost(req.Amount)),
				TxHash:    hash,
			})
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"tx_hash": hash})
		}
	}
	group.Post("/tokens/buy", secured, signedIn, tokenTrade(true))
	group.Post("/tokens/sell", secured, signedIn, tokenTrade(false))

	group.Post("/listings", secured, signedIn, func(c *fiber.Ctx) error {
		var req struct {
			TokenID string `json:"token_id"`
			Price   string `json:"price"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		tokenID, ok := tokenIDParam(req.TokenID)
		if !ok {
			return badRequest(c, "token_id must be a non-negative integer")
		}
		hash, err := chain.CreateListing(c.UserContext(), tokenID, req.Price)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"tx_hash": hash})
	})

	// 🛒 Buys an on-chain listing. Without a price in the body the listed
	// price is read from the contract.
	group.Post("/listings/:id/buy", secured, signedIn, func(c *fiber.Ctx) error {
		listingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || listingID < 0 {
			return badRequest(c, "listing id must be a non-negative integer")
		}
		var req struct {
			Price string `json:"price"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid request body")
			}
		}

		tokenID := ""
		if req.Price == "" {
			listings, err := chain.Listings(c.UserContext())
			if err != nil {
				return respondError(c, err)
			}
			for _, l := range listings {
				if l.ID == listingID && l.Active {
					req.Price, tokenID = l.Price, l.TokenID
				}
			}
			if req.Price == "" {
				return respondError(c, apperrors.New(apperrors.ErrNotFound, "listing not found or inactive", nil))
			}
		}

		hash, err := chain.BuyItem(c.UserContext(), listingID, req.Price)
		if err != nil {
			return respondError(c, err)
		}
		price, _ := strconv.ParseFloat(req.Price, 64)
		recordChainTx(c, store, models.Transaction{
			Type:      models.TransactionBuy,
			TokenKind: models.TokenNFT,
			TokenID:   tokenID,
			Amount:    1,
			Price:     price,
			TxHash:    hash,
		})
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"tx_hash": hash})
	})

	group.Post("/nfts/:id/transfer", secured, signedIn, func(c *fiber.Ctx) error {
		tokenID, ok := tokenIDParam(c.Params("id"))
		if !ok {
			return badRequest(c, "token id must be a non-negative integer")
		}
		var req struct {
			To string `json:"to"`
		}
		if err := c.BodyParser(&req); err != nil || !common.IsHexAddress(req.To) {
			return badRequest(c, "to must be a hex address")
		}

		hash, err := chain.TransferNFT(c.UserContext(), common.HexToAddress(req.To), tokenID)
		if err != nil {
			return respondError(c, err)
		}
		recordChainTx(c, store, models.Transaction{
			Type:      models.TransactionTransfer,
			TokenKind: models.TokenNFT,
			TokenID:   tokenID.String(),
			Amount:    1,
			TxHash:    hash,
		})
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"tx_hash": hash})
	})
}
