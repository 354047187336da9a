// services/marketplace_service.go
package services

import (
	"context"
	_ "embed"
	"fmt"
	"power-token-exchange/apperrors"
	"power-token-exchange/logger"
	"power-token-exchange/models"
	"power-token-exchange/utils"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// checkoutFeeRate is the platform fee added on top of the cart subtotal.
const checkoutFeeRate = 0.02

type catalogFile struct {
	PowerToken   []models.Listing `yaml:"power_token"`
	CarbonCredit []models.Listing `yaml:"carbon_credit"`
}

// CartItem references a listing in a checkout request.
type CartItem struct {
	ListingID int                `json:"listing_id"`
	Kind      models.ListingKind `json:"kind"`
	Quantity  int                `json:"quantity"`
}

// Receipt summarises a completed checkout. Prices are in ETH.
type Receipt struct {
	Items       []CartItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	Fees        float64    `json:"fees"`
	Total       float64    `json:"total"`
	Wallet      string     `json:"wallet"`
	CompletedAt time.Time  `json:"completed_at"`
}

// MarketplaceService simulates trades against a shared listing book. Trades
// update the buyer's balance and records through the Store; nothing here
// touches the chain.
type MarketplaceService struct {
	Store         *Store
	CheckoutDelay time.Duration

	mu    sync.Mutex
	power []models.Listing
	nfts  []models.Listing
}

func NewMarketplaceService(store *Store, checkoutDelay time.Duration) (*MarketplaceService, error) {
	m := &MarketplaceService{Store: store, CheckoutDelay: checkoutDelay}
	if err := m.LoadCatalog(defaultCatalog, time.Now().UTC()); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadCatalog replaces the listing book with the YAML catalog. Listing ages
// are resolved against now.
func (m *MarketplaceService) LoadCatalog(data []byte, now time.Time) error {
	var cat catalogFile
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return apperrors.New(apperrors.ErrConfigLoad, "invalid marketplace catalog", err)
	}
	prepare := func(list []models.Listing, kind models.ListingKind) []models.Listing {
		for i := range list {
			list[i].Kind = kind
			list[i].Active = true
			list[i].CreatedAt = now.Add(-time.Duration(list[i].AgeHours) * time.Hour)
			if kind == models.ListingCarbonCredit {
				list[i].Amount = 1
			}
		}
		return list
	}

	m.mu.Lock()
	m.power = prepare(cat.PowerToken, models.ListingPowerToken)
	m.nfts = prepare(cat.CarbonCredit, models.ListingCarbonCredit)
	m.mu.Unlock()
	return nil
}

// Listings returns the active listings of a kind, or of both when kind is empty.
func (m *MarketplaceService) Listings(kind models.ListingKind) []models.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Listing
	if kind == "" || kind == models.ListingPowerToken {
		out = append(out, m.power...)
	}
	if kind == "" || kind == models.ListingCarbonCredit {
		out = append(out, m.nfts...)
	}
	return out
}

func (m *MarketplaceService) book(kind models.ListingKind) *[]models.Listing {
	if kind == models.ListingCarbonCredit {
		return &m.nfts
	}
	return &m.power
}

// take removes a listing from the book and returns it.
func (m *MarketplaceService) take(kind models.ListingKind, id int) (models.Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.book(kind)
	for i, l := range *list {
		if l.ID == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return l, true
		}
	}
	return models.Listing{}, false
}

// restore puts a listing back after a failed purchase.
func (m *MarketplaceService) restore(l models.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.book(l.Kind)
	*list = append(*list, l)
	sort.Slice(*list, func(i, j int) bool { return (*list)[i].CreatedAt.After((*list)[j].CreatedAt) })
}

func (m *MarketplaceService) buyer(sess *Session) (*models.Account, error) {
	if sess.Wallet() == "" {
		return nil, apperrors.New(apperrors.ErrWalletUnavailable, "please connect your wallet to make a purchase", nil)
	}
	return m.Store.CurrentAccount(sess)
}

// BuyPowerTokens credits the listing amount to the buyer's balance, records
// a buy transaction and removes the listing.
func (m *MarketplaceService) BuyPowerTokens(ctx context.Context, sess *Session, listingID int) (*models.Transaction, error) {
	acct, err := m.buyer(sess)
	if err != nil {
		return nil, err
	}
	listing, ok := m.take(models.ListingPowerToken, listingID)
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "listing not found", nil)
	}

	if _, err := m.Store.UpdateBalance(ctx, sess, acct.Balance.Add(listing.Amount)); err != nil {
		m.restore(listing)
		return nil, err
	}
	tx, err := m.Store.RecordTransaction(ctx, sess, models.Transaction{
		Type:         models.TransactionBuy,
		Amount:       listing.Amount,
		TokenKind:    models.TokenPower,
		Price:        listing.Price,
		Status:       models.StatusCompleted,
		Counterparty: listing.Seller,
		TxHash:       utils.MockTxHash(),
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{"account": acct.ID, "listing": listingID, "amount": listing.Amount}).Info("🛒 [Marketplace] power tokens bought")
	return tx, nil
}

// BuyNFT records an nft buy transaction and adds the credit NFT to the buyer.
func (m *MarketplaceService) BuyNFT(ctx context.Context, sess *Session, listingID int) (*models.Transaction, *models.CreditNFT, error) {
	acct, err := m.buyer(sess)
	if err != nil {
		return nil, nil, err
	}
	listing, ok := m.take(models.ListingCarbonCredit, listingID)
	if !ok {
		return nil, nil, apperrors.New(apperrors.ErrNotFound, "listing not found", nil)
	}

	tokenID := fmt.Sprintf("NFT-%d", listing.ID)
	tx, err := m.Store.RecordTransaction(ctx, sess, models.Transaction{
		Type:         models.TransactionBuy,
		Amount:       1,
		TokenKind:    models.TokenNFT,
		TokenID:      tokenID,
		Price:        listing.Price,
		Status:       models.StatusCompleted,
		Counterparty: listing.Seller,
		TxHash:       utils.MockTxHash(),
	})
	if err != nil {
		m.restore(listing)
		return nil, nil, err
	}

	nft, err := m.Store.AddCreditNFT(ctx, sess, models.CreditNFT{
		Title:       listing.Title,
		Description: listing.Description,
		Tier:        models.TierFromLabel(listing.Tier),
		Status:      models.NFTOwned,
	})
	if err != nil {
		return tx, nil, err
	}

	logger.WithFields(logrus.Fields{"account": acct.ID, "listing": listingID}).Info("🛒 [Marketplace] credit NFT bought")
	return tx, nft, nil
}

// CreatePowerTokenListing moves amount tokens out of the seller's balance
// into a new listing at the top of the book.
func (m *MarketplaceService) CreatePowerTokenListing(ctx context.Context, sess *Session, amount, price float64) (*models.Listing, error) {
	if amount <= 0 || price <= 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "amount and price must be positive", nil)
	}
	wallet := sess.Wallet()
	if wallet == "" {
		return nil, apperrors.New(apperrors.ErrWalletUnavailable, "please connect your wallet to create a listing", nil)
	}
	acct, err := m.Store.CurrentAccount(sess)
	if err != nil {
		return nil, err
	}
	if acct.Balance.Amount < amount {
		return nil, apperrors.New(apperrors.ErrInsufficientBalance,
			fmt.Sprintf("you need at least %s to create this listing", models.NewBalance(amount)), nil)
	}

	if _, err := m.Store.UpdateBalance(ctx, sess, acct.Balance.Add(-amount)); err != nil {
		return nil, err
	}
	if _, err := m.Store.RecordTransaction(ctx, sess, models.Transaction{
		Type:         models.TransactionSell,
		Amount:       amount,
		TokenKind:    models.TokenPower,
		Price:        price,
		Status:       models.StatusCompleted,
		Counterparty: "Marketplace",
		TxHash:       utils.MockTxHash(),
	}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	next := 1
	for _, l := range m.power {
		if l.ID >= next {
			next = l.ID + 1
		}
	}
	listing := models.Listing{
		ID:        next,
		Kind:      models.ListingPowerToken,
		Seller:    utils.ShortAddress(wallet),
		Amount:    amount,
		Price:     price,
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}
	m.power = append([]models.Listing{listing}, m.power...)
	m.mu.Unlock()

	logger.WithFields(logrus.Fields{"account": acct.ID, "listing": listing.ID, "amount": amount}).Info("📢 [Marketplace] listing created")
	return &listing, nil
}

// Checkout prices the cart, waits the processing delay and returns a
// receipt. It needs a connected wallet and honours ctx cancellation.
func (m *MarketplaceService) Checkout(ctx context.Context, sess *Session, items []CartItem) (*Receipt, error) {
	wallet := sess.Wallet()
	if wallet == "" {
		return nil, apperrors.New(apperrors.ErrWalletUnavailable, "please connect your wallet to complete the purchase", nil)
	}
	if len(items) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "cart is empty", nil)
	}

	prices := make(map[models.ListingKind]map[int]float64)
	for _, l := range m.Listings("") {
		if prices[l.Kind] == nil {
			prices[l.Kind] = make(map[int]float64)
		}
		prices[l.Kind][l.ID] = l.Price
	}

	subtotal := 0.0
	for i, item := range items {
		if item.Kind == "" {
			items[i].Kind = models.ListingPowerToken
			item.Kind = models.ListingPowerToken
		}
		if item.Quantity < 1 {
			return nil, apperrors.New(apperrors.ErrInvalidInput, "quantity must be at least 1", nil)
		}
		price, ok := prices[item.Kind][item.ListingID]
		if !ok {
			return nil, apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("listing %d not found", item.ListingID), nil)
		}
		subtotal += price * float64(item.Quantity)
	}

	if m.CheckoutDelay > 0 {
		timer := time.NewTimer(m.CheckoutDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fees := subtotal * checkoutFeeRate
	return &Receipt{
		Items:       items,
		Subtotal:    subtotal,
		Fees:        fees,
		Total:       subtotal + fees,
		Wallet:      wallet,
		CompletedAt: time.Now().UTC(),
	}, nil
}
