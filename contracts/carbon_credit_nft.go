// contracts/carbon_credit_nft.go
package contracts

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"power-token-exchange/apperrors"
	"power-token-exchange/logger"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Backend is what the binding needs from a chain client. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// OwnedToken is one NFT held by an address.
type OwnedToken struct {
	TokenID string `json:"id"`
	URI     string `json:"uri"`
}

// ChainListing is one marketplace listing stored on-chain.
type ChainListing struct {
	ID      int64  `json:"id"`
	Seller  string `json:"seller"`
	TokenID string `json:"token_id"`
	Price   string `json:"price"` // ether
	Active  bool   `json:"active"`
}

// CarbonCreditNFT is a typed binding over the deployed contract. Writes
// need a transactor; every write waits until mined and returns the tx hash.
type CarbonCreditNFT struct {
	Address  common.Address
	backend  Backend
	contract *bind.BoundContract
	auth     *bind.TransactOpts
}

func ParsedABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(CarbonCreditNFTABI))
}

// NewCarbonCreditNFT binds the contract at address. auth may be nil for a
// read-only binding.
func NewCarbonCreditNFT(address common.Address, backend Backend, auth *bind.TransactOpts) (*CarbonCreditNFT, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, apperrors.New(apperrors.ErrContractCall, "failed to parse contract ABI", err)
	}
	return &CarbonCreditNFT{
		Address:  address,
		backend:  backend,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		auth:     auth,
	}, nil
}

// Dial connects to rpcURL and binds the contract. A signer key enables writes.
func Dial(ctx context.Context, rpcURL, address, signerKeyHex string, chainID int64) (*CarbonCreditNFT, *ethclient.Client, error) {
	if !common.IsHexAddress(address) {
		return nil, nil, apperrors.New(apperrors.ErrInvalidInput, fmt.Sprintf("invalid contract address %q", address), nil)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, apperrors.New(apperrors.ErrContractCall, fmt.Sprintf("failed to connect RPC: %s", rpcURL), err)
	}

	var auth *bind.TransactOpts
	if signerKeyHex != "" {
		auth, err = NewTransactor(signerKeyHex, chainID)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
	}

	nft, err := NewCarbonCreditNFT(common.HexToAddress(address), client, auth)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return nft, client, nil
}

// NewTransactor builds signing options from a hex private key.
func NewTransactor(keyHex string, chainID int64) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrConfigLoad, "invalid signer private key", err)
	}
	return transactorFromKey(key, chainID)
}

func transactorFromKey(key *ecdsa.PrivateKey, chainID int64) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrConfigLoad, "failed to build transactor", err)
	}
	return auth, nil
}

// Signer returns the address writes are sent from, or the zero address for
// a read-only binding.
func (c *CarbonCreditNFT) Signer() common.Address {
	if c.auth == nil {
		return common.Address{}
	}
	return c.auth.From
}

// --- reads ---

func (c *CarbonCreditNFT) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, apperrors.New(apperrors.ErrContractCall, method+" failed", err)
	}
	return out, nil
}

func (c *CarbonCreditNFT) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *CarbonCreditNFT) TokenOfOwnerByIndex(ctx context.Context, owner common.Address, index *big.Int) (*big.Int, error) {
	out, err := c.call(ctx, "tokenOfOwnerByIndex", owner, index)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *CarbonCreditNFT) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	out, err := c.call(ctx, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (c *CarbonCreditNFT) ListingCount(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, "getListingCount")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *CarbonCreditNFT) Listing(ctx context.Context, id int64) (*ChainListing, error) {
	out, err := c.call(ctx, "getListing", big.NewInt(id))
	if err != nil {
		return nil, err
	}
	seller := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	tokenID := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	price := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	active := *abi.ConvertType(out[3], new(bool)).(*bool)
	return &ChainListing{
		ID:      id,
		Seller:  seller.Hex(),
		TokenID: tokenID.String(),
		Price:   FormatEther(price),
		Active:  active,
	}, nil
}

// OwnedTokens enumerates every NFT held by owner with its token URI.
func (c *CarbonCreditNFT) OwnedTokens(ctx context.Context, owner common.Address) ([]OwnedToken, error) {
	count, err := c.BalanceOf(ctx, owner)
	if err != nil {
		return nil, err
	}
	tokens := make([]OwnedToken, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		id, err := c.TokenOfOwnerByIndex(ctx, owner, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		uri, err := c.TokenURI(ctx, id)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, OwnedToken{TokenID: id.String(), URI: uri})
	}
	return tokens, nil
}

// Listings reads every on-chain listing.
func (c *CarbonCreditNFT) Listings(ctx context.Context) ([]ChainListing, error) {
	count, err := c.ListingCount(ctx)
	if err != nil {
		return nil, err
	}
	listings := make([]ChainListing, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		l, err := c.Listing(ctx, i)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, nil
}

// --- writes ---

func (c *CarbonCreditNFT) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (string, error) {
	if c.auth == nil {
		return "", apperrors.New(apperrors.ErrContractCall, "no signer configured for "+method, nil)
	}
	opts := *c.auth
	opts.Context = ctx
	opts.Value = value

	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		return "", apperrors.New(apperrors.ErrContractCall, method+" failed", err)
	}
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return "", apperrors.New(apperrors.ErrContractCall, method+" was not mined", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", apperrors.New(apperrors.ErrContractCall, method+" reverted", fmt.Errorf("tx %s", tx.Hash().Hex()))
	}

	logger.WithFields(logrus.Fields{
		"method": method,
		"tx":     tx.Hash().Hex(),
		"block":  receipt.BlockNumber,
	}).Info("⛓️ [Contract] transaction mined")
	return tx.Hash().Hex(), nil
}

// MintNFT mints a new token with tokenURI to the signer.
func (c *CarbonCreditNFT) MintNFT(ctx context.Context, tokenURI string) (string, error) {
	return c.transact(ctx, nil, "mintNFT", tokenURI)
}

// TransferNFT moves tokenID from the signer to to.
func (c *CarbonCreditNFT) TransferNFT(ctx context.Context, to common.Address, tokenID *big.Int) (string, error) {
	return c.transact(ctx, nil, "transferFrom", c.Signer(), to, tokenID)
}

// BuyTokens pays 0.01 ETH per token.
func (c *CarbonCreditNFT) BuyTokens(ctx context.Context, amount int64) (string, error) {
	if amount <= 0 {
		return "", apperrors.New(apperrors.ErrInvalidInput, "amount must be positive", nil)
	}
	return c.transact(ctx, TokenCost(amount), "buyTokens")
}

func (c *CarbonCreditNFT) SellTokens(ctx context.Context, amount int64) (string, error) {
	if amount <= 0 {
		return "", apperrors.New(apperrors.ErrInvalidInput, "amount must be positive", nil)
	}
	return c.transact(ctx, nil, "sellTokens", big.NewInt(amount))
}

// CreateListing lists tokenID at priceEther.
func (c *CarbonCreditNFT) CreateListing(ctx context.Context, tokenID *big.Int, priceEther string) (string, error) {
	price, err := ParseEther(priceEther)
	if err != nil {
		return "", apperrors.New(apperrors.ErrInvalidInput, "invalid price", err)
	}
	return c.transact(ctx, nil, "createListing", tokenID, price)
}

// BuyItem buys listingID, sending priceEther as value.
func (c *CarbonCreditNFT) BuyItem(ctx context.Context, listingID int64, priceEther string) (string, error) {
	price, err := ParseEther(priceEther)
	if err != nil {
		return "", apperrors.New(apperrors.ErrInvalidInput, "invalid price", err)
	}
	return c.transact(ctx, price, "buyItem", big.NewInt(listingID))
}
