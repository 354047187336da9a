package services

import (
	"context"

	"power-token-exchange/models"
)

// Backend is one persistence target of the Store. RemoteBackend talks to the
// hosted auth service and Postgres; LocalBackend keeps everything in an
// embedded key-value store. Both speak the canonical models.
type Backend interface {
	Name() string

	// CreateAccount registers and persists a new account. The returned token
	// is the backend's session token ("" for backends without one).
	CreateAccount(ctx context.Context, name, email, password string, balance models.Balance) (*models.Account, string, error)
	SignIn(ctx context.Context, email, password string) (*models.Account, string, error)
	// Restore returns the account behind an existing session token, or nil
	// when there is nothing to restore.
	Restore(ctx context.Context, token string) (*models.Account, error)
	SignOut(ctx context.Context, token string) error

	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	SetWallet(ctx context.Context, accountID, address string) error
	SetBalance(ctx context.Context, accountID string, balance models.Balance) error

	AppendTransaction(ctx context.Context, tx *models.Transaction) error
	Transactions(ctx context.Context, accountID string) ([]models.Transaction, error)

	AppendReward(ctx context.Context, reward *models.Reward) error
	Rewards(ctx context.Context, accountID string) ([]models.Reward, error)
	// MarkRewardClaimed flips claimed to true. The bool reports whether this
	// call performed the transition.
	MarkRewardClaimed(ctx context.Context, rewardID, accountID string) (*models.Reward, bool, error)

	AppendCreditNFT(ctx context.Context, nft *models.CreditNFT) error
	CreditNFTs(ctx context.Context, accountID string) ([]models.CreditNFT, error)
	SetCreditNFTMint(ctx context.Context, accountID, nftID, tokenURI, txHash string) error
}
