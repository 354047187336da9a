// services/local_backend.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"power-token-exchange/apperrors"
	"power-token-exchange/models"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Fixed keys of the local fallback store. Each holds one JSON document.
const (
	keyUser         = "eco_power_user"
	keyTransactions = "eco_power_transactions"
	keyRewards      = "eco_power_rewards"
	keyNFTs         = "eco_power_nfts"
)

// localUser is the on-disk shape of the single local account. The balance is
// kept as text ("1000 PT").
type localUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Address      string `json:"address,omitempty"`
	Balance      string `json:"balance"`
	IsAdmin      bool   `json:"isAdmin"`
	PasswordHash string `json:"password_hash,omitempty"`
}

type localTransaction struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	TransactionType string  `json:"transaction_type"`
	Amount          float64 `json:"amount"`
	TokenType       string  `json:"token_type"`
	TokenID         string  `json:"token_id,omitempty"`
	Price           float64 `json:"price"`
	Timestamp       string  `json:"timestamp"`
	Status          string  `json:"status"`
	Counterparty    string  `json:"counterparty,omitempty"`
	TxHash          string  `json:"tx_hash,omitempty"`
}

type localReward struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Progress    int    `json:"progress"`
	RewardType  string `json:"reward_type"`
	Claimed     bool   `json:"claimed"`
	Timestamp   string `json:"timestamp"`
}

type localNFT struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Type               string  `json:"type"`
	Date               string  `json:"date"`
	CarbonOffsetAmount float64 `json:"carbon_offset_amount,omitempty"`
	Status             string  `json:"nft_status,omitempty"`
	TokenURI           string  `json:"token_uri,omitempty"`
	MintTxHash         string  `json:"mint_tx_hash,omitempty"`
}

// LocalBackend is the unauthenticated fallback store. It holds a single
// account plus flat lists of records filtered by account id. Writes are
// serialised so read-modify-write cycles on a document never conflict.
type LocalBackend struct {
	db *badger.DB
	mu sync.Mutex
}

// OpenLocalBackend opens the badger store at path. An empty path opens an
// in-memory store.
func OpenLocalBackend(path string) (*LocalBackend, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrLocalStore, "failed to open local store", err)
	}
	return &LocalBackend{db: db}, nil
}

func (b *LocalBackend) Close() error {
	return b.db.Close()
}

func (b *LocalBackend) Name() string { return string(ModeLocal) }

// --- key helpers ---

func readJSON(txn *badger.Txn, key string, out interface{}) (bool, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
	return err == nil, err
}

func writeJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func (b *LocalBackend) view(fn func(txn *badger.Txn) error) error {
	if err := b.db.View(fn); err != nil {
		return wrapLocal(err)
	}
	return nil
}

func (b *LocalBackend) update(fn func(txn *badger.Txn) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.db.Update(fn); err != nil {
		return wrapLocal(err)
	}
	return nil
}

func wrapLocal(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.New(apperrors.ErrLocalStore, "local store operation failed", err)
}

func (b *LocalBackend) loadUser(txn *badger.Txn) (*localUser, error) {
	var user localUser
	found, err := readJSON(txn, keyUser, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// --- accounts ---

func (b *LocalBackend) CreateAccount(ctx context.Context, name, email, password string, balance models.Balance) (*models.Account, string, error) {
	user := localUser{
		ID:      uuid.NewString(),
		Name:    name,
		Email:   email,
		Balance: balance.String(),
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, "", apperrors.New(apperrors.ErrLocalStore, "failed to hash password", err)
		}
		user.PasswordHash = string(hash)
	}

	err := b.update(func(txn *badger.Txn) error {
		return writeJSON(txn, keyUser, user)
	})
	if err != nil {
		return nil, "", err
	}
	acct, err := user.toAccount()
	return acct, "", err
}

// SignIn matches the stored account by email. The password is only checked
// when the account was registered with one.
func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (*models.Account, string, error) {
	var user *localUser
	err := b.view(func(txn *badger.Txn) error {
		var err error
		user, err = b.loadUser(txn)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	if user == nil || normalizeEmail(user.Email) != email {
		return nil, "", apperrors.New(apperrors.ErrInvalidCredentials, "no local account for this email", nil)
	}
	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return nil, "", apperrors.New(apperrors.ErrInvalidCredentials, "invalid password", nil)
		}
	}
	acct, err := user.toAccount()
	return acct, "", err
}

// Restore returns the stored account, if any. The token is ignored.
func (b *LocalBackend) Restore(ctx context.Context, _ string) (*models.Account, error) {
	var user *localUser
	err := b.view(func(txn *badger.Txn) error {
		var err error
		user, err = b.loadUser(txn)
		return err
	})
	if err != nil || user == nil {
		return nil, err
	}
	return user.toAccount()
}

func (b *LocalBackend) SignOut(ctx context.Context, _ string) error {
	return nil
}

func (b *LocalBackend) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	acct, err := b.Restore(ctx, "")
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.ID != accountID {
		return nil, apperrors.New(apperrors.ErrNotFound, "account not found", nil)
	}
	return acct, nil
}

func (b *LocalBackend) modifyUser(accountID string, fn func(u *localUser)) error {
	return b.update(func(txn *badger.Txn) error {
		user, err := b.loadUser(txn)
		if err != nil {
			return err
		}
		if user == nil || user.ID != accountID {
			return apperrors.New(apperrors.ErrNotFound, "account not found", nil)
		}
		fn(user)
		return writeJSON(txn, keyUser, user)
	})
}

func (b *LocalBackend) SetWallet(ctx context.Context, accountID, address string) error {
	return b.modifyUser(accountID, func(u *localUser) { u.Address = address })
}

func (b *LocalBackend) SetBalance(ctx context.Context, accountID string, balance models.Balance) error {
	return b.modifyUser(accountID, func(u *localUser) { u.Balance = balance.String() })
}

// --- transactions ---

func (b *LocalBackend) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	return b.update(func(txn *badger.Txn) error {
		user, err := b.loadUser(txn)
		if err != nil {
			return err
		}
		if user == nil || user.ID != tx.AccountID {
			return apperrors.New(apperrors.ErrNotFound, "transaction account does not exist", nil)
		}
		var all []localTransaction
		if _, err := readJSON(txn, keyTransactions, &all); err != nil {
			return err
		}
		all = append(all, toLocalTransaction(tx))
		return writeJSON(txn, keyTransactions, all)
	})
}

func (b *LocalBackend) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	var all []localTransaction
	if err := b.view(func(txn *badger.Txn) error {
		_, err := readJSON(txn, keyTransactions, &all)
		return err
	}); err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(all))
	for _, t := range all {
		if t.UserID == accountID {
			out = append(out, t.toModel())
		}
	}
	return out, nil
}

// --- rewards ---

func (b *LocalBackend) AppendReward(ctx context.Context, reward *models.Reward) error {
	return b.update(func(txn *badger.Txn) error {
		var all []localReward
		if _, err := readJSON(txn, keyRewards, &all); err != nil {
			return err
		}
		all = append(all, toLocalReward(reward))
		return writeJSON(txn, keyRewards, all)
	})
}

func (b *LocalBackend) Rewards(ctx context.Context, accountID string) ([]models.Reward, error) {
	var all []localReward
	if err := b.view(func(txn *badger.Txn) error {
		_, err := readJSON(txn, keyRewards, &all)
		return err
	}); err != nil {
		return nil, err
	}
	out := make([]models.Reward, 0, len(all))
	for _, r := range all {
		if r.UserID == accountID {
			out = append(out, r.toModel())
		}
	}
	return out, nil
}

func (b *LocalBackend) MarkRewardClaimed(ctx context.Context, rewardID, accountID string) (*models.Reward, bool, error) {
	var (
		claimed      models.Reward
		found        bool
		transitioned bool
	)
	err := b.update(func(txn *badger.Txn) error {
		var all []localReward
		if _, err := readJSON(txn, keyRewards, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID != rewardID || all[i].UserID != accountID {
				continue
			}
			found = true
			if !all[i].Claimed {
				all[i].Claimed = true
				transitioned = true
			}
			claimed = all[i].toModel()
			break
		}
		if !found {
			return apperrors.New(apperrors.ErrNotFound, "reward not found", nil)
		}
		if !transitioned {
			return nil
		}
		return writeJSON(txn, keyRewards, all)
	})
	if err != nil {
		return nil, false, err
	}
	return &claimed, transitioned, nil
}

// --- credit NFTs ---

func (b *LocalBackend) AppendCreditNFT(ctx context.Context, nft *models.CreditNFT) error {
	return b.update(func(txn *badger.Txn) error {
		var all []localNFT
		if _, err := readJSON(txn, keyNFTs, &all); err != nil {
			return err
		}
		all = append(all, toLocalNFT(nft))
		return writeJSON(txn, keyNFTs, all)
	})
}

func (b *LocalBackend) CreditNFTs(ctx context.Context, accountID string) ([]models.CreditNFT, error) {
	var all []localNFT
	if err := b.view(func(txn *badger.Txn) error {
		_, err := readJSON(txn, keyNFTs, &all)
		return err
	}); err != nil {
		return nil, err
	}
	out := make([]models.CreditNFT, 0, len(all))
	for _, n := range all {
		if n.UserID == accountID {
			out = append(out, n.toModel())
		}
	}
	return out, nil
}

func (b *LocalBackend) SetCreditNFTMint(ctx context.Context, accountID, nftID, tokenURI, txHash string) error {
	return b.update(func(txn *badger.Txn) error {
		var all []localNFT
		if _, err := readJSON(txn, keyNFTs, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID == nftID && all[i].UserID == accountID {
				all[i].TokenURI = tokenURI
				all[i].MintTxHash = txHash
				return writeJSON(txn, keyNFTs, all)
			}
		}
		return apperrors.New(apperrors.ErrNotFound, "nft not found", nil)
	})
}

// SeedDemo writes the demo account and its records when no local account
// exists yet. Reports whether anything was written.
func (b *LocalBackend) SeedDemo(ctx context.Context, balance models.Balance) (bool, error) {
	seeded := false
	err := b.update(func(txn *badger.Txn) error {
		user, err := b.loadUser(txn)
		if err != nil || user != nil {
			return err
		}
		data := demoData(time.Now().UTC(), balance)
		if err := writeJSON(txn, keyUser, data.user); err != nil {
			return err
		}
		if err := writeJSON(txn, keyTransactions, data.transactions); err != nil {
			return err
		}
		if err := writeJSON(txn, keyRewards, data.rewards); err != nil {
			return err
		}
		if err := writeJSON(txn, keyNFTs, data.nfts); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	return seeded, err
}

// --- adapters ---

func (u *localUser) toAccount() (*models.Account, error) {
	balance, err := models.ParseBalance(u.Balance)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrLocalStore, "stored balance is malformed", err)
	}
	return &models.Account{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		WalletAddress: u.Address,
		Balance:       balance,
		IsAdmin:       u.IsAdmin,
	}, nil
}

func toLocalTransaction(tx *models.Transaction) localTransaction {
	return localTransaction{
		ID:              tx.ID,
		UserID:          tx.AccountID,
		TransactionType: string(tx.Type),
		Amount:          tx.Amount,
		TokenType:       string(tx.TokenKind),
		TokenID:         tx.TokenID,
		Price:           tx.Price,
		Timestamp:       tx.Timestamp.UTC().Format(time.RFC3339Nano),
		Status:          string(tx.Status),
		Counterparty:    tx.Counterparty,
		TxHash:          tx.TxHash,
	}
}

func (t localTransaction) toModel() models.Transaction {
	ts, _ := time.Parse(time.RFC3339Nano, t.Timestamp)
	return models.Transaction{
		ID:           t.ID,
		AccountID:    t.UserID,
		Type:         models.TransactionType(t.TransactionType),
		Amount:       t.Amount,
		TokenKind:    models.TokenKind(t.TokenType),
		TokenID:      t.TokenID,
		Price:        t.Price,
		Timestamp:    ts,
		Status:       models.TransactionStatus(t.Status),
		Counterparty: t.Counterparty,
		TxHash:       t.TxHash,
	}
}

func toLocalReward(r *models.Reward) localReward {
	return localReward{
		ID:          r.ID,
		UserID:      r.AccountID,
		Title:       r.Title,
		Description: r.Description,
		Progress:    r.Progress,
		RewardType:  r.RewardType,
		Claimed:     r.Claimed,
		Timestamp:   r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func (r localReward) toModel() models.Reward {
	ts, _ := time.Parse(time.RFC3339Nano, r.Timestamp)
	return models.Reward{
		ID:          r.ID,
		AccountID:   r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Progress:    r.Progress,
		RewardType:  r.RewardType,
		Claimed:     r.Claimed,
		Timestamp:   ts,
	}
}

func toLocalNFT(n *models.CreditNFT) localNFT {
	return localNFT{
		ID:                 n.ID,
		UserID:             n.AccountID,
		Title:              n.Title,
		Description:        n.Description,
		Type:               string(n.Tier),
		Date:               n.AcquiredAt.UTC().Format(time.RFC3339),
		CarbonOffsetAmount: n.CarbonOffsetAmount,
		Status:             string(n.Status),
		TokenURI:           n.TokenURI,
		MintTxHash:         n.MintTxHash,
	}
}

func (n localNFT) toModel() models.CreditNFT {
	date, _ := time.Parse(time.RFC3339, n.Date)
	return models.CreditNFT{
		ID:                 n.ID,
		AccountID:          n.UserID,
		Title:              n.Title,
		Description:        n.Description,
		Tier:               models.NFTTier(n.Type),
		AcquiredAt:         date,
		CarbonOffsetAmount: n.CarbonOffsetAmount,
		Status:             models.NFTStatus(n.Status),
		TokenURI:           n.TokenURI,
		MintTxHash:         n.MintTxHash,
	}
}
