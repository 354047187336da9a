package services

import (
	"context"
	"sync"

	"power-token-exchange/apperrors"
	"power-token-exchange/models"

	"github.com/google/uuid"
)

// fakeRemote is an in-memory Backend standing in for the hosted services.
// With fail set every call returns REMOTE_UNAVAILABLE.
type fakeRemote struct {
	mu       sync.Mutex
	fail     bool
	calls    int
	accounts map[string]*models.Account
	tokens   map[string]string
	txs      []models.Transaction
	rewards  []models.Reward
	nfts     []models.CreditNFT
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		accounts: make(map[string]*models.Account),
		tokens:   make(map[string]string),
	}
}

var errFakeDown = apperrors.New(apperrors.ErrRemoteUnavailable, "remote down", nil)

func (f *fakeRemote) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) enter() error {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errFakeDown
	}
	return nil
}

func (f *fakeRemote) accountsByEmail(email string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.accounts {
		if a.Email == email {
			n++
		}
	}
	return n
}

func (f *fakeRemote) Name() string { return "fake-remote" }

func (f *fakeRemote) CreateAccount(ctx context.Context, name, email, password string, balance models.Balance) (*models.Account, string, error) {
	if err := f.enter(); err != nil {
		return nil, "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return nil, "", apperrors.New(apperrors.ErrDuplicateAccount, "exists", nil)
		}
	}
	acct := &models.Account{ID: uuid.NewString(), Name: name, Email: email, Balance: balance}
	f.accounts[acct.ID] = acct
	token := "tok-" + acct.ID
	f.tokens[token] = acct.ID
	cp := *acct
	return &cp, token, nil
}

func (f *fakeRemote) SignIn(ctx context.Context, email, password string) (*models.Account, string, error) {
	if err := f.enter(); err != nil {
		return nil, "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, "tok-" + a.ID, nil
		}
	}
	return nil, "", apperrors.New(apperrors.ErrRemoteRejected, "invalid login", nil)
}

func (f *fakeRemote) Restore(ctx context.Context, token string) (*models.Account, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	id, ok := f.tokens[token]
	f.mu.Unlock()
	if !ok {
		return nil, apperrors.New(apperrors.ErrRemoteRejected, "bad token", nil)
	}
	return f.GetAccount(ctx, id)
}

func (f *fakeRemote) SignOut(ctx context.Context, token string) error {
	return f.enter()
}

func (f *fakeRemote) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "no profile", nil)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRemote) SetWallet(ctx context.Context, accountID, address string) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[accountID].WalletAddress = address
	return nil
}

func (f *fakeRemote) SetBalance(ctx context.Context, accountID string, balance models.Balance) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[accountID].Balance = balance
	return nil
}

func (f *fakeRemote) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, *tx)
	return nil
}

func (f *fakeRemote) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for i := len(f.txs) - 1; i >= 0; i-- {
		if f.txs[i].AccountID == accountID {
			out = append(out, f.txs[i])
		}
	}
	return out, nil
}

func (f *fakeRemote) AppendReward(ctx context.Context, reward *models.Reward) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewards = append(f.rewards, *reward)
	return nil
}

func (f *fakeRemote) Rewards(ctx context.Context, accountID string) ([]models.Reward, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reward
	for _, r := range f.rewards {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRemote) MarkRewardClaimed(ctx context.Context, rewardID, accountID string) (*models.Reward, bool, error) {
	if err := f.enter(); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rewards {
		r := &f.rewards[i]
		if r.ID == rewardID && r.AccountID == accountID {
			transitioned := !r.Claimed
			r.Claimed = true
			cp := *r
			return &cp, transitioned, nil
		}
	}
	return nil, false, apperrors.New(apperrors.ErrNotFound, "reward not found", nil)
}

func (f *fakeRemote) AppendCreditNFT(ctx context.Context, nft *models.CreditNFT) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nfts = append(f.nfts, *nft)
	return nil
}

func (f *fakeRemote) CreditNFTs(ctx context.Context, accountID string) ([]models.CreditNFT, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CreditNFT
	for _, n := range f.nfts {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeRemote) SetCreditNFTMint(ctx context.Context, accountID, nftID, tokenURI, txHash string) error {
	if err := f.enter(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.nfts {
		if f.nfts[i].ID == nftID && f.nfts[i].AccountID == accountID {
			f.nfts[i].TokenURI = tokenURI
			f.nfts[i].MintTxHash = txHash
			return nil
		}
	}
	return apperrors.New(apperrors.ErrNotFound, "nft not found", nil)
}
