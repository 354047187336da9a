// services/session_store.go
package services

import (
	"context"
	"math"
	"power-token-exchange/apperrors"
	"power-token-exchange/logger"
	"power-token-exchange/models"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errRemoteNotConfigured = apperrors.New(apperrors.ErrRemoteUnavailable, "remote backend not configured", nil)

// Store resolves every identity, balance and record operation against the
// backend selected by the session's mode.
type Store struct {
	remote          Backend
	local           Backend
	startingBalance models.Balance
}

// NewStore wires the two backends. remote may be nil, in which case every
// session ends up in ModeLocal on its first establishing call.
func NewStore(remote, local Backend, startingBalance models.Balance) *Store {
	return &Store{
		remote:          remote,
		local:           local,
		startingBalance: startingBalance,
	}
}

func (s *Store) StartingBalance() models.Balance {
	return s.startingBalance
}

func (s *Store) backendFor(sess *Session) (Backend, error) {
	if sess.Mode() == ModeLocal {
		return s.local, nil
	}
	if s.remote == nil {
		return nil, errRemoteNotConfigured
	}
	return s.remote, nil
}

func (s *Store) demote(sess *Session, op string, cause error) {
	if sess.demote() {
		logger.WithFields(logrus.Fields{
			"session": sess.ID,
			"op":      op,
			"error":   cause,
		}).Warn("⚠️ [Store] remote backend failed, session switched to local mode")
	}
}

// InitializeSession restores the account behind remoteToken, or the
// session's own remote login when no token is given. A remote session that
// is signed in is never switched to the local account. The local store is
// consulted when the remote call fails or there is nothing to restore.
func (s *Store) InitializeSession(ctx context.Context, sess *Session, remoteToken string) (*models.Account, error) {
	if sess.Mode() == ModeRemote && remoteToken == "" {
		remoteToken = sess.RemoteToken()
		if remoteToken == "" && sess.Account() != nil {
			return sess.Account(), nil
		}
	}
	if sess.Mode() == ModeRemote && remoteToken != "" {
		if s.remote == nil {
			s.demote(sess, "initialize", errRemoteNotConfigured)
		} else {
			acct, err := s.remote.Restore(ctx, remoteToken)
			if err == nil {
				sess.setAccount(acct, remoteToken)
				return sess.Account(), nil
			}
			s.demote(sess, "initialize", err)
		}
	}

	acct, err := s.local.Restore(ctx, "")
	if err != nil {
		return nil, err
	}
	if acct != nil {
		sess.demote()
	}
	sess.setAccount(acct, "")
	return sess.Account(), nil
}

// RegisterAccount creates a new account with the starting balance. A remote
// failure demotes the session and the account is created locally instead.
func (s *Store) RegisterAccount(ctx context.Context, sess *Session, name, email, password string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "name and email are required", nil)
	}

	if sess.Mode() == ModeRemote {
		if s.remote == nil {
			s.demote(sess, "register", errRemoteNotConfigured)
		} else {
			acct, token, err := s.remote.CreateAccount(ctx, name, email, password, s.startingBalance)
			if err == nil {
				sess.setAccount(acct, token)
				logger.WithFields(logrus.Fields{"account": acct.ID, "mode": ModeRemote}).Info("✅ [Store] account registered")
				return sess.Account(), nil
			}
			s.demote(sess, "register", err)
		}
	}

	acct, _, err := s.local.CreateAccount(ctx, name, email, password, s.startingBalance)
	if err != nil {
		return nil, err
	}
	sess.setAccount(acct, "")
	logger.WithFields(logrus.Fields{"account": acct.ID, "mode": ModeLocal}).Info("✅ [Store] account registered")
	return sess.Account(), nil
}

// Authenticate signs in remotely, or on failure matches the local account.
func (s *Store) Authenticate(ctx context.Context, sess *Session, email, password string) (*models.Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.New(apperrors.ErrInvalidCredentials, "email is required", nil)
	}

	if sess.Mode() == ModeRemote {
		if s.remote == nil {
			s.demote(sess, "authenticate", errRemoteNotConfigured)
		} else {
			acct, token, err := s.remote.SignIn(ctx, email, password)
			if err == nil {
				sess.setAccount(acct, token)
				return sess.Account(), nil
			}
			s.demote(sess, "authenticate", err)
		}
	}

	acct, _, err := s.local.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	sess.setAccount(acct, "")
	return sess.Account(), nil
}

// SignOut clears the session's account. Remote sign-out errors are logged only.
func (s *Store) SignOut(ctx context.Context, sess *Session) {
	if sess.Mode() == ModeRemote && s.remote != nil && sess.RemoteToken() != "" {
		if err := s.remote.SignOut(ctx, sess.RemoteToken()); err != nil {
			logger.WithFields(logrus.Fields{"session": sess.ID, "error": err}).Warn("⚠️ [Store] remote sign-out failed")
		}
	}
	sess.clear()
}

// CurrentAccount returns the cached account or NO_SESSION.
func (s *Store) CurrentAccount(sess *Session) (*models.Account, error) {
	acct := sess.Account()
	if acct == nil {
		return nil, apperrors.New(apperrors.ErrNoSession, "no account in session", nil)
	}
	return acct, nil
}

// Account re-reads the session's account from the active backend.
// The fresh copy is dropped when the session signed out or its account was
// written while the read was in flight.
func (s *Store) Account(ctx context.Context, sess *Session) (*models.Account, error) {
	cur, version := sess.accountSnapshot()
	if cur == nil {
		return nil, apperrors.New(apperrors.ErrNoSession, "no account in session", nil)
	}
	backend, err := s.backendFor(sess)
	if err != nil {
		return nil, err
	}
	acct, err := backend.GetAccount(ctx, cur.ID)
	if err != nil {
		return nil, err
	}
	if !sess.refreshAccount(acct, version) {
		return s.CurrentAccount(sess)
	}
	return sess.Account(), nil
}

func (s *Store) LinkWallet(ctx context.Context, sess *Session, address string) (*models.Account, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "wallet address is required", nil)
	}
	acct, backend, err := s.active(sess)
	if err != nil {
		return nil, err
	}
	if err := backend.SetWallet(ctx, acct.ID, address); err != nil {
		return nil, err
	}
	sess.updateAccount(func(a *models.Account) { a.WalletAddress = address })
	sess.setWallet(address)
	return sess.Account(), nil
}

// UpdateBalance overwrites the balance. Concurrent writers race; the last
// completed write wins.
func (s *Store) UpdateBalance(ctx context.Context, sess *Session, balance models.Balance) (*models.Account, error) {
	if balance.Amount < 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "balance cannot be negative", nil)
	}
	if math.IsNaN(balance.Amount) || math.IsInf(balance.Amount, 0) {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "balance must be finite", nil)
	}
	if balance.Unit == "" {
		balance.Unit = models.TokenUnit
	}
	if balance.Unit != models.TokenUnit {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "balance unit must be "+models.TokenUnit, nil)
	}
	acct, backend, err := s.active(sess)
	if err != nil {
		return nil, err
	}
	if err := backend.SetBalance(ctx, acct.ID, balance); err != nil {
		return nil, err
	}
	sess.updateAccount(func(a *models.Account) { a.Balance = balance })
	return sess.Account(), nil
}

// RecordTransaction appends tx to the account's ledger. ID, timestamp and
// status are filled in when empty.
func (s *Store) RecordTransaction(ctx context.Context, sess *Session, tx models.Transaction) (*models.Transaction, error) {
	acct, backend, err := s.active(sess)
	if err != nil {
		return nil, err
	}
	if tx.AccountID == "" {
		tx.AccountID = acct.ID
	}
	if tx.AccountID != acct.ID {
		return nil, apperrors.New(apperrors.ErrForbidden, "transaction belongs to another account", nil)
	}
	if tx.TokenKind == "" {
		tx.TokenKind = models.TokenPower
	}
	if !tx.Type.Valid() || !tx.TokenKind.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "invalid transaction type or token kind", nil)
	}
	if tx.Amount <= 0 || tx.Price < 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "amount must be positive and price non-negative", nil)
	}
	if tx.Status == "" {
		tx.Status = models.StatusCompleted
	}
	if !tx.Status.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "invalid transaction status", nil)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	if err := backend.AppendTransaction(ctx, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, sess *Session, accountID string) ([]models.Transaction, error) {
	backend, err := s.owned(sess, accountID)
	if err != nil {
		return nil, err
	}
	return backend.Transactions(ctx, accountID)
}

func (s *Store) ListRewards(ctx context.Context, sess *Session, accountID string) ([]models.Reward, error) {
	backend, err := s.owned(sess, accountID)
	if err != nil {
		return nil, err
	}
	return backend.Rewards(ctx, accountID)
}

func (s *Store) ListCreditNFTs(ctx context.Context, sess *Session, accountID string) ([]models.CreditNFT, error) {
	backend, err := s.owned(sess, accountID)
	if err != nil {
		return nil, err
	}
	return backend.CreditNFTs(ctx, accountID)
}

// AddReward appends a reward to the current account.
func (s *Store) AddReward(ctx context.Context, sess *Session, reward models.Reward) (*models.Reward, error) {
	acct, backend, err := s.active(sess)
	if err != nil {
		return nil, err
	}
	if reward.Title == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "reward title is required", nil)
	}
	if reward.Progress < 0 || reward.Progress > 100 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "progress must be between 0 and 100", nil)
	}
	if reward.ID == "" {
		reward.ID = uuid.NewString()
	}
	if reward.Timestamp.IsZero() {
		reward.Timestamp = time.Now().UTC()
	}
	reward.AccountID = acct.ID
	if err := backend.AppendReward(ctx, &reward); err != nil {
		return nil, err
	}
	return &reward, nil
}

// ClaimReward marks the reward claimed and awards one Credit-NFT. Claiming an
// already claimed reward returns it with a nil NFT. The flag update and the
// NFT insert are two separate writes.
func (s *Store) ClaimReward(ctx context.Context, sess *Session, rewardID, accountID string) (*models.Reward, *models.CreditNFT, error) {
	backend, err := s.owned(sess, accountID)
	if err != nil {
		return nil, nil, err
	}

	reward, transitioned, err := backend.MarkRewardClaimed(ctx, rewardID, accountID)
	if err != nil {
		return nil, nil, err
	}
	if !transitioned {
		return reward, nil, nil
	}

	nft := models.CreditNFT{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Title:       reward.RewardType + " - Reward",
		Description: `This NFT was awarded for completing the "` + reward.Title + `" achievement.`,
		Tier:        models.TierFromLabel(reward.RewardType),
		AcquiredAt:  time.Now().UTC(),
		Status:      models.NFTOwned,
	}
	if err := backend.AppendCreditNFT(ctx, &nft); err != nil {
		logger.WithFields(logrus.Fields{"reward": rewardID, "error": err}).Error("❌ [Store] reward claimed but NFT insert failed")
		return reward, nil, err
	}
	return reward, &nft, nil
}

// AddCreditNFT appends an NFT to the current account.
func (s *Store) AddCreditNFT(ctx context.Context, sess *Session, nft models.CreditNFT) (*models.CreditNFT, error) {
	acct, backend, err := s.active(sess)
	if err != nil {
		return nil, err
	}
	if nft.ID == "" {
		nft.ID = uuid.NewString()
	}
	if nft.AcquiredAt.IsZero() {
		nft.AcquiredAt = time.Now().UTC()
	}
	if nft.Status == "" {
		nft.Status = models.NFTOwned
	}
	if nft.Tier == "" {
		nft.Tier = models.TierSpecial
	}
	nft.AccountID = acct.ID
	if err := backend.AppendCreditNFT(ctx, &nft); err != nil {
		return nil, err
	}
	return &nft, nil
}

// RecordMint stores the on-chain token URI and mint tx hash on an NFT.
func (s *Store) RecordMint(ctx context.Context, sess *Session, nftID, tokenURI, txHash string) error {
	acct, backend, err := s.active(sess)
	if err != nil {
		return err
	}
	return backend.SetCreditNFTMint(ctx, acct.ID, nftID, tokenURI, txHash)
}

// SeedDemoData fills an empty local store with the demo account and its
// records. It is a no-op when a local account already exists.
func (s *Store) SeedDemoData(ctx context.Context) error {
	seeder, ok := s.local.(interface {
		SeedDemo(ctx context.Context, balance models.Balance) (bool, error)
	})
	if !ok {
		return nil
	}
	seeded, err := seeder.SeedDemo(ctx, s.startingBalance)
	if err != nil {
		return err
	}
	if seeded {
		logger.Info("🌱 [Store] demo data seeded into local store")
	}
	return nil
}

func (s *Store) active(sess *Session) (*models.Account, Backend, error) {
	acct, err := s.CurrentAccount(sess)
	if err != nil {
		return nil, nil, err
	}
	backend, err := s.backendFor(sess)
	if err != nil {
		return nil, nil, err
	}
	return acct, backend, nil
}

func (s *Store) owned(sess *Session, accountID string) (Backend, error) {
	acct, backend, err := s.active(sess)
	if err != nil {
		return nil, err
	}
	if accountID != acct.ID {
		return nil, apperrors.New(apperrors.ErrForbidden, "account does not belong to session", nil)
	}
	return backend, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
