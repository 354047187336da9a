// services/wallet_service.go
package services

import (
	"context"
	"errors"
	"power-token-exchange/apperrors"
	"power-token-exchange/logger"
	"power-token-exchange/models"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// EIP-1193 "user rejected request".
const walletRejectedCode = 4001

// WalletProvider is the wallet extension stand-in: it hands out the
// accounts the user approved.
type WalletProvider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
}

// RPCWalletProvider talks to a wallet over JSON-RPC.
type RPCWalletProvider struct {
	client *rpc.Client
}

func DialWalletProvider(ctx context.Context, url string) (*RPCWalletProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrWalletUnavailable, "failed to dial wallet provider", err)
	}
	return &RPCWalletProvider{client: client}, nil
}

func (p *RPCWalletProvider) Close() {
	p.client.Close()
}

func (p *RPCWalletProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return p.call(ctx, "eth_requestAccounts")
}

func (p *RPCWalletProvider) Accounts(ctx context.Context) ([]string, error) {
	return p.call(ctx, "eth_accounts")
}

func (p *RPCWalletProvider) call(ctx context.Context, method string) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, method); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == walletRejectedCode {
			return nil, apperrors.New(apperrors.ErrWalletRejected, "user rejected the wallet request", err)
		}
		return nil, apperrors.New(apperrors.ErrWalletUnavailable, method+" failed", err)
	}
	return accounts, nil
}

// WalletService connects wallets to sessions and fans account changes out
// to subscribers.
type WalletService struct {
	Provider WalletProvider
	Store    *Store
	Sessions *SessionRegistry

	mu     sync.Mutex
	nextID int
	subs   map[int]chan models.WalletEvent
}

func NewWalletService(provider WalletProvider, store *Store, sessions *SessionRegistry) *WalletService {
	return &WalletService{
		Provider: provider,
		Store:    store,
		Sessions: sessions,
		subs:     make(map[int]chan models.WalletEvent),
	}
}

// Connect asks the provider for accounts and links the first one to the
// session's account, if it has one.
func (w *WalletService) Connect(ctx context.Context, sess *Session) (string, error) {
	if w.Provider == nil {
		return "", apperrors.New(apperrors.ErrWalletUnavailable, "no wallet provider configured", nil)
	}
	accounts, err := w.Provider.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", apperrors.New(apperrors.ErrWalletRejected, "wallet returned no accounts", nil)
	}

	address := accounts[0]
	if sess.Account() != nil {
		if _, err := w.Store.LinkWallet(ctx, sess, address); err != nil {
			return "", err
		}
	} else {
		sess.setWallet(address)
	}

	logger.WithFields(logrus.Fields{"session": sess.ID, "address": address}).Info("🔗 [Wallet] connected")
	return address, nil
}

// Subscribe registers a listener for account-change events. The returned
// func unsubscribes and closes the channel.
func (w *WalletService) Subscribe() (<-chan models.WalletEvent, func()) {
	ch := make(chan models.WalletEvent, 8)
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		if _, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(ch)
		}
		w.mu.Unlock()
	}
}

// Publish delivers ev to every subscriber, dropping it for slow ones.
func (w *WalletService) Publish(ev models.WalletEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// HandleAccountsChanged applies a provider account change to every session
// holding a wallet: a new primary account replaces the session wallet, an
// empty list signs the session out.
func (w *WalletService) HandleAccountsChanged(ctx context.Context, accounts []string) {
	ev := models.WalletEvent{
		Accounts:  accounts,
		Connected: len(accounts) > 0,
		At:        time.Now().UTC(),
	}

	w.Sessions.Each(func(sess *Session) {
		if sess.Wallet() == "" {
			return
		}
		if ev.Connected {
			sess.setWallet(ev.Primary())
			return
		}
		w.Store.SignOut(ctx, sess)
	})

	logger.WithFields(logrus.Fields{"accounts": len(accounts)}).Info("🔄 [Wallet] accounts changed")
	w.Publish(ev)
}
