package services

import (
	"context"
	"testing"
	"time"

	"power-token-exchange/apperrors"
)

type fakeWallet struct {
	accounts []string
	err      error
}

func (f *fakeWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	return f.accounts, f.err
}

func (f *fakeWallet) Accounts(ctx context.Context) ([]string, error) {
	return f.accounts, f.err
}

func setupWallets(t *testing.T, provider WalletProvider) (*WalletService, *SessionRegistry, *Store) {
	t.Helper()
	store, _ := setupStore(t, nil)
	registry := NewSessionRegistry(time.Hour)
	return NewWalletService(provider, store, registry), registry, store
}

func TestConnectWithoutProvider(t *testing.T) {
	wallets, registry, _ := setupWallets(t, nil)
	_, err := wallets.Connect(context.Background(), registry.Create())
	if !apperrors.Is(err, apperrors.ErrWalletUnavailable) {
		t.Errorf("expected WALLET_UNAVAILABLE, got %v", err)
	}
}

func TestConnectPropagatesRejection(t *testing.T) {
	rejected := apperrors.New(apperrors.ErrWalletRejected, "user rejected the wallet request", nil)
	wallets, registry, _ := setupWallets(t, &fakeWallet{err: rejected})

	_, err := wallets.Connect(context.Background(), registry.Create())
	if !apperrors.Is(err, apperrors.ErrWalletRejected) {
		t.Errorf("expected WALLET_REJECTED, got %v", err)
	}
}

func TestConnectNoAccounts(t *testing.T) {
	wallets, registry, _ := setupWallets(t, &fakeWallet{})
	_, err := wallets.Connect(context.Background(), registry.Create())
	if !apperrors.Is(err, apperrors.ErrWalletRejected) {
		t.Errorf("expected WALLET_REJECTED, got %v", err)
	}
}

func TestConnectLinksAccountWallet(t *testing.T) {
	ctx := context.Background()
	wallets, registry, store := setupWallets(t, &fakeWallet{accounts: []string{"0xaaa1", "0xbbb2"}})
	sess := registry.Create()
	if _, err := store.RegisterAccount(ctx, sess, "Ivy", "ivy@example.com", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	address, err := wallets.Connect(ctx, sess)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if address != "0xaaa1" || sess.Wallet() != "0xaaa1" {
		t.Errorf("expected first account connected, got %s / %s", address, sess.Wallet())
	}
	acct, err := store.Account(ctx, sess)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if acct.WalletAddress != "0xaaa1" {
		t.Errorf("wallet not persisted: %+v", acct)
	}
}

func TestConnectWithoutAccountOnlySetsSessionWallet(t *testing.T) {
	wallets, registry, _ := setupWallets(t, &fakeWallet{accounts: []string{"0xccc3"}})
	sess := registry.Create()

	if _, err := wallets.Connect(context.Background(), sess); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if sess.Wallet() != "0xccc3" || sess.Account() != nil {
		t.Errorf("unexpected session state: wallet=%s account=%v", sess.Wallet(), sess.Account())
	}
}

func TestHandleAccountsChanged(t *testing.T) {
	ctx := context.Background()
	wallets, registry, store := setupWallets(t, &fakeWallet{accounts: []string{"0xaaa1"}})

	connected := registry.Create()
	if _, err := store.RegisterAccount(ctx, connected, "Jo", "jo@example.com", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := wallets.Connect(ctx, connected); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	idle := registry.Create()

	events, unsubscribe := wallets.Subscribe()
	defer unsubscribe()

	wallets.HandleAccountsChanged(ctx, []string{"0xddd4"})
	if connected.Wallet() != "0xddd4" {
		t.Errorf("expected wallet switch, got %s", connected.Wallet())
	}
	if idle.Wallet() != "" {
		t.Errorf("session without a wallet was touched: %s", idle.Wallet())
	}
	select {
	case ev := <-events:
		if !ev.Connected || ev.Primary() != "0xddd4" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	wallets.HandleAccountsChanged(ctx, nil)
	if connected.Account() != nil || connected.Wallet() != "" {
		t.Error("expected disconnect to sign the session out")
	}
	select {
	case ev := <-events:
		if ev.Connected || ev.Primary() != "" {
			t.Errorf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no disconnect event published")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	wallets, _, _ := setupWallets(t, nil)
	events, unsubscribe := wallets.Subscribe()
	unsubscribe()
	unsubscribe()

	if _, ok := <-events; ok {
		t.Error("expected closed channel")
	}
	wallets.HandleAccountsChanged(context.Background(), []string{"0x1"})
}
