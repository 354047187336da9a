// workers/wallet_watcher.go
package workers

import (
	"context"
	"power-token-exchange/logger"
	"power-token-exchange/services"
	"slices"
	"time"
)

// AccountsChangedFunc receives the provider's new account list.
type AccountsChangedFunc func(ctx context.Context, accounts []string)

// PollWallets polls eth_accounts and calls onChange whenever the list
// differs from the previous poll. The first successful poll only sets the
// baseline.
func PollWallets(ctx context.Context, provider services.WalletProvider, onChange AccountsChangedFunc, pollInterval time.Duration) {
	logger.Info("👛 Starting wallet account polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last []string
	baseline := false

	for {
		select {
		case <-ctx.Done():
			logger.Info("Wallet polling stopped.")
			return
		case <-ticker.C:
			accounts, err := provider.Accounts(ctx)
			if err != nil {
				logger.Warnf("❌ Error polling wallet accounts: %v", err)
				continue
			}
			if !baseline {
				last, baseline = accounts, true
				continue
			}
			if slices.Equal(last, accounts) {
				continue
			}

			logger.Infof("📥 Wallet accounts changed (%d -> %d)", len(last), len(accounts))
			last = accounts
			onChange(ctx, accounts)
		}
	}
}
