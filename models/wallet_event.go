package models

import "time"

// WalletEvent is emitted when the wallet provider reports a different account set.
type WalletEvent struct {
	Accounts  []string  `json:"accounts"`
	Connected bool      `json:"connected"`
	At        time.Time `json:"at"`
}

// Primary returns the active account, or "" when the wallet disconnected.
func (e WalletEvent) Primary() string {
	if len(e.Accounts) == 0 {
		return ""
	}
	return e.Accounts[0]
}
