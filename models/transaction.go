package models

import "time"

type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionTransfer TransactionType = "transfer"
)

type TokenKind string

const (
	TokenPower TokenKind = "power"
	TokenNFT   TokenKind = "nft"
)

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is an append-only ledger entry created on every simulated trade.
type Transaction struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"user_id"`
	Type         TransactionType   `json:"transaction_type"`
	Amount       float64           `json:"amount"`
	TokenKind    TokenKind         `json:"token_type"`
	TokenID      string            `json:"token_id,omitempty"`
	Price        float64           `json:"price"`
	Timestamp    time.Time         `json:"timestamp"`
	Status       TransactionStatus `json:"status"`
	Counterparty string            `json:"counterparty,omitempty"`
	TxHash       string            `json:"tx_hash,omitempty"`
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionTransfer:
		return true
	}
	return false
}

func (k TokenKind) Valid() bool {
	return k == TokenPower || k == TokenNFT
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusPending, StatusFailed:
		return true
	}
	return false
}
