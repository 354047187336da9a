package models

import (
	"strings"
	"time"
)

type NFTTier string

const (
	TierBronze  NFTTier = "bronze"
	TierSilver  NFTTier = "silver"
	TierGold    NFTTier = "gold"
	TierSpecial NFTTier = "special"
)

type NFTStatus string

const (
	NFTAvailable   NFTStatus = "available"
	NFTOwned       NFTStatus = "owned"
	NFTTransferred NFTStatus = "transferred"
)

// CreditNFT is a carbon-offset reward record, optionally mirrored on-chain.
type CreditNFT struct {
	ID                 string    `json:"id"`
	AccountID          string    `json:"user_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Tier               NFTTier   `json:"type"`
	AcquiredAt         time.Time `json:"date"`
	CarbonOffsetAmount float64   `json:"carbon_offset_amount,omitempty"`
	Status             NFTStatus `json:"nft_status,omitempty"`
	TokenURI           string    `json:"token_uri,omitempty"`
	MintTxHash         string    `json:"mint_tx_hash,omitempty"`
}

// TierFromLabel derives the NFT tier from a reward or listing label.
// Unknown labels (including "platinum" listings) fall back the same way
// the marketplace does: platinum becomes gold, anything else special.
func TierFromLabel(label string) NFTTier {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "bronze"):
		return TierBronze
	case strings.Contains(l, "silver"):
		return TierSilver
	case strings.Contains(l, "gold"), strings.Contains(l, "platinum"):
		return TierGold
	}
	return TierSpecial
}
