package models

import "time"

type ListingKind string

const (
	ListingPowerToken   ListingKind = "power_token"
	ListingCarbonCredit ListingKind = "carbon_credit"
)

// Listing is a marketplace offer of power tokens or a credit-NFT at a stated price (ETH).
type Listing struct {
	ID          int         `json:"id" yaml:"id"`
	Kind        ListingKind `json:"listing_type" yaml:"kind"`
	Seller      string      `json:"seller" yaml:"seller"`
	Amount      float64     `json:"amount" yaml:"amount"`
	Price       float64     `json:"price" yaml:"price"`
	Title       string      `json:"title,omitempty" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Tier        string      `json:"type,omitempty" yaml:"tier"`
	CreatedAt   time.Time   `json:"created_at" yaml:"-"`
	AgeHours    int         `json:"-" yaml:"age_hours"`
	Active      bool        `json:"is_active" yaml:"-"`
}
