package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TokenUnit is the display unit of the power token balance.
const TokenUnit = "PT"

// Account is one registered user/session identity. The shape is identical
// whichever backend persisted it.
type Account struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	WalletAddress string  `json:"address,omitempty"`
	Balance       Balance `json:"balance"`
	IsAdmin       bool    `json:"isAdmin"`
}

// Balance is a decimal token quantity. The local store keeps it as text
// ("1000 PT"), the hosted database as a number; both adapt to this type.
type Balance struct {
	Amount float64
	Unit   string
}

func NewBalance(amount float64) Balance {
	return Balance{Amount: amount, Unit: TokenUnit}
}

// ParseBalance accepts "1000 PT", "1000" or "12.5 PT". Other units and
// non-finite amounts are rejected.
func ParseBalance(s string) (Balance, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 || len(fields) > 2 {
		return Balance{}, fmt.Errorf("invalid balance %q", s)
	}
	amount, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Balance{}, fmt.Errorf("invalid balance %q: %w", s, err)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Balance{}, fmt.Errorf("invalid balance %q: amount must be finite", s)
	}
	if len(fields) == 2 && fields[1] != TokenUnit {
		return Balance{}, fmt.Errorf("invalid balance %q: unit must be %s", s, TokenUnit)
	}
	return NewBalance(amount), nil
}

func (b Balance) String() string {
	unit := b.Unit
	if unit == "" {
		unit = TokenUnit
	}
	return strconv.FormatFloat(b.Amount, 'f', -1, 64) + " " + unit
}

// Add returns the balance shifted by delta, keeping the unit.
func (b Balance) Add(delta float64) Balance {
	return Balance{Amount: b.Amount + delta, Unit: b.Unit}
}

func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		parsed, err := ParseBalance(text)
		if err != nil {
			return err
		}
		*b = parsed
		return nil
	}
	var amount float64
	if err := json.Unmarshal(data, &amount); err != nil {
		return fmt.Errorf("balance must be text or number: %w", err)
	}
	*b = NewBalance(amount)
	return nil
}
