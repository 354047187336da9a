package contracts

import (
	"fmt"
	"math/big"
	"strings"
)

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// TokenPriceWei is the fixed price of one power token: 0.01 ETH.
var TokenPriceWei = new(big.Int).Div(weiPerEther, big.NewInt(100))

// ParseEther converts a decimal ether amount ("0.05") to wei.
func ParseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative ether amount %q", s)
	}
	r.Mul(r, new(big.Rat).SetInt(weiPerEther))
	if !r.IsInt() {
		return nil, fmt.Errorf("ether amount %q has more than 18 decimals", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, weiPerEther).FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// TokenCost is the wei value sent with buyTokens for amount tokens.
func TokenCost(amount int64) *big.Int {
	return new(big.Int).Mul(TokenPriceWei, big.NewInt(amount))
}
