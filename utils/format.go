package utils

import (
	"fmt"
	"math/rand"
)

// MockTxHash returns a short random hex hash for simulated trades.
func MockTxHash() string {
	return fmt.Sprintf("0x%x", rand.Int63n(1_000_000_000))
}

// ShortAddress abbreviates a wallet address as "0x7d...41a2".
func ShortAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}
