package models

import "time"

// Reward is an achievement that can be claimed once for a Credit-NFT.
// Claimed only ever moves from false to true.
type Reward struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Progress    int       `json:"progress"`    // 0-100
	RewardType  string    `json:"reward_type"` // e.g. "Bronze NFT", "Exclusive Badge"
	Claimed     bool      `json:"claimed"`
	Timestamp   time.Time `json:"timestamp"`
}
