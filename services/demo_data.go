package services

import (
	"power-token-exchange/models"
	"time"
)

const demoAccountID = "demo-user-1"

type demoSet struct {
	user         localUser
	transactions []localTransaction
	rewards      []localReward
	nfts         []localNFT
}

func demoData(now time.Time, balance models.Balance) demoSet {
	ts := func(ago time.Duration) string { return now.Add(-ago).Format(time.RFC3339Nano) }
	date := func(ago time.Duration) string { return now.Add(-ago).Format(time.RFC3339) }
	const day = 24 * time.Hour
	const nftDescription = "This NFT represents carbon credits earned through sustainable energy trading."

	return demoSet{
		user: localUser{
			ID:      demoAccountID,
			Name:    "Demo User",
			Email:   "demo@example.com",
			Balance: balance.String(),
		},
		transactions: []localTransaction{
			{ID: "1", UserID: demoAccountID, TransactionType: "buy", Amount: 100, TokenType: "power", Price: 0.05,
				Timestamp: ts(time.Hour), Status: "completed", Counterparty: "0x7d...41a2", TxHash: "0x123...abc"},
			{ID: "2", UserID: demoAccountID, TransactionType: "sell", Amount: 50, TokenType: "power", Price: 0.025,
				Timestamp: ts(day), Status: "completed", Counterparty: "0x3b...f28c", TxHash: "0x456...def"},
			{ID: "3", UserID: demoAccountID, TransactionType: "transfer", Amount: 1, TokenType: "nft", TokenID: "NFT-001", Price: 0.1,
				Timestamp: ts(2 * day), Status: "completed", Counterparty: "0x9e...12d4", TxHash: "0x789...ghi"},
		},
		rewards: []localReward{
			{ID: "r1", UserID: demoAccountID, Title: "Trade 100 Energy Units",
				Description: "Successfully trade 100 units of sustainable energy on the platform.",
				Progress:    75, RewardType: "Bronze NFT", Timestamp: ts(0)},
			{ID: "r2", UserID: demoAccountID, Title: "Refer 3 New Users",
				Description: "Invite three new users to join the platform and make their first trade.",
				Progress:    100, RewardType: "Silver NFT", Timestamp: ts(0)},
			{ID: "r3", UserID: demoAccountID, Title: "Maintain a 95% Positive Energy Score",
				Description: "Achieve and maintain a positive energy score of 95% or higher for a month.",
				Progress:    60, RewardType: "Gold NFT", Timestamp: ts(0)},
			{ID: "r4", UserID: demoAccountID, Title: "Participate in 5 Community Events",
				Description: "Actively participate in five community events or webinars.",
				Progress:    40, RewardType: "Exclusive Badge", Timestamp: ts(0)},
		},
		nfts: []localNFT{
			{ID: "nft-1", UserID: demoAccountID, Title: "Carbon Credit NFT #1", Description: nftDescription,
				Type: "bronze", Date: date(7 * day), Status: "owned"},
			{ID: "nft-2", UserID: demoAccountID, Title: "Carbon Credit NFT #2", Description: nftDescription,
				Type: "silver", Date: date(14 * day), Status: "owned"},
			{ID: "nft-3", UserID: demoAccountID, Title: "Carbon Credit NFT #3", Description: nftDescription,
				Type: "gold", Date: date(30 * day), Status: "owned"},
		},
	}
}
