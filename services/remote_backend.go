// services/remote_backend.go
package services

import (
	"context"
	"errors"
	"fmt"
	"power-token-exchange/apperrors"
	"power-token-exchange/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// --- hosted database rows ---

type profileRow struct {
	ID                string    `gorm:"primaryKey;type:uuid"`
	Name              string    `gorm:"not null"`
	Email             string    `gorm:"uniqueIndex;not null"`
	Address           string    `gorm:"column:address"`
	PowerTokenBalance float64   `gorm:"column:power_token_balance;not null;default:0"`
	IsAdmin           bool      `gorm:"default:false"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (profileRow) TableName() string { return "profiles" }

type transactionRow struct {
	ID              string    `gorm:"primaryKey;type:uuid"`
	UserID          string    `gorm:"type:uuid;index;not null"`
	TransactionType string    `gorm:"not null"`
	Amount          float64   `gorm:"not null"`
	TokenType       string    `gorm:"not null"`
	TokenID         string    `gorm:"column:token_id"`
	Price           float64   `gorm:"not null"`
	Timestamp       time.Time `gorm:"index;not null"`
	Status          string    `gorm:"not null;default:'completed'"`
	Counterparty    string
	TxHash          string
}

func (transactionRow) TableName() string { return "transactions" }

type rewardRow struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"type:uuid;index;not null"`
	Title       string `gorm:"not null"`
	Description string
	Progress    int    `gorm:"not null;default:0"`
	RewardType  string `gorm:"not null"`
	Claimed     bool   `gorm:"not null;default:false"`
	Timestamp   time.Time
}

func (rewardRow) TableName() string { return "rewards" }

type creditNFTRow struct {
	ID                 string `gorm:"primaryKey;type:varchar(64)"`
	UserID             string `gorm:"type:uuid;index;not null"`
	Title              string `gorm:"not null"`
	Description        string
	Type               string `gorm:"not null"`
	AcquiredAt         time.Time
	CarbonOffsetAmount float64
	Status             string `gorm:"default:'owned'"`
	TokenURI           string
	MintTxHash         string
}

func (creditNFTRow) TableName() string { return "carbon_credit_nfts" }

// MigrateRemote creates or updates the hosted tables.
func MigrateRemote(db *gorm.DB) error {
	return db.AutoMigrate(&profileRow{}, &transactionRow{}, &rewardRow{}, &creditNFTRow{})
}

// RemoteBackend persists accounts and records in the hosted Postgres
// database and authenticates against the hosted auth service.
type RemoteBackend struct {
	DB        *gorm.DB
	Auth      AuthClient
	JWTSecret string
}

func NewRemoteBackend(db *gorm.DB, auth AuthClient, jwtSecret string) *RemoteBackend {
	return &RemoteBackend{DB: db, Auth: auth, JWTSecret: jwtSecret}
}

func (b *RemoteBackend) Name() string { return string(ModeRemote) }

func (b *RemoteBackend) CreateAccount(ctx context.Context, name, email, password string, balance models.Balance) (*models.Account, string, error) {
	session, err := b.Auth.SignUp(ctx, email, password, map[string]interface{}{"name": name})
	if err != nil {
		return nil, "", err
	}
	if session.User.ID == "" {
		return nil, "", apperrors.New(apperrors.ErrRemoteRejected, "sign-up returned no user", nil)
	}

	row := profileRow{
		ID:                session.User.ID,
		Name:              name,
		Email:             email,
		PowerTokenBalance: balance.Amount,
	}
	if err := b.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, "", apperrors.FromPg("failed to create profile", err)
	}
	return row.toAccount(), session.AccessToken, nil
}

func (b *RemoteBackend) SignIn(ctx context.Context, email, password string) (*models.Account, string, error) {
	session, err := b.Auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	acct, err := b.GetAccount(ctx, session.User.ID)
	if err != nil {
		return nil, "", err
	}
	return acct, session.AccessToken, nil
}

// Restore resolves the token's user and loads its profile.
func (b *RemoteBackend) Restore(ctx context.Context, token string) (*models.Account, error) {
	userID, err := b.userFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return b.GetAccount(ctx, userID)
}

// userFromToken verifies the access token locally when a signing secret is
// configured, otherwise asks the auth service.
func (b *RemoteBackend) userFromToken(ctx context.Context, token string) (string, error) {
	if b.JWTSecret == "" {
		user, err := b.Auth.User(ctx, token)
		if err != nil {
			return "", err
		}
		return user.ID, nil
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(b.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", apperrors.New(apperrors.ErrRemoteRejected, "invalid access token", err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", apperrors.New(apperrors.ErrRemoteRejected, "access token has no subject", err)
	}
	return sub, nil
}

func (b *RemoteBackend) SignOut(ctx context.Context, token string) error {
	return b.Auth.SignOut(ctx, token)
}

func (b *RemoteBackend) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	var row profileRow
	if err := b.DB.WithContext(ctx).First(&row, "id = ?", accountID).Error; err != nil {
		return nil, remoteErr("failed to load profile", err)
	}
	return row.toAccount(), nil
}

func (b *RemoteBackend) updateProfile(ctx context.Context, accountID string, values map[string]interface{}) error {
	result := b.DB.WithContext(ctx).Model(&profileRow{}).Where("id = ?", accountID).Updates(values)
	if result.Error != nil {
		return apperrors.FromPg("failed to update profile", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "profile not found", nil)
	}
	return nil
}

func (b *RemoteBackend) SetWallet(ctx context.Context, accountID, address string) error {
	return b.updateProfile(ctx, accountID, map[string]interface{}{"address": address})
}

func (b *RemoteBackend) SetBalance(ctx context.Context, accountID string, balance models.Balance) error {
	return b.updateProfile(ctx, accountID, map[string]interface{}{"power_token_balance": balance.Amount})
}

func (b *RemoteBackend) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	row := transactionRow{
		ID:              tx.ID,
		UserID:          tx.AccountID,
		TransactionType: string(tx.Type),
		Amount:          tx.Amount,
		TokenType:       string(tx.TokenKind),
		TokenID:         tx.TokenID,
		Price:           tx.Price,
		Timestamp:       tx.Timestamp,
		Status:          string(tx.Status),
		Counterparty:    tx.Counterparty,
		TxHash:          tx.TxHash,
	}
	if err := b.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return apperrors.FromPg("failed to record transaction", err)
	}
	return nil
}

func (b *RemoteBackend) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	var rows []transactionRow
	if err := b.DB.WithContext(ctx).
		Where("user_id = ?", accountID).
		Order("timestamp desc").
		Find(&rows).Error; err != nil {
		return nil, remoteErr("failed to list transactions", err)
	}
	out := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Transaction{
			ID:           r.ID,
			AccountID:    r.UserID,
			Type:         models.TransactionType(r.TransactionType),
			Amount:       r.Amount,
			TokenKind:    models.TokenKind(r.TokenType),
			TokenID:      r.TokenID,
			Price:        r.Price,
			Timestamp:    r.Timestamp,
			Status:       models.TransactionStatus(r.Status),
			Counterparty: r.Counterparty,
			TxHash:       r.TxHash,
		})
	}
	return out, nil
}

func (b *RemoteBackend) AppendReward(ctx context.Context, reward *models.Reward) error {
	row := rewardRow{
		ID:          reward.ID,
		UserID:      reward.AccountID,
		Title:       reward.Title,
		Description: reward.Description,
		Progress:    reward.Progress,
		RewardType:  reward.RewardType,
		Claimed:     reward.Claimed,
		Timestamp:   reward.Timestamp,
	}
	if err := b.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return apperrors.FromPg("failed to create reward", err)
	}
	return nil
}

func (b *RemoteBackend) Rewards(ctx context.Context, accountID string) ([]models.Reward, error) {
	var rows []rewardRow
	if err := b.DB.WithContext(ctx).
		Where("user_id = ?", accountID).
		Order("timestamp desc").
		Find(&rows).Error; err != nil {
		return nil, remoteErr("failed to list rewards", err)
	}
	out := make([]models.Reward, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// MarkRewardClaimed only updates rows still unclaimed, so a second claim
// affects nothing and reports no transition.
func (b *RemoteBackend) MarkRewardClaimed(ctx context.Context, rewardID, accountID string) (*models.Reward, bool, error) {
	db := b.DB.WithContext(ctx)
	result := db.Model(&rewardRow{}).
		Where("id = ? AND user_id = ? AND claimed = ?", rewardID, accountID, false).
		Update("claimed", true)
	if result.Error != nil {
		return nil, false, apperrors.FromPg("failed to claim reward", result.Error)
	}

	var row rewardRow
	if err := db.First(&row, "id = ? AND user_id = ?", rewardID, accountID).Error; err != nil {
		return nil, false, remoteErr("failed to load reward", err)
	}
	reward := row.toModel()
	return &reward, result.RowsAffected > 0, nil
}

func (b *RemoteBackend) AppendCreditNFT(ctx context.Context, nft *models.CreditNFT) error {
	row := creditNFTRow{
		ID:                 nft.ID,
		UserID:             nft.AccountID,
		Title:              nft.Title,
		Description:        nft.Description,
		Type:               string(nft.Tier),
		AcquiredAt:         nft.AcquiredAt,
		CarbonOffsetAmount: nft.CarbonOffsetAmount,
		Status:             string(nft.Status),
		TokenURI:           nft.TokenURI,
		MintTxHash:         nft.MintTxHash,
	}
	if err := b.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return apperrors.FromPg("failed to create credit nft", err)
	}
	return nil
}

func (b *RemoteBackend) CreditNFTs(ctx context.Context, accountID string) ([]models.CreditNFT, error) {
	var rows []creditNFTRow
	if err := b.DB.WithContext(ctx).
		Where("user_id = ?", accountID).
		Order("acquired_at desc").
		Find(&rows).Error; err != nil {
		return nil, remoteErr("failed to list credit nfts", err)
	}
	out := make([]models.CreditNFT, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.CreditNFT{
			ID:                 r.ID,
			AccountID:          r.UserID,
			Title:              r.Title,
			Description:        r.Description,
			Tier:               models.NFTTier(r.Type),
			AcquiredAt:         r.AcquiredAt,
			CarbonOffsetAmount: r.CarbonOffsetAmount,
			Status:             models.NFTStatus(r.Status),
			TokenURI:           r.TokenURI,
			MintTxHash:         r.MintTxHash,
		})
	}
	return out, nil
}

func (b *RemoteBackend) SetCreditNFTMint(ctx context.Context, accountID, nftID, tokenURI, txHash string) error {
	result := b.DB.WithContext(ctx).Model(&creditNFTRow{}).
		Where("id = ? AND user_id = ?", nftID, accountID).
		Updates(map[string]interface{}{"token_uri": tokenURI, "mint_tx_hash": txHash})
	if result.Error != nil {
		return apperrors.FromPg("failed to record mint", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("nft %s not found", nftID), nil)
	}
	return nil
}

func (r profileRow) toAccount() *models.Account {
	return &models.Account{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		WalletAddress: r.Address,
		Balance:       models.NewBalance(r.PowerTokenBalance),
		IsAdmin:       r.IsAdmin,
	}
}

func (r rewardRow) toModel() models.Reward {
	return models.Reward{
		ID:          r.ID,
		AccountID:   r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Progress:    r.Progress,
		RewardType:  r.RewardType,
		Claimed:     r.Claimed,
		Timestamp:   r.Timestamp,
	}
}

func remoteErr(message string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.New(apperrors.ErrNotFound, message, err)
	}
	return apperrors.FromPg(message, err)
}
