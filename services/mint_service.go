// services/mint_service.go
package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"power-token-exchange/apperrors"
	"power-token-exchange/logger"
	"power-token-exchange/models"
	"power-token-exchange/utils"

	"github.com/sirupsen/logrus"
)

// NFTMinter mints a token with the given URI and returns the mint tx hash.
type NFTMinter interface {
	MintNFT(ctx context.Context, tokenURI string) (string, error)
}

// MetadataStore publishes NFT metadata and returns its URL.
type MetadataStore interface {
	UploadNFTMetadata(ctx context.Context, nft models.CreditNFT) (string, error)
}

// MintService mirrors a stored Credit-NFT on-chain.
type MintService struct {
	Store    *Store
	Minter   NFTMinter
	Metadata MetadataStore
}

func NewMintService(store *Store, minter NFTMinter, metadata MetadataStore) *MintService {
	return &MintService{Store: store, Minter: minter, Metadata: metadata}
}

// Mint uploads the NFT's metadata, mints it and records the token URI and
// tx hash. An NFT that already carries a mint hash is returned unchanged.
// Without a metadata store the token URI is an inline data URI.
func (m *MintService) Mint(ctx context.Context, sess *Session, nftID string) (*models.CreditNFT, error) {
	if m.Minter == nil {
		return nil, apperrors.New(apperrors.ErrContractCall, "chain is not configured", nil)
	}
	acct, err := m.Store.CurrentAccount(sess)
	if err != nil {
		return nil, err
	}
	nfts, err := m.Store.ListCreditNFTs(ctx, sess, acct.ID)
	if err != nil {
		return nil, err
	}

	var nft *models.CreditNFT
	for i := range nfts {
		if nfts[i].ID == nftID {
			nft = &nfts[i]
			break
		}
	}
	if nft == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "nft not found", nil)
	}
	if nft.MintTxHash != "" {
		return nft, nil
	}

	uri, err := m.tokenURI(ctx, *nft)
	if err != nil {
		return nil, err
	}
	hash, err := m.Minter.MintNFT(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := m.Store.RecordMint(ctx, sess, nft.ID, uri, hash); err != nil {
		return nil, err
	}

	nft.TokenURI = uri
	nft.MintTxHash = hash
	logger.WithFields(logrus.Fields{"account": acct.ID, "nft": nft.ID, "tx": hash}).Info("🪙 [Mint] credit NFT minted")
	return nft, nil
}

func (m *MintService) tokenURI(ctx context.Context, nft models.CreditNFT) (string, error) {
	if m.Metadata != nil {
		return m.Metadata.UploadNFTMetadata(ctx, nft)
	}
	body, err := json.Marshal(utils.BuildNFTMetadata(nft))
	if err != nil {
		return "", apperrors.New(apperrors.ErrMetadataUpload, "failed to encode metadata", err)
	}
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(body), nil
}
