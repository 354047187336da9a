package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"power-token-exchange/apperrors"
	"power-token-exchange/models"
)

type fakeMinter struct {
	uris []string
	err  error
}

func (f *fakeMinter) MintNFT(ctx context.Context, tokenURI string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uris = append(f.uris, tokenURI)
	return "0xminted", nil
}

type fakeMetadata struct{}

func (fakeMetadata) UploadNFTMetadata(ctx context.Context, nft models.CreditNFT) (string, error) {
	return "https://cdn.example.com/" + nft.ID + ".json", nil
}

func setupMint(t *testing.T, minter NFTMinter, metadata MetadataStore) (*MintService, *Session) {
	t.Helper()
	ctx := context.Background()
	store, _ := setupStore(t, nil)
	if err := store.SeedDemoData(ctx); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	sess := NewSession()
	if _, err := store.Authenticate(ctx, sess, "demo@example.com", ""); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	return NewMintService(store, minter, metadata), sess
}

func TestMintWithoutChain(t *testing.T) {
	mint, sess := setupMint(t, nil, nil)
	_, err := mint.Mint(context.Background(), sess, "nft-1")
	if !apperrors.Is(err, apperrors.ErrContractCall) {
		t.Errorf("expected CONTRACT_CALL_ERROR, got %v", err)
	}
}

func TestMintInlineMetadata(t *testing.T) {
	ctx := context.Background()
	minter := &fakeMinter{}
	mint, sess := setupMint(t, minter, nil)

	nft, err := mint.Mint(ctx, sess, "nft-2")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if nft.MintTxHash != "0xminted" {
		t.Errorf("unexpected hash: %s", nft.MintTxHash)
	}

	const prefix = "data:application/json;base64,"
	if !strings.HasPrefix(nft.TokenURI, prefix) {
		t.Fatalf("expected data URI, got %s", nft.TokenURI)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(nft.TokenURI, prefix))
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("bad metadata json: %v", err)
	}
	if meta["name"] != "Carbon Credit NFT #2" {
		t.Errorf("unexpected metadata name: %v", meta["name"])
	}

	// Minting again returns the stored record without a second chain call.
	again, err := mint.Mint(ctx, sess, "nft-2")
	if err != nil {
		t.Fatalf("second mint failed: %v", err)
	}
	if again.MintTxHash != "0xminted" || len(minter.uris) != 1 {
		t.Errorf("expected one mint, got %d", len(minter.uris))
	}
}

func TestMintUsesMetadataStore(t *testing.T) {
	minter := &fakeMinter{}
	mint, sess := setupMint(t, minter, fakeMetadata{})

	nft, err := mint.Mint(context.Background(), sess, "nft-3")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if nft.TokenURI != "https://cdn.example.com/nft-3.json" {
		t.Errorf("unexpected token uri: %s", nft.TokenURI)
	}
}

func TestMintErrors(t *testing.T) {
	ctx := context.Background()

	mint, sess := setupMint(t, &fakeMinter{}, nil)
	if _, err := mint.Mint(ctx, sess, "missing"); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	chainErr := apperrors.New(apperrors.ErrContractCall, "reverted", errors.New("status 0"))
	mint, sess = setupMint(t, &fakeMinter{err: chainErr}, nil)
	if _, err := mint.Mint(ctx, sess, "nft-1"); !apperrors.Is(err, apperrors.ErrContractCall) {
		t.Errorf("expected CONTRACT_CALL_ERROR, got %v", err)
	}
	nfts, _ := mint.Store.ListCreditNFTs(ctx, sess, demoAccountID)
	for _, n := range nfts {
		if n.MintTxHash != "" {
			t.Errorf("failed mint was recorded on %s", n.ID)
		}
	}
}
