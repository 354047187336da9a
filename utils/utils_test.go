package utils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"power-token-exchange/apperrors"
	"power-token-exchange/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func sampleNFT() models.CreditNFT {
	return models.CreditNFT{
		ID:                 "nft-7",
		Title:              "Énergie Verte - Gold",
		Description:        "Awarded for saving energy",
		Tier:               models.TierGold,
		AcquiredAt:         time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		CarbonOffsetAmount: 12.5,
	}
}

func TestBuildNFTMetadata(t *testing.T) {
	meta := BuildNFTMetadata(sampleNFT())
	if meta.Name != "Énergie Verte - Gold" || meta.Description != "Awarded for saving energy" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if len(meta.Attributes) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(meta.Attributes))
	}
	if meta.Attributes[0].Value != "Gold" || meta.Attributes[1].Value != "2024-05-01" {
		t.Errorf("unexpected attributes: %+v", meta.Attributes)
	}

	plain := sampleNFT()
	plain.CarbonOffsetAmount = 0
	if n := len(BuildNFTMetadata(plain).Attributes); n != 2 {
		t.Errorf("expected offset trait to be omitted, got %d attributes", n)
	}
}

func TestMetadataKey(t *testing.T) {
	if got := MetadataKey(sampleNFT()); got != "nft-metadata/energie-verte-gold-nft-7.json" {
		t.Errorf("unexpected key %s", got)
	}
	if got := MetadataKey(models.CreditNFT{ID: "x"}); got != "nft-metadata/credit-nft-x.json" {
		t.Errorf("unexpected fallback key %s", got)
	}
}

func TestUploadNFTMetadata(t *testing.T) {
	putter := &fakePutter{}
	uploader := &MetadataUploader{client: putter, bucket: "nfts", cdnBaseURL: "https://cdn.example.com"}

	url, err := uploader.UploadNFTMetadata(context.Background(), sampleNFT())
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if url != "https://cdn.example.com/nft-metadata/energie-verte-gold-nft-7.json" {
		t.Errorf("unexpected url %s", url)
	}
	if aws.ToString(putter.input.Bucket) != "nfts" || aws.ToString(putter.input.ContentType) != "application/json" {
		t.Errorf("unexpected put input: %+v", putter.input)
	}
	if putter.input.Metadata["nft-title"] != "Energie Verte - Gold" {
		t.Errorf("expected ASCII title header, got %q", putter.input.Metadata["nft-title"])
	}

	var doc NFTMetadata
	if err := json.Unmarshal(putter.body, &doc); err != nil {
		t.Fatalf("uploaded body is not metadata json: %v", err)
	}
	if doc.Name != "Énergie Verte - Gold" {
		t.Errorf("unexpected uploaded name %s", doc.Name)
	}
}

func TestUploadNFTMetadataFailure(t *testing.T) {
	uploader := &MetadataUploader{client: &fakePutter{err: errors.New("403")}, bucket: "nfts", cdnBaseURL: "https://cdn"}
	_, err := uploader.UploadNFTMetadata(context.Background(), sampleNFT())
	if !apperrors.Is(err, apperrors.ErrMetadataUpload) {
		t.Errorf("expected METADATA_UPLOAD_ERROR, got %v", err)
	}
}

func TestShortAddress(t *testing.T) {
	if got := ShortAddress("0x7d2a6f1b7c4e3d9a8b5c6e1f0a9b8c7d6e5f41a2"); got != "0x7d...41a2" {
		t.Errorf("unexpected short address %s", got)
	}
	if got := ShortAddress("0xabc"); got != "0xabc" {
		t.Errorf("short input should be unchanged, got %s", got)
	}
}

func TestMockTxHash(t *testing.T) {
	if h := MockTxHash(); !strings.HasPrefix(h, "0x") || len(h) < 3 {
		t.Errorf("unexpected hash %s", h)
	}
}
