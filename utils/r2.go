// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"power-token-exchange/apperrors"
	"power-token-exchange/models"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// R2Config holds the Cloudflare R2 bucket settings.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MetadataUploader publishes NFT metadata documents to R2 and returns their
// public URL, which becomes the on-chain token URI.
type MetadataUploader struct {
	client     objectPutter
	bucket     string
	cdnBaseURL string
}

// NFTAttribute is one ERC-721 metadata trait.
type NFTAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// NFTMetadata is the ERC-721 metadata JSON document.
type NFTMetadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ExternalURL string         `json:"external_url,omitempty"`
	Attributes  []NFTAttribute `json:"attributes"`
}

func NewMetadataUploader(ctx context.Context, rc R2Config) (*MetadataUploader, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", rc.AccountID)
	cdn := rc.CDNBaseURL
	if cdn == "" {
		cdn = endpoint + "/" + rc.Bucket
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			rc.AccessKeyID, rc.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &MetadataUploader{client: client, bucket: rc.Bucket, cdnBaseURL: strings.TrimRight(cdn, "/")}, nil
}

// BuildNFTMetadata renders the metadata document for a credit NFT.
func BuildNFTMetadata(nft models.CreditNFT) NFTMetadata {
	attrs := []NFTAttribute{
		{TraitType: "Tier", Value: cases.Title(language.English).String(string(nft.Tier))},
		{TraitType: "Acquired", Value: nft.AcquiredAt.UTC().Format("2006-01-02")},
	}
	if nft.CarbonOffsetAmount > 0 {
		attrs = append(attrs, NFTAttribute{TraitType: "Carbon Offset (kg)", Value: nft.CarbonOffsetAmount})
	}
	return NFTMetadata{
		Name:        nft.Title,
		Description: nft.Description,
		Attributes:  attrs,
	}
}

// MetadataKey is the object key of an NFT's metadata document.
func MetadataKey(nft models.CreditNFT) string {
	name := slug.Make(nft.Title)
	if name == "" {
		name = "credit-nft"
	}
	return "nft-metadata/" + name + "-" + nft.ID + ".json"
}

// UploadNFTMetadata stores the metadata JSON and returns its public URL.
func (u *MetadataUploader) UploadNFTMetadata(ctx context.Context, nft models.CreditNFT) (string, error) {
	body, err := json.Marshal(BuildNFTMetadata(nft))
	if err != nil {
		return "", apperrors.New(apperrors.ErrMetadataUpload, "failed to encode metadata", err)
	}

	key := MetadataKey(nft)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		// object metadata headers must be ASCII
		Metadata: map[string]string{
			"nft-id":    nft.ID,
			"nft-title": unidecode.Unidecode(nft.Title),
			"nft-tier":  string(nft.Tier),
		},
	})
	if err != nil {
		return "", apperrors.New(apperrors.ErrMetadataUpload, "failed to upload to R2", err)
	}

	// ✅ Return public CDN URL
	return fmt.Sprintf("%s/%s", u.cdnBaseURL, key), nil
}
