package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/config"
)

// Upload purposes accepted by GeneratePresignedPutURL. They become the key
// prefix, so proof-of-payment photos and BAST documents live in separate
// folders.
const (
	PurposeBuktiBayar    = "bukti_bayar"
	PurposeBastFoto      = "bast_foto"
	PurposeCommitmentFee = "commitment_fee"
)

// IS3Storage defines the interface for S3 operations.
type IS3Storage interface {
	GeneratePresignedPutURL(ctx context.Context, kontrakID, purpose, filename, contentType string) (string, string, error)
	ObjectURI(objectKey string) string
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(cfg *config.Config) (IS3Storage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	presignClient := s3.NewPresignClient(s3Client)

	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: presignClient,
	}, nil
}

// ValidPurpose reports whether purpose is one of the accepted upload kinds.
func ValidPurpose(purpose string) bool {
	switch purpose {
	case PurposeBuktiBayar, PurposeBastFoto, PurposeCommitmentFee:
		return true
	}
	return false
}

// GeneratePresignedPutURL creates a pre-signed URL for uploading an object.
// It returns the URL and the generated S3 object key. The key embeds the
// contract ID and purpose so later cleanup can be done per contract.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, kontrakID, purpose, filename, contentType string) (string, string, error) {
	if !ValidPurpose(purpose) {
		return "", "", fmt.Errorf("unknown upload purpose %q", purpose)
	}
	// Strip path separators; the client controls the filename.
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	objectKey := fmt.Sprintf("%s/%s/%s_%s", purpose, kontrakID, uuid.NewString(), filename)

	expiration := 15 * time.Minute

	presignParams := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, presignParams, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	return presignedReq.URL, objectKey, nil
}

// ObjectURI builds the public URI of an uploaded object from the configured
// base URL. The result is what gets stored on invoices and contracts.
func (s *s3Storage) ObjectURI(objectKey string) string {
	if s.cfg.FileBaseS3URL == "" {
		return objectKey
	}
	return strings.TrimRight(s.cfg.FileBaseS3URL, "/") + "/" + objectKey
}
