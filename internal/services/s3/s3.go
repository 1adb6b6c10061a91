// Package s3service stores certificate documents and provider import files in S3.
package s3service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appConfig "ndt-connect/internal/config"
	"ndt-connect/internal/utils"
)

// Key prefixes inside the documents bucket.
const (
	CertificatePrefix = "certificates/"
	ImportPrefix      = "imports/"
	ProcessedPrefix   = "processed/"
	FailedPrefix      = "failed/"
)

const defaultPresignExpiry = 15 * time.Minute

// ErrUnsupportedFileType is returned for uploads outside the allowed document types.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// certificateContentTypes lists the accepted certificate document extensions.
var certificateContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Service handles S3 operations
type Service struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucketName string
}

// PresignedURLResult contains the presigned URL details
type PresignedURLResult struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewService creates a new S3 service for the configured bucket.
func NewService(ctx context.Context, cfg *appConfig.Config) (*Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &Service{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucketName: cfg.S3Bucket,
	}, nil
}

// CertificateContentType returns the content type for a certificate file name.
func CertificateContentType(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := certificateContentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q (allowed: pdf, png, jpg)", ErrUnsupportedFileType, ext)
	}
	return contentType, nil
}

// CertificateKey builds certificates/<provider>/<yyyy/mm/dd>/<uuid>_<name>.
func CertificateKey(providerUserID, filename string, now time.Time) string {
	return CertificatePrefix +
		SanitizeFilename(providerUserID) + "/" +
		now.UTC().Format("2006/01/02") + "/" +
		uuid.New().String() + "_" + SanitizeFilename(filename)
}

// ProcessedKey maps an import key to its archive location under processed/ or failed/.
func ProcessedKey(importKey string, failed bool) string {
	prefix := ProcessedPrefix
	if failed {
		prefix = FailedPrefix
	}
	return prefix + strings.TrimPrefix(importKey, ImportPrefix)
}

// SanitizeFilename keeps letters, digits, dots, dashes and underscores.
func SanitizeFilename(filename string) string {
	var sb strings.Builder
	for _, r := range filename {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	safe := sb.String()
	if len(safe) > 100 {
		safe = safe[len(safe)-100:]
	}
	return safe
}

// PresignCertificateUpload creates a presigned PUT URL for a provider certificate document.
func (s *Service) PresignCertificateUpload(ctx context.Context, providerUserID, filename string, expiry time.Duration) (*PresignedURLResult, error) {
	contentType, err := CertificateContentType(filename)
	if err != nil {
		return nil, err
	}
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}

	key := CertificateKey(providerUserID, filename, time.Now())

	presignedReq, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		utils.GetLogger().Error("Failed to generate presigned URL",
			zap.String("bucket", s.bucketName),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	utils.GetLogger().Info("Generated certificate upload URL",
		zap.String("bucket", s.bucketName),
		zap.String("key", key),
		zap.Duration("expiry", expiry),
	)

	return &PresignedURLResult{
		URL:         presignedReq.URL,
		Key:         key,
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(expiry),
	}, nil
}

// PresignDownload creates a presigned GET URL, used by admins to review certificates.
func (s *Service) PresignDownload(ctx context.Context, key string, expiry time.Duration) (*PresignedURLResult, error) {
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}

	presignedReq, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURLResult{
		URL:       presignedReq.URL,
		Key:       key,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

// DownloadFile downloads an object from the given bucket. An empty bucket means the service bucket.
func (s *Service) DownloadFile(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" {
		bucket = s.bucketName
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		utils.GetLogger().Error("Failed to download file from S3",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	utils.GetLogger().Info("Downloaded file from S3",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)

	return data, nil
}

// ListCertificates lists the certificate documents stored for a provider.
func (s *Service) ListCertificates(ctx context.Context, providerUserID string) ([]string, error) {
	result, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucketName),
		Prefix:  aws.String(CertificatePrefix + SanitizeFilename(providerUserID) + "/"),
		MaxKeys: aws.Int32(100),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	keys := make([]string, 0, len(result.Contents))
	for _, obj := range result.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

// ArchiveImport moves a processed import file from imports/ to processed/ or failed/.
func (s *Service) ArchiveImport(ctx context.Context, bucket, key string, failed bool) error {
	if bucket == "" {
		bucket = s.bucketName
	}
	destKey := ProcessedKey(key, failed)

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(bucket + "/" + key),
		Key:        aws.String(destKey),
	})
	if err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	utils.GetLogger().Info("Archived import file",
		zap.String("source", key),
		zap.String("destination", destKey),
	)

	return nil
}
