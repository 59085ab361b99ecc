// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/config"
	"github.com/greenproof/greenproof-backend/internal/repository"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

// Content types accepted as credential evidence: photos, documents and
// sensor exports.
var evidenceMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/csv",
	"application/json",
	"text/plain",
}

type StorageService struct {
	s3Client s3iface.S3API
	config   *config.Config
	now      repository.Clock
	maxSize  int64
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Hash     string `json:"hash"`
}

func NewStorageService(cfg *config.Config, clock repository.Clock) (*StorageService, error) {
	s := &StorageService{
		config:  cfg,
		now:     clock,
		maxSize: int64(cfg.Storage.MaxUploadMB) << 20,
	}

	if !cfg.AWS.Enabled() {
		logrus.WithField("path", cfg.Storage.LocalPath).Info("S3 not configured, storing uploads on local disk")
		return s, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	s.s3Client = s3.New(sess)
	return s, nil
}

// WithS3Client swaps the S3 client, mainly for tests.
func (s *StorageService) WithS3Client(client s3iface.S3API) *StorageService {
	s.s3Client = client
	return s
}

// UploadEvidence stores one evidence file and returns its location and
// SHA-256 digest. When expectedHash is set the content must match it.
func (s *StorageService) UploadEvidence(ctx context.Context, userID uuid.UUID, header *multipart.FileHeader, expectedHash string) (*UploadResult, error) {
	if header.Size > s.maxSize {
		return nil, apperrors.Validation("file size %d bytes exceeds maximum allowed size %d bytes", header.Size, s.maxSize)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	return s.store(ctx, userID, file, expectedHash)
}

func (s *StorageService) store(ctx context.Context, userID uuid.UUID, r io.Reader, expectedHash string) (*UploadResult, error) {
	// Read one byte past the limit so oversize bodies are caught even when
	// the declared size lies. The digest is computed while buffering.
	var buf bytes.Buffer
	hash, size, err := utils.HashReader(io.TeeReader(io.LimitReader(r, s.maxSize+1), &buf))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if size > s.maxSize {
		return nil, apperrors.Validation("file exceeds maximum allowed size %d bytes", s.maxSize)
	}
	if size == 0 {
		return nil, apperrors.Validation("file is empty")
	}
	data := buf.Bytes()
	if expectedHash != "" && !utils.ValidateFileHash(data, expectedHash) {
		return nil, apperrors.Validation("file content does not match the supplied sha256 checksum")
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), evidenceMimeTypes...) {
		return nil, apperrors.Validation("file type %s is not allowed", mtype.String())
	}

	key := s.generateKey(userID, mtype.Extension())
	contentType := strings.SplitN(mtype.String(), ";", 2)[0]

	result := &UploadResult{
		Key:      key,
		Size:     size,
		MimeType: contentType,
		Hash:     hash,
	}

	if s.s3Client != nil {
		result.URL, err = s.uploadToS3(ctx, data, key, contentType)
	} else {
		result.URL, err = s.uploadToLocal(data, key)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"key":       key,
		"size":      result.Size,
		"mime_type": contentType,
	}).Info("Evidence uploaded")

	return result, nil
}

func (s *StorageService) uploadToS3(ctx context.Context, data []byte, key, contentType string) (string, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return s.getS3URL(key), nil
}

func (s *StorageService) uploadToLocal(data []byte, key string) (string, error) {
	dest := filepath.Join(s.config.Storage.LocalPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	return strings.TrimRight(s.config.Storage.PublicBaseURL, "/") + "/" + key, nil
}

func (s *StorageService) generateKey(userID uuid.UUID, ext string) string {
	date := s.now().Format("20060102")
	return path.Join("evidence", userID.String(), fmt.Sprintf("%s_%s%s", date, uuid.New().String()[:8], ext))
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.config.AWS.CloudFrontURL, "/"), key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}
