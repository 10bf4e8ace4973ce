// Package blobstore stores recording and upload blobs in an S3-compatible
// object store and maps public CDN URLs back to object keys.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"lifeplan/internal/domain"
)

// Store is the object store used by the recording ledger and upload handlers
type Store interface {
	// Upload validates and stores r, returning its public URL and key
	Upload(ctx context.Context, folder Folder, ownerID, name, contentType string, r io.Reader, size int64) (publicURL, key string, err error)

	// Delete removes the object behind a public URL
	Delete(ctx context.Context, publicURL string) error

	// PresignUpload returns a time-limited PUT URL for a direct client upload
	PresignUpload(ctx context.Context, folder Folder, ownerID, name, contentType string) (*PresignedUpload, error)

	// KeyFromURL maps a public URL served by this store back to its object key
	KeyFromURL(publicURL string) (string, error)
}

// PresignedUpload describes a direct upload slot
type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	FinalURL  string    `json:"final_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Config holds object store settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	// CDNURL prefixes public object URLs. Defaults to the endpoint bucket URL.
	CDNURL     string
	PresignTTL time.Duration
}

// MinioStore implements Store with minio-go
type MinioStore struct {
	client *minio.Client
	bucket string
	cdnURL string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewMinioStore creates a store. It does not contact the server.
func NewMinioStore(cfg Config, logger *slog.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object store endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	cdnURL := strings.TrimRight(cfg.CDNURL, "/")
	if cdnURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		cdnURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		cdnURL: cdnURL,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// URL returns the public URL of key
func (s *MinioStore) URL(key string) string {
	return s.cdnURL + "/" + strings.TrimPrefix(key, "/")
}

// KeyFromURL maps a public URL back to its object key. Only URLs under the
// store's public prefix that name an upload key are accepted.
func (s *MinioStore) KeyFromURL(publicURL string) (string, error) {
	key, ok := strings.CutPrefix(publicURL, s.cdnURL+"/")
	if ok {
		if _, owned := OwnerOf(key); owned {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not an object store url", domain.ErrValidation, publicURL)
}

func (s *MinioStore) newKey(ownerID string, folder Folder, name string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return ObjectKey(ownerID, folder, name, s.now(), random)
}

// Upload implements Store
func (s *MinioStore) Upload(ctx context.Context, folder Folder, ownerID, name, contentType string, r io.Reader, size int64) (string, string, error) {
	if err := Validate(folder, contentType, size); err != nil {
		return "", "", err
	}

	key := s.newKey(ownerID, folder, name)
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Info("object uploaded", "key", key, "size", info.Size, "owner_id", ownerID)
	return s.URL(key), key, nil
}

// Delete implements Store
func (s *MinioStore) Delete(ctx context.Context, publicURL string) error {
	key, err := s.KeyFromURL(publicURL)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	s.logger.Info("object deleted", "key", key)
	return nil
}

// PresignUpload implements Store
func (s *MinioStore) PresignUpload(ctx context.Context, folder Folder, ownerID, name, contentType string) (*PresignedUpload, error) {
	if err := Validate(folder, contentType, 0); err != nil {
		return nil, err
	}

	key := s.newKey(ownerID, folder, name)
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}

	return &PresignedUpload{
		UploadURL: u.String(),
		Key:       key,
		FinalURL:  s.URL(key),
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}
