package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"mangavault/pkg/apierr"
)

const presignTTL = 15 * time.Minute

// GCSStore writes objects to a Google Cloud Storage bucket. It serves both
// upload paths: proxied writes through the object writer and presigned
// PUT URLs for direct client uploads.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	maxBytes      int64
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string // empty falls back to storage.googleapis.com
	MaxUploadBytes  int64
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	base := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com/" + cfg.Bucket
	}
	return &GCSStore{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: base,
		maxBytes:      cfg.MaxUploadBytes,
	}, nil
}

func (s *GCSStore) Name() string { return "gcs" }

func (s *GCSStore) Upload(ctx context.Context, req UploadRequest) (*Object, error) {
	if err := ValidateRequest(req.Folder, req.FileName, req.ContentType, req.Size, s.maxBytes); err != nil {
		return nil, err
	}

	key := ObjectKey(req.Folder, req.FileName, req.ContentType)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = req.ContentType
	w.CacheControl = "public, max-age=31536000, immutable"

	// LimitReader guards the size limit even when the declared size lies.
	n, err := io.Copy(w, io.LimitReader(req.Body, s.maxBytes+1))
	if err != nil {
		_ = w.Close()
		return nil, apierr.Upstream("storage write failed", err)
	}
	if n > s.maxBytes {
		_ = w.Close()
		return nil, apierr.Validation("file exceeds the %d byte limit", s.maxBytes)
	}
	if err := w.Close(); err != nil {
		return nil, apierr.Upstream("storage close failed", err)
	}

	return &Object{Key: key, PublicURL: s.publicURL(key)}, nil
}

// Presign issues a time-limited PUT URL the client uploads to directly,
// skipping the application server for the bytes.
func (s *GCSStore) Presign(ctx context.Context, folder, fileName, contentType string) (*PresignedUpload, error) {
	if err := ValidateRequest(folder, fileName, contentType, 0, s.maxBytes); err != nil {
		return nil, err
	}

	key := ObjectKey(folder, fileName, contentType)
	expires := time.Now().Add(presignTTL)
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		Expires:     expires,
		ContentType: contentType,
	})
	if err != nil {
		return nil, apierr.Upstream("presign failed", err)
	}

	return &PresignedUpload{
		Key:       key,
		UploadURL: url,
		Method:    http.MethodPut,
		PublicURL: s.publicURL(key),
		ExpiresAt: expires,
	}, nil
}

func (s *GCSStore) publicURL(key string) string {
	return s.publicBaseURL + "/" + key
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
