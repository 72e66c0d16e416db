// Package storage abstracts blob uploads behind a single Strategy so the
// direct-to-bucket and server-proxied paths share validation and callers
// never branch on transport. Fallback between strategies is an explicit
// decorator, not inline error handling.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"mangavault/pkg/apierr"
)

// Logical folders objects may be placed under.
const (
	FolderCovers  = "covers"
	FolderPages   = "pages"
	FolderAvatars = "avatars"
)

func IsValidFolder(f string) bool {
	return f == FolderCovers || f == FolderPages || f == FolderAvatars
}

// Image content types accepted on either upload path.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func IsAllowedContentType(ct string) bool {
	_, ok := allowedTypes[ct]
	return ok
}

// UploadRequest is a server-proxied upload. Size must be the exact byte
// length of Body.
type UploadRequest struct {
	Folder      string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Object is a stored blob.
type Object struct {
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// PresignedUpload is the handshake for a direct client upload: PUT the
// bytes to UploadURL, then reference PublicURL in the registering call.
type PresignedUpload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	Method    string    `json:"method"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Strategy uploads a blob and returns its public location.
type Strategy interface {
	Upload(ctx context.Context, req UploadRequest) (*Object, error)
	Name() string
}

// Presigner is implemented by strategies that can hand the client a
// time-limited direct upload URL.
type Presigner interface {
	Presign(ctx context.Context, folder, fileName, contentType string) (*PresignedUpload, error)
}

// ValidateRequest applies the server-side checks both paths share.
func ValidateRequest(folder, fileName, contentType string, size, maxBytes int64) error {
	if !IsValidFolder(folder) {
		return apierr.Validation("unknown upload folder %q", folder)
	}
	if strings.TrimSpace(fileName) == "" {
		return apierr.Validation("file name is required")
	}
	if !IsAllowedContentType(contentType) {
		return apierr.Validation("unsupported content type %q", contentType)
	}
	if size > 0 && size > maxBytes {
		return apierr.Validation("file exceeds the %d byte limit", maxBytes)
	}
	return nil
}

// ObjectKey builds a collision-free key preserving the original extension.
func ObjectKey(folder, fileName, contentType string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = allowedTypes[contentType]
	}
	return folder + "/" + uuid.NewString() + ext
}
