package storage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mangavault/pkg/apierr"
)

func TestValidateRequest(t *testing.T) {
	const max = 1 << 20

	assert.NoError(t, ValidateRequest(FolderCovers, "cover.jpg", "image/jpeg", 1000, max))
	assert.NoError(t, ValidateRequest(FolderPages, "p01.png", "image/png", 0, max), "unknown size is allowed")

	cases := []struct {
		name        string
		folder      string
		fileName    string
		contentType string
		size        int64
	}{
		{"bad folder", "secrets", "a.jpg", "image/jpeg", 10},
		{"blank name", FolderCovers, "  ", "image/jpeg", 10},
		{"bad type", FolderCovers, "a.pdf", "application/pdf", 10},
		{"too large", FolderCovers, "a.jpg", "image/jpeg", max + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(tc.folder, tc.fileName, tc.contentType, tc.size, max)
			assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
		})
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(FolderPages, "Page 01.PNG", "image/png")
	assert.True(t, strings.HasPrefix(key, "pages/"))
	assert.True(t, strings.HasSuffix(key, ".png"), "extension lowercased: %s", key)

	// Extension falls back to the content type when the name has none.
	key = ObjectKey(FolderAvatars, "avatar", "image/webp")
	assert.True(t, strings.HasSuffix(key, ".webp"), key)

	assert.NotEqual(t, ObjectKey(FolderCovers, "a.jpg", "image/jpeg"),
		ObjectKey(FolderCovers, "a.jpg", "image/jpeg"), "keys never collide")
}

func TestMemoryStoreUpload(t *testing.T) {
	s := NewMemoryStore("https://cdn.test", 1<<20)
	ctx := context.Background()

	body := []byte("fake image bytes")
	obj, err := s.Upload(ctx, UploadRequest{
		Folder: FolderCovers, FileName: "c.jpg", ContentType: "image/jpeg",
		Size: int64(len(body)), Body: bytes.NewReader(body),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/"+obj.Key, obj.PublicURL)

	stored, ok := s.Get(obj.Key)
	require.True(t, ok)
	assert.Equal(t, body, stored)
}

func TestMemoryStoreEnforcesLimitOnStream(t *testing.T) {
	s := NewMemoryStore("https://cdn.test", 8)

	// The declared size lies; the stream itself is over the limit.
	_, err := s.Upload(context.Background(), UploadRequest{
		Folder: FolderCovers, FileName: "c.jpg", ContentType: "image/jpeg",
		Size: 4, Body: strings.NewReader("way more than eight bytes"),
	})
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Zero(t, s.Len())
}

func TestFallbackUsesSecondaryOnUpstreamError(t *testing.T) {
	primary := NewMemoryStore("https://primary.test", 1<<20)
	secondary := NewMemoryStore("https://secondary.test", 1<<20)
	primary.SetFailing(true)

	fallbacks := 0
	f := NewFallback(primary, secondary, zap.NewNop(), func() { fallbacks++ })
	assert.Equal(t, "memory+memory", f.Name())

	obj, err := f.Upload(context.Background(), UploadRequest{
		Folder: FolderCovers, FileName: "c.jpg", ContentType: "image/jpeg",
		Size: 3, Body: strings.NewReader("abc"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.PublicURL, "https://secondary.test/"))
	assert.Equal(t, 1, fallbacks)
	assert.Zero(t, primary.Len())
	assert.Equal(t, 1, secondary.Len())
}

func TestFallbackSkipsSecondaryOnValidationError(t *testing.T) {
	primary := NewMemoryStore("https://primary.test", 1<<20)
	secondary := NewMemoryStore("https://secondary.test", 1<<20)

	fallbacks := 0
	f := NewFallback(primary, secondary, zap.NewNop(), func() { fallbacks++ })

	_, err := f.Upload(context.Background(), UploadRequest{
		Folder: "nope", FileName: "c.jpg", ContentType: "image/jpeg",
		Size: 3, Body: strings.NewReader("abc"),
	})
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Zero(t, fallbacks, "validation errors are final")
	assert.Zero(t, secondary.Len())
}

// drainThenFailStore reads part of the body before failing, like a remote
// store whose connection drops mid write.
type drainThenFailStore struct {
	drain int64
}

func (s *drainThenFailStore) Name() string { return "flaky" }

func (s *drainThenFailStore) Upload(ctx context.Context, req UploadRequest) (*Object, error) {
	io.CopyN(io.Discard, req.Body, s.drain)
	return nil, apierr.Upstream("connection reset during upload", nil)
}

func TestFallbackReplaysBodyAfterPartialRead(t *testing.T) {
	payload := "0123456789ABCDEFGHIJ"
	primary := &drainThenFailStore{drain: 10}
	secondary := NewMemoryStore("https://secondary.test", 1<<20)

	f := NewFallback(primary, secondary, zap.NewNop(), nil)
	obj, err := f.Upload(context.Background(), UploadRequest{
		Folder: FolderCovers, FileName: "c.jpg", ContentType: "image/jpeg",
		Size: int64(len(payload)), Body: strings.NewReader(payload),
	})
	require.NoError(t, err)
	require.Equal(t, 1, secondary.Len())

	stored, ok := secondary.Get(obj.Key)
	require.True(t, ok)
	assert.Equal(t, payload, string(stored), "secondary must see the full body, not the remainder the primary left")
}

func TestFallbackPrefersPrimary(t *testing.T) {
	primary := NewMemoryStore("https://primary.test", 1<<20)
	secondary := NewMemoryStore("https://secondary.test", 1<<20)
	f := NewFallback(primary, secondary, zap.NewNop(), nil)

	obj, err := f.Upload(context.Background(), UploadRequest{
		Folder: FolderCovers, FileName: "c.jpg", ContentType: "image/jpeg",
		Size: 3, Body: strings.NewReader("abc"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.PublicURL, "https://primary.test/"))
	assert.Zero(t, secondary.Len())
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestProbeDimensions(t *testing.T) {
	raw := pngBytes(t, 120, 240)

	w, h, replay := ProbeDimensions(bytes.NewReader(raw))
	assert.Equal(t, 120, w)
	assert.Equal(t, 240, h)

	// The replay reader must return the full original stream.
	got, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestProbeDimensionsUnknownFormat(t *testing.T) {
	raw := []byte("definitely not an image")

	w, h, replay := ProbeDimensions(bytes.NewReader(raw))
	assert.Zero(t, w)
	assert.Zero(t, h)

	got, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, raw, got, "bytes survive a failed probe")
}
