package storage

import (
	"context"
	"io"
	"sync"

	"mangavault/pkg/apierr"
)

// MemoryStore holds objects in process memory. Used in tests and when no
// bucket is configured (local development).
type MemoryStore struct {
	baseURL  string
	maxBytes int64

	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func NewMemoryStore(baseURL string, maxBytes int64) *MemoryStore {
	return &MemoryStore{
		baseURL:  baseURL,
		maxBytes: maxBytes,
		objects:  make(map[string][]byte),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Upload(ctx context.Context, req UploadRequest) (*Object, error) {
	if err := ValidateRequest(req.Folder, req.FileName, req.ContentType, req.Size, s.maxBytes); err != nil {
		return nil, err
	}

	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return nil, apierr.Upstream("memory store failing", nil)
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, s.maxBytes+1))
	if err != nil {
		return nil, apierr.Upstream("read body", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apierr.Validation("file exceeds the %d byte limit", s.maxBytes)
	}

	key := ObjectKey(req.Folder, req.FileName, req.ContentType)
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()

	return &Object{Key: key, PublicURL: s.baseURL + "/" + key}, nil
}

// Get returns a stored object's bytes, for test assertions.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

// SetFailing makes every subsequent Upload fail, for fallback tests.
func (s *MemoryStore) SetFailing(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
