package storage

import (
	"context"
	"net/url"
	"sync"
	"time"

	catalogapp "github.com/cloudpos/backend/internal/application/catalog"
	notificationapp "github.com/cloudpos/backend/internal/application/notification"
)

var (
	_ catalogapp.ObjectStorageService = (*MemoryObjectStorage)(nil)
	_ notificationapp.DocumentStore   = (*MemoryObjectStorage)(nil)
)

// MemoryObjectStorage keeps objects in memory and hands out fake URLs.
// Used when storage is disabled and in tests.
type MemoryObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjectStorage creates an empty store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "http://localhost:8080/objects",
		objects: make(map[string][]byte),
	}
}

func (s *MemoryObjectStorage) url(op, storageKey string, expiresAt time.Time) string {
	return s.BaseURL + "/" + op + "/" + storageKey + "?expires=" + url.QueryEscape(expiresAt.Format(time.RFC3339))
}

// GenerateUploadURL returns a fake upload URL
func (s *MemoryObjectStorage) GenerateUploadURL(_ context.Context, storageKey, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errKeyRequired
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.url("upload", storageKey, expiresAt), expiresAt, nil
}

// GenerateDownloadURL returns a fake download URL
func (s *MemoryObjectStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errKeyRequired
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.url("download", storageKey, expiresAt), expiresAt, nil
}

// DeleteObject removes a stored object
func (s *MemoryObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errKeyRequired
	}
	s.mu.Lock()
	delete(s.objects, storageKey)
	s.mu.Unlock()
	return nil
}

// ObjectExists reports true for uploaded keys. Keys never uploaded through
// Upload (client-side presigned PUTs) are assumed present.
func (s *MemoryObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errKeyRequired
	}
	return true, nil
}

// Upload stores a copy of data
func (s *MemoryObjectStorage) Upload(_ context.Context, storageKey string, data []byte, _ string) error {
	if storageKey == "" {
		return errKeyRequired
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.mu.Lock()
	s.objects[storageKey] = buf
	s.mu.Unlock()
	return nil
}

// Object returns a stored object
func (s *MemoryObjectStorage) Object(storageKey string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[storageKey]
	return data, ok
}
