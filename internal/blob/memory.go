package blob

import (
	"context"
	"fmt"
	"io"
	"sync"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process memory for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
	loc     locator
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		objects: map[string]object{},
		loc:     newLocator("memory", "local", bucket),
	}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("short upload: got %d of %d bytes", len(data), size)
	}
	s.mu.Lock()
	s.objects[key] = object{data: data, contentType: contentType}
	s.mu.Unlock()
	return s.loc.url(key), nil
}

func (s *MemoryStore) Delete(_ context.Context, objectURL string) error {
	key, err := s.loc.key(objectURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

// Get returns a copy of the stored bytes and content type.
func (s *MemoryStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), obj.data...), obj.contentType, true
}

// Len is the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
