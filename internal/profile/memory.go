package profile

import (
	"context"
	"sync"
)

// MemoryRepository keeps documents in process memory. Documents are
// cloned on the way in and out.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: map[string]*Document{}}
}

func (r *MemoryRepository) Load(_ context.Context, key string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[key]
	if !ok {
		return nil, nil
	}
	return doc.Clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, key string, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[key] = doc.Clone()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, key)
	return nil
}
