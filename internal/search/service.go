package search

import (
	"log/slog"
	"strings"
	"sync"

	"onboarding/api/internal/catalog"
)

const (
	BackendMeili  = "meilisearch"
	BackendMemory = "memory"
)

// Service tries Meilisearch first and falls back to the in-memory index.
type Service struct {
	meili  *Meili
	memory *MemoryIndex

	mu      sync.Mutex
	records [][]FieldRecord
}

// NewService creates a search service. meili may be nil.
func NewService(meili *Meili) *Service {
	s := &Service{meili: meili, memory: NewMemoryIndex()}
	if meili != nil {
		meili.onRecover = s.pushAll
	}
	return s
}

// IndexSchemas loads every schema into the fallback index and pushes the
// records to Meilisearch in the background.
func (s *Service) IndexSchemas(schemas []*catalog.Schema) {
	batches := make([][]FieldRecord, 0, len(schemas))
	for _, schema := range schemas {
		records := Records(schema)
		s.memory.Replace(schema.Version, records)
		batches = append(batches, records)
	}
	s.mu.Lock()
	s.records = batches
	s.mu.Unlock()

	if s.meili != nil && s.meili.Healthy() {
		go s.pushAll()
	}
}

func (s *Service) pushAll() {
	s.mu.Lock()
	batches := s.records
	s.mu.Unlock()
	for _, records := range batches {
		if err := s.meili.IndexRecords(records); err != nil {
			slog.Warn("index catalogue fields", "error", err)
		}
	}
}

func (s *Service) Search(q Query) Response {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return Response{Results: []Result{}, Query: q.Text, Backend: BackendMemory}
	}
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: BackendMeili}
		}
		slog.Warn("meilisearch error, falling back to memory index", "error", err)
	}

	results, total, _ := s.memory.Search(q)
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: BackendMemory}
}

// Backend names the backend a search would be served from right now.
func (s *Service) Backend() string {
	if s.meili != nil && s.meili.Healthy() {
		return BackendMeili
	}
	return BackendMemory
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
