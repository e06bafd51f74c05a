package search

import (
	"sort"
	"strings"
	"sync"
)

// MemoryIndex is a token-match index over catalogue records. It is
// always healthy and serves as the fallback when Meilisearch is down.
type MemoryIndex struct {
	mu        sync.RWMutex
	byVersion map[string][]FieldRecord
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byVersion: map[string][]FieldRecord{}}
}

// Replace swaps the records held for version.
func (m *MemoryIndex) Replace(version string, records []FieldRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byVersion[version] = append([]FieldRecord(nil), records...)
}

func (m *MemoryIndex) Healthy() bool { return true }

// Search requires every query token to appear in the record. Label hits
// rank ahead of hits found only in the field name, group or section.
func (m *MemoryIndex) Search(q Query) ([]Result, int, error) {
	tokens := strings.Fields(strings.ToLower(q.Text))
	if len(tokens) == 0 {
		return nil, 0, nil
	}

	m.mu.RLock()
	candidates := m.byVersion[q.Version]
	m.mu.RUnlock()

	type scored struct {
		record FieldRecord
		score  int
	}
	var hits []scored
	for _, record := range candidates {
		if q.SectionID != "" && record.SectionID != q.SectionID {
			continue
		}
		if score, ok := match(record, tokens); ok {
			hits = append(hits, scored{record: record, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	total := len(hits)
	if len(hits) > q.limit() {
		hits = hits[:q.limit()]
	}
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{FieldRecord: hit.record})
	}
	return results, total, nil
}

func match(record FieldRecord, tokens []string) (int, bool) {
	label := strings.ToLower(record.Label)
	rest := strings.ToLower(strings.Join([]string{record.FieldName, record.GroupName, record.SectionTitle, record.SectionID}, " "))
	score := 0
	for _, token := range tokens {
		switch {
		case strings.Contains(label, token):
			score += 2
		case strings.Contains(rest, token):
			score++
		default:
			return 0, false
		}
	}
	return score, true
}
