package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const fieldIndex = "onboarding_fields"

// Meili implements Searcher over a single Meilisearch index of fields.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	// onRecover is invoked after the index is reconfigured following an
	// outage, so the caller can push records again.
	onRecover func()
}

// NewMeili connects to Meilisearch and starts a background health
// monitor. An unreachable server is not an error; the instance reports
// unhealthy until it comes back.
func NewMeili(url, apiKey string) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
	}
	if _, err := m.client.Health(); err != nil {
		slog.Warn("meilisearch unavailable", "url", url, "error", err)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}
	go m.healthLoop(10 * time.Second)
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: fieldIndex, PrimaryKey: "id"}); err != nil {
		slog.Debug("create search index", "index", fieldIndex, "error", err)
	}
	index := m.client.Index(fieldIndex)

	filterable := []interface{}{"version", "sectionId", "fieldType"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("update filterable attributes", "index", fieldIndex, "error", err)
	}
	searchable := []string{"label", "fieldName", "groupName", "sectionTitle"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		slog.Warn("update searchable attributes", "index", fieldIndex, "error", err)
	}
}

func (m *Meili) healthLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Swap(err == nil)
			if err == nil && !wasHealthy {
				slog.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
				if m.onRecover != nil {
					m.onRecover()
				}
			}
		}
	}
}

func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	request := &meili.SearchRequest{
		IndexUID:              fieldIndex,
		Query:                 q.Text,
		Limit:                 int64(q.limit()),
		AttributesToHighlight: []string{"label"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	filters := []string{fmt.Sprintf("version = %q", q.Version)}
	if q.SectionID != "" {
		filters = append(filters, fmt.Sprintf("sectionId = %q", q.SectionID))
	}
	request.Filter = filters

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: []*meili.SearchRequest{request}})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var (
		results []Result
		total   int
	)
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	var r Result
	r.ID = decodeString(hit, "id")
	r.Version = decodeString(hit, "version")
	r.SectionID = decodeString(hit, "sectionId")
	r.SectionTitle = decodeString(hit, "sectionTitle")
	r.GroupName = decodeString(hit, "groupName")
	r.FieldName = decodeString(hit, "fieldName")
	r.Label = decodeString(hit, "label")
	r.FieldType = decodeString(hit, "fieldType")
	r.Snippet = decodeFormattedString(hit, "label")
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}

// IndexRecords upserts records by id.
func (m *Meili) IndexRecords(records []FieldRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(fieldIndex).AddDocuments(records, nil)
	return err
}
