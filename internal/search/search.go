// Package search finds catalogue fields by label, name, group or section.
package search

import (
	"strings"

	"onboarding/api/internal/catalog"
)

// FieldRecord is the indexed form of one catalogue field.
type FieldRecord struct {
	ID           string `json:"id"`
	Version      string `json:"version"`
	SectionID    string `json:"sectionId"`
	SectionTitle string `json:"sectionTitle"`
	GroupName    string `json:"groupName"`
	FieldName    string `json:"fieldName"`
	Label        string `json:"label"`
	FieldType    string `json:"fieldType"`
}

// Result is a single hit. Snippet carries the highlighted label when the
// backend provides one.
type Result struct {
	FieldRecord
	Snippet string `json:"snippet,omitempty"`
}

type Query struct {
	Text      string
	Version   string
	SectionID string
	Limit     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Backend string   `json:"backend"`
}

type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

const defaultLimit = 20

func (q Query) limit() int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}

// Records flattens a schema into index records, in schema order.
func Records(schema *catalog.Schema) []FieldRecord {
	if schema == nil {
		return nil
	}
	var out []FieldRecord
	schema.Walk(func(section *catalog.Section, group *catalog.Group, field *catalog.FieldDefinition) {
		out = append(out, FieldRecord{
			ID:           recordID(schema.Version, section.ID, field.FieldName),
			Version:      schema.Version,
			SectionID:    section.ID,
			SectionTitle: section.Title,
			GroupName:    group.GroupName,
			FieldName:    field.FieldName,
			Label:        field.Label,
			FieldType:    string(field.FieldType),
		})
	})
	return out
}

// recordID is restricted to the characters Meilisearch accepts in a
// primary key.
func recordID(parts ...string) string {
	joined := strings.Join(parts, "__")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, joined)
}
