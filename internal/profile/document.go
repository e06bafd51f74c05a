// Package profile holds the user-owned business profile document and the
// contracts used to load and persist it.
package profile

import (
	"context"
	"encoding/json"
	"time"
)

// Document is a user's profile: the current company stage plus field
// values keyed by section id and field name.
type Document struct {
	CompanyStage string `json:"companyStage"`
	Name         string `json:"name,omitempty"`
	// SchemaVersion is the catalogue version the user last worked against.
	SchemaVersion string                 `json:"schemaVersion,omitempty"`
	Sections      map[string]SectionData `json:"sections"`
	UpdatedAt     time.Time              `json:"updatedAt,omitzero"`
}

// SectionData holds the saved values of one section.
type SectionData struct {
	Fields map[string]any `json:"fields"`
}

// Repository loads and saves documents by key. Load returns (nil, nil)
// when nothing has been saved under key.
type Repository interface {
	Load(ctx context.Context, key string) (*Document, error)
	Save(ctx context.Context, key string, doc *Document) error
	Delete(ctx context.Context, key string) error
}

// New returns an empty document.
func New() *Document {
	return &Document{Sections: map[string]SectionData{}}
}

// Decode parses a stored document. A null or empty payload yields an
// empty document.
func Decode(data []byte) (*Document, error) {
	doc := New()
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	if doc.Sections == nil {
		doc.Sections = map[string]SectionData{}
	}
	return doc, nil
}

// Fields returns the values saved for a section, or nil when the section
// has never been saved. Safe on a nil document.
func (d *Document) Fields(sectionID string) map[string]any {
	if d == nil || d.Sections == nil {
		return nil
	}
	return d.Sections[sectionID].Fields
}

// HasSection reports whether the section has been saved at least once.
func (d *Document) HasSection(sectionID string) bool {
	if d == nil || d.Sections == nil {
		return false
	}
	_, ok := d.Sections[sectionID]
	return ok
}

// FieldValue returns the raw value of a field.
func (d *Document) FieldValue(sectionID, fieldName string) (any, bool) {
	fields := d.Fields(sectionID)
	if fields == nil {
		return nil, false
	}
	value, ok := fields[fieldName]
	return value, ok
}

// SetGroup merges a group save into a section. Keys in values replace the
// stored ones; other keys in the section are kept.
func (d *Document) SetGroup(sectionID string, values map[string]any) {
	if d.Sections == nil {
		d.Sections = map[string]SectionData{}
	}
	section := d.Sections[sectionID]
	if section.Fields == nil {
		section.Fields = make(map[string]any, len(values))
	}
	for key, value := range values {
		section.Fields[key] = cloneValue(value)
	}
	d.Sections[sectionID] = section
}

// Clone returns a deep copy so callers can modify the result freely.
func (d *Document) Clone() *Document {
	if d == nil {
		return New()
	}
	out := &Document{
		CompanyStage:  d.CompanyStage,
		Name:          d.Name,
		SchemaVersion: d.SchemaVersion,
		UpdatedAt:     d.UpdatedAt,
		Sections:      make(map[string]SectionData, len(d.Sections)),
	}
	for id, section := range d.Sections {
		fields := make(map[string]any, len(section.Fields))
		for key, value := range section.Fields {
			fields[key] = cloneValue(value)
		}
		out.Sections[id] = SectionData{Fields: fields}
	}
	return out
}

// Merge overlays top on base field by field and returns a new document.
// Values in top win; the stage and name from top win when set.
func Merge(base, top *Document) *Document {
	out := base.Clone()
	if top == nil {
		return out
	}
	if top.CompanyStage != "" {
		out.CompanyStage = top.CompanyStage
	}
	if top.Name != "" {
		out.Name = top.Name
	}
	if top.SchemaVersion != "" {
		out.SchemaVersion = top.SchemaVersion
	}
	if top.UpdatedAt.After(out.UpdatedAt) {
		out.UpdatedAt = top.UpdatedAt
	}
	for id, section := range top.Sections {
		out.SetGroup(id, section.Fields)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return value
	}
}
