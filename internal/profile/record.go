package profile

import (
	"fmt"
	"strings"

	"onboarding/api/internal/catalog"
)

// Keys of the upstream account record that carry the stage and the
// company name, in priority order.
var (
	StageRecordKeys = []string{"kf_cf_businesslifecyclestage", "department"}
	NameRecordKeys  = []string{"kf_companyname", "accountName"}
)

// DefaultName is used when neither the record nor the saved document
// names the company.
const DefaultName = "Untitled Company"

// FromRecord maps a flat upstream record onto schema sections using the
// schema's FieldMapping. Only mapped keys present in the record are
// copied. Date Only values are cut to their date part.
func FromRecord(schema *catalog.Schema, record map[string]any) *Document {
	doc := New()
	if schema == nil {
		return doc
	}
	for _, section := range schema.Sections {
		fields := map[string]any{}
		for _, group := range section.Groups {
			for _, field := range group.Fields {
				apiKey, ok := schema.FieldMapping[field.FieldName]
				if !ok || apiKey == "" {
					continue
				}
				value, ok := record[apiKey]
				if !ok {
					continue
				}
				if text, isString := value.(string); isString && field.FieldType == catalog.FieldDateOnly {
					value, _, _ = strings.Cut(text, "T")
				}
				fields[field.FieldName] = value
			}
		}
		doc.Sections[section.ID] = SectionData{Fields: fields}
	}
	return doc
}

// Import builds the effective document for a user from an upstream record
// and the previously saved document. Saved field values win over record
// values. The stage comes from the record, then the saved document, and
// is normalized against the schema's stages.
func Import(schema *catalog.Schema, record map[string]any, saved *Document) *Document {
	doc := Merge(FromRecord(schema, record), saved)

	rawStage := firstString(record, StageRecordKeys)
	if rawStage == "" && saved != nil {
		rawStage = saved.CompanyStage
	}
	doc.CompanyStage = string(catalog.NormalizeStage(rawStage, knownStages(schema)))

	name := firstString(record, NameRecordKeys)
	if name == "" && saved != nil {
		name = saved.Name
	}
	if name == "" {
		name = DefaultName
	}
	doc.Name = name
	return doc
}

func knownStages(schema *catalog.Schema) []catalog.Stage {
	if schema == nil || len(schema.CompanyStages) == 0 {
		return catalog.LifecycleStages
	}
	return schema.StageIDs()
}

func firstString(record map[string]any, keys []string) string {
	for _, key := range keys {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		text := strings.TrimSpace(fmt.Sprint(value))
		if text != "" {
			return text
		}
	}
	return ""
}
