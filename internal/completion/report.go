package completion

import (
	"onboarding/api/internal/catalog"
	"onboarding/api/internal/profile"
)

// Status is the badge shown next to a group.
type Status string

const (
	StatusOptional Status = "Optional"
	StatusRequired Status = "Required"
	StatusWorking  Status = "Working"
	// StatusComplete carries no label; the UI shows a complete badge.
	StatusComplete Status = ""
)

// StatusLabel derives a group's badge from its overall percentage.
func StatusLabel(overall int, group catalog.Group, stage catalog.Stage) Status {
	switch {
	case overall == 0 && len(group.Fields) > 0 && CountMandatory(group, stage) == 0:
		return StatusOptional
	case overall == 0 && CountMandatory(group, stage) > 0:
		return StatusRequired
	case overall > 0 && overall < 100:
		return StatusWorking
	}
	return StatusComplete
}

type GroupReport struct {
	GroupName string `json:"groupName"`
	Overall   Result `json:"overall"`
	Mandatory Result `json:"mandatory"`
	Status    Status `json:"status"`
}

type SectionReport struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Overall   Result        `json:"overall"`
	Mandatory Result        `json:"mandatory"`
	Groups    []GroupReport `json:"groups"`
}

// Report is the full completion picture of one document against one
// schema version.
type Report struct {
	Version   string          `json:"version"`
	Stage     catalog.Stage   `json:"stage"`
	Overall   Result          `json:"overall"`
	Mandatory Result          `json:"mandatory"`
	Sections  []SectionReport `json:"sections"`
}

// ResolveStage normalizes the document's stage against the schema's
// stage catalogue.
func ResolveStage(schema *catalog.Schema, doc *profile.Document) catalog.Stage {
	known := catalog.LifecycleStages
	if schema != nil && len(schema.CompanyStages) > 0 {
		known = schema.StageIDs()
	}
	raw := ""
	if doc != nil {
		raw = doc.CompanyStage
	}
	return catalog.NormalizeStage(raw, known)
}

// Evaluate computes every completion figure for doc.
func Evaluate(schema *catalog.Schema, doc *profile.Document) Report {
	stage := ResolveStage(schema, doc)
	report := Report{
		Stage:     stage,
		Overall:   ProfileCompletion(schema, doc),
		Mandatory: MandatoryCompletion(schema, doc, stage),
		Sections:  []SectionReport{},
	}
	if schema == nil {
		return report
	}
	report.Version = schema.Version

	for _, section := range schema.Sections {
		fields := doc.Fields(section.ID)
		sr := SectionReport{
			ID:        section.ID,
			Title:     section.Title,
			Overall:   SectionCompletion(section, fields),
			Mandatory: SectionMandatoryCompletion(section, fields, stage),
			Groups:    make([]GroupReport, 0, len(section.Groups)),
		}
		for _, group := range section.Groups {
			overall := GroupCompletion(section.ID, group, fields, stage)
			sr.Groups = append(sr.Groups, GroupReport{
				GroupName: group.GroupName,
				Overall:   overall,
				Mandatory: GroupMandatoryCompletion(section.ID, group, fields, stage),
				Status:    StatusLabel(overall.Percentage, group, stage),
			})
		}
		report.Sections = append(report.Sections, sr)
	}
	return report
}

// FieldState is the per-field answer the form layer needs.
type FieldState struct {
	catalog.FieldRef
	Mandatory bool `json:"mandatory"`
	Missing   bool `json:"missing"`
}

// FieldStates returns required/missing flags for every field of a section.
func FieldStates(schema *catalog.Schema, doc *profile.Document, sectionID string) []FieldState {
	if schema == nil {
		return nil
	}
	section, ok := schema.Section(sectionID)
	if !ok {
		return nil
	}
	stage := ResolveStage(schema, doc)
	fields := doc.Fields(sectionID)
	out := make([]FieldState, 0, section.FieldCount())
	for _, group := range section.Groups {
		for _, field := range group.Fields {
			out = append(out, FieldState{
				FieldRef:  catalog.FieldRef{SectionID: section.ID, GroupName: group.GroupName, Field: field},
				Mandatory: IsMandatory(field, stage),
				Missing:   IsMissing(field, fields[field.FieldName]),
			})
		}
	}
	return out
}
