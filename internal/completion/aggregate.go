package completion

import (
	"math"

	"onboarding/api/internal/catalog"
	"onboarding/api/internal/profile"
)

// Result is a completion figure. Missing lists the fields that were
// counted but not provided.
type Result struct {
	Completed  int                `json:"completed"`
	Total      int                `json:"total"`
	Percentage int                `json:"percentage"`
	Missing    []catalog.FieldRef `json:"missing"`
}

// percent rounds half up, matching what the dashboards display.
func percent(completed, total int) int {
	return int(math.Floor(100*float64(completed)/float64(total) + 0.5))
}

func (r *Result) count(ref catalog.FieldRef, fields map[string]any) {
	r.Total++
	if IsMissing(ref.Field, fields[ref.Field.FieldName]) {
		r.Missing = append(r.Missing, ref)
		return
	}
	r.Completed++
}

func (r *Result) add(other Result) {
	r.Completed += other.Completed
	r.Total += other.Total
	r.Missing = append(r.Missing, other.Missing...)
}

// GroupCompletion counts every field of the group. An empty group is
// complete; a group with no required fields and nothing filled in reads 0.
func GroupCompletion(sectionID string, group catalog.Group, fields map[string]any, stage catalog.Stage) Result {
	res := Result{Missing: []catalog.FieldRef{}}
	for _, field := range group.Fields {
		res.count(catalog.FieldRef{SectionID: sectionID, GroupName: group.GroupName, Field: field}, fields)
	}
	switch {
	case res.Total == 0:
		res.Percentage = 100
	case res.Completed == 0 && CountMandatory(group, stage) == 0:
		res.Percentage = 0
	default:
		res.Percentage = percent(res.Completed, res.Total)
	}
	return res
}

// GroupMandatoryCompletion counts only the fields required in stage. A
// group without required fields is complete.
func GroupMandatoryCompletion(sectionID string, group catalog.Group, fields map[string]any, stage catalog.Stage) Result {
	res := Result{Missing: []catalog.FieldRef{}}
	for _, field := range group.Fields {
		if IsMandatory(field, stage) {
			res.count(catalog.FieldRef{SectionID: sectionID, GroupName: group.GroupName, Field: field}, fields)
		}
	}
	res.Percentage = 100
	if res.Total > 0 {
		res.Percentage = percent(res.Completed, res.Total)
	}
	return res
}

// SectionCompletion counts every field of every group. A section without
// fields reads 0.
func SectionCompletion(section catalog.Section, fields map[string]any) Result {
	res := Result{Missing: []catalog.FieldRef{}}
	for _, group := range section.Groups {
		for _, field := range group.Fields {
			res.count(catalog.FieldRef{SectionID: section.ID, GroupName: group.GroupName, Field: field}, fields)
		}
	}
	if res.Total > 0 {
		res.Percentage = percent(res.Completed, res.Total)
	}
	return res
}

// SectionMandatoryCompletion counts the section's fields required in
// stage. A section without required fields is complete.
func SectionMandatoryCompletion(section catalog.Section, fields map[string]any, stage catalog.Stage) Result {
	res := Result{Missing: []catalog.FieldRef{}}
	for _, group := range section.Groups {
		res.add(GroupMandatoryCompletion(section.ID, group, fields, stage))
	}
	res.Percentage = 100
	if res.Total > 0 {
		res.Percentage = percent(res.Completed, res.Total)
	}
	return res
}

// MandatoryCompletion is the required-field completion across the whole
// schema. Sections absent from doc count all their required fields as
// missing. With nothing required the percentage is 0.
func MandatoryCompletion(schema *catalog.Schema, doc *profile.Document, stage catalog.Stage) Result {
	res := Result{Missing: []catalog.FieldRef{}}
	for _, ref := range MandatoryFields(schema, stage) {
		res.count(ref, doc.Fields(ref.SectionID))
	}
	if res.Total > 0 {
		res.Percentage = percent(res.Completed, res.Total)
	}
	return res
}

// ProfileCompletion counts every field in the schema, required or not.
func ProfileCompletion(schema *catalog.Schema, doc *profile.Document) Result {
	res := Result{Missing: []catalog.FieldRef{}}
	if schema == nil {
		return res
	}
	for _, section := range schema.Sections {
		res.add(SectionCompletion(section, doc.Fields(section.ID)))
	}
	if res.Total > 0 {
		res.Percentage = percent(res.Completed, res.Total)
	}
	return res
}
