// Package completion decides which profile fields are required for a
// company stage and turns a profile document into completion figures.
// Every function here is pure: inputs are read, never modified.
package completion

import "onboarding/api/internal/catalog"

// IsMandatory reports whether field is required in stage. Always-rules
// hold for every stage, including ones the catalogue does not declare.
// Stage lists match exactly and case-sensitively.
func IsMandatory(field catalog.FieldDefinition, stage catalog.Stage) bool {
	switch field.Mandatory.Kind {
	case catalog.RuleAlways:
		return true
	case catalog.RuleStages:
		for _, s := range field.Mandatory.Stages {
			if s == stage {
				return true
			}
		}
	}
	return false
}

// MandatoryFields lists the fields required in stage in schema order.
func MandatoryFields(schema *catalog.Schema, stage catalog.Stage) []catalog.FieldRef {
	if schema == nil {
		return nil
	}
	var out []catalog.FieldRef
	schema.Walk(func(section *catalog.Section, group *catalog.Group, field *catalog.FieldDefinition) {
		if IsMandatory(*field, stage) {
			out = append(out, catalog.FieldRef{SectionID: section.ID, GroupName: group.GroupName, Field: *field})
		}
	})
	return out
}

// CountMandatory is the number of fields in group required in stage.
func CountMandatory(group catalog.Group, stage catalog.Stage) int {
	n := 0
	for _, field := range group.Fields {
		if IsMandatory(field, stage) {
			n++
		}
	}
	return n
}
