package catalog

import (
	"fmt"
	"strings"
)

// DefaultQuestionTotal is the number of questions the domain taxonomy
// must account for.
const DefaultQuestionTotal = 463

// ValidateOptions tunes Validate.
type ValidateOptions struct {
	// ExpectedQuestionTotal is the required sum of domain question counts.
	// Zero means DefaultQuestionTotal.
	ExpectedQuestionTotal int
}

// Validate checks a schema for internal consistency. Problems are
// reported as warnings; a schema with warnings is still usable.
func Validate(schema *Schema, opts ValidateOptions) []string {
	if schema == nil {
		return []string{"Catalogue is empty"}
	}
	if opts.ExpectedQuestionTotal == 0 {
		opts.ExpectedQuestionTotal = DefaultQuestionTotal
	}

	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	stageIDs := validateStages(schema.CompanyStages, warn)
	sectionIDs := validateSections(schema.Sections, stageIDs, warn)
	domainIDs := validateTaxonomy(schema, warn)

	if len(schema.Domains) > 0 {
		total := 0
		for _, domain := range schema.Domains {
			total += domain.QuestionCount
		}
		if total != opts.ExpectedQuestionTotal {
			warn("Domain question counts sum to %d, expected %d", total, opts.ExpectedQuestionTotal)
		}
	}

	for _, mapping := range schema.TabDomains {
		if _, ok := sectionIDs[mapping.TabID]; !ok {
			warn("Tab mapping references unknown tab %s", mapping.TabID)
		}
		if _, ok := domainIDs[mapping.DomainID]; !ok {
			warn("Tab %s mapped to unknown domain %s", mapping.TabID, mapping.DomainID)
		}
	}

	return warnings
}

// ValidateAll validates each schema on its own and prefixes every warning
// with the schema version.
func ValidateAll(schemas []*Schema, opts ValidateOptions) []string {
	var out []string
	for _, schema := range schemas {
		version := "unknown"
		if schema != nil && schema.Version != "" {
			version = schema.Version
		}
		for _, warning := range Validate(schema, opts) {
			out = append(out, fmt.Sprintf("[%s] %s", version, warning))
		}
	}
	return out
}

func validateStages(stages []StageConfig, warn func(string, ...any)) map[Stage]struct{} {
	ids := make(map[Stage]struct{}, len(stages))
	sequences := make(map[int]Stage)
	for _, stage := range stages {
		if stage.ID == "" {
			warn("Stage missing id")
		}
		if _, dup := ids[stage.ID]; dup {
			warn("Duplicate stage id %s", stage.ID)
		}
		ids[stage.ID] = struct{}{}
		if strings.TrimSpace(stage.Label) == "" {
			warn("Stage %s missing label", orUnknown(string(stage.ID)))
		}
		if stage.Sequence != 0 {
			if other, dup := sequences[stage.Sequence]; dup {
				warn("Stage %s reuses sequence %d of stage %s", stage.ID, stage.Sequence, other)
			}
			sequences[stage.Sequence] = stage.ID
		}
	}
	return ids
}

func validateSections(sections []Section, stageIDs map[Stage]struct{}, warn func(string, ...any)) map[string]struct{} {
	sectionIDs := make(map[string]struct{}, len(sections))
	fieldNames := make(map[string]struct{})
	for _, section := range sections {
		if section.ID == "" {
			warn("Tab missing id")
		} else if _, dup := sectionIDs[section.ID]; dup {
			warn("Duplicate tab id %s", section.ID)
		}
		sectionIDs[section.ID] = struct{}{}

		for _, group := range section.Groups {
			for _, field := range group.Fields {
				if _, dup := fieldNames[field.FieldName]; dup {
					warn("Duplicate fieldName detected: %s", field.FieldName)
				}
				fieldNames[field.FieldName] = struct{}{}

				if !KnownFieldType(field.FieldType) {
					warn("Field %s has unknown type %s", field.FieldName, field.FieldType)
				}
				if field.Mandatory.Invalid != "" {
					warn("Field %s has unsupported mandatory rule %s", field.FieldName, field.Mandatory.Invalid)
				}
				if field.Mandatory.Kind == RuleStages {
					var invalid []string
					for _, stage := range field.Mandatory.Stages {
						if _, ok := stageIDs[stage]; !ok {
							invalid = append(invalid, string(stage))
						}
					}
					if len(invalid) > 0 {
						warn("Field %s references unknown mandatory stages: %s", field.FieldName, strings.Join(invalid, ", "))
					}
				}
			}
		}
	}
	return sectionIDs
}

func validateTaxonomy(schema *Schema, warn func(string, ...any)) map[string]struct{} {
	phaseIDs := make(map[string]struct{}, len(schema.Phases))
	phaseSequences := make(map[int]string)
	listed := make(map[string]string)
	for _, phase := range schema.Phases {
		if phase.ID == "" {
			warn("Phase missing id")
		}
		if _, dup := phaseIDs[phase.ID]; dup {
			warn("Duplicate phase id %s", phase.ID)
		}
		phaseIDs[phase.ID] = struct{}{}
		if other, dup := phaseSequences[phase.Sequence]; dup {
			warn("Phase %s reuses sequence %d of phase %s", phase.ID, phase.Sequence, other)
		}
		phaseSequences[phase.Sequence] = phase.ID
		for _, domainID := range phase.DomainIDs {
			listed[domainID] = phase.ID
		}
	}

	domainIDs := make(map[string]struct{}, len(schema.Domains))
	domainSequences := make(map[int]string)
	for _, domain := range schema.Domains {
		if domain.ID == "" {
			warn("Domain missing id")
		}
		if _, dup := domainIDs[domain.ID]; dup {
			warn("Duplicate domain id %s", domain.ID)
		}
		domainIDs[domain.ID] = struct{}{}
		if other, dup := domainSequences[domain.Sequence]; dup {
			warn("Domain %s reuses sequence %d of domain %s", domain.ID, domain.Sequence, other)
		}
		domainSequences[domain.Sequence] = domain.ID

		if _, ok := phaseIDs[domain.PhaseID]; !ok {
			warn("Domain %s references unknown phase %s", domain.ID, orUnknown(domain.PhaseID))
		} else if owner, ok := listed[domain.ID]; !ok || owner != domain.PhaseID {
			warn("Domain %s is not listed by its phase %s", domain.ID, domain.PhaseID)
		}
	}

	for _, phase := range schema.Phases {
		for _, domainID := range phase.DomainIDs {
			if _, ok := domainIDs[domainID]; !ok {
				warn("Phase %s references unknown domain %s", phase.ID, domainID)
			}
		}
	}
	return domainIDs
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
