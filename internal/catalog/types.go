// Package catalog holds the declarative business-profile schema: stages,
// sections, groups and fields, plus the domain/phase taxonomy used for
// progress reporting. Schemas are loaded once and treated as read-only.
package catalog

// Stage identifies a company lifecycle stage, e.g. "growth".
type Stage string

// FieldType is the declared input type of a field.
type FieldType string

const (
	FieldText          FieldType = "Text"
	FieldMultilineText FieldType = "Multiline Text"
	FieldWholeNumber   FieldType = "Whole Number"
	FieldDecimal       FieldType = "Decimal"
	FieldPercentage    FieldType = "Decimal (0–100)"
	FieldCurrency      FieldType = "Currency"
	FieldURL           FieldType = "URL"
	FieldDate          FieldType = "Date"
	FieldDateOnly      FieldType = "Date Only"
	FieldDateTime      FieldType = "DateTime"
	FieldSelect        FieldType = "select"
	FieldMultiSelect   FieldType = "multiselect"
	FieldSelectMulti   FieldType = "select-multi"
	FieldFileUpload    FieldType = "File Upload"
	FieldTable         FieldType = "Table"
	FieldLookup        FieldType = "Lookup"
)

// legacyPercentage is a mis-encoded spelling of FieldPercentage that
// still appears in exported catalogues.
const legacyPercentage FieldType = "Decimal (0�?\"100)"

var allowedFieldTypes = map[FieldType]struct{}{
	FieldText:          {},
	FieldMultilineText: {},
	FieldWholeNumber:   {},
	FieldDecimal:       {},
	FieldPercentage:    {},
	legacyPercentage:   {},
	FieldCurrency:      {},
	FieldURL:           {},
	FieldDate:          {},
	FieldDateOnly:      {},
	FieldDateTime:      {},
	FieldSelect:        {},
	FieldMultiSelect:   {},
	FieldSelectMulti:   {},
	FieldFileUpload:    {},
	FieldTable:         {},
	FieldLookup:        {},
}

// KnownFieldType reports whether t is in the allowed set.
func KnownFieldType(t FieldType) bool {
	_, ok := allowedFieldTypes[t]
	return ok
}

// StageConfig describes one entry of a schema's stage catalogue.
type StageConfig struct {
	ID       Stage  `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
	Sequence int    `json:"sequence,omitempty" yaml:"sequence,omitempty"`
}

// FieldOption is an enumerated choice for select and multiselect fields.
type FieldOption struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// FieldDefinition declares a single profile field.
type FieldDefinition struct {
	ID          string        `json:"id,omitempty" yaml:"id,omitempty"`
	Label       string        `json:"label" yaml:"label"`
	FieldName   string        `json:"fieldName" yaml:"fieldName"`
	FieldType   FieldType     `json:"fieldType" yaml:"fieldType"`
	Mandatory   MandatoryRule `json:"mandatory" yaml:"mandatory"`
	Options     []FieldOption `json:"options,omitempty" yaml:"options,omitempty"`
	ReadOnly    bool          `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Placeholder string        `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Group is a named set of fields rendered and saved together.
type Group struct {
	GroupName string            `json:"groupName" yaml:"groupName"`
	Fields    []FieldDefinition `json:"fields" yaml:"fields"`
}

// Section is a top-level profile tab.
type Section struct {
	ID     string  `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Groups []Group `json:"groups" yaml:"groups"`
}

// Phase groups domains for progress-by-phase reporting.
type Phase struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Sequence  int      `json:"sequence" yaml:"sequence"`
	DomainIDs []string `json:"domainIds" yaml:"domainIds"`
}

// Domain is a reporting area; sections map to domains via TabDomain.
type Domain struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	PhaseID       string `json:"phaseId" yaml:"phaseId"`
	Sequence      int    `json:"sequence" yaml:"sequence"`
	QuestionCount int    `json:"questionCount" yaml:"questionCount"`
}

// TabDomain maps a section (tab) to a domain.
type TabDomain struct {
	TabID    string `json:"tabId" yaml:"tabId"`
	DomainID string `json:"domainId" yaml:"domainId"`
}

// ApplicationStage describes which onboarding stage a schema version serves.
type ApplicationStage struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Schema is one independently versioned catalogue root.
type Schema struct {
	Version          string            `json:"version" yaml:"version"`
	CompanyStages    []StageConfig     `json:"companyStages" yaml:"companyStages"`
	Sections         []Section         `json:"tabs" yaml:"tabs"`
	Phases           []Phase           `json:"phases,omitempty" yaml:"phases,omitempty"`
	Domains          []Domain          `json:"domains,omitempty" yaml:"domains,omitempty"`
	TabDomains       []TabDomain       `json:"tabDomains,omitempty" yaml:"tabDomains,omitempty"`
	ApplicationStage *ApplicationStage `json:"applicationStage,omitempty" yaml:"applicationStage,omitempty"`
	// FieldMapping maps fieldName to the key used by the upstream record API.
	FieldMapping map[string]string `json:"fieldMapping,omitempty" yaml:"fieldMapping,omitempty"`
}

// FieldRef locates a field inside a schema.
type FieldRef struct {
	SectionID string          `json:"sectionId"`
	GroupName string          `json:"groupName"`
	Field     FieldDefinition `json:"field"`
}

// Walk visits every field in section, group and field order.
func (s *Schema) Walk(fn func(section *Section, group *Group, field *FieldDefinition)) {
	for si := range s.Sections {
		section := &s.Sections[si]
		for gi := range section.Groups {
			group := &section.Groups[gi]
			for fi := range group.Fields {
				fn(section, group, &group.Fields[fi])
			}
		}
	}
}

// Section returns the section with the given id.
func (s *Schema) Section(id string) (*Section, bool) {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i], true
		}
	}
	return nil, false
}

// Field returns the first field declared with the given fieldName.
func (s *Schema) Field(name string) (FieldRef, bool) {
	for _, section := range s.Sections {
		for _, group := range section.Groups {
			for _, field := range group.Fields {
				if field.FieldName == name {
					return FieldRef{SectionID: section.ID, GroupName: group.GroupName, Field: field}, true
				}
			}
		}
	}
	return FieldRef{}, false
}

// FieldCount is the number of declared fields across all sections.
func (s *Schema) FieldCount() int {
	count := 0
	for _, section := range s.Sections {
		count += section.FieldCount()
	}
	return count
}

// StageIDs returns the declared stage ids in catalogue order.
func (s *Schema) StageIDs() []Stage {
	ids := make([]Stage, 0, len(s.CompanyStages))
	for _, stage := range s.CompanyStages {
		ids = append(ids, stage.ID)
	}
	return ids
}

// StageConfig returns the catalogue entry for id.
func (s *Schema) StageConfig(id Stage) (StageConfig, bool) {
	for _, stage := range s.CompanyStages {
		if stage.ID == id {
			return stage, true
		}
	}
	return StageConfig{}, false
}

// DomainsForTab returns the domain ids a section is mapped to.
func (s *Schema) DomainsForTab(tabID string) []string {
	var out []string
	for _, m := range s.TabDomains {
		if m.TabID == tabID {
			out = append(out, m.DomainID)
		}
	}
	return out
}

// FieldCount is the number of fields across the section's groups.
func (s Section) FieldCount() int {
	count := 0
	for _, group := range s.Groups {
		count += len(group.Fields)
	}
	return count
}
