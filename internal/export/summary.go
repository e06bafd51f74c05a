package export

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"onboarding/api/internal/catalog"
	"onboarding/api/internal/completion"
	"onboarding/api/internal/profile"
)

// Summary is the printable view of one profile.
type Summary struct {
	CompanyName string
	Stage       string
	Version     string
	GeneratedAt time.Time
	Overall     int
	Mandatory   int
	Onboarding  *completion.OnboardingResult
	Sections    []SummarySection
}

type SummarySection struct {
	Title     string
	Overall   int
	Mandatory int
	Groups    []SummaryGroup
}

type SummaryGroup struct {
	Name    string
	Status  string
	Overall int
	Fields  []SummaryField
}

type SummaryField struct {
	Label     string
	Value     string
	Mandatory bool
	Missing   bool
}

// BuildSummary evaluates doc against schema and flattens the result for
// the template.
func BuildSummary(schema *catalog.Schema, doc *profile.Document, onboarding *completion.OnboardingResult, now time.Time) Summary {
	report := completion.Evaluate(schema, doc)
	summary := Summary{
		CompanyName: profile.DefaultName,
		Stage:       stageLabel(schema, report.Stage),
		Version:     report.Version,
		GeneratedAt: now,
		Overall:     report.Overall.Percentage,
		Mandatory:   report.Mandatory.Percentage,
		Onboarding:  onboarding,
	}
	if doc != nil && strings.TrimSpace(doc.Name) != "" {
		summary.CompanyName = doc.Name
	}
	if schema == nil {
		return summary
	}

	for i, section := range schema.Sections {
		sr := report.Sections[i]
		states := completion.FieldStates(schema, doc, section.ID)
		ss := SummarySection{Title: section.Title, Overall: sr.Overall.Percentage, Mandatory: sr.Mandatory.Percentage}

		next := 0
		for gi, group := range section.Groups {
			sg := SummaryGroup{
				Name:    group.GroupName,
				Status:  string(sr.Groups[gi].Status),
				Overall: sr.Groups[gi].Overall.Percentage,
			}
			for range group.Fields {
				state := states[next]
				next++
				value, _ := doc.FieldValue(section.ID, state.Field.FieldName)
				sg.Fields = append(sg.Fields, SummaryField{
					Label:     state.Field.Label,
					Value:     displayValue(state.Field, value),
					Mandatory: state.Mandatory,
					Missing:   state.Missing,
				})
			}
			ss.Groups = append(ss.Groups, sg)
		}
		summary.Sections = append(summary.Sections, ss)
	}
	return summary
}

func stageLabel(schema *catalog.Schema, stage catalog.Stage) string {
	if schema != nil {
		if cfg, ok := schema.StageConfig(stage); ok && cfg.Label != "" {
			return cfg.Label
		}
	}
	return string(stage)
}

// displayValue renders a stored value the way the profile form shows it.
// Select values are shown by option label.
func displayValue(field catalog.FieldDefinition, raw any) string {
	if completion.IsMissing(field, raw) {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return optionLabel(field, v)
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := displayValue(field, item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		for _, key := range []string{"label", "name", "value"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return strings.Join(keys, ", ")
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return displayValue(field, items)
	}
	return fmt.Sprint(raw)
}

func optionLabel(field catalog.FieldDefinition, value string) string {
	for _, option := range field.Options {
		if option.Value == value {
			return option.Label
		}
	}
	return value
}
