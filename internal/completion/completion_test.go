package completion

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding/api/internal/catalog"
	"onboarding/api/internal/profile"
)

func field(name string, rule catalog.MandatoryRule) catalog.FieldDefinition {
	return catalog.FieldDefinition{FieldName: name, Label: name, FieldType: catalog.FieldText, Mandatory: rule}
}

func TestIsMandatory(t *testing.T) {
	always := field("a", catalog.Always())
	for _, stage := range []catalog.Stage{"startup", "growth", "enterprise", "not-a-stage", ""} {
		assert.True(t, IsMandatory(always, stage), "stage %q", stage)
	}

	listed := field("b", catalog.InStages("growth", "mature"))
	assert.True(t, IsMandatory(listed, "growth"))
	assert.True(t, IsMandatory(listed, "mature"))
	assert.False(t, IsMandatory(listed, "enterprise"))
	assert.False(t, IsMandatory(listed, "Growth"))

	assert.False(t, IsMandatory(field("c", catalog.Never()), "growth"))
	assert.False(t, IsMandatory(catalog.FieldDefinition{FieldName: "d"}, "growth"))
}

func TestIsMissing(t *testing.T) {
	f := field("x", catalog.Never())
	type lookup struct {
		Label string
		Value string
	}
	var nilPtr *string
	zero := 0

	provided := map[string]any{
		"zero int":         0,
		"zero float":       0.0,
		"json number":      json.Number("0"),
		"false":            false,
		"true":             true,
		"text":             "Acme",
		"list":             []any{"a"},
		"string list":      []string{"a"},
		"lookup":           map[string]any{"label": "Bank", "value": "b1"},
		"object":           map[string]any{"street": ""},
		"struct":           lookup{Label: "x"},
		"pointer to zero":  &zero,
		"raw json number":  json.RawMessage(`0`),
		"typed string map": map[string]string{"value": ""},
	}
	for name, raw := range provided {
		assert.False(t, IsMissing(f, raw), name)
	}

	missing := map[string]any{
		"nil":          nil,
		"empty string": "",
		"blank string": "   \t",
		"empty list":   []any{},
		"nil slice":    []string(nil),
		"empty object": map[string]any{},
		"nil pointer":  nilPtr,
		"raw null":     json.RawMessage(`null`),
		"raw empty":    json.RawMessage(`""`),
	}
	for name, raw := range missing {
		assert.True(t, IsMissing(f, raw), name)
	}
}

func TestValueOfKinds(t *testing.T) {
	assert.Equal(t, KindLookup, ValueOf(map[string]any{"label": "x"}).Kind)
	assert.Equal(t, KindObject, ValueOf(map[string]any{"city": "x"}).Kind)
	assert.Equal(t, KindNumber, ValueOf(uint8(3)).Kind)
	assert.Equal(t, KindList, ValueOf([2]int{1, 2}).Kind)
	assert.Equal(t, KindAbsent, ValueOf(nil).Kind)
	assert.Equal(t, "lookup", KindLookup.String())
}

func TestRequiredBlankStringIsMissing(t *testing.T) {
	f := field("visionStatement", catalog.InStages("growth", "mature"))
	schema := &catalog.Schema{Sections: []catalog.Section{{ID: "basic", Groups: []catalog.Group{{GroupName: "g", Fields: []catalog.FieldDefinition{f}}}}}}
	doc := profile.New()
	doc.SetGroup("basic", map[string]any{"visionStatement": ""})

	assert.True(t, IsMandatory(f, "growth"))
	assert.True(t, IsMissing(f, ""))

	res := MandatoryCompletion(schema, doc, "growth")
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "visionStatement", res.Missing[0].Field.FieldName)
	assert.Equal(t, "basic", res.Missing[0].SectionID)
	assert.Equal(t, 0, res.Percentage)
}

func TestZeroNumberCountsAsCompleted(t *testing.T) {
	f := field("employeeCount", catalog.Always())
	group := catalog.Group{GroupName: "g", Fields: []catalog.FieldDefinition{f}}
	for _, stage := range []catalog.Stage{"startup", "whatever"} {
		res := GroupMandatoryCompletion("people", group, map[string]any{"employeeCount": 0}, stage)
		assert.Equal(t, 1, res.Completed)
		assert.Equal(t, 100, res.Percentage)
		assert.Empty(t, res.Missing)
	}
}

func TestGroupWithOneOfFourMandatoryFilled(t *testing.T) {
	group := catalog.Group{GroupName: "Identity", Fields: []catalog.FieldDefinition{
		field("tradeName", catalog.Always()),
		field("website", catalog.Never()),
		field("phone", catalog.Never()),
		field("fax", catalog.Never()),
	}}
	fields := map[string]any{"tradeName": "Acme"}

	overall := GroupCompletion("basic", group, fields, "growth")
	assert.Equal(t, 25, overall.Percentage)
	assert.Equal(t, 1, overall.Completed)
	assert.Equal(t, 4, overall.Total)
	assert.Len(t, overall.Missing, 3)

	mandatory := GroupMandatoryCompletion("basic", group, fields, "growth")
	assert.Equal(t, 100, mandatory.Percentage)
	assert.Equal(t, 1, mandatory.Total)
	assert.Equal(t, StatusWorking, StatusLabel(overall.Percentage, group, "growth"))
}

func TestAllOptionalGroupCompletion(t *testing.T) {
	group := catalog.Group{GroupName: "Extras", Fields: []catalog.FieldDefinition{
		field("a", catalog.Never()),
		field("b", catalog.Never()),
		field("c", catalog.Never()),
	}}

	empty := GroupCompletion("s", group, nil, "growth")
	assert.Equal(t, 0, empty.Percentage)
	assert.Equal(t, StatusOptional, StatusLabel(empty.Percentage, group, "growth"))
	assert.Equal(t, 100, GroupMandatoryCompletion("s", group, nil, "growth").Percentage)

	partial := GroupCompletion("s", group, map[string]any{"a": "x", "b": false}, "growth")
	assert.Equal(t, 67, partial.Percentage)
	assert.Equal(t, StatusWorking, StatusLabel(partial.Percentage, group, "growth"))

	full := GroupCompletion("s", group, map[string]any{"a": "x", "b": false, "c": 3}, "growth")
	assert.Equal(t, 100, full.Percentage)
	assert.Equal(t, StatusComplete, StatusLabel(full.Percentage, group, "growth"))
}

func TestEmptyGroupIsComplete(t *testing.T) {
	group := catalog.Group{GroupName: "Empty"}
	assert.Equal(t, 100, GroupCompletion("s", group, nil, "growth").Percentage)
	assert.Equal(t, 100, GroupMandatoryCompletion("s", group, nil, "growth").Percentage)
	assert.Equal(t, StatusComplete, StatusLabel(100, group, "growth"))
}

func TestStatusRequired(t *testing.T) {
	group := catalog.Group{GroupName: "g", Fields: []catalog.FieldDefinition{
		field("a", catalog.InStages("startup")),
		field("b", catalog.Never()),
	}}
	overall := GroupCompletion("s", group, nil, "startup")
	assert.Equal(t, 0, overall.Percentage)
	assert.Equal(t, StatusRequired, StatusLabel(overall.Percentage, group, "startup"))
	assert.Equal(t, StatusOptional, StatusLabel(0, group, "growth"))
}

func TestAbsentSectionCountsMandatoryFieldsMissing(t *testing.T) {
	schema := &catalog.Schema{Sections: []catalog.Section{
		{ID: "basic", Groups: []catalog.Group{{GroupName: "g1", Fields: []catalog.FieldDefinition{
			field("tradeName", catalog.Always()),
			field("notes", catalog.Never()),
		}}}},
		{ID: "finance", Groups: []catalog.Group{{GroupName: "g2", Fields: []catalog.FieldDefinition{
			field("paidUpCapital", catalog.Always()),
			field("annualRevenue", catalog.InStages("growth")),
		}}}},
	}}
	doc := profile.New()
	doc.SetGroup("basic", map[string]any{"tradeName": "Acme"})

	res := MandatoryCompletion(schema, doc, "growth")
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, 33, res.Percentage)
	var names []string
	for _, ref := range res.Missing {
		names = append(names, ref.Field.FieldName)
		assert.Equal(t, "finance", ref.SectionID)
	}
	assert.Equal(t, []string{"paidUpCapital", "annualRevenue"}, names)
}

func TestMandatoryCompletionNothingRequired(t *testing.T) {
	schema := &catalog.Schema{Sections: []catalog.Section{{ID: "s", Groups: []catalog.Group{{Fields: []catalog.FieldDefinition{field("a", catalog.Never())}}}}}}
	res := MandatoryCompletion(schema, nil, "growth")
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0, res.Percentage)
}

func TestSectionCompletion(t *testing.T) {
	section := catalog.Section{ID: "s", Groups: []catalog.Group{
		{GroupName: "g1", Fields: []catalog.FieldDefinition{field("a", catalog.Always()), field("b", catalog.Never())}},
		{GroupName: "g2", Fields: []catalog.FieldDefinition{field("c", catalog.InStages("mature"))}},
	}}
	fields := map[string]any{"a": "x", "c": []any{"y"}}

	assert.Equal(t, 67, SectionCompletion(section, fields).Percentage)
	assert.Equal(t, 100, SectionMandatoryCompletion(section, fields, "mature").Percentage)
	assert.Equal(t, 50, SectionMandatoryCompletion(section, map[string]any{"a": "x"}, "mature").Percentage)
	assert.Equal(t, 0, SectionCompletion(catalog.Section{ID: "empty"}, nil).Percentage)
	assert.Equal(t, 100, SectionMandatoryCompletion(catalog.Section{ID: "empty"}, nil, "mature").Percentage)
}

func embeddedSchema(t *testing.T, version string) *catalog.Schema {
	t.Helper()
	schemas, err := catalog.LoadEmbedded()
	require.NoError(t, err)
	for _, schema := range schemas {
		if schema.Version == version {
			return schema
		}
	}
	t.Fatalf("embedded catalogue %s not found", version)
	return nil
}

func TestEvaluateIsIdempotent(t *testing.T) {
	schema := embeddedSchema(t, "v2")
	doc := profile.New()
	doc.CompanyStage = "Scale Up"
	doc.SetGroup("basic", map[string]any{"tradeName": "Acme", "registrationNumber": "CN-1", "website": " "})
	doc.SetGroup("people", map[string]any{"employeeCount": 0})
	before := doc.Clone()

	first := Evaluate(schema, doc)
	second := Evaluate(schema, doc)
	assert.Equal(t, first, second)
	assert.Equal(t, before, doc)

	assert.Equal(t, catalog.Stage("growth"), first.Stage)
	assert.Equal(t, "v2", first.Version)
	require.Len(t, first.Sections, len(schema.Sections))
	assert.Equal(t, first.Mandatory.Missing, mandatoryRefs(first))
}

func mandatoryRefs(report Report) []catalog.FieldRef {
	var out []catalog.FieldRef
	for _, section := range report.Sections {
		for _, group := range section.Groups {
			out = append(out, group.Mandatory.Missing...)
		}
	}
	return out
}

func TestEvaluateMandatoryMatchesSections(t *testing.T) {
	schema := embeddedSchema(t, "v2")
	doc := profile.New()
	doc.CompanyStage = "mature"
	doc.SetGroup("finance", map[string]any{"paidUpCapital": 0, "annualRevenue": 1200000})

	report := Evaluate(schema, doc)
	total, completed := 0, 0
	for _, section := range report.Sections {
		total += section.Mandatory.Total
		completed += section.Mandatory.Completed
	}
	assert.Equal(t, report.Mandatory.Total, total)
	assert.Equal(t, report.Mandatory.Completed, completed)
	assert.Equal(t, 2, report.Mandatory.Completed)
}

func TestFieldStates(t *testing.T) {
	schema := embeddedSchema(t, "v2")
	doc := profile.New()
	doc.CompanyStage = "startup"
	doc.SetGroup("finance", map[string]any{"fundingStage": "seed"})

	states := FieldStates(schema, doc, "finance")
	byName := map[string]FieldState{}
	for _, state := range states {
		byName[state.Field.FieldName] = state
	}
	assert.True(t, byName["fundingStage"].Mandatory)
	assert.False(t, byName["fundingStage"].Missing)
	assert.False(t, byName["annualRevenue"].Mandatory)
	assert.True(t, byName["paidUpCapital"].Missing)
	assert.Nil(t, FieldStates(schema, doc, "nope"))
}

func TestDomainProgress(t *testing.T) {
	schema := embeddedSchema(t, "v2")
	doc := profile.New()
	doc.CompanyStage = "growth"
	doc.SetGroup("finance", map[string]any{
		"paidUpCapital": 100, "annualRevenue": 200, "revenueGrowthRate": 10, "fundingStage": "seed",
		"auditedFinancials": "https://files/a.pdf", "financialYearEnd": "2024-12-31", "bankingPartner": map[string]any{"label": "Bank"},
	})

	progress := DomainProgress(schema, doc)
	require.Len(t, progress.Phases, 4)
	assert.Equal(t, "establish", progress.Phases[0].ID)
	assert.Empty(t, progress.Unassigned)

	operate := progress.Phases[1]
	require.Len(t, operate.Domains, 3)
	finance := operate.Domains[0]
	assert.Equal(t, "finance", finance.ID)
	assert.Equal(t, []string{"finance"}, finance.Sections)
	assert.Equal(t, 100, finance.Overall.Percentage)
	assert.Equal(t, 100, finance.Mandatory.Percentage)

	operations := operate.Domains[1]
	assert.Empty(t, operations.Sections)
	assert.Equal(t, 0, operations.Overall.Percentage)
	assert.Equal(t, 100, operations.Mandatory.Percentage)
	assert.Equal(t, 100, operate.Overall.Percentage)
}

func TestDocumentCompletion(t *testing.T) {
	res := DocumentCompletion(DefaultRequiredDocuments, []string{
		"commercial license.PDF",
		"Tax Registration Certificate 2024.docx",
		"bank",
		"",
		"holiday.jpeg",
	})
	assert.Equal(t, 3, res.Uploaded)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 60, res.Percentage)
	assert.Equal(t, []string{"Articles of Association", "Memorandum of Association"}, res.Missing)

	assert.Equal(t, 100, DocumentCompletion(nil, nil).Percentage)
	assert.Equal(t, 0, DocumentCompletion(DefaultRequiredDocuments, nil).Percentage)
}

func TestBlankDocumentNamesMatchNothing(t *testing.T) {
	res := DocumentCompletion(DefaultRequiredDocuments, []string{"", "   ", ".pdf", " .PNG "})
	assert.Equal(t, 0, res.Uploaded)
	assert.Equal(t, 0, res.Percentage)
	assert.Equal(t, DefaultRequiredDocuments, res.Missing)
}

func TestOnboardingScore(t *testing.T) {
	res := OnboardingScore(90, 60, DefaultScoreWeights)
	assert.Equal(t, 81, res.Score)
	assert.True(t, res.Complete)

	res = OnboardingScore(80, 70, DefaultScoreWeights)
	assert.Equal(t, 77, res.Score)
	assert.False(t, res.Complete)

	res = OnboardingScore(100, 100, ScoreWeights{Mandatory: 0.5, Documents: 0.5, Threshold: 100})
	assert.True(t, res.Complete)
}
