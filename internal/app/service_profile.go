package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"onboarding/api/internal/catalog"
	"onboarding/api/internal/completion"
	"onboarding/api/internal/export"
	"onboarding/api/internal/profile"
	"onboarding/api/internal/search"
)

type ProfileView struct {
	Profile    *profile.Document `json:"profile"`
	Completion completion.Report `json:"completion"`
}

type SectionView struct {
	SectionID string                  `json:"sectionId"`
	Overall   completion.Result       `json:"overall"`
	Mandatory completion.Result       `json:"mandatory"`
	Fields    []completion.FieldState `json:"fields"`
}

type MandatoryView struct {
	Version   string            `json:"version"`
	Stage     catalog.Stage     `json:"stage"`
	Mandatory completion.Result `json:"mandatory"`
}

type OnboardingView struct {
	Version   string                      `json:"version"`
	Stage     catalog.Stage               `json:"stage"`
	Documents completion.DocumentResult   `json:"documents"`
	Score     completion.OnboardingResult `json:"score"`
}

type CatalogVersions struct {
	Versions []string `json:"versions"`
	Fallback []string `json:"fallback"`
	Default  string   `json:"default"`
}

func (s *Service) CatalogVersions() (CatalogVersions, error) {
	if s.catalog == nil {
		return CatalogVersions{}, catalog.ErrUnknownVersion
	}
	fallback := s.catalog.Fallback()
	out := CatalogVersions{Versions: s.catalog.Versions(), Fallback: fallback}
	if len(fallback) > 0 {
		out.Default = fallback[0]
	}
	return out, nil
}

// CatalogSchema returns exactly the requested version; unlike the profile
// endpoints it does not fall back.
func (s *Service) CatalogSchema(version string) (*catalog.Schema, error) {
	if s.catalog == nil {
		return nil, catalog.ErrUnknownVersion
	}
	schema, ok := s.catalog.Exact(version)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownVersion, version)
	}
	return schema, nil
}

func (s *Service) CatalogWarnings(version string) ([]string, error) {
	if _, err := s.CatalogSchema(version); err != nil {
		return nil, err
	}
	warnings := s.catalog.Warnings(version)
	if warnings == nil {
		warnings = []string{}
	}
	return warnings, nil
}

func (s *Service) SearchFields(q search.Query) (search.Response, error) {
	if _, err := s.CatalogSchema(q.Version); err != nil {
		return search.Response{}, err
	}
	resp := s.search.Search(q)
	s.metrics.ObserveSearch(resp.Backend)
	return resp, nil
}

// schemaFor resolves the version to evaluate against: the requested one,
// else the one the user last worked with, else the registry default.
func (s *Service) schemaFor(version string, doc *profile.Document) (*catalog.Schema, error) {
	if s.catalog == nil {
		return nil, catalog.ErrUnknownVersion
	}
	version = strings.TrimSpace(version)
	if version == "" && doc != nil {
		version = doc.SchemaVersion
	}
	return s.catalog.Lookup(version)
}

func (s *Service) loadProfile(ctx context.Context, userID string) (*profile.Document, error) {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = profile.New()
	}
	return doc, nil
}

func (s *Service) loadWithSchema(ctx context.Context, userID, version string) (*profile.Document, *catalog.Schema, error) {
	doc, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	schema, err := s.schemaFor(version, doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, schema, nil
}

func (s *Service) evaluate(schema *catalog.Schema, doc *profile.Document) completion.Report {
	report := completion.Evaluate(schema, doc)
	s.metrics.ObserveEvaluation(report.Version, "report", report.Mandatory.Percentage)
	return report
}

func (s *Service) save(ctx context.Context, userID string, schema *catalog.Schema, doc *profile.Document) error {
	doc.SchemaVersion = schema.Version
	doc.UpdatedAt = s.now().UTC()
	return s.store.Save(ctx, userID, doc)
}

func (s *Service) GetProfile(ctx context.Context, userID, version string) (ProfileView, error) {
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{Profile: doc, Completion: s.evaluate(schema, doc)}, nil
}

// SetStage stores the stage normalized against the schema's stages.
func (s *Service) SetStage(ctx context.Context, userID, version, stage string) (ProfileView, error) {
	if strings.TrimSpace(stage) == "" {
		return ProfileView{}, validationError("stage is required", nil)
	}
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return ProfileView{}, err
	}
	doc.CompanyStage = stage
	doc.CompanyStage = string(completion.ResolveStage(schema, doc))
	if err := s.save(ctx, userID, schema, doc); err != nil {
		return ProfileView{}, err
	}
	return ProfileView{Profile: doc, Completion: s.evaluate(schema, doc)}, nil
}

// SaveSection merges a group save into a section. Every key must name a
// field of that section.
func (s *Service) SaveSection(ctx context.Context, userID, version, sectionID string, fields map[string]any) (ProfileView, error) {
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return ProfileView{}, err
	}
	section, ok := schema.Section(sectionID)
	if !ok {
		return ProfileView{}, sectionNotFound(sectionID, schema.Version)
	}

	known := make(map[string]struct{}, section.FieldCount())
	for _, group := range section.Groups {
		for _, field := range group.Fields {
			known[field.FieldName] = struct{}{}
		}
	}
	var unknown []string
	for key := range fields {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ProfileView{}, validationError("Unknown fields for section", map[string]any{"sectionId": sectionID, "unknownFields": unknown})
	}

	doc.SetGroup(sectionID, fields)
	if err := s.save(ctx, userID, schema, doc); err != nil {
		return ProfileView{}, err
	}
	return ProfileView{Profile: doc, Completion: s.evaluate(schema, doc)}, nil
}

func (s *Service) SectionFields(ctx context.Context, userID, version, sectionID string) (SectionView, error) {
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return SectionView{}, err
	}
	section, ok := schema.Section(sectionID)
	if !ok {
		return SectionView{}, sectionNotFound(sectionID, schema.Version)
	}
	fields := doc.Fields(sectionID)
	return SectionView{
		SectionID: sectionID,
		Overall:   completion.SectionCompletion(*section, fields),
		Mandatory: completion.SectionMandatoryCompletion(*section, fields, completion.ResolveStage(schema, doc)),
		Fields:    completion.FieldStates(schema, doc, sectionID),
	}, nil
}

// ResetProfile deletes the saved document. Nothing else clears it.
func (s *Service) ResetProfile(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, userID)
}

func (s *Service) Completion(ctx context.Context, userID, version string) (completion.Report, error) {
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return completion.Report{}, err
	}
	return s.evaluate(schema, doc), nil
}

func (s *Service) Mandatory(ctx context.Context, userID, version string) (MandatoryView, error) {
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return MandatoryView{}, err
	}
	stage := completion.ResolveStage(schema, doc)
	result := completion.MandatoryCompletion(schema, doc, stage)
	s.metrics.ObserveEvaluation(schema.Version, "mandatory", result.Percentage)
	return MandatoryView{Version: schema.Version, Stage: stage, Mandatory: result}, nil
}

func (s *Service) Domains(ctx context.Context, userID, version string) (completion.Progress, error) {
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return completion.Progress{}, err
	}
	progress := completion.DomainProgress(schema, doc)
	s.metrics.ObserveEvaluation(schema.Version, "domains", completion.MandatoryCompletion(schema, doc, completion.ResolveStage(schema, doc)).Percentage)
	return progress, nil
}

func (s *Service) Onboarding(ctx context.Context, userID, version string) (OnboardingView, error) {
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return OnboardingView{}, err
	}
	return s.onboarding(ctx, userID, schema, doc)
}

func (s *Service) onboarding(ctx context.Context, userID string, schema *catalog.Schema, doc *profile.Document) (OnboardingView, error) {
	items, err := s.store.ListProfileDocuments(ctx, userID)
	if err != nil {
		return OnboardingView{}, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}

	required := s.cfg.Onboarding.RequiredDocuments
	if required == nil {
		required = completion.DefaultRequiredDocuments
	}
	weights := s.cfg.Onboarding.Weights
	if weights == (completion.ScoreWeights{}) {
		weights = completion.DefaultScoreWeights
	}

	stage := completion.ResolveStage(schema, doc)
	mandatory := completion.MandatoryCompletion(schema, doc, stage)
	documents := completion.DocumentCompletion(required, names)
	s.metrics.ObserveEvaluation(schema.Version, "onboarding", mandatory.Percentage)
	return OnboardingView{
		Version:   schema.Version,
		Stage:     stage,
		Documents: documents,
		Score:     completion.OnboardingScore(mandatory.Percentage, documents.Percentage, weights),
	}, nil
}

// ImportRecord merges a flat upstream account record into the saved
// profile. Saved values win over record values.
func (s *Service) ImportRecord(ctx context.Context, userID, version string, record map[string]any) (ProfileView, error) {
	if len(record) == 0 {
		return ProfileView{}, validationError("record is required", nil)
	}
	saved, err := s.store.Load(ctx, userID)
	if err != nil {
		return ProfileView{}, err
	}
	schema, err := s.schemaFor(version, saved)
	if err != nil {
		return ProfileView{}, err
	}
	doc := profile.Import(schema, record, saved)
	if err := s.save(ctx, userID, schema, doc); err != nil {
		return ProfileView{}, err
	}
	return ProfileView{Profile: doc, Completion: s.evaluate(schema, doc)}, nil
}

// ProfileCompletionFor evaluates another user's profile.
func (s *Service) ProfileCompletionFor(ctx context.Context, userID, version string) (completion.Report, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return completion.Report{}, err
	}
	return s.Completion(ctx, userID, version)
}

func (s *Service) ExportProfile(ctx context.Context, userID, version string, format export.Format) (*export.Result, error) {
	doc, schema, err := s.loadWithSchema(ctx, userID, version)
	if err != nil {
		return nil, err
	}
	view, err := s.onboarding(ctx, userID, schema, doc)
	if err != nil {
		return nil, err
	}
	summary := export.BuildSummary(schema, doc, &view.Score, s.now())
	return s.exporter.Export(ctx, summary, format)
}
