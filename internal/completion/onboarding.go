package completion

import (
	"math"
	"regexp"
	"strings"
)

// DefaultRequiredDocuments must be uploaded before onboarding counts as done.
var DefaultRequiredDocuments = []string{
	"Commercial License",
	"Tax Registration Certificate",
	"Articles of Association",
	"Memorandum of Association",
	"Bank Certificate",
}

var documentExt = regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|png|jpe?g)$`)

// DocumentResult reports which required documents have been uploaded.
type DocumentResult struct {
	Required   []string `json:"required"`
	Uploaded   int      `json:"uploaded"`
	Total      int      `json:"total"`
	Percentage int      `json:"percentage"`
	Missing    []string `json:"missing"`
}

// DocumentCompletion matches uploaded file names against the required
// document names. A name matches when either contains the other, ignoring
// case and a trailing document extension. Names that are blank once the
// extension is removed match nothing. Nothing required reads 100.
func DocumentCompletion(required, uploadedNames []string) DocumentResult {
	uploaded := make([]string, 0, len(uploadedNames))
	for _, name := range uploadedNames {
		stripped := strings.ToLower(strings.TrimSpace(documentExt.ReplaceAllString(strings.TrimSpace(name), "")))
		if stripped != "" {
			uploaded = append(uploaded, stripped)
		}
	}

	res := DocumentResult{
		Required: append([]string{}, required...),
		Total:    len(required),
		Missing:  []string{},
	}
	for _, doc := range required {
		want := strings.ToLower(doc)
		found := false
		for _, have := range uploaded {
			if strings.Contains(have, want) || strings.Contains(want, have) {
				found = true
				break
			}
		}
		if found {
			res.Uploaded++
		} else {
			res.Missing = append(res.Missing, doc)
		}
	}
	res.Percentage = 100
	if res.Total > 0 {
		res.Percentage = percent(res.Uploaded, res.Total)
	}
	return res
}

// ScoreWeights blends mandatory-field and document completion into the
// onboarding score.
type ScoreWeights struct {
	Mandatory float64 `json:"mandatory" yaml:"mandatory"`
	Documents float64 `json:"documents" yaml:"documents"`
	Threshold int     `json:"threshold" yaml:"threshold"`
}

// DefaultScoreWeights are the weights the dashboard uses.
var DefaultScoreWeights = ScoreWeights{Mandatory: 0.7, Documents: 0.3, Threshold: 80}

// OnboardingResult is the combined onboarding score.
type OnboardingResult struct {
	Mandatory int  `json:"profileCompletion"`
	Documents int  `json:"documentCompletion"`
	Score     int  `json:"overallCompletion"`
	Complete  bool `json:"complete"`
}

// OnboardingScore combines the two percentages with w.
func OnboardingScore(mandatoryPct, documentPct int, w ScoreWeights) OnboardingResult {
	score := int(math.Floor(float64(mandatoryPct)*w.Mandatory + float64(documentPct)*w.Documents + 0.5))
	return OnboardingResult{
		Mandatory: mandatoryPct,
		Documents: documentPct,
		Score:     score,
		Complete:  score >= w.Threshold,
	}
}
