package catalog

import "strings"

// Two stage vocabularies coexist in the catalogue data and are kept apart.
// LifecycleStages is what profile mandatory rules are written against;
// JourneyStages appears in the newer catalogue versions.
var (
	LifecycleStages = []Stage{"startup", "growth", "mature", "enterprise"}
	JourneyStages   = []Stage{"ideation", "launch", "growth", "expansion", "optimisation", "transformation"}
	// DropdownStages are the labels offered by the onboarding form.
	DropdownStages = []string{"Start Up", "Scale Up", "Expansion"}
)

// DefaultStage is used when a stored stage cannot be normalized.
const DefaultStage Stage = "growth"

var dropdownToStage = map[string]Stage{
	"Start Up":  "startup",
	"Scale Up":  "growth",
	"Expansion": "mature",
}

var stageToDropdown = map[Stage]string{
	"startup":    "Start Up",
	"growth":     "Scale Up",
	"mature":     "Expansion",
	"enterprise": "Expansion",
}

// StageFromDropdown maps an onboarding form label to a lifecycle stage.
func StageFromDropdown(label string) (Stage, bool) {
	stage, ok := dropdownToStage[strings.TrimSpace(label)]
	return stage, ok
}

// DropdownFromStage maps a lifecycle stage back to the form label.
// Enterprise has no label of its own and shares "Expansion".
func DropdownFromStage(stage Stage) (string, bool) {
	if label, ok := stageToDropdown[Stage(strings.ToLower(strings.TrimSpace(string(stage))))]; ok {
		return label, true
	}
	for _, label := range DropdownStages {
		if label == string(stage) {
			return label, true
		}
	}
	return "", false
}

// NormalizeStage resolves a free-form stage value (upstream record value,
// dropdown label, legacy id) against the known stage ids. Unresolvable
// and empty values fall back to DefaultStage.
func NormalizeStage(raw string, known []Stage) Stage {
	if strings.TrimSpace(raw) == "" {
		return DefaultStage
	}
	if stage, ok := StageFromDropdown(raw); ok && containsStage(known, stage) {
		return stage
	}

	normalized := squash(raw)
	if normalized == "" {
		return DefaultStage
	}
	for _, stage := range known {
		candidate := strings.ReplaceAll(strings.ToLower(string(stage)), " ", "")
		if candidate == "" {
			continue
		}
		if strings.Contains(normalized, candidate) || strings.Contains(candidate, normalized) {
			return stage
		}
	}

	lower := Stage(strings.ToLower(raw))
	if containsStage(known, lower) {
		return lower
	}

	switch {
	case strings.Contains(normalized, "start") || strings.Contains(normalized, "ideation"):
		return "startup"
	case strings.Contains(normalized, "growth") || strings.Contains(normalized, "launch"):
		return "growth"
	case strings.Contains(normalized, "mature") || strings.Contains(normalized, "expansion"):
		return "mature"
	case strings.Contains(normalized, "enterprise") || strings.Contains(normalized, "large"):
		return "enterprise"
	}
	return DefaultStage
}

func squash(raw string) string {
	replacer := strings.NewReplacer(" ", "", "\t", "", "-", "", "_", "")
	return replacer.Replace(strings.ToLower(strings.TrimSpace(raw)))
}

func containsStage(stages []Stage, target Stage) bool {
	for _, stage := range stages {
		if stage == target {
			return true
		}
	}
	return false
}
