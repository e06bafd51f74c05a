package completion

import (
	"sort"

	"onboarding/api/internal/catalog"
	"onboarding/api/internal/profile"
)

// DomainResult is the completion of the sections mapped to one domain.
type DomainResult struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	PhaseID       string   `json:"phaseId"`
	Sequence      int      `json:"sequence"`
	QuestionCount int      `json:"questionCount"`
	Sections      []string `json:"sections"`
	Overall       Result   `json:"overall"`
	Mandatory     Result   `json:"mandatory"`
}

// PhaseResult aggregates the domains of a phase.
type PhaseResult struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Sequence  int            `json:"sequence"`
	Domains   []DomainResult `json:"domains"`
	Overall   Result         `json:"overall"`
	Mandatory Result         `json:"mandatory"`
}

// Progress is completion grouped by the domain/phase taxonomy.
type Progress struct {
	Phases []PhaseResult `json:"phases"`
	// Unassigned holds domains whose phase is not declared.
	Unassigned []DomainResult `json:"unassigned,omitempty"`
}

// DomainProgress reports completion per domain and per phase, in
// sequence order. A domain without mapped fields reads 0 overall and 100
// mandatory.
func DomainProgress(schema *catalog.Schema, doc *profile.Document) Progress {
	progress := Progress{Phases: []PhaseResult{}}
	if schema == nil {
		return progress
	}
	stage := ResolveStage(schema, doc)

	domains := make([]DomainResult, 0, len(schema.Domains))
	for _, domain := range schema.Domains {
		dr := DomainResult{
			ID:            domain.ID,
			Name:          domain.Name,
			PhaseID:       domain.PhaseID,
			Sequence:      domain.Sequence,
			QuestionCount: domain.QuestionCount,
			Sections:      []string{},
			Overall:       Result{Missing: []catalog.FieldRef{}},
			Mandatory:     Result{Missing: []catalog.FieldRef{}},
		}
		for _, mapping := range schema.TabDomains {
			if mapping.DomainID != domain.ID {
				continue
			}
			section, ok := schema.Section(mapping.TabID)
			if !ok {
				continue
			}
			fields := doc.Fields(section.ID)
			dr.Sections = append(dr.Sections, section.ID)
			dr.Overall.add(SectionCompletion(*section, fields))
			dr.Mandatory.add(SectionMandatoryCompletion(*section, fields, stage))
		}
		finish(&dr.Overall, 0)
		finish(&dr.Mandatory, 100)
		domains = append(domains, dr)
	}
	sort.SliceStable(domains, func(i, j int) bool { return domains[i].Sequence < domains[j].Sequence })

	phases := append([]catalog.Phase(nil), schema.Phases...)
	sort.SliceStable(phases, func(i, j int) bool { return phases[i].Sequence < phases[j].Sequence })
	assigned := make(map[string]bool, len(domains))
	for _, phase := range phases {
		pr := PhaseResult{
			ID:        phase.ID,
			Name:      phase.Name,
			Sequence:  phase.Sequence,
			Domains:   []DomainResult{},
			Overall:   Result{Missing: []catalog.FieldRef{}},
			Mandatory: Result{Missing: []catalog.FieldRef{}},
		}
		for _, dr := range domains {
			if dr.PhaseID != phase.ID {
				continue
			}
			assigned[dr.ID] = true
			pr.Domains = append(pr.Domains, dr)
			pr.Overall.add(dr.Overall)
			pr.Mandatory.add(dr.Mandatory)
		}
		finish(&pr.Overall, 0)
		finish(&pr.Mandatory, 100)
		progress.Phases = append(progress.Phases, pr)
	}
	for _, dr := range domains {
		if !assigned[dr.ID] {
			progress.Unassigned = append(progress.Unassigned, dr)
		}
	}
	return progress
}

func finish(r *Result, empty int) {
	if r.Total == 0 {
		r.Percentage = empty
		return
	}
	r.Percentage = percent(r.Completed, r.Total)
}
