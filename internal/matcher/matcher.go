// Package matcher annotates parsed templates against the company's existing
// template names and the compliance library.
package matcher

import (
	"fmt"

	"github.com/gastroops/opsdeck/internal/model"
	"github.com/gastroops/opsdeck/internal/trail"
)

// MarkDuplicates flags every template whose normalized name already exists
// in the company's template set, deselecting it from the import. The user
// can re-enable a flagged template in the review step. Returns a single
// warning summarizing the auto-deselected count, or "" when there were no
// duplicates. Re-running against unchanged inputs is idempotent.
func MarkDuplicates(templates []model.ParsedTemplate, existingNames []string) ([]model.ParsedTemplate, string) {
	existing := make(map[string]bool, len(existingNames))
	for _, name := range existingNames {
		if key := trail.NormalizeName(name); key != "" {
			existing[key] = true
		}
	}

	count := 0
	out := make([]model.ParsedTemplate, len(templates))
	for i, tpl := range templates {
		if existing[trail.NormalizeName(tpl.Name)] {
			tpl.IsDuplicate = true
			tpl.Included = false
			count++
		} else {
			tpl.IsDuplicate = false
		}
		out[i] = tpl
	}

	if count == 0 {
		return out, ""
	}
	noun := "templates"
	if count == 1 {
		noun = "template"
	}
	return out, fmt.Sprintf("%d duplicate %s deselected (already exist in your template list)", count, noun)
}

// ComplianceCandidates returns the compliance library entries offered for
// manual per-template linking, keyed by slug. Matching is deliberately not
// automatic: guessing links for safety-critical templates risks false
// positives, so the matcher only supplies the candidate list and the user
// picks a slug explicitly in the review step.
func ComplianceCandidates(library []model.ComplianceTemplate) map[string]model.ComplianceTemplate {
	candidates := make(map[string]model.ComplianceTemplate, len(library))
	for _, ct := range library {
		candidates[ct.Slug] = ct
	}
	return candidates
}
