// Package importer turns a reviewed wizard state into persisted task
// templates and reports per-item outcomes.
package importer

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gastroops/opsdeck/internal/model"
)

// ErrNothingIncluded is returned when no template survived review.
var ErrNothingIncluded = eris.New("importer: no templates included")

// ErrNoSites is returned when the request carries no target sites.
var ErrNoSites = eris.New("importer: no sites selected")

// BuildRequest projects the included templates of a reviewed wizard state
// into an import request. Checklist items with blank text are dropped
// here rather than rejected during editing, so a half-typed row never
// blocks the wizard.
func BuildRequest(companyID string, state *model.WizardState, sessionID string) (*model.ImportRequest, error) {
	if len(state.SelectedSites) == 0 {
		return nil, ErrNoSites
	}

	var templates []model.ImportTemplate
	for _, tpl := range state.Templates {
		if !tpl.Included {
			continue
		}
		templates = append(templates, model.ImportTemplate{
			Name:                strings.TrimSpace(tpl.Name),
			Category:            tpl.Category,
			Frequency:           tpl.Frequency,
			EvidenceTypes:       tpl.ActiveEvidenceTypes(),
			ChecklistItems:      nonBlankChecklist(tpl.ChecklistItems),
			DetectedFields:      tpl.DetectedFields,
			MatchedTemplateSlug: tpl.MatchedTemplateSlug,
		})
	}
	if len(templates) == 0 {
		return nil, ErrNothingIncluded
	}

	return &model.ImportRequest{
		CompanyID: companyID,
		SiteIDs:   append([]string(nil), state.SelectedSites...),
		Templates: templates,
		SessionID: sessionID,
	}, nil
}

func nonBlankChecklist(items []model.ChecklistItem) []model.ChecklistItem {
	var kept []model.ChecklistItem
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		item.Text = strings.TrimSpace(item.Text)
		kept = append(kept, item)
	}
	return kept
}
