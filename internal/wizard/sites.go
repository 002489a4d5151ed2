package wizard

import (
	"strings"

	"github.com/gastroops/opsdeck/internal/model"
)

// AutoSelectSite pre-selects the first site matching the CSV's embedded site
// name, as a convenience default only: it runs when nothing is selected yet
// and the user can freely change the selection afterwards. Matching is a
// case-insensitive substring check in either direction.
func AutoSelectSite(state *model.WizardState, sites []model.Site) {
	if len(state.SelectedSites) > 0 || state.SiteName == "" {
		return
	}
	want := strings.ToLower(strings.TrimSpace(state.SiteName))
	for _, site := range sites {
		have := strings.ToLower(strings.TrimSpace(site.Name))
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			state.SelectedSites = []string{site.ID}
			return
		}
	}
}

// ToggleSite adds or removes one site from the selection.
func ToggleSite(state *model.WizardState, siteID string) {
	for i, id := range state.SelectedSites {
		if id == siteID {
			state.SelectedSites = append(state.SelectedSites[:i], state.SelectedSites[i+1:]...)
			return
		}
	}
	state.SelectedSites = append(state.SelectedSites, siteID)
}

// SelectAllSites selects every site.
func SelectAllSites(state *model.WizardState, sites []model.Site) {
	ids := make([]string, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	state.SelectedSites = ids
}

// ClearSites deselects everything, which disables the import action.
func ClearSites(state *model.WizardState) {
	state.SelectedSites = nil
}
