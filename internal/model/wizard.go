package model

import "time"

// WizardStep is one of the four ordered steps of the import wizard.
type WizardStep string

const (
	StepUpload  WizardStep = "upload"
	StepReview  WizardStep = "review"
	StepSites   WizardStep = "sites"
	StepResults WizardStep = "results"
)

// wizardOrder maps each step to its position in the fixed upload → review →
// sites → results sequence.
var wizardOrder = map[WizardStep]int{
	StepUpload:  0,
	StepReview:  1,
	StepSites:   2,
	StepResults: 3,
}

// Valid reports whether s is a known wizard step.
func (s WizardStep) Valid() bool {
	_, ok := wizardOrder[s]
	return ok
}

// Index returns the step's position in the wizard sequence, or -1 for an
// unknown step.
func (s WizardStep) Index() int {
	if i, ok := wizardOrder[s]; ok {
		return i
	}
	return -1
}

// WizardState is the serializable subset of wizard UI state persisted
// between steps. State at the results step is never persisted: the import
// call is not replayable from client state.
type WizardState struct {
	Step          WizardStep       `json:"step"`
	Templates     []ParsedTemplate `json:"templates"`
	TotalRows     int              `json:"total_rows"`
	DateRange     DateRange        `json:"date_range"`
	SiteName      string           `json:"site_name"`
	Warnings      []string         `json:"warnings"`
	SelectedSites []string         `json:"selected_sites"`
}

// ImportSession is one persisted wizard instance, scoped to a company.
type ImportSession struct {
	ID        string      `json:"id"`
	CompanyID string      `json:"company_id"`
	State     WizardState `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
