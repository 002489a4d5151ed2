// Package wizard holds the import wizard's step sequencing, review-step
// state operations and session persistence rules.
package wizard

import (
	"github.com/rotisserie/eris"

	"github.com/gastroops/opsdeck/internal/model"
)

var (
	// ErrInvalidTransition is returned when a step change violates the
	// upload → review → sites → results ordering.
	ErrInvalidTransition = eris.New("wizard: invalid step transition")
	// ErrNoTemplatesIncluded gates leaving the review step.
	ErrNoTemplatesIncluded = eris.New("wizard: no templates included")
	// ErrNoSitesSelected gates triggering the import.
	ErrNoSitesSelected = eris.New("wizard: no sites selected")
)

// IncludedCount returns how many templates are currently marked for import.
func IncludedCount(templates []model.ParsedTemplate) int {
	n := 0
	for _, t := range templates {
		if t.Included {
			n++
		}
	}
	return n
}

// Advance moves the wizard to the next step, enforcing the per-step guards:
// review requires at least one included template before sites, and sites
// requires at least one selected site before results.
func Advance(state *model.WizardState) error {
	switch state.Step {
	case model.StepUpload:
		if len(state.Templates) == 0 {
			return eris.Wrap(ErrInvalidTransition, "no parsed templates")
		}
		state.Step = model.StepReview
	case model.StepReview:
		if IncludedCount(state.Templates) == 0 {
			return ErrNoTemplatesIncluded
		}
		state.Step = model.StepSites
	case model.StepSites:
		if len(state.SelectedSites) == 0 {
			return ErrNoSitesSelected
		}
		state.Step = model.StepResults
	default:
		return eris.Wrapf(ErrInvalidTransition, "cannot advance from %s", state.Step)
	}
	return nil
}

// Back retreats one step. The upload step has nowhere to go back to.
func Back(state *model.WizardState) error {
	switch state.Step {
	case model.StepReview:
		state.Step = model.StepUpload
	case model.StepSites:
		state.Step = model.StepReview
	case model.StepResults:
		state.Step = model.StepSites
	default:
		return eris.Wrapf(ErrInvalidTransition, "cannot go back from %s", state.Step)
	}
	return nil
}

// ValidateState checks a client-supplied wizard state before it is
// persisted: known step and enum values, and the custom-fields/legacy
// evidence mutual exclusion on every template.
func ValidateState(state *model.WizardState) error {
	if !state.Step.Valid() {
		return eris.Errorf("wizard: unknown step %q", state.Step)
	}
	for i := range state.Templates {
		t := &state.Templates[i]
		if t.Name == "" {
			return eris.Errorf("wizard: template %d has an empty name", i)
		}
		if !t.Category.Valid() {
			return eris.Errorf("wizard: template %q has unknown category %q", t.Name, t.Category)
		}
		if !t.Frequency.Valid() {
			return eris.Errorf("wizard: template %q has unknown frequency %q", t.Name, t.Frequency)
		}
		if hasEvidence(t.OverrideEvidenceTypes, model.EvidenceCustomFields) && len(t.OverrideEvidenceTypes) > 1 {
			return eris.Errorf("wizard: template %q mixes custom_fields with other evidence types", t.Name)
		}
	}
	return nil
}

// ValidateTransition checks a state replacement against the wizard's step
// ordering: the step may stay, move back, or advance one step, and a state
// sitting at or past a gated step must satisfy that step's guard. This is
// what keeps a hand-crafted PUT from landing on the sites step with nothing
// included or on the results step with no sites selected.
func ValidateTransition(from model.WizardStep, state *model.WizardState) error {
	if state.Step.Index() > from.Index()+1 {
		return eris.Wrapf(ErrInvalidTransition, "cannot jump from %s to %s", from, state.Step)
	}
	if state.Step.Index() >= model.StepSites.Index() {
		if IncludedCount(state.Templates) == 0 {
			return ErrNoTemplatesIncluded
		}
		for i := range state.Templates {
			t := &state.Templates[i]
			if t.Included && len(t.ActiveEvidenceTypes()) == 0 {
				return eris.Errorf("wizard: included template %q has no evidence types", t.Name)
			}
		}
	}
	if state.Step == model.StepResults && len(state.SelectedSites) == 0 {
		return ErrNoSitesSelected
	}
	return nil
}

func hasEvidence(set []model.EvidenceType, et model.EvidenceType) bool {
	for _, v := range set {
		if v == et {
			return true
		}
	}
	return false
}
