package wizard

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/gastroops/opsdeck/internal/model"
)

// ErrTemplateIndex is returned for an out-of-range template index.
var ErrTemplateIndex = eris.New("wizard: template index out of range")

func templateAt(templates []model.ParsedTemplate, i int) (*model.ParsedTemplate, error) {
	if i < 0 || i >= len(templates) {
		return nil, eris.Wrapf(ErrTemplateIndex, "index %d of %d", i, len(templates))
	}
	return &templates[i], nil
}

// ToggleIncluded flips a template's inclusion. Duplicates deselected by the
// matcher can be re-enabled here.
func ToggleIncluded(templates []model.ParsedTemplate, i int) error {
	t, err := templateAt(templates, i)
	if err != nil {
		return err
	}
	t.Included = !t.Included
	return nil
}

// Rename sets a template's name. Blank names are rejected.
func Rename(templates []model.ParsedTemplate, i int, name string) error {
	t, err := templateAt(templates, i)
	if err != nil {
		return err
	}
	if name == "" {
		return eris.New("wizard: template name cannot be empty")
	}
	t.Name = name
	return nil
}

// BulkSetCategory applies a category to every currently-included template.
func BulkSetCategory(templates []model.ParsedTemplate, c model.Category) error {
	if !c.Valid() {
		return eris.Errorf("wizard: unknown category %q", c)
	}
	for i := range templates {
		if templates[i].Included {
			templates[i].Category = c
		}
	}
	return nil
}

// BulkSetFrequency applies a frequency to every currently-included template.
// A bulk-set frequency is an explicit user choice, so confidence becomes high.
func BulkSetFrequency(templates []model.ParsedTemplate, f model.Frequency) error {
	if !f.Valid() {
		return eris.Errorf("wizard: unknown frequency %q", f)
	}
	for i := range templates {
		if templates[i].Included {
			templates[i].Frequency = f
			templates[i].FrequencyConfidence = model.ConfidenceHigh
		}
	}
	return nil
}

// ToggleEvidenceType toggles one evidence type on a template, enforcing two
// rules: custom_fields is mutually exclusive with every legacy type (turning
// either side on clears the other), and deselecting the last remaining
// active type is a no-op so an included template always keeps at least one.
func ToggleEvidenceType(templates []model.ParsedTemplate, i int, et model.EvidenceType) error {
	t, err := templateAt(templates, i)
	if err != nil {
		return err
	}

	if et == model.EvidenceCustomFields {
		if t.HasEvidenceType(model.EvidenceCustomFields) {
			// Off: restore the detected set, or text_note when nothing was
			// detected.
			if len(t.EvidenceTypes) > 0 {
				t.OverrideEvidenceTypes = nil
			} else {
				t.OverrideEvidenceTypes = []model.EvidenceType{model.EvidenceTextNote}
			}
		} else {
			t.OverrideEvidenceTypes = []model.EvidenceType{model.EvidenceCustomFields}
		}
		return nil
	}

	active := t.ActiveEvidenceTypes()
	if hasEvidence(active, model.EvidenceCustomFields) {
		// Selecting a legacy type exits custom-fields mode.
		t.OverrideEvidenceTypes = []model.EvidenceType{et}
		return nil
	}

	if hasEvidence(active, et) {
		if len(active) == 1 {
			return nil
		}
		next := make([]model.EvidenceType, 0, len(active)-1)
		for _, v := range active {
			if v != et {
				next = append(next, v)
			}
		}
		t.OverrideEvidenceTypes = next
		return nil
	}

	next := make([]model.EvidenceType, 0, len(active)+1)
	next = append(next, active...)
	next = append(next, et)
	t.OverrideEvidenceTypes = next
	return nil
}

// SetComplianceLink links a template to a compliance library entry, or
// clears the link when slug is empty.
func SetComplianceLink(templates []model.ParsedTemplate, i int, ct *model.ComplianceTemplate) error {
	t, err := templateAt(templates, i)
	if err != nil {
		return err
	}
	if ct == nil {
		t.MatchedTemplateSlug = ""
		t.MatchedTemplateName = ""
		return nil
	}
	t.MatchedTemplateSlug = ct.Slug
	t.MatchedTemplateName = ct.Name
	return nil
}

// AddChecklistItem appends a blank required item for the user to fill in.
func AddChecklistItem(templates []model.ParsedTemplate, i int) error {
	t, err := templateAt(templates, i)
	if err != nil {
		return err
	}
	t.ChecklistItems = append(t.ChecklistItems, model.ChecklistItem{
		ID:       uuid.New().String(),
		Required: true,
	})
	return nil
}

// UpdateChecklistItem edits an item's text and required flag by item id.
func UpdateChecklistItem(templates []model.ParsedTemplate, i int, itemID, text string, required bool) error {
	t, err := templateAt(templates, i)
	if err != nil {
		return err
	}
	for j := range t.ChecklistItems {
		if t.ChecklistItems[j].ID == itemID {
			t.ChecklistItems[j].Text = text
			t.ChecklistItems[j].Required = required
			return nil
		}
	}
	return eris.Errorf("wizard: checklist item %s not found", itemID)
}

// RemoveChecklistItem deletes an item by id. Removal is unconstrained and
// may empty the list.
func RemoveChecklistItem(templates []model.ParsedTemplate, i int, itemID string) error {
	t, err := templateAt(templates, i)
	if err != nil {
		return err
	}
	for j := range t.ChecklistItems {
		if t.ChecklistItems[j].ID == itemID {
			t.ChecklistItems = append(t.ChecklistItems[:j], t.ChecklistItems[j+1:]...)
			return nil
		}
	}
	return eris.Errorf("wizard: checklist item %s not found", itemID)
}
