package model

// Category classifies a task template into one of the fixed operational buckets.
type Category string

const (
	CategoryFoodSafety     Category = "food_safety"
	CategoryHealthSafety   Category = "health_safety"
	CategoryFireSafety     Category = "fire_safety"
	CategoryCleaning       Category = "cleaning"
	CategoryMaintenance    Category = "maintenance"
	CategoryOpeningClosing Category = "opening_closing"
	CategoryCompliance     Category = "compliance"
	CategoryGeneral        Category = "general"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFoodSafety,
	CategoryHealthSafety,
	CategoryFireSafety,
	CategoryCleaning,
	CategoryMaintenance,
	CategoryOpeningClosing,
	CategoryCompliance,
	CategoryGeneral,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Frequency describes how often a task template is scheduled to run.
type Frequency string

const (
	FrequencyDaily       Frequency = "daily"
	FrequencyWeekly      Frequency = "weekly"
	FrequencyFortnightly Frequency = "fortnightly"
	FrequencyMonthly     Frequency = "monthly"
	FrequencyQuarterly   Frequency = "quarterly"
	FrequencyAnnually    Frequency = "annually"
)

// Frequencies lists every valid frequency in ascending period order.
var Frequencies = []Frequency{
	FrequencyDaily,
	FrequencyWeekly,
	FrequencyFortnightly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyAnnually,
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if f == v {
			return true
		}
	}
	return false
}

// Confidence tags how reliable an inferred value is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// EvidenceType is the kind of proof-of-completion a task requires.
type EvidenceType string

const (
	EvidenceTemperature  EvidenceType = "temperature"
	EvidencePhoto        EvidenceType = "photo"
	EvidencePassFail     EvidenceType = "pass_fail"
	EvidenceYesNo        EvidenceType = "yes_no"
	EvidenceTextNote     EvidenceType = "text_note"
	EvidenceCustomFields EvidenceType = "custom_fields"
)

// LegacyEvidenceTypes lists the per-feature evidence toggles that are mutually
// exclusive with EvidenceCustomFields.
var LegacyEvidenceTypes = []EvidenceType{
	EvidenceTemperature,
	EvidencePhoto,
	EvidencePassFail,
	EvidenceYesNo,
	EvidenceTextNote,
}

// FieldType describes the structure of a detected record field.
type FieldType string

const (
	FieldTypeTemperature FieldType = "temperature"
	FieldTypeText        FieldType = "text"
	FieldTypeYesNo       FieldType = "yes_no"
	FieldTypePassFail    FieldType = "pass_fail"
	FieldTypePhoto       FieldType = "photo"
)

// ChecklistItem is one sub-item of a task template.
type ChecklistItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

// DetectedField describes a structured record field inferred from the CSV,
// e.g. a temperature reading column with warn/fail thresholds.
type DetectedField struct {
	FieldName string    `json:"field_name"`
	FieldType FieldType `json:"field_type"`
	Label     string    `json:"label"`
	WarnAbove *float64  `json:"warn_above,omitempty"`
	FailAbove *float64  `json:"fail_above,omitempty"`
}

// ParsedTemplate is one distinct recurring task inferred from the CSV. It is
// created by the parser, annotated by the duplicate matcher, edited through
// the review step, and consumed read-only by the import executor.
type ParsedTemplate struct {
	Name                  string          `json:"name"`
	InstanceCount         int             `json:"instance_count"`
	Category              Category        `json:"category"`
	Frequency             Frequency       `json:"frequency"`
	FrequencyConfidence   Confidence      `json:"frequency_confidence"`
	ChecklistItems        []ChecklistItem `json:"checklist_items"`
	DetectedFields        []DetectedField `json:"detected_fields"`
	EvidenceTypes         []EvidenceType  `json:"evidence_types"`
	HasPhotos             bool            `json:"has_photos"`
	Included              bool            `json:"included"`
	IsDuplicate           bool            `json:"is_duplicate"`
	MatchedTemplateSlug   string          `json:"matched_template_slug,omitempty"`
	MatchedTemplateName   string          `json:"matched_template_name,omitempty"`
	OverrideEvidenceTypes []EvidenceType  `json:"override_evidence_types,omitempty"`
}

// ActiveEvidenceTypes returns the override set when present, otherwise the
// auto-detected set.
func (t *ParsedTemplate) ActiveEvidenceTypes() []EvidenceType {
	if t.OverrideEvidenceTypes != nil {
		return t.OverrideEvidenceTypes
	}
	return t.EvidenceTypes
}

// HasEvidenceType reports whether et is currently active on the template.
func (t *ParsedTemplate) HasEvidenceType(et EvidenceType) bool {
	for _, v := range t.ActiveEvidenceTypes() {
		if v == et {
			return true
		}
	}
	return false
}
