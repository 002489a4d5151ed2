package model

import "time"

// ImportTemplate is the minimal projection of an included ParsedTemplate
// submitted to the import executor.
type ImportTemplate struct {
	Name                  string          `json:"name"`
	Category              Category        `json:"category"`
	Frequency             Frequency       `json:"frequency"`
	ChecklistItems        []ChecklistItem `json:"checklist_items"`
	DetectedFields        []DetectedField `json:"detected_fields"`
	MatchedTemplateSlug   string          `json:"matched_template_slug,omitempty"`
	OverrideEvidenceTypes []EvidenceType  `json:"override_evidence_types,omitempty"`
	EvidenceTypes         []EvidenceType  `json:"evidence_types"`
}

// ActiveEvidenceTypes returns the override set when present, otherwise the
// detected set, the same resolution the review step applies.
func (t *ImportTemplate) ActiveEvidenceTypes() []EvidenceType {
	if t.OverrideEvidenceTypes != nil {
		return t.OverrideEvidenceTypes
	}
	return t.EvidenceTypes
}

// ImportRequest is the body of POST /api/tasks/import/trail.
type ImportRequest struct {
	CompanyID string           `json:"company_id"`
	SiteIDs   []string         `json:"site_ids"`
	Templates []ImportTemplate `json:"templates"`
	SessionID string           `json:"session_id,omitempty"`
}

// ImportedItem identifies one template the import created.
type ImportedItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LinkedItem identifies one template linked to a compliance library entry
// instead of being created from scratch.
type LinkedItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TemplateName string `json:"template_name"`
}

// FailedItem records one template the backend could not import.
type FailedItem struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ImportDetails itemizes the outcome of an import call.
type ImportDetails struct {
	Imported []ImportedItem `json:"imported"`
	Linked   []LinkedItem   `json:"linked,omitempty"`
	Failed   []FailedItem   `json:"failed"`
}

// ImportResult is the response of POST /api/tasks/import/trail. A single
// call can report a mix of imported, linked, skipped and failed items.
type ImportResult struct {
	Success  bool          `json:"success"`
	Imported int           `json:"imported"`
	Linked   int           `json:"linked,omitempty"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Details  ImportDetails `json:"details"`
	Error    string        `json:"error,omitempty"`
}

// DeleteImportRequest is the body of DELETE /api/tasks/import/trail.
type DeleteImportRequest struct {
	CompanyID string `json:"company_id"`
}

// DeleteImportResult is the response of DELETE /api/tasks/import/trail.
type DeleteImportResult struct {
	Success bool   `json:"success"`
	Deleted int    `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// TaskTemplate is a persisted schedulable task definition, the destination
// record an ImportTemplate becomes once the import succeeds.
type TaskTemplate struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"company_id"`
	Name           string          `json:"name"`
	Category       Category        `json:"category"`
	Frequency      Frequency       `json:"frequency"`
	EvidenceTypes  []EvidenceType  `json:"evidence_types"`
	ChecklistItems []ChecklistItem `json:"checklist_items"`
	DetectedFields []DetectedField `json:"detected_fields"`
	SiteIDs        []string        `json:"site_ids"`
	LinkedSlug     string          `json:"linked_slug,omitempty"`
	Source         string          `json:"source"`
	ImportBatchID  string          `json:"import_batch_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ImportLogEntry records one import batch for auditing and wholesale delete.
type ImportLogEntry struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	Imported    int        `json:"imported"`
	Linked      int        `json:"linked"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}
