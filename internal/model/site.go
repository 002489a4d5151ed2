package model

// Site is one operating location of a company.
type Site struct {
	ID        string `json:"id" yaml:"id"`
	CompanyID string `json:"company_id" yaml:"company_id"`
	Name      string `json:"name" yaml:"name"`
}

// ComplianceTemplate is a pre-existing standard task definition (company- or
// globally-scoped) that an imported template can be linked to instead of
// creating a new one.
type ComplianceTemplate struct {
	ID        string `json:"id" yaml:"id"`
	Slug      string `json:"slug" yaml:"slug"`
	Name      string `json:"name" yaml:"name"`
	CompanyID string `json:"company_id,omitempty" yaml:"company_id"` // empty = global library entry
}
