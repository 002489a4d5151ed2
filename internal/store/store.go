// Package store persists task templates, reference data and wizard
// sessions, with Postgres and SQLite backends.
package store

import (
	"context"

	"github.com/gastroops/opsdeck/internal/model"
)

// Store defines the persistence interface for the import service.
type Store interface {
	// Reference reads
	TemplateNames(ctx context.Context, companyID string) ([]string, error)
	ComplianceTemplates(ctx context.Context, companyID string) ([]model.ComplianceTemplate, error)
	Sites(ctx context.Context, companyID string) ([]model.Site, error)
	UpsertSites(ctx context.Context, sites []model.Site) (int, error)

	// Task templates
	CreateTaskTemplate(ctx context.Context, tpl *model.TaskTemplate) error
	ListTaskTemplates(ctx context.Context, companyID string) ([]model.TaskTemplate, error)
	DeleteTrailImport(ctx context.Context, companyID string) (int, error)

	// Compliance library maintenance
	SeedComplianceLibrary(ctx context.Context, entries []model.ComplianceTemplate) (int, error)

	// Import log
	StartImportLog(ctx context.Context, companyID, source string) (string, error)
	CompleteImportLog(ctx context.Context, logID string, result *model.ImportResult) error

	// Wizard sessions
	GetImportSession(ctx context.Context, id string) (*model.ImportSession, error)
	SaveImportSession(ctx context.Context, session *model.ImportSession) error
	DeleteImportSession(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
