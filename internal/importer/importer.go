package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gastroops/opsdeck/internal/model"
	"github.com/gastroops/opsdeck/internal/trail"
)

// SourceTrail tags templates created by the Trail CSV import so a later
// wholesale delete can find them.
const SourceTrail = "trail"

// ImportStore is the persistence surface the executor needs.
type ImportStore interface {
	TemplateNames(ctx context.Context, companyID string) ([]string, error)
	ComplianceTemplates(ctx context.Context, companyID string) ([]model.ComplianceTemplate, error)
	CreateTaskTemplate(ctx context.Context, tpl *model.TaskTemplate) error
	DeleteTrailImport(ctx context.Context, companyID string) (int, error)
	StartImportLog(ctx context.Context, companyID, source string) (string, error)
	CompleteImportLog(ctx context.Context, logID string, result *model.ImportResult) error
}

// Executor runs import batches against the store.
type Executor struct {
	store ImportStore
	now   func() time.Time
}

// NewExecutor creates an executor over the given store.
func NewExecutor(store ImportStore) *Executor {
	return &Executor{store: store, now: time.Now}
}

// Run imports a batch of templates in one call. Each template resolves to
// exactly one outcome: imported, linked to a compliance library entry,
// skipped because a template with the same name already exists, or failed.
// A failure on one item never aborts the rest of the batch.
func (e *Executor) Run(ctx context.Context, req *model.ImportRequest) (*model.ImportResult, error) {
	if len(req.Templates) == 0 {
		return nil, ErrNothingIncluded
	}
	if len(req.SiteIDs) == 0 {
		return nil, ErrNoSites
	}

	names, err := e.store.TemplateNames(ctx, req.CompanyID)
	if err != nil {
		return nil, eris.Wrap(err, "importer: load template names")
	}
	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[trail.NormalizeName(name)] = true
	}

	library, err := e.store.ComplianceTemplates(ctx, req.CompanyID)
	if err != nil {
		return nil, eris.Wrap(err, "importer: load compliance library")
	}
	bySlug := make(map[string]model.ComplianceTemplate, len(library))
	for _, ct := range library {
		bySlug[ct.Slug] = ct
	}

	logID, err := e.store.StartImportLog(ctx, req.CompanyID, SourceTrail)
	if err != nil {
		return nil, eris.Wrap(err, "importer: start import log")
	}

	batchID := uuid.New().String()
	result := &model.ImportResult{}

	for _, tpl := range req.Templates {
		normalized := trail.NormalizeName(tpl.Name)

		if existing[normalized] {
			result.Skipped++
			continue
		}

		evidence := tpl.ActiveEvidenceTypes()
		if len(evidence) == 0 {
			result.Details.Failed = append(result.Details.Failed, model.FailedItem{
				Name:  tpl.Name,
				Error: "no evidence types selected",
			})
			continue
		}

		if tpl.MatchedTemplateSlug != "" {
			if _, ok := bySlug[tpl.MatchedTemplateSlug]; !ok {
				result.Details.Failed = append(result.Details.Failed, model.FailedItem{
					Name:  tpl.Name,
					Error: fmt.Sprintf("unknown compliance template %q", tpl.MatchedTemplateSlug),
				})
				continue
			}
		}

		record := &model.TaskTemplate{
			ID:             uuid.New().String(),
			CompanyID:      req.CompanyID,
			Name:           tpl.Name,
			Category:       tpl.Category,
			Frequency:      tpl.Frequency,
			EvidenceTypes:  evidence,
			ChecklistItems: tpl.ChecklistItems,
			DetectedFields: tpl.DetectedFields,
			SiteIDs:        req.SiteIDs,
			LinkedSlug:     tpl.MatchedTemplateSlug,
			Source:         SourceTrail,
			ImportBatchID:  batchID,
			CreatedAt:      e.now().UTC(),
		}
		if err := e.store.CreateTaskTemplate(ctx, record); err != nil {
			zap.L().Warn("template import failed",
				zap.String("company_id", req.CompanyID),
				zap.String("name", tpl.Name),
				zap.Error(err))
			result.Details.Failed = append(result.Details.Failed, model.FailedItem{
				Name:  tpl.Name,
				Error: err.Error(),
			})
			continue
		}
		existing[normalized] = true

		if tpl.MatchedTemplateSlug != "" {
			result.Details.Linked = append(result.Details.Linked, model.LinkedItem{
				ID:           record.ID,
				Name:         record.Name,
				TemplateName: bySlug[tpl.MatchedTemplateSlug].Name,
			})
		} else {
			result.Details.Imported = append(result.Details.Imported, model.ImportedItem{
				ID:   record.ID,
				Name: record.Name,
			})
		}
	}

	result.Imported = len(result.Details.Imported)
	result.Linked = len(result.Details.Linked)
	result.Failed = len(result.Details.Failed)
	result.Success = result.Failed == 0
	if !result.Success {
		result.Error = fmt.Sprintf("%d of %d templates failed to import", result.Failed, len(req.Templates))
	}

	if err := e.store.CompleteImportLog(ctx, logID, result); err != nil {
		zap.L().Warn("import log completion failed", zap.String("log_id", logID), zap.Error(err))
	}

	zap.L().Info("trail import finished",
		zap.String("company_id", req.CompanyID),
		zap.String("batch_id", batchID),
		zap.Int("imported", result.Imported),
		zap.Int("linked", result.Linked),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return result, nil
}

// DeleteTrail removes every template a previous Trail import created for
// the company.
func (e *Executor) DeleteTrail(ctx context.Context, companyID string) (*model.DeleteImportResult, error) {
	deleted, err := e.store.DeleteTrailImport(ctx, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "importer: delete trail import")
	}
	zap.L().Info("trail import deleted",
		zap.String("company_id", companyID),
		zap.Int("deleted", deleted))
	return &model.DeleteImportResult{Success: true, Deleted: deleted}, nil
}
