package importer

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastroops/opsdeck/internal/model"
)

// memImportStore is an in-memory ImportStore for exercising the executor
// without a database.
type memImportStore struct {
	names     []string
	library   []model.ComplianceTemplate
	created   []model.TaskTemplate
	failNames map[string]bool
	logs      map[string]*model.ImportResult
	deleted   int
}

func newMemImportStore() *memImportStore {
	return &memImportStore{
		failNames: make(map[string]bool),
		logs:      make(map[string]*model.ImportResult),
	}
}

func (m *memImportStore) TemplateNames(context.Context, string) ([]string, error) {
	return m.names, nil
}

func (m *memImportStore) ComplianceTemplates(context.Context, string) ([]model.ComplianceTemplate, error) {
	return m.library, nil
}

func (m *memImportStore) CreateTaskTemplate(_ context.Context, tpl *model.TaskTemplate) error {
	if m.failNames[tpl.Name] {
		return eris.New("insert failed")
	}
	m.created = append(m.created, *tpl)
	return nil
}

func (m *memImportStore) DeleteTrailImport(context.Context, string) (int, error) {
	return m.deleted, nil
}

func (m *memImportStore) StartImportLog(context.Context, string, string) (string, error) {
	return "log-1", nil
}

func (m *memImportStore) CompleteImportLog(_ context.Context, logID string, result *model.ImportResult) error {
	m.logs[logID] = result
	return nil
}

func importRequest(templates ...model.ImportTemplate) *model.ImportRequest {
	return &model.ImportRequest{
		CompanyID: "company-1",
		SiteIDs:   []string{"s1", "s2"},
		Templates: templates,
	}
}

func textTemplate(name string) model.ImportTemplate {
	return model.ImportTemplate{
		Name:          name,
		Category:      model.CategoryGeneral,
		Frequency:     model.FrequencyWeekly,
		EvidenceTypes: []model.EvidenceType{model.EvidenceTextNote},
	}
}

func TestRun_MixedOutcomes(t *testing.T) {
	store := newMemImportStore()
	store.names = []string{"Fire Alarm Test"}
	store.library = []model.ComplianceTemplate{
		{ID: "1", Slug: "fridge-temps-daily", Name: "Daily Fridge Temperatures"},
	}
	store.failNames["Broken one"] = true

	linked := textTemplate("Check fridge temp")
	linked.MatchedTemplateSlug = "fridge-temps-daily"

	result, err := NewExecutor(store).Run(context.Background(), importRequest(
		textTemplate("Clean coffee machine"),
		linked,
		textTemplate("fire alarm test"), // case-insensitive duplicate of existing
		textTemplate("Broken one"),
	))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Linked)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Success)
	assert.Equal(t, "1 of 4 templates failed to import", result.Error)

	require.Len(t, result.Details.Linked, 1)
	assert.Equal(t, "Daily Fridge Temperatures", result.Details.Linked[0].TemplateName)
	require.Len(t, result.Details.Failed, 1)
	assert.Equal(t, "Broken one", result.Details.Failed[0].Name)

	// Every created record carries the batch tag and the site fan-out.
	require.Len(t, store.created, 2)
	for _, rec := range store.created {
		assert.Equal(t, SourceTrail, rec.Source)
		assert.NotEmpty(t, rec.ImportBatchID)
		assert.Equal(t, []string{"s1", "s2"}, rec.SiteIDs)
	}
	assert.Equal(t, store.created[0].ImportBatchID, store.created[1].ImportBatchID)

	// The batch is logged with its final counts.
	require.Contains(t, store.logs, "log-1")
	assert.Equal(t, result.Imported, store.logs["log-1"].Imported)
}

func TestRun_DuplicateWithinBatchSkipsSecond(t *testing.T) {
	store := newMemImportStore()

	result, err := NewExecutor(store).Run(context.Background(), importRequest(
		textTemplate("Check fridge temp"),
		textTemplate("  check FRIDGE temp  "),
	))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
}

func TestRun_OverrideEvidenceTypesWin(t *testing.T) {
	store := newMemImportStore()

	tpl := model.ImportTemplate{
		Name:                  "Check fridge temp",
		Category:              model.CategoryFoodSafety,
		Frequency:             model.FrequencyDaily,
		OverrideEvidenceTypes: []model.EvidenceType{model.EvidenceCustomFields},
	}

	result, err := NewExecutor(store).Run(context.Background(), importRequest(tpl))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, result.Details.Failed)
	require.Len(t, store.created, 1)
	assert.Equal(t, []model.EvidenceType{model.EvidenceCustomFields}, store.created[0].EvidenceTypes)
}

func TestRun_OverrideReplacesDetectedEvidence(t *testing.T) {
	store := newMemImportStore()

	tpl := textTemplate("Clean coffee machine")
	tpl.OverrideEvidenceTypes = []model.EvidenceType{model.EvidencePhoto}

	result, err := NewExecutor(store).Run(context.Background(), importRequest(tpl))
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, store.created, 1)
	assert.Equal(t, []model.EvidenceType{model.EvidencePhoto}, store.created[0].EvidenceTypes)
}

func TestRun_NoEvidenceTypesFailsItem(t *testing.T) {
	store := newMemImportStore()

	tpl := textTemplate("Sweep yard")
	tpl.EvidenceTypes = nil

	result, err := NewExecutor(store).Run(context.Background(), importRequest(tpl))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Imported)
	require.Len(t, result.Details.Failed, 1)
	assert.Contains(t, result.Details.Failed[0].Error, "no evidence types")
	assert.False(t, result.Success)
}

func TestRun_UnknownComplianceSlugFailsItem(t *testing.T) {
	store := newMemImportStore()

	tpl := textTemplate("Check fridge temp")
	tpl.MatchedTemplateSlug = "does-not-exist"

	result, err := NewExecutor(store).Run(context.Background(), importRequest(tpl))
	require.NoError(t, err)

	require.Len(t, result.Details.Failed, 1)
	assert.Contains(t, result.Details.Failed[0].Error, "does-not-exist")
	assert.Empty(t, store.created)
}

func TestRun_GuardsEmptyRequest(t *testing.T) {
	store := newMemImportStore()
	exec := NewExecutor(store)

	_, err := exec.Run(context.Background(), &model.ImportRequest{SiteIDs: []string{"s1"}})
	assert.ErrorIs(t, err, ErrNothingIncluded)

	_, err = exec.Run(context.Background(), &model.ImportRequest{
		Templates: []model.ImportTemplate{textTemplate("x")},
	})
	assert.ErrorIs(t, err, ErrNoSites)
}

func TestDeleteTrail(t *testing.T) {
	store := newMemImportStore()
	store.deleted = 7

	result, err := NewExecutor(store).DeleteTrail(context.Background(), "company-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 7, result.Deleted)
}
