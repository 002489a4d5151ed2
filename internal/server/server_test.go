package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastroops/opsdeck/internal/config"
	"github.com/gastroops/opsdeck/internal/model"
	"github.com/gastroops/opsdeck/internal/store"
)

const trailCSV = `Task description,Category,Frequency,Site,Completed at
Check fridge temp,Food,Daily,Harbour Street,2025-03-01
Check fridge temp,Food,Daily,Harbour Street,2025-03-02
Fire Alarm Test,Fire,Weekly,Harbour Street,2025-03-03
`

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Import.MaxUploadBytes = 20 * 1024 * 1024
	cfg.Import.ImportsPerMinute = 600
	cfg.Import.ImportBurst = 10
	return cfg
}

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	_, err = st.UpsertSites(ctx, []model.Site{
		{ID: "s1", CompanyID: "company-1", Name: "Harbour Street"},
		{ID: "s2", CompanyID: "company-1", Name: "Old Town"},
	})
	require.NoError(t, err)

	_, err = st.SeedComplianceLibrary(ctx, []model.ComplianceTemplate{
		{Slug: "fire-alarm-weekly", Name: "Weekly Fire Alarm Test"},
	})
	require.NoError(t, err)

	require.NoError(t, st.CreateTaskTemplate(ctx, &model.TaskTemplate{
		ID:            "existing-1",
		CompanyID:     "company-1",
		Name:          "Fire Alarm Test",
		Category:      model.CategoryFireSafety,
		Frequency:     model.FrequencyWeekly,
		EvidenceTypes: []model.EvidenceType{model.EvidencePassFail},
		SiteIDs:       []string{"s1"},
		Source:        "manual",
		CreatedAt:     time.Now().UTC(),
	}))

	return New(testConfig(), st), st
}

func csvUpload(t *testing.T, filename, content, companyID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("company_id", companyID))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/sessions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) *model.ImportSession {
	t.Helper()
	var session model.ImportSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	return &session
}

func decodeUpload(t *testing.T, rec *httptest.ResponseRecorder) uploadResponse {
	t.Helper()
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestUpload_OpensReviewSession(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, csvUpload(t, "trail_export.csv", trailCSV, "company-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeUpload(t, rec)
	session := resp.Session
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, model.StepReview, session.State.Step)
	assert.Equal(t, 3, session.State.TotalRows)
	require.Len(t, session.State.Templates, 2)

	// The existing "Fire Alarm Test" is flagged and deselected.
	fire := session.State.Templates[1]
	assert.True(t, fire.IsDuplicate)
	assert.False(t, fire.Included)
	assert.Contains(t, strings.Join(session.State.Warnings, "\n"), "duplicate template")

	// Site detected from the CSV and auto-selected.
	assert.Equal(t, "Harbour Street", session.State.SiteName)
	assert.Equal(t, []string{"s1"}, session.State.SelectedSites)

	// Reference data rides along with the new session.
	require.Len(t, resp.Sites, 2)
	require.Len(t, resp.ComplianceTemplates, 1)
	assert.Equal(t, "fire-alarm-weekly", resp.ComplianceTemplates[0].Slug)
}

func TestUpload_RejectsNonCSV(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, csvUpload(t, "notes.txt", trailCSV, "company-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only .csv files")
}

func TestUpload_RejectsOversizeFile(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.cfg.Import.MaxUploadBytes = 64

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, csvUpload(t, "trail_export.csv", trailCSV, "company-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds")
}

func TestUpload_RejectsMissingTaskColumn(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, csvUpload(t, "export.csv", "Foo,Bar\n1,2\n", "company-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "task description column")
}

func TestUpload_RequiresCompanyID(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "export.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, trailCSV)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/sessions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "company_id")
}

func TestSession_GetUpdateDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, csvUpload(t, "trail_export.csv", trailCSV, "company-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decodeUpload(t, rec).Session

	// Unknown id is a 404.
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, router, http.MethodGet, "/api/import/sessions/nope", nil).Code)

	// Resolve evidence for the included templates, advance to the sites
	// step and persist.
	for i := range session.State.Templates {
		if session.State.Templates[i].Included {
			session.State.Templates[i].OverrideEvidenceTypes = []model.EvidenceType{model.EvidenceTextNote}
		}
	}
	session.State.Step = model.StepSites
	rec2 := doJSON(t, router, http.MethodPut, "/api/import/sessions/"+session.ID, session.State)
	require.Equal(t, http.StatusOK, rec2.Code, rec2.Body.String())

	got := decodeSession(t, doJSON(t, router, http.MethodGet, "/api/import/sessions/"+session.ID, nil))
	assert.Equal(t, model.StepSites, got.State.Step)

	// Invalid state is rejected.
	bad := got.State
	bad.Templates[0].Category = "snacks"
	assert.Equal(t, http.StatusBadRequest,
		doJSON(t, router, http.MethodPut, "/api/import/sessions/"+session.ID, bad).Code)

	// Delete, then the session is gone.
	assert.Equal(t, http.StatusNoContent,
		doJSON(t, router, http.MethodDelete, "/api/import/sessions/"+session.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, router, http.MethodGet, "/api/import/sessions/"+session.ID, nil).Code)
}

func TestSessionUpdate_EnforcesStepOrdering(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, csvUpload(t, "trail_export.csv", trailCSV, "company-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decodeUpload(t, rec).Session

	// Skipping straight from review to results is rejected.
	jump := session.State
	jump.Step = model.StepResults
	assert.Equal(t, http.StatusBadRequest,
		doJSON(t, router, http.MethodPut, "/api/import/sessions/"+session.ID, jump).Code)

	// The sites step requires at least one included template.
	st := session.State
	st.Step = model.StepSites
	for i := range st.Templates {
		st.Templates[i].Included = false
	}
	assert.Equal(t, http.StatusBadRequest,
		doJSON(t, router, http.MethodPut, "/api/import/sessions/"+session.ID, st).Code)

	// An included template without resolved evidence also blocks it: the
	// upload CSV carries no evidence columns.
	st.Templates[0].Included = true
	assert.Equal(t, http.StatusBadRequest,
		doJSON(t, router, http.MethodPut, "/api/import/sessions/"+session.ID, st).Code)

	// With an evidence override the same transition goes through.
	st.Templates[0].OverrideEvidenceTypes = []model.EvidenceType{model.EvidenceTextNote}
	assert.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, "/api/import/sessions/"+session.ID, st).Code)
}

func TestImport_SuccessClearsSession(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, csvUpload(t, "trail_export.csv", trailCSV, "company-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decodeUpload(t, rec).Session

	req := model.ImportRequest{
		CompanyID: "company-1",
		SiteIDs:   []string{"s1"},
		SessionID: session.ID,
		Templates: []model.ImportTemplate{
			{
				Name:          "Check fridge temp",
				Category:      model.CategoryFoodSafety,
				Frequency:     model.FrequencyDaily,
				EvidenceTypes: []model.EvidenceType{model.EvidenceTemperature},
			},
		},
	}
	rec2 := doJSON(t, router, http.MethodPost, "/api/tasks/import/trail", req)
	require.Equal(t, http.StatusOK, rec2.Code, rec2.Body.String())

	var result model.ImportResult
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Imported)

	// Session is cleared after a successful import.
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, router, http.MethodGet, "/api/import/sessions/"+session.ID, nil).Code)

	names, err := st.TemplateNames(context.Background(), "company-1")
	require.NoError(t, err)
	assert.Contains(t, names, "Check fridge temp")
}

func TestImport_GuardsEmptySelection(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	// No sites selected.
	rec := doJSON(t, router, http.MethodPost, "/api/tasks/import/trail", model.ImportRequest{
		CompanyID: "company-1",
		Templates: []model.ImportTemplate{{Name: "x", EvidenceTypes: []model.EvidenceType{model.EvidenceTextNote}}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No templates included.
	rec = doJSON(t, router, http.MethodPost, "/api/tasks/import/trail", model.ImportRequest{
		CompanyID: "company-1",
		SiteIDs:   []string{"s1"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImport_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.cfg.Import.ImportsPerMinute = 60
	srv.cfg.Import.ImportBurst = 1
	// Rebuild the limiter with the tightened config.
	srv2 := New(srv.cfg, srv.store)
	router := srv2.Router()

	req := model.ImportRequest{
		CompanyID: "company-1",
		SiteIDs:   []string{"s1"},
		Templates: []model.ImportTemplate{
			{Name: "Rate limit probe", EvidenceTypes: []model.EvidenceType{model.EvidenceTextNote},
				Category: model.CategoryGeneral, Frequency: model.FrequencyWeekly},
		},
	}
	first := doJSON(t, router, http.MethodPost, "/api/tasks/import/trail", req)
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, router, http.MethodPost, "/api/tasks/import/trail", req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestDeleteImport(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()

	require.NoError(t, st.CreateTaskTemplate(context.Background(), &model.TaskTemplate{
		ID: "tpl-trail", CompanyID: "company-1", Name: "Imported one",
		Category: model.CategoryGeneral, Frequency: model.FrequencyWeekly,
		EvidenceTypes: []model.EvidenceType{model.EvidenceTextNote},
		SiteIDs:       []string{"s1"}, Source: "trail", CreatedAt: time.Now().UTC(),
	}))

	rec := doJSON(t, router, http.MethodDelete, "/api/tasks/import/trail",
		model.DeleteImportRequest{CompanyID: "company-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.DeleteImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Deleted)

	// The manual template survives.
	names, err := st.TemplateNames(context.Background(), "company-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fire Alarm Test"}, names)
}

func TestReferenceEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/api/companies/company-1/sites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Harbour Street")

	rec = doJSON(t, router, http.MethodGet, "/api/companies/company-1/template-names", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fire Alarm Test")

	rec = doJSON(t, router, http.MethodGet, "/api/companies/company-1/compliance-templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fire-alarm-weekly")
}
