package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gastroops/opsdeck/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sites (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	name       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sites_company_id ON sites(company_id);

CREATE TABLE IF NOT EXISTS compliance_templates (
	id         TEXT PRIMARY KEY,
	slug       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	company_id TEXT
);

CREATE TABLE IF NOT EXISTS task_templates (
	id              TEXT PRIMARY KEY,
	company_id      TEXT NOT NULL,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL,
	frequency       TEXT NOT NULL,
	evidence_types  TEXT NOT NULL,
	checklist_items TEXT,
	detected_fields TEXT,
	site_ids        TEXT NOT NULL,
	linked_slug     TEXT,
	source          TEXT NOT NULL DEFAULT 'manual',
	import_batch_id TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_task_templates_company_name
	ON task_templates(company_id, lower(name));
CREATE INDEX IF NOT EXISTS idx_task_templates_source ON task_templates(company_id, source);

CREATE TABLE IF NOT EXISTS import_sessions (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	state      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_import_sessions_company_id ON import_sessions(company_id);

CREATE TABLE IF NOT EXISTS import_log (
	id           TEXT PRIMARY KEY,
	company_id   TEXT NOT NULL,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'importing',
	imported     INTEGER NOT NULL DEFAULT 0,
	linked       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_import_log_company_id ON import_log(company_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) TemplateNames(ctx context.Context, companyID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM task_templates WHERE company_id = ? ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: template names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: template names iterate")
}

func (s *SQLiteStore) ComplianceTemplates(ctx context.Context, companyID string) ([]model.ComplianceTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, name, COALESCE(company_id, '') FROM compliance_templates
		 WHERE company_id IS NULL OR company_id = ?
		 ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: compliance templates")
	}
	defer rows.Close()

	var templates []model.ComplianceTemplate
	for rows.Next() {
		var ct model.ComplianceTemplate
		if err := rows.Scan(&ct.ID, &ct.Slug, &ct.Name, &ct.CompanyID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan compliance template")
		}
		templates = append(templates, ct)
	}
	return templates, eris.Wrap(rows.Err(), "sqlite: compliance templates iterate")
}

func (s *SQLiteStore) Sites(ctx context.Context, companyID string) ([]model.Site, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, name FROM sites WHERE company_id = ? ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: sites")
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var site model.Site
		if err := rows.Scan(&site.ID, &site.CompanyID, &site.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan site")
		}
		sites = append(sites, site)
	}
	return sites, eris.Wrap(rows.Err(), "sqlite: sites iterate")
}

func (s *SQLiteStore) CreateTaskTemplate(ctx context.Context, tpl *model.TaskTemplate) error {
	evidenceJSON, err := json.Marshal(tpl.EvidenceTypes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evidence types")
	}
	checklistJSON, err := json.Marshal(tpl.ChecklistItems)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal checklist")
	}
	fieldsJSON, err := json.Marshal(tpl.DetectedFields)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal detected fields")
	}
	sitesJSON, err := json.Marshal(tpl.SiteIDs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal site ids")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO task_templates (id, company_id, name, category, frequency, evidence_types, checklist_items, detected_fields, site_ids, linked_slug, source, import_batch_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.CompanyID, tpl.Name, string(tpl.Category), string(tpl.Frequency),
		string(evidenceJSON), string(checklistJSON), string(fieldsJSON), string(sitesJSON),
		tpl.LinkedSlug, tpl.Source, tpl.ImportBatchID, tpl.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert template %s", tpl.Name)
}

func (s *SQLiteStore) ListTaskTemplates(ctx context.Context, companyID string) ([]model.TaskTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, name, category, frequency, evidence_types, checklist_items, detected_fields, site_ids, COALESCE(linked_slug, ''), source, COALESCE(import_batch_id, ''), created_at
		 FROM task_templates WHERE company_id = ? ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list templates")
	}
	defer rows.Close()

	var templates []model.TaskTemplate
	for rows.Next() {
		var tpl model.TaskTemplate
		var category, frequency string
		var evidenceJSON, checklistJSON, fieldsJSON, sitesJSON sql.NullString

		if err := rows.Scan(&tpl.ID, &tpl.CompanyID, &tpl.Name, &category, &frequency,
			&evidenceJSON, &checklistJSON, &fieldsJSON, &sitesJSON,
			&tpl.LinkedSlug, &tpl.Source, &tpl.ImportBatchID, &tpl.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template")
		}
		tpl.Category = model.Category(category)
		tpl.Frequency = model.Frequency(frequency)
		if err := unmarshalTemplateJSON(&tpl,
			[]byte(evidenceJSON.String), []byte(checklistJSON.String),
			[]byte(fieldsJSON.String), []byte(sitesJSON.String)); err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, eris.Wrap(rows.Err(), "sqlite: list templates iterate")
}

func (s *SQLiteStore) DeleteTrailImport(ctx context.Context, companyID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM task_templates WHERE company_id = ? AND source = 'trail'`,
		companyID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete trail import")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete trail import rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) UpsertSites(ctx context.Context, sites []model.Site) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert sites begin tx")
	}
	defer tx.Rollback()

	count := 0
	for _, site := range sites {
		id := site.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sites (id, company_id, name) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET company_id = excluded.company_id, name = excluded.name`,
			id, site.CompanyID, site.Name,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert site %s", site.Name)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert sites commit")
	}
	return count, nil
}

func (s *SQLiteStore) SeedComplianceLibrary(ctx context.Context, entries []model.ComplianceTemplate) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: seed begin tx")
	}
	defer tx.Rollback()

	count := 0
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		var companyID any
		if e.CompanyID != "" {
			companyID = e.CompanyID
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO compliance_templates (id, slug, name, company_id) VALUES (?, ?, ?, ?)
			 ON CONFLICT (slug) DO UPDATE SET name = excluded.name, company_id = excluded.company_id`,
			id, e.Slug, e.Name, companyID,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: seed %s", e.Slug)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: seed commit")
	}
	return count, nil
}

func (s *SQLiteStore) StartImportLog(ctx context.Context, companyID, source string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_log (id, company_id, source, status, started_at) VALUES (?, ?, ?, 'importing', ?)`,
		id, companyID, source, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: start import log")
	}
	return id, nil
}

func (s *SQLiteStore) CompleteImportLog(ctx context.Context, logID string, result *model.ImportResult) error {
	status := "success"
	if !result.Success {
		status = "error"
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_log SET status = ?, imported = ?, linked = ?, skipped = ?, failed = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, result.Imported, result.Linked, result.Skipped, result.Failed,
		time.Now().UTC(), result.Error, logID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete import log %s", logID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: complete import log rows affected")
	}
	if n == 0 {
		return eris.Errorf("import log not found: %s", logID)
	}
	return nil
}

func (s *SQLiteStore) GetImportSession(ctx context.Context, id string) (*model.ImportSession, error) {
	var session model.ImportSession
	var stateJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, company_id, state, created_at, updated_at FROM import_sessions WHERE id = ?`,
		id,
	).Scan(&session.ID, &session.CompanyID, &stateJSON, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get session %s", id)
	}
	if err := json.Unmarshal([]byte(stateJSON), &session.State); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal session state")
	}
	return &session, nil
}

func (s *SQLiteStore) SaveImportSession(ctx context.Context, session *model.ImportSession) error {
	stateJSON, err := json.Marshal(session.State)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal session state")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_sessions (id, company_id, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		session.ID, session.CompanyID, string(stateJSON), session.CreatedAt, session.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: save session %s", session.ID)
}

func (s *SQLiteStore) DeleteImportSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM import_sessions WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete session %s", id)
}
