package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/gastroops/opsdeck/internal/db"
	"github.com/gastroops/opsdeck/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"template_names":      `SELECT name FROM task_templates WHERE company_id = $1 ORDER BY name`,
	"insert_template":     `INSERT INTO task_templates (id, company_id, name, category, frequency, evidence_types, checklist_items, detected_fields, site_ids, linked_slug, source, import_batch_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
	"get_session":         `SELECT id, company_id, state, created_at, updated_at FROM import_sessions WHERE id = $1`,
	"save_session":        `INSERT INTO import_sessions (id, company_id, state, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO UPDATE SET state = $3, updated_at = $5`,
	"delete_session":      `DELETE FROM import_sessions WHERE id = $1`,
	"delete_trail_import": `DELETE FROM task_templates WHERE company_id = $1 AND source = 'trail'`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sites (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id TEXT NOT NULL,
	name       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sites_company_id ON sites(company_id);

CREATE TABLE IF NOT EXISTS compliance_templates (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	slug       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	company_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_compliance_templates_company_id ON compliance_templates(company_id);

CREATE TABLE IF NOT EXISTS task_templates (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id      TEXT NOT NULL,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL,
	frequency       TEXT NOT NULL,
	evidence_types  JSONB NOT NULL,
	checklist_items JSONB,
	detected_fields JSONB,
	site_ids        JSONB NOT NULL,
	linked_slug     TEXT,
	source          TEXT NOT NULL DEFAULT 'manual',
	import_batch_id TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_task_templates_company_name
	ON task_templates(company_id, lower(name));
CREATE INDEX IF NOT EXISTS idx_task_templates_source ON task_templates(company_id, source);
CREATE INDEX IF NOT EXISTS idx_task_templates_batch ON task_templates(import_batch_id);

CREATE TABLE IF NOT EXISTS import_sessions (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	state      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_import_sessions_company_id ON import_sessions(company_id);

CREATE TABLE IF NOT EXISTS import_log (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id   TEXT NOT NULL,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'importing',
	imported     INTEGER NOT NULL DEFAULT 0,
	linked       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_import_log_company_id ON import_log(company_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) TemplateNames(ctx context.Context, companyID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM task_templates WHERE company_id = $1 ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: template names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan template name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "postgres: template names iterate")
}

func (s *PostgresStore) ComplianceTemplates(ctx context.Context, companyID string) ([]model.ComplianceTemplate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, slug, name, COALESCE(company_id, '') FROM compliance_templates
		 WHERE company_id IS NULL OR company_id = $1
		 ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: compliance templates")
	}
	defer rows.Close()

	var templates []model.ComplianceTemplate
	for rows.Next() {
		var ct model.ComplianceTemplate
		if err := rows.Scan(&ct.ID, &ct.Slug, &ct.Name, &ct.CompanyID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan compliance template")
		}
		templates = append(templates, ct)
	}
	return templates, eris.Wrap(rows.Err(), "postgres: compliance templates iterate")
}

func (s *PostgresStore) Sites(ctx context.Context, companyID string) ([]model.Site, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, name FROM sites WHERE company_id = $1 ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: sites")
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var site model.Site
		if err := rows.Scan(&site.ID, &site.CompanyID, &site.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan site")
		}
		sites = append(sites, site)
	}
	return sites, eris.Wrap(rows.Err(), "postgres: sites iterate")
}

func (s *PostgresStore) CreateTaskTemplate(ctx context.Context, tpl *model.TaskTemplate) error {
	evidenceJSON, err := json.Marshal(tpl.EvidenceTypes)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evidence types")
	}
	checklistJSON, err := json.Marshal(tpl.ChecklistItems)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal checklist")
	}
	fieldsJSON, err := json.Marshal(tpl.DetectedFields)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal detected fields")
	}
	sitesJSON, err := json.Marshal(tpl.SiteIDs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal site ids")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO task_templates (id, company_id, name, category, frequency, evidence_types, checklist_items, detected_fields, site_ids, linked_slug, source, import_batch_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tpl.ID, tpl.CompanyID, tpl.Name, string(tpl.Category), string(tpl.Frequency),
		evidenceJSON, checklistJSON, fieldsJSON, sitesJSON,
		nullIfEmpty(tpl.LinkedSlug), tpl.Source, nullIfEmpty(tpl.ImportBatchID), tpl.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert template %s", tpl.Name)
}

func (s *PostgresStore) ListTaskTemplates(ctx context.Context, companyID string) ([]model.TaskTemplate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, name, category, frequency, evidence_types, checklist_items, detected_fields, site_ids, COALESCE(linked_slug, ''), source, COALESCE(import_batch_id, ''), created_at
		 FROM task_templates WHERE company_id = $1 ORDER BY name`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list templates")
	}
	defer rows.Close()

	var templates []model.TaskTemplate
	for rows.Next() {
		var tpl model.TaskTemplate
		var category, frequency string
		var evidenceJSON, checklistJSON, fieldsJSON, sitesJSON []byte

		if err := rows.Scan(&tpl.ID, &tpl.CompanyID, &tpl.Name, &category, &frequency,
			&evidenceJSON, &checklistJSON, &fieldsJSON, &sitesJSON,
			&tpl.LinkedSlug, &tpl.Source, &tpl.ImportBatchID, &tpl.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan template")
		}
		tpl.Category = model.Category(category)
		tpl.Frequency = model.Frequency(frequency)
		if err := unmarshalTemplateJSON(&tpl, evidenceJSON, checklistJSON, fieldsJSON, sitesJSON); err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, eris.Wrap(rows.Err(), "postgres: list templates iterate")
}

func (s *PostgresStore) DeleteTrailImport(ctx context.Context, companyID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM task_templates WHERE company_id = $1 AND source = 'trail'`,
		companyID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete trail import")
	}
	return int(tag.RowsAffected()), nil
}

// UpsertSites bulk-upserts site records keyed by id.
func (s *PostgresStore) UpsertSites(ctx context.Context, sites []model.Site) (int, error) {
	rows := make([][]any, 0, len(sites))
	for _, site := range sites {
		id := site.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, site.CompanyID, site.Name})
	}

	affected, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "sites",
		Columns:      []string{"id", "company_id", "name"},
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert sites")
	}
	return int(affected), nil
}

// SeedComplianceLibrary bulk-upserts standard library entries keyed by slug.
func (s *PostgresStore) SeedComplianceLibrary(ctx context.Context, entries []model.ComplianceTemplate) (int, error) {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, e.Slug, e.Name, nullIfEmpty(e.CompanyID)})
	}

	affected, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "compliance_templates",
		Columns:      []string{"id", "slug", "name", "company_id"},
		ConflictKeys: []string{"slug"},
		UpdateCols:   []string{"name", "company_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: seed compliance library")
	}
	return int(affected), nil
}

func (s *PostgresStore) StartImportLog(ctx context.Context, companyID, source string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_log (id, company_id, source, status, started_at) VALUES ($1, $2, $3, 'importing', $4)`,
		id, companyID, source, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: start import log")
	}
	return id, nil
}

func (s *PostgresStore) CompleteImportLog(ctx context.Context, logID string, result *model.ImportResult) error {
	status := "success"
	if !result.Success {
		status = "error"
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_log SET status = $1, imported = $2, linked = $3, skipped = $4, failed = $5, completed_at = $6, error = $7 WHERE id = $8`,
		status, result.Imported, result.Linked, result.Skipped, result.Failed,
		time.Now().UTC(), nullIfEmpty(result.Error), logID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete import log %s", logID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("import log not found: %s", logID)
	}
	return nil
}

func (s *PostgresStore) GetImportSession(ctx context.Context, id string) (*model.ImportSession, error) {
	var session model.ImportSession
	var stateJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, company_id, state, created_at, updated_at FROM import_sessions WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.CompanyID, &stateJSON, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get session %s", id)
	}
	if err := json.Unmarshal(stateJSON, &session.State); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal session state")
	}
	return &session, nil
}

func (s *PostgresStore) SaveImportSession(ctx context.Context, session *model.ImportSession) error {
	stateJSON, err := json.Marshal(session.State)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal session state")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_sessions (id, company_id, state, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET state = $3, updated_at = $5`,
		session.ID, session.CompanyID, stateJSON, session.CreatedAt, session.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: save session %s", session.ID)
}

func (s *PostgresStore) DeleteImportSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM import_sessions WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete session %s", id)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func unmarshalTemplateJSON(tpl *model.TaskTemplate, evidence, checklist, fields, sites []byte) error {
	if err := json.Unmarshal(evidence, &tpl.EvidenceTypes); err != nil {
		return eris.Wrap(err, "postgres: unmarshal evidence types")
	}
	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &tpl.ChecklistItems); err != nil {
			return eris.Wrap(err, "postgres: unmarshal checklist")
		}
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &tpl.DetectedFields); err != nil {
			return eris.Wrap(err, "postgres: unmarshal detected fields")
		}
	}
	if err := json.Unmarshal(sites, &tpl.SiteIDs); err != nil {
		return eris.Wrap(err, "postgres: unmarshal site ids")
	}
	return nil
}
