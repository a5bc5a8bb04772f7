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

	"github.com/sells-group/boxflow/internal/model"
	"github.com/sells-group/boxflow/internal/resilience"
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS file_requests (
	id          TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	folder_id   TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	url         TEXT NOT NULL DEFAULT '',
	expires_at  DATETIME,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reconcile_runs (
	id           TEXT PRIMARY KEY,
	folder_id    TEXT NOT NULL,
	template_key TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	summary      TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS apply_journal (
	id           TEXT PRIMARY KEY,
	run_id       TEXT,
	file_id      TEXT NOT NULL,
	file_name    TEXT NOT NULL DEFAULT '',
	template_key TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	fields       TEXT,
	applied_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	file_id        TEXT NOT NULL,
	file_name      TEXT NOT NULL DEFAULT '',
	template_key   TEXT NOT NULL,
	stage          TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_file_requests_folder ON file_requests(folder_id);
CREATE INDEX IF NOT EXISTS idx_reconcile_runs_status ON reconcile_runs(status);
CREATE INDEX IF NOT EXISTS idx_apply_journal_run_id ON apply_journal(run_id);
CREATE INDEX IF NOT EXISTS idx_apply_journal_file_id ON apply_journal(file_id);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// File-request index

func (s *SQLiteStore) SaveFileRequest(ctx context.Context, rec model.FileRequestRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_requests (id, template_id, folder_id, title, description, status, url, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   folder_id = excluded.folder_id, title = excluded.title, description = excluded.description,
		   status = excluded.status, url = excluded.url, expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.TemplateID, rec.FolderID, rec.Title, rec.Description, rec.Status, rec.URL,
		nullTime(rec.ExpiresAt), rec.CreatedAt, now,
	)
	return eris.Wrapf(err, "sqlite: save file request %s", rec.ID)
}

func (s *SQLiteStore) GetFileRequest(ctx context.Context, id string) (*model.FileRequestRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, template_id, folder_id, title, description, status, url, expires_at, created_at, updated_at
		 FROM file_requests WHERE id = ?`,
		id,
	)
	rec, err := scanFileRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "file request %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get file request %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) ListFileRequests(ctx context.Context, filter FileRequestFilter) ([]model.FileRequestRecord, error) {
	query := `SELECT id, template_id, folder_id, title, description, status, url, expires_at, created_at, updated_at
	          FROM file_requests WHERE 1=1`
	var args []any
	if filter.FolderID != "" {
		query += ` AND folder_id = ?`
		args = append(args, filter.FolderID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list file requests")
	}
	defer rows.Close()

	var out []model.FileRequestRecord
	for rows.Next() {
		rec, err := scanFileRequest(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan file request")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list file requests iterate")
}

func (s *SQLiteStore) DeleteFileRequest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM file_requests WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete file request %s", id)
	}
	return checkRowsAffected(res, "file request", id)
}

// Reconciliation runs

func (s *SQLiteStore) CreateRun(ctx context.Context, folderID, templateKey string) (*model.ReconcileRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reconcile_runs (id, folder_id, template_key, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, folderID, templateKey, string(model.ReconcileRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.ReconcileRun{
		ID:          id,
		FolderID:    folderID,
		TemplateKey: templateKey,
		Status:      model.ReconcileRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.ReconcileStatus, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE reconcile_runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(status), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ReconcileRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, folder_id, template_key, status, summary, created_at, updated_at FROM reconcile_runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ReconcileRun, error) {
	query := `SELECT id, folder_id, template_key, status, summary, created_at, updated_at FROM reconcile_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.FolderID != "" {
		query += ` AND folder_id = ?`
		args = append(args, filter.FolderID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ReconcileRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// Apply journal

func (s *SQLiteStore) RecordApply(ctx context.Context, rec model.ApplyRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.AppliedAt.IsZero() {
		rec.AppliedAt = time.Now().UTC()
	}
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal fields")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO apply_journal (id, run_id, file_id, file_name, template_key, outcome, error, fields, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, nullString(rec.RunID), rec.FileID, rec.FileName, rec.TemplateKey,
		string(rec.Outcome), rec.Error, string(fieldsJSON), rec.AppliedAt,
	)
	return eris.Wrapf(err, "sqlite: record apply for file %s", rec.FileID)
}

func (s *SQLiteStore) ListApplies(ctx context.Context, runID string) ([]model.ApplyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, file_id, file_name, template_key, outcome, error, fields, applied_at
		 FROM apply_journal WHERE run_id = ? ORDER BY applied_at ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list applies")
	}
	defer rows.Close()

	var out []model.ApplyRecord
	for rows.Next() {
		var rec model.ApplyRecord
		var run sql.NullString
		var fieldsJSON sql.NullString
		if err := rows.Scan(&rec.ID, &run, &rec.FileID, &rec.FileName, &rec.TemplateKey,
			&rec.Outcome, &rec.Error, &fieldsJSON, &rec.AppliedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan apply")
		}
		rec.RunID = run.String
		if fieldsJSON.Valid && fieldsJSON.String != "null" {
			if err := json.Unmarshal([]byte(fieldsJSON.String), &rec.Fields); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal fields")
			}
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list applies iterate")
}

// Dead-letter queue

const dlqColumns = `id, file_id, file_name, template_key, stage, error, error_type, retry_count, max_retries, next_retry_at, created_at, last_failed_at`

func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastFailedAt.IsZero() {
		entry.LastFailedAt = now
	}
	if entry.NextRetryAt.IsZero() {
		entry.NextRetryAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letter_queue (`+dlqColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   error = excluded.error, error_type = excluded.error_type, stage = excluded.stage,
		   retry_count = excluded.retry_count, next_retry_at = excluded.next_retry_at,
		   last_failed_at = excluded.last_failed_at`,
		entry.ID, entry.FileID, entry.FileName, entry.TemplateKey, entry.Stage,
		entry.Error, entry.ErrorType, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt.UTC(), entry.CreatedAt.UTC(), entry.LastFailedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: enqueue dlq")
}

func (s *SQLiteStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT ` + dlqColumns + ` FROM dead_letter_queue
	          WHERE next_retry_at <= ? AND retry_count < max_retries AND error_type != ?`
	args := []any{time.Now().UTC(), resilience.ErrorPermanent}
	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}
	query += ` ORDER BY next_retry_at ASC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))
	return s.queryDLQ(ctx, query, args...)
}

func (s *SQLiteStore) ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT ` + dlqColumns + ` FROM dead_letter_queue WHERE 1=1`
	var args []any
	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))
	return s.queryDLQ(ctx, query, args...)
}

func (s *SQLiteStore) queryDLQ(ctx context.Context, query string, args ...any) ([]resilience.DLQEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		if err := rows.Scan(&e.ID, &e.FileID, &e.FileName, &e.TemplateKey, &e.Stage,
			&e.Error, &e.ErrorType, &e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: query dlq iterate")
}

func (s *SQLiteStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = ?, error = ?, last_failed_at = ?
		 WHERE id = ?`,
		nextRetryAt.UTC(), lastErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment dlq retry %s", id)
	}
	return checkRowsAffected(res, "dlq_entry", id)
}

func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove dlq")
}

func (s *SQLiteStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count dlq")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFileRequest(row scannable) (*model.FileRequestRecord, error) {
	var rec model.FileRequestRecord
	var expires sql.NullTime
	if err := row.Scan(&rec.ID, &rec.TemplateID, &rec.FolderID, &rec.Title, &rec.Description,
		&rec.Status, &rec.URL, &expires, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time.UTC()
		rec.ExpiresAt = &t
	}
	return &rec, nil
}

func scanRun(row scannable) (*model.ReconcileRun, error) {
	var r model.ReconcileRun
	var summaryJSON sql.NullString
	if err := row.Scan(&r.ID, &r.FolderID, &r.TemplateKey, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if summaryJSON.Valid && summaryJSON.String != "null" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "unmarshal summary")
		}
	}
	return &r, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
