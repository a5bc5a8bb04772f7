package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/boxflow/internal/db"
	"github.com/sells-group/boxflow/internal/model"
	"github.com/sells-group/boxflow/internal/resilience"
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

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run":      `INSERT INTO reconcile_runs (id, folder_id, template_key, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"complete_run":    `UPDATE reconcile_runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
	"record_apply":    `INSERT INTO apply_journal (id, run_id, file_id, file_name, template_key, outcome, error, fields, applied_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"get_file_req":    `SELECT id, template_id, folder_id, title, description, status, url, expires_at, created_at, updated_at FROM file_requests WHERE id = $1`,
	"delete_file_req": `DELETE FROM file_requests WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

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

var postgresMigration = []string{
	`CREATE TABLE IF NOT EXISTS file_requests (
		id          TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		folder_id   TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		url         TEXT NOT NULL DEFAULT '',
		expires_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reconcile_runs (
		id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		folder_id    TEXT NOT NULL,
		template_key TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'running',
		summary      JSONB,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS apply_journal (
		id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		run_id       TEXT,
		file_id      TEXT NOT NULL,
		file_name    TEXT NOT NULL DEFAULT '',
		template_key TEXT NOT NULL,
		outcome      TEXT NOT NULL,
		error        TEXT NOT NULL DEFAULT '',
		fields       JSONB,
		applied_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS dead_letter_queue (
		id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		file_id        TEXT NOT NULL,
		file_name      TEXT NOT NULL DEFAULT '',
		template_key   TEXT NOT NULL,
		stage          TEXT NOT NULL DEFAULT '',
		error          TEXT NOT NULL,
		error_type     TEXT NOT NULL DEFAULT 'transient',
		retry_count    INTEGER NOT NULL DEFAULT 0,
		max_retries    INTEGER NOT NULL DEFAULT 3,
		next_retry_at  TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_file_requests_folder ON file_requests(folder_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reconcile_runs_status ON reconcile_runs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_apply_journal_run_id ON apply_journal(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_apply_journal_file_id ON apply_journal(file_id)`,
	`CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at)`,
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Migrate creates the schema in a single transaction.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range postgresMigration {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// File-request index

func (s *PostgresStore) SaveFileRequest(ctx context.Context, rec model.FileRequestRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO file_requests (id, template_id, folder_id, title, description, status, url, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   folder_id = EXCLUDED.folder_id, title = EXCLUDED.title, description = EXCLUDED.description,
		   status = EXCLUDED.status, url = EXCLUDED.url, expires_at = EXCLUDED.expires_at,
		   updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.TemplateID, rec.FolderID, rec.Title, rec.Description, rec.Status, rec.URL,
		rec.ExpiresAt, rec.CreatedAt, now,
	)
	return eris.Wrapf(err, "postgres: save file request %s", rec.ID)
}

func (s *PostgresStore) GetFileRequest(ctx context.Context, id string) (*model.FileRequestRecord, error) {
	var rec model.FileRequestRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, template_id, folder_id, title, description, status, url, expires_at, created_at, updated_at
		 FROM file_requests WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.TemplateID, &rec.FolderID, &rec.Title, &rec.Description,
		&rec.Status, &rec.URL, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "file request %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get file request %s", id)
	}
	return &rec, nil
}

func (s *PostgresStore) ListFileRequests(ctx context.Context, filter FileRequestFilter) ([]model.FileRequestRecord, error) {
	query := `SELECT id, template_id, folder_id, title, description, status, url, expires_at, created_at, updated_at
	          FROM file_requests WHERE true`
	args := []any{}
	argIdx := 1

	if filter.FolderID != "" {
		query += fmt.Sprintf(` AND folder_id = $%d`, argIdx)
		args = append(args, filter.FolderID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list file requests")
	}
	defer rows.Close()

	var out []model.FileRequestRecord
	for rows.Next() {
		var rec model.FileRequestRecord
		if err := rows.Scan(&rec.ID, &rec.TemplateID, &rec.FolderID, &rec.Title, &rec.Description,
			&rec.Status, &rec.URL, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan file request")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list file requests iterate")
}

func (s *PostgresStore) DeleteFileRequest(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM file_requests WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete file request %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "file request %s", id)
	}
	return nil
}

// Reconciliation runs

func (s *PostgresStore) CreateRun(ctx context.Context, folderID, templateKey string) (*model.ReconcileRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO reconcile_runs (id, folder_id, template_key, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, folderID, templateKey, string(model.ReconcileRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.ReconcileStatus, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE reconcile_runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ReconcileRun, error) {
	var r model.ReconcileRun
	var summaryJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, folder_id, template_key, status, summary, created_at, updated_at FROM reconcile_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.FolderID, &r.TemplateKey, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if err := unmarshalSummary(summaryJSON, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ReconcileRun, error) {
	query := `SELECT id, folder_id, template_key, status, summary, created_at, updated_at FROM reconcile_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.FolderID != "" {
		query += fmt.Sprintf(` AND folder_id = $%d`, argIdx)
		args = append(args, filter.FolderID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ReconcileRun
	for rows.Next() {
		var r model.ReconcileRun
		var summaryJSON []byte
		if err := rows.Scan(&r.ID, &r.FolderID, &r.TemplateKey, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := unmarshalSummary(summaryJSON, &r); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func unmarshalSummary(data []byte, r *model.ReconcileRun) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	r.Summary = &model.RunSummary{}
	return eris.Wrap(json.Unmarshal(data, r.Summary), "postgres: unmarshal summary")
}

// Apply journal

func (s *PostgresStore) RecordApply(ctx context.Context, rec model.ApplyRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.AppliedAt.IsZero() {
		rec.AppliedAt = time.Now().UTC()
	}
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal fields")
	}

	var runID *string
	if rec.RunID != "" {
		runID = &rec.RunID
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO apply_journal (id, run_id, file_id, file_name, template_key, outcome, error, fields, applied_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, runID, rec.FileID, rec.FileName, rec.TemplateKey,
		string(rec.Outcome), rec.Error, fieldsJSON, rec.AppliedAt,
	)
	return eris.Wrapf(err, "postgres: record apply for file %s", rec.FileID)
}

func (s *PostgresStore) ListApplies(ctx context.Context, runID string) ([]model.ApplyRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, file_id, file_name, template_key, outcome, error, fields, applied_at
		 FROM apply_journal WHERE run_id = $1 ORDER BY applied_at ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list applies")
	}
	defer rows.Close()

	var out []model.ApplyRecord
	for rows.Next() {
		var rec model.ApplyRecord
		var run *string
		var fieldsJSON []byte
		if err := rows.Scan(&rec.ID, &run, &rec.FileID, &rec.FileName, &rec.TemplateKey,
			&rec.Outcome, &rec.Error, &fieldsJSON, &rec.AppliedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan apply")
		}
		if run != nil {
			rec.RunID = *run
		}
		if len(fieldsJSON) > 0 && string(fieldsJSON) != "null" {
			if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal fields")
			}
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list applies iterate")
}

// Dead-letter queue

func (s *PostgresStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO dead_letter_queue (`+dlqColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   error = $6, error_type = $7, stage = $5, retry_count = $8,
		   next_retry_at = $10, last_failed_at = $12`,
		entry.ID, entry.FileID, entry.FileName, entry.TemplateKey, entry.Stage,
		entry.Error, entry.ErrorType, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue dlq")
}

func (s *PostgresStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT ` + dlqColumns + ` FROM dead_letter_queue
	          WHERE next_retry_at <= now() AND retry_count < max_retries AND error_type != $1`
	args := []any{resilience.ErrorPermanent}
	argIdx := 2

	if filter.ErrorType != "" {
		query += fmt.Sprintf(` AND error_type = $%d`, argIdx)
		args = append(args, filter.ErrorType)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY next_retry_at ASC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	return s.queryDLQ(ctx, query, args...)
}

func (s *PostgresStore) ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT ` + dlqColumns + ` FROM dead_letter_queue WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ErrorType != "" {
		query += fmt.Sprintf(` AND error_type = $%d`, argIdx)
		args = append(args, filter.ErrorType)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	return s.queryDLQ(ctx, query, args...)
}

func (s *PostgresStore) queryDLQ(ctx context.Context, query string, args ...any) ([]resilience.DLQEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		if err := rows.Scan(&e.ID, &e.FileID, &e.FileName, &e.TemplateKey, &e.Stage,
			&e.Error, &e.ErrorType, &e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dlq entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: query dlq iterate")
}

func (s *PostgresStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = $1, error = $2, last_failed_at = now()
		 WHERE id = $3`,
		nextRetryAt, lastErr, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment dlq retry %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "dlq_entry %s", id)
	}
	return nil
}

func (s *PostgresStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dead_letter_queue WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: remove dlq")
}

func (s *PostgresStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count dlq")
}
