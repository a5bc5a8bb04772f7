package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxflow/internal/model"
	"github.com/sells-group/boxflow/internal/resilience"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	for range postgresMigration {
		mock.ExpectExec(`CREATE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	mock.ExpectCommit()

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_RollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS file_requests`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFileRequest_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO file_requests .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("fr-1", "tmpl-1", "folder-1", "Title", "", "active", "/f/x",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveFileRequest(context.Background(), model.FileRequestRecord{
		ID: "fr-1", TemplateID: "tmpl-1", FolderID: "folder-1", Title: "Title", Status: "active", URL: "/f/x",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFileRequest_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM file_requests WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetFileRequest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteFileRequest_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM file_requests WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteFileRequest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO reconcile_runs`).
		WithArgs(pgxmock.AnyArg(), "folder-1", "invoicePO", "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "folder-1", "invoicePO")
	require.NoError(t, err)
	assert.Equal(t, model.ReconcileRunning, run.Status)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE reconcile_runs SET status = \$1`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "nope", model.ReconcileComplete, &model.RunSummary{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "folder_id", "template_key", "status", "summary", "created_at", "updated_at"}).
		AddRow("run-1", "folder-1", "invoicePO", model.ReconcileComplete, []byte(`{"files":2,"created":2}`), now, now)
	mock.ExpectQuery(`SELECT .* FROM reconcile_runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.ReconcileComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 2, run.Summary.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM reconcile_runs WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordApply(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO apply_journal`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "file-1", "a.txt", "invoicePO",
			"patch_failed", "boom", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordApply(context.Background(), model.ApplyRecord{
		RunID: "run-1", FileID: "file-1", FileName: "a.txt", TemplateKey: "invoicePO",
		Outcome: model.OutcomePatchFailed, Error: "boom",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DequeueDLQ(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "file_id", "file_name", "template_key", "stage", "error", "error_type",
		"retry_count", "max_retries", "next_retry_at", "created_at", "last_failed_at",
	}).AddRow("dlq-1", "file-1", "a.pdf", "invoicePO", "apply", "503", "transient", 1, 3, now, now, now)

	mock.ExpectQuery(`FROM dead_letter_queue\s+WHERE next_retry_at <= now\(\) AND retry_count < max_retries AND error_type != \$1 AND error_type = \$2`).
		WithArgs(resilience.ErrorPermanent, resilience.ErrorTransient, 5).
		WillReturnRows(rows)

	entries, err := s.DequeueDLQ(context.Background(), resilience.DLQFilter{ErrorType: resilience.ErrorTransient, Limit: 5})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file-1", entries[0].FileID)
	assert.Equal(t, 1, entries[0].RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IncrementDLQRetry_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE dead_letter_queue`).
		WithArgs(pgxmock.AnyArg(), "err", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.IncrementDLQRetry(context.Background(), "missing", time.Now(), "err")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountDLQ(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM dead_letter_queue`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	n, err := s.CountDLQ(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
