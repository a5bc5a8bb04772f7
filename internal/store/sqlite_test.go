package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxflow/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

// --- File requests ---

func TestSQLite_FileRequest_SaveGetList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := model.FileRequestRecord{
		ID:         "fr-1",
		TemplateID: "tmpl-1",
		FolderID:   "folder-1",
		Title:      "Invoices Q1",
		Status:     "active",
		URL:        "/f/abc",
		ExpiresAt:  &expires,
	}
	require.NoError(t, st.SaveFileRequest(ctx, rec))
	require.NoError(t, st.SaveFileRequest(ctx, model.FileRequestRecord{
		ID: "fr-2", TemplateID: "tmpl-1", FolderID: "folder-2", Status: "inactive",
	}))

	got, err := st.GetFileRequest(ctx, "fr-1")
	require.NoError(t, err)
	assert.Equal(t, "Invoices Q1", got.Title)
	assert.Equal(t, "folder-1", got.FolderID)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))

	all, err := st.ListFileRequests(ctx, FileRequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := st.ListFileRequests(ctx, FileRequestFilter{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fr-1", active[0].ID)

	inFolder, err := st.ListFileRequests(ctx, FileRequestFilter{FolderID: "folder-2"})
	require.NoError(t, err)
	require.Len(t, inFolder, 1)
	assert.Equal(t, "fr-2", inFolder[0].ID)
	assert.Nil(t, inFolder[0].ExpiresAt)
}

func TestSQLite_FileRequest_SaveUpdatesExisting(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := model.FileRequestRecord{ID: "fr-1", TemplateID: "t", FolderID: "f", Status: "active"}
	require.NoError(t, st.SaveFileRequest(ctx, rec))

	rec.Status = "inactive"
	rec.Title = "Closed"
	require.NoError(t, st.SaveFileRequest(ctx, rec))

	got, err := st.GetFileRequest(ctx, "fr-1")
	require.NoError(t, err)
	assert.Equal(t, "inactive", got.Status)
	assert.Equal(t, "Closed", got.Title)
}

func TestSQLite_FileRequest_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetFileRequest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.DeleteFileRequest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_FileRequest_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveFileRequest(ctx, model.FileRequestRecord{ID: "fr-1", TemplateID: "t", FolderID: "f", Status: "active"}))
	require.NoError(t, st.DeleteFileRequest(ctx, "fr-1"))

	_, err := st.GetFileRequest(ctx, "fr-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Runs ---

func TestSQLite_Run_Lifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "folder-1", "invoicePO")
	require.NoError(t, err)
	assert.Equal(t, model.ReconcileRunning, run.Status)
	assert.NotEmpty(t, run.ID)

	summary := &model.RunSummary{Files: 3, Created: 1, Patched: 1, Failed: 1}
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.ReconcileComplete, summary))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReconcileComplete, got.Status)
	assert.Equal(t, "invoicePO", got.TemplateKey)
	require.NotNil(t, got.Summary)
	assert.Equal(t, *summary, *got.Summary)
}

func TestSQLite_Run_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.CompleteRun(ctx, "nope", model.ReconcileFailed, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "folder-a", "k")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "folder-b", "k")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, r1.ID, model.ReconcileComplete, &model.RunSummary{}))

	tests := []struct {
		name   string
		filter RunFilter
		want   int
	}{
		{"all", RunFilter{}, 2},
		{"by status", RunFilter{Status: model.ReconcileComplete}, 1},
		{"by folder", RunFilter{FolderID: "folder-b"}, 1},
		{"limit", RunFilter{Limit: 1}, 1},
		{"offset past end", RunFilter{Limit: 10, Offset: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := st.ListRuns(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, runs, tt.want)
		})
	}
}

// --- Apply journal ---

func TestSQLite_ApplyJournal(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "folder-1", "invoicePO")
	require.NoError(t, err)

	require.NoError(t, st.RecordApply(ctx, model.ApplyRecord{
		RunID:       run.ID,
		FileID:      "file-1",
		FileName:    "a.txt",
		TemplateKey: "invoicePO",
		Outcome:     model.OutcomeCreated,
		Fields:      map[string]any{"invoiceNumber": "A5555"},
		AppliedAt:   time.Now().UTC().Add(-time.Second),
	}))
	require.NoError(t, st.RecordApply(ctx, model.ApplyRecord{
		RunID:       run.ID,
		FileID:      "file-2",
		TemplateKey: "invoicePO",
		Outcome:     model.OutcomePatchFailed,
		Error:       "box: 500",
	}))
	require.NoError(t, st.RecordApply(ctx, model.ApplyRecord{
		FileID:      "file-3",
		TemplateKey: "invoicePO",
		Outcome:     model.OutcomePatched,
	}))

	applies, err := st.ListApplies(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, applies, 2)
	assert.Equal(t, "file-1", applies[0].FileID)
	assert.Equal(t, "A5555", applies[0].Fields["invoiceNumber"])
	assert.Equal(t, model.OutcomePatchFailed, applies[1].Outcome)
	assert.Equal(t, "box: 500", applies[1].Error)
	assert.Nil(t, applies[1].Fields)
}
