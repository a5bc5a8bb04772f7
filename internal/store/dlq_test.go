package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxflow/internal/resilience"
)

func dlqEntry(id, errType string, nextRetry time.Time) resilience.DLQEntry {
	return resilience.DLQEntry{
		ID:           id,
		FileID:       "file-" + id,
		FileName:     id + ".pdf",
		TemplateKey:  "invoicePO",
		Stage:        "apply",
		Error:        "503 Service Unavailable",
		ErrorType:    errType,
		MaxRetries:   3,
		NextRetryAt:  nextRetry,
		CreatedAt:    time.Now().UTC(),
		LastFailedAt: time.Now().UTC(),
	}
}

func TestSQLite_DLQ_EnqueueAndDequeue(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.EnqueueDLQ(ctx, dlqEntry("dlq-1", resilience.ErrorTransient, time.Now().Add(-time.Minute))))

	entries, err := st.DequeueDLQ(ctx, resilience.DLQFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dlq-1", entries[0].ID)
	assert.Equal(t, "file-dlq-1", entries[0].FileID)
	assert.Equal(t, "apply", entries[0].Stage)
	assert.Equal(t, 0, entries[0].RetryCount)
}

func TestSQLite_DLQ_DequeueSkipsPermanentAndFuture(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.EnqueueDLQ(ctx, dlqEntry("due", resilience.ErrorTransient, time.Now().Add(-time.Minute))))
	require.NoError(t, st.EnqueueDLQ(ctx, dlqEntry("later", resilience.ErrorTransient, time.Now().Add(time.Hour))))
	require.NoError(t, st.EnqueueDLQ(ctx, dlqEntry("perm", resilience.ErrorPermanent, time.Now().Add(-time.Minute))))

	entries, err := st.DequeueDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "due", entries[0].ID)

	all, err := st.ListDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	perm, err := st.ListDLQ(ctx, resilience.DLQFilter{ErrorType: resilience.ErrorPermanent})
	require.NoError(t, err)
	require.Len(t, perm, 1)
	assert.Equal(t, "perm", perm[0].ID)
}

func TestSQLite_DLQ_RetryExhaustion(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	e := dlqEntry("dlq-x", resilience.ErrorTransient, time.Now().Add(-time.Minute))
	e.MaxRetries = 2
	require.NoError(t, st.EnqueueDLQ(ctx, e))

	past := time.Now().Add(-time.Second)
	require.NoError(t, st.IncrementDLQRetry(ctx, "dlq-x", past, "still failing"))
	entries, err := st.DequeueDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].RetryCount)
	assert.Equal(t, "still failing", entries[0].Error)

	require.NoError(t, st.IncrementDLQRetry(ctx, "dlq-x", past, "again"))
	entries, err = st.DequeueDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLite_DLQ_IncrementMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.IncrementDLQRetry(context.Background(), "missing", time.Now(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_DLQ_RemoveAndCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.EnqueueDLQ(ctx, dlqEntry("a", resilience.ErrorTransient, time.Now())))
	require.NoError(t, st.EnqueueDLQ(ctx, dlqEntry("b", resilience.ErrorTransient, time.Now())))

	n, err := st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, st.RemoveDLQ(ctx, "a"))
	n, err = st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_DLQ_EnqueueUpsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	e := dlqEntry("dup", resilience.ErrorTransient, time.Now().Add(-time.Minute))
	require.NoError(t, st.EnqueueDLQ(ctx, e))
	e.Error = "second failure"
	e.RetryCount = 1
	require.NoError(t, st.EnqueueDLQ(ctx, e))

	n, err := st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := st.ListDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second failure", entries[0].Error)
	assert.Equal(t, 1, entries[0].RetryCount)
}
