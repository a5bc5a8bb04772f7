// Package store persists boxflow's local state: the file-request index,
// reconciliation runs, the metadata apply journal and the dead-letter queue.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/boxflow/internal/model"
	"github.com/sells-group/boxflow/internal/resilience"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.ReconcileStatus `json:"status,omitempty"`
	FolderID string                `json:"folder_id,omitempty"`
	Limit    int                   `json:"limit,omitempty"`
	Offset   int                   `json:"offset,omitempty"`
}

// FileRequestFilter specifies criteria for listing indexed file requests.
type FileRequestFilter struct {
	FolderID string `json:"folder_id,omitempty"`
	Status   string `json:"status,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for boxflow.
type Store interface {
	// File-request index
	SaveFileRequest(ctx context.Context, rec model.FileRequestRecord) error
	GetFileRequest(ctx context.Context, id string) (*model.FileRequestRecord, error)
	ListFileRequests(ctx context.Context, filter FileRequestFilter) ([]model.FileRequestRecord, error)
	DeleteFileRequest(ctx context.Context, id string) error

	// Reconciliation runs
	CreateRun(ctx context.Context, folderID, templateKey string) (*model.ReconcileRun, error)
	CompleteRun(ctx context.Context, runID string, status model.ReconcileStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.ReconcileRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ReconcileRun, error)

	// Apply journal
	RecordApply(ctx context.Context, rec model.ApplyRecord) error
	ListApplies(ctx context.Context, runID string) ([]model.ApplyRecord, error)

	// Dead-letter queue
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error
	RemoveDLQ(ctx context.Context, id string) error
	CountDLQ(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
