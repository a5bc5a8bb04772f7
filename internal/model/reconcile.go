package model

import "time"

// ReconcileStatus is the lifecycle state of a folder reconciliation run.
type ReconcileStatus string

const (
	ReconcileRunning  ReconcileStatus = "running"
	ReconcileComplete ReconcileStatus = "complete"
	ReconcileFailed   ReconcileStatus = "failed"
)

// ApplyOutcome is how a metadata record reached Box.
type ApplyOutcome string

const (
	OutcomeCreated     ApplyOutcome = "created"
	OutcomePatched     ApplyOutcome = "patched"
	OutcomePatchFailed ApplyOutcome = "patch_failed"
	OutcomeFailed      ApplyOutcome = "failed"
)

// ReconcileRun records one pass over a folder (or a single file).
type ReconcileRun struct {
	ID          string          `json:"id"`
	FolderID    string          `json:"folder_id"`
	TemplateKey string          `json:"template_key"`
	Status      ReconcileStatus `json:"status"`
	Summary     *RunSummary     `json:"summary,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RunSummary counts per-file outcomes of a run.
type RunSummary struct {
	Files       int `json:"files"`
	Created     int `json:"created"`
	Patched     int `json:"patched"`
	PatchFailed int `json:"patch_failed"`
	Failed      int `json:"failed"`
}

// Add counts one outcome.
func (s *RunSummary) Add(o ApplyOutcome) {
	s.Files++
	switch o {
	case OutcomeCreated:
		s.Created++
	case OutcomePatched:
		s.Patched++
	case OutcomePatchFailed:
		s.PatchFailed++
	default:
		s.Failed++
	}
}

// ApplyRecord is one journaled metadata write.
type ApplyRecord struct {
	ID          string         `json:"id"`
	RunID       string         `json:"run_id,omitempty"`
	FileID      string         `json:"file_id"`
	FileName    string         `json:"file_name,omitempty"`
	TemplateKey string         `json:"template_key"`
	Outcome     ApplyOutcome   `json:"outcome"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	AppliedAt   time.Time      `json:"applied_at"`
}
