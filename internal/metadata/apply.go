package metadata

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxflow/internal/model"
	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/pkg/box"
)

// ErrPatchFailed is returned by a strict Applier when the conflict-path
// patch fails.
var ErrPatchFailed = eris.New("metadata: patch failed")

// ApplyResult reports how a record reached Box. Outcome is one of
// model.OutcomeCreated, model.OutcomePatched or model.OutcomePatchFailed;
// Cause is set only for OutcomePatchFailed.
type ApplyResult struct {
	Outcome  model.ApplyOutcome
	Instance box.MetadataInstance
	Cause    error
}

// OK reports whether the record is known to be fully persisted.
func (r ApplyResult) OK() bool {
	return r.Outcome == model.OutcomeCreated || r.Outcome == model.OutcomePatched
}

// Applier writes normalized records to files as metadata instances.
type Applier struct {
	client box.Client
	scope  string
	retry  resilience.RetryConfig
	strict bool
}

// ApplierOption configures an Applier.
type ApplierOption func(*Applier)

// WithStrictPatch makes a failed patch an error instead of a PatchFailed
// result.
func WithStrictPatch(on bool) ApplierOption {
	return func(a *Applier) {
		a.strict = on
	}
}

// WithApplyRetry sets the retry policy for transient Box failures.
func WithApplyRetry(cfg resilience.RetryConfig) ApplierOption {
	return func(a *Applier) {
		a.retry = cfg
	}
}

// NewApplier returns an Applier writing to scope (e.g. "enterprise").
func NewApplier(c box.Client, scope string, opts ...ApplierOption) *Applier {
	a := &Applier{client: c, scope: scope, retry: resilience.DefaultRetryConfig()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply creates the templateKey instance on fileID with every field of rec.
// If the file already carries one, all fields are sent as a single batch of
// add operations instead; there is never a second create. A create failure
// other than the conflict is returned as an error. A patch failure is
// logged and reported as OutcomePatchFailed, or returned wrapping
// ErrPatchFailed when the Applier is strict.
func (a *Applier) Apply(ctx context.Context, fileID, templateKey string, rec Record) (ApplyResult, error) {
	inst, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (box.MetadataInstance, error) {
		return a.client.CreateFileMetadata(ctx, fileID, a.scope, templateKey, rec)
	})
	if err == nil {
		return ApplyResult{Outcome: model.OutcomeCreated, Instance: inst}, nil
	}
	if !box.IsConflict(err) {
		return ApplyResult{}, eris.Wrapf(err, "metadata: create instance on file %s", fileID)
	}

	ops := PatchOps(rec)
	inst, err = resilience.DoVal(ctx, a.retry, func(ctx context.Context) (box.MetadataInstance, error) {
		return a.client.UpdateFileMetadata(ctx, fileID, a.scope, templateKey, ops)
	})
	if err != nil {
		zap.L().Warn("metadata patch failed",
			zap.String("file_id", fileID),
			zap.String("template_key", templateKey),
			zap.Int("ops", len(ops)),
			zap.Error(err),
		)
		res := ApplyResult{Outcome: model.OutcomePatchFailed, Cause: err}
		if a.strict {
			return res, eris.Wrapf(ErrPatchFailed, "file %s: %v", fileID, err)
		}
		return res, nil
	}
	return ApplyResult{Outcome: model.OutcomePatched, Instance: inst}, nil
}

// PatchOps returns one add operation per field of rec, ordered by key.
func PatchOps(rec Record) []box.MetadataOperation {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]box.MetadataOperation, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, box.MetadataOperation{Op: box.OpAdd, Path: "/" + k, Value: rec[k]})
	}
	return ops
}
