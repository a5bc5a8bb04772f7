package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/boxflow/internal/model"
	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/internal/store"
	"github.com/sells-group/boxflow/pkg/box"
)

// Reconciliation stages recorded on dead-letter entries.
const (
	StageSuggest = "suggest"
	StageApply   = "apply"
)

// Circuit breaker names.
const (
	ServiceBox    = "box"
	ServiceBoxAI  = "box-ai"
	ServiceClaude = "anthropic"
)

const (
	dlqBaseDelay    = time.Minute
	dlqMaxDelay     = time.Hour
	defaultParallel = 4
)

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	Scope  string
	Schema Schema

	// SuggestService names the circuit breaker that guards the suggester.
	SuggestService string

	Concurrency   int
	DLQMaxRetries int
	LenientDates  bool
	StrictPatch   bool

	Retry    resilience.RetryConfig
	Breakers *resilience.ServiceBreakers
}

// FileResult is the outcome of reconciling one file.
type FileResult struct {
	FileID   string
	FileName string
	Outcome  model.ApplyOutcome
	Stage    string
	Record   Record
	Err      error
}

// Reconciler runs suggest, normalize and apply over files.
type Reconciler struct {
	client     box.Client
	store      store.Store
	suggester  Suggester
	resolver   *Resolver
	normalizer *Normalizer
	applier    *Applier
	cfg        ReconcilerConfig

	ensureMu sync.Mutex
	ensured  bool
}

// NewReconciler wires a Reconciler. A nil Breakers gets a default registry.
func NewReconciler(c box.Client, st store.Store, sg Suggester, cfg ReconcilerConfig) *Reconciler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultParallel
	}
	if cfg.DLQMaxRetries <= 0 {
		cfg.DLQMaxRetries = 3
	}
	if cfg.SuggestService == "" {
		cfg.SuggestService = ServiceBoxAI
	}
	if cfg.Breakers == nil {
		cfg.Breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	return &Reconciler{
		client:     c,
		store:      st,
		suggester:  sg,
		resolver:   NewResolver(c, cfg.Retry),
		normalizer: NewNormalizer(cfg.Schema.DateFields(), WithFields(cfg.Schema.Fields), WithLenientDates(cfg.LenientDates)),
		applier:    NewApplier(c, cfg.Scope, WithApplyRetry(cfg.Retry), WithStrictPatch(cfg.StrictPatch)),
		cfg:        cfg,
	}
}

// EnsureTemplate creates the schema's template if needed. After the first
// success it is a no-op for the life of the Reconciler.
func (r *Reconciler) EnsureTemplate(ctx context.Context) error {
	r.ensureMu.Lock()
	defer r.ensureMu.Unlock()
	if r.ensured {
		return nil
	}
	if _, err := r.resolver.EnsureSchema(ctx, r.cfg.Scope, r.cfg.Schema); err != nil {
		return err
	}
	r.ensured = true
	return nil
}

// ReconcileFolder reconciles every file directly inside folderID. Per-file
// failures are journaled and dead-lettered without stopping the run.
func (r *Reconciler) ReconcileFolder(ctx context.Context, folderID string) (*model.ReconcileRun, []FileResult, error) {
	if err := r.EnsureTemplate(ctx); err != nil {
		return nil, nil, eris.Wrap(err, "reconcile: ensure template")
	}

	run, err := r.store.CreateRun(ctx, folderID, r.cfg.Schema.TemplateKey)
	if err != nil {
		return nil, nil, eris.Wrap(err, "reconcile: create run")
	}

	files, err := resilience.DoVal(ctx, r.cfg.Retry, func(ctx context.Context) ([]box.Item, error) {
		return box.ListFiles(ctx, r.client, folderID, 0)
	})
	if err != nil {
		r.finish(ctx, run, model.ReconcileFailed, &model.RunSummary{})
		return run, nil, eris.Wrapf(err, "reconcile: list folder %s", folderID)
	}

	zap.L().Info("reconciling folder",
		zap.String("run_id", run.ID),
		zap.String("folder_id", folderID),
		zap.Int("files", len(files)),
		zap.Int("concurrency", r.cfg.Concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	var mu sync.Mutex
	summary := &model.RunSummary{}
	results := make([]FileResult, len(files))

	for i, f := range files {
		g.Go(func() error {
			res := r.reconcile(gctx, run.ID, f.ID, f.Name)
			r.deadLetter(gctx, res)
			results[i] = res
			mu.Lock()
			summary.Add(res.Outcome)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return run, results, eris.Wrap(err, "reconcile: folder")
	}

	r.finish(ctx, run, model.ReconcileComplete, summary)
	zap.L().Info("folder reconciled",
		zap.String("run_id", run.ID),
		zap.Int("created", summary.Created),
		zap.Int("patched", summary.Patched),
		zap.Int("patch_failed", summary.PatchFailed),
		zap.Int("failed", summary.Failed),
	)
	return run, results, nil
}

// ReconcileFile reconciles a single file outside of a folder run. A
// failure is dead-lettered and also returned in the result.
func (r *Reconciler) ReconcileFile(ctx context.Context, fileID, fileName string) (FileResult, error) {
	if err := r.EnsureTemplate(ctx); err != nil {
		return FileResult{}, eris.Wrap(err, "reconcile: ensure template")
	}
	res := r.reconcile(ctx, "", fileID, fileName)
	r.deadLetter(ctx, res)
	return res, nil
}

// RetryDLQ re-runs due dead-letter entries. Successes leave the queue;
// transient failures are rescheduled and permanent ones are marked so they
// are not picked up again.
func (r *Reconciler) RetryDLQ(ctx context.Context, limit int) (retried, recovered int, err error) {
	if err := r.EnsureTemplate(ctx); err != nil {
		return 0, 0, eris.Wrap(err, "reconcile: ensure template")
	}
	entries, err := r.store.DequeueDLQ(ctx, resilience.DLQFilter{Limit: limit})
	if err != nil {
		return 0, 0, eris.Wrap(err, "reconcile: dequeue dlq")
	}

	for _, e := range entries {
		retried++
		res := r.reconcile(ctx, "", e.FileID, e.FileName)
		log := zap.L().With(zap.String("dlq_id", e.ID), zap.String("file_id", e.FileID))

		if res.Err == nil {
			recovered++
			if err := r.store.RemoveDLQ(ctx, e.ID); err != nil {
				log.Warn("failed to remove recovered dlq entry", zap.Error(err))
			}
			continue
		}

		if resilience.ClassifyError(res.Err) == resilience.ErrorPermanent {
			e.ErrorType = resilience.ErrorPermanent
			e.Error = res.Err.Error()
			e.Stage = res.Stage
			e.RetryCount++
			e.LastFailedAt = time.Now().UTC()
			if err := r.store.EnqueueDLQ(ctx, e); err != nil {
				log.Warn("failed to mark dlq entry permanent", zap.Error(err))
			}
			continue
		}
		next := e.NextRetry(time.Now().UTC(), dlqBaseDelay, dlqMaxDelay)
		if err := r.store.IncrementDLQRetry(ctx, e.ID, next, res.Err.Error()); err != nil {
			log.Warn("failed to reschedule dlq entry", zap.Error(err))
		}
	}
	return retried, recovered, nil
}

// reconcile runs suggest, normalize and apply for one file and journals the
// outcome.
func (r *Reconciler) reconcile(ctx context.Context, runID, fileID, fileName string) FileResult {
	log := zap.L().With(zap.String("file_id", fileID), zap.String("file_name", fileName))
	res := FileResult{FileID: fileID, FileName: fileName}
	key := r.cfg.Schema.TemplateKey

	raw, err := resilience.ExecuteVal(ctx, r.cfg.Breakers.Get(r.cfg.SuggestService), func(ctx context.Context) (SuggestionRecord, error) {
		return r.suggester.Suggest(ctx, fileID, key)
	})
	if err != nil {
		res.Outcome, res.Stage, res.Err = model.OutcomeFailed, StageSuggest, err
		log.Error("suggestion failed", zap.Error(err))
		r.journal(ctx, runID, res)
		return res
	}

	res.Record = r.normalizer.Normalize(raw, r.cfg.Schema.Defaults())

	applied, err := resilience.ExecuteVal(ctx, r.cfg.Breakers.Get(ServiceBox), func(ctx context.Context) (ApplyResult, error) {
		return r.applier.Apply(ctx, fileID, key, res.Record)
	})
	switch {
	case err != nil:
		res.Outcome, res.Stage, res.Err = model.OutcomeFailed, StageApply, err
		log.Error("apply failed", zap.Error(err))
	case applied.Outcome == model.OutcomePatchFailed:
		res.Outcome = applied.Outcome
		res.Stage = StageApply
		log.Warn("metadata left partially applied", zap.Error(applied.Cause))
	default:
		res.Outcome = applied.Outcome
		log.Info("metadata applied", zap.String("outcome", string(applied.Outcome)))
	}
	r.journal(ctx, runID, res)
	return res
}

func (r *Reconciler) journal(ctx context.Context, runID string, res FileResult) {
	rec := model.ApplyRecord{
		RunID:       runID,
		FileID:      res.FileID,
		FileName:    res.FileName,
		TemplateKey: r.cfg.Schema.TemplateKey,
		Outcome:     res.Outcome,
		Fields:      res.Record,
		AppliedAt:   time.Now().UTC(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := r.store.RecordApply(ctx, rec); err != nil {
		zap.L().Warn("failed to journal apply", zap.String("file_id", res.FileID), zap.Error(err))
	}
}

func (r *Reconciler) deadLetter(ctx context.Context, res FileResult) {
	if res.Err == nil {
		return
	}
	now := time.Now().UTC()
	entry := resilience.DLQEntry{
		FileID:       res.FileID,
		FileName:     res.FileName,
		TemplateKey:  r.cfg.Schema.TemplateKey,
		Stage:        res.Stage,
		Error:        res.Err.Error(),
		ErrorType:    resilience.ClassifyError(res.Err),
		MaxRetries:   r.cfg.DLQMaxRetries,
		NextRetryAt:  now.Add(dlqBaseDelay),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if err := r.store.EnqueueDLQ(ctx, entry); err != nil {
		zap.L().Warn("failed to enqueue dlq entry", zap.String("file_id", res.FileID), zap.Error(err))
	}
}

func (r *Reconciler) finish(ctx context.Context, run *model.ReconcileRun, status model.ReconcileStatus, summary *model.RunSummary) {
	if err := r.store.CompleteRun(ctx, run.ID, status, summary); err != nil {
		zap.L().Warn("failed to complete run", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	run.Status = status
	run.Summary = summary
}
