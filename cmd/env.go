package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxflow/internal/metadata"
	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/internal/store"
	anthropicpkg "github.com/sells-group/boxflow/pkg/anthropic"
	"github.com/sells-group/boxflow/pkg/box"
)

// boxEnv holds the clients and settings shared by the Box commands.
type boxEnv struct {
	Box      box.Client
	Store    store.Store // nil unless requested
	Schema   metadata.Schema
	Retry    resilience.RetryConfig
	Breakers *resilience.ServiceBreakers
}

// Close releases the store, if one was opened.
func (e *boxEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for mode and builds the Box client, optionally
// opening and migrating the store. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string, withStore bool) (*boxEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	bc, err := initBox(ctx)
	if err != nil {
		return nil, err
	}
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	env := &boxEnv{
		Box:      bc,
		Schema:   schema,
		Retry:    resilience.FromRetryConfig(cfg.Retry),
		Breakers: resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.Circuit)),
	}
	if withStore {
		env.Store, err = initStore(ctx)
		if err != nil {
			return nil, err
		}
	}
	return env, nil
}

func initBox(ctx context.Context) (box.Client, error) {
	ts, err := box.NewTokenSource(ctx, box.Credentials{
		ClientID:       cfg.Box.ClientID,
		ClientSecret:   cfg.Box.ClientSecret,
		EnterpriseID:   cfg.Box.EnterpriseID,
		DeveloperToken: cfg.Box.DeveloperToken,
		TokenURL:       cfg.Box.TokenURL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init box auth")
	}
	return box.NewClient(ts,
		box.WithBaseURL(cfg.Box.BaseURL),
		box.WithRateLimit(cfg.Box.RateLimit),
	), nil
}

// initStore opens the configured store and brings its schema up to date.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// loadSchema returns the template schema from metadata.schema_file, or the
// built-in invoice/PO schema. The configured key and display name win.
func loadSchema() (metadata.Schema, error) {
	s := metadata.InvoiceSchema()
	if cfg.Metadata.SchemaFile != "" {
		var err error
		s, err = metadata.LoadSchema(cfg.Metadata.SchemaFile)
		if err != nil {
			return metadata.Schema{}, err
		}
	}
	if cfg.Metadata.TemplateKey != "" {
		s.TemplateKey = cfg.Metadata.TemplateKey
	}
	if cfg.Metadata.TemplateDisplayName != "" {
		s.DisplayName = cfg.Metadata.TemplateDisplayName
	}
	if err := s.Validate(); err != nil {
		return metadata.Schema{}, err
	}
	return s, nil
}

// suggester returns the configured suggestion oracle and the breaker name
// that guards it.
func (e *boxEnv) suggester() (metadata.Suggester, string) {
	if cfg.Metadata.Suggester == metadata.SuggesterClaude {
		zap.L().Info("using claude suggester", zap.String("model", cfg.Anthropic.Model))
		ai := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return metadata.NewClaudeSuggester(e.Box, ai, cfg.Anthropic.Model, int64(cfg.Anthropic.MaxTokens), e.Schema), metadata.ServiceClaude
	}
	return metadata.NewBoxSuggester(e.Box, cfg.Metadata.Scope, cfg.Metadata.Confidence, e.Retry), metadata.ServiceBoxAI
}

// reconciler wires a Reconciler from config. The env must hold a store.
func (e *boxEnv) reconciler() *metadata.Reconciler {
	sg, service := e.suggester()
	return metadata.NewReconciler(e.Box, e.Store, sg, metadata.ReconcilerConfig{
		Scope:          cfg.Metadata.Scope,
		Schema:         e.Schema,
		SuggestService: service,
		Concurrency:    cfg.Batch.MaxConcurrentFiles,
		DLQMaxRetries:  cfg.Batch.DLQMaxRetries,
		LenientDates:   cfg.Metadata.LenientDates,
		StrictPatch:    cfg.Metadata.StrictPatch,
		Retry:          e.Retry,
		Breakers:       e.Breakers,
	})
}

func (e *boxEnv) matcher() *metadata.Matcher {
	return metadata.NewMatcher(e.Box, cfg.Metadata.Scope, cfg.Box.EnterpriseID,
		metadata.WithPageLimit(cfg.Search.PageLimit),
		metadata.WithStalenessBound(cfg.Search.StalenessBound),
		metadata.WithMatchRetry(e.Retry),
	)
}

// folderOrDefault returns flag, falling back to the configured folder.
func folderOrDefault(flag, fallback string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", eris.New("a folder id is required (--folder or config)")
}
