package metadata

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/pkg/box"
)

// Resolver makes sure a metadata template exists before files are tagged.
//
// An existing template is returned as found; differences between its fields
// and the requested ones are not reconciled. Two resolvers racing to create
// the same new key may both attempt creation, in which case the loser's
// create error is returned unchanged.
type Resolver struct {
	client box.Client
	retry  resilience.RetryConfig
}

// NewResolver returns a Resolver backed by c.
func NewResolver(c box.Client, retry resilience.RetryConfig) *Resolver {
	return &Resolver{client: c, retry: retry}
}

// EnsureTemplate looks up scope/templateKey and creates it with fields if
// Box reports it missing. Lookup errors other than not-found are returned.
func (r *Resolver) EnsureTemplate(ctx context.Context, scope, templateKey, displayName string, fields []box.TemplateField) (*box.MetadataTemplate, error) {
	tmpl, err := resilience.DoVal(ctx, r.retry, func(ctx context.Context) (*box.MetadataTemplate, error) {
		return r.client.GetMetadataTemplate(ctx, scope, templateKey)
	})
	if err == nil {
		zap.L().Debug("metadata template exists",
			zap.String("scope", scope),
			zap.String("template_key", templateKey),
			zap.String("template_id", tmpl.ID),
		)
		return tmpl, nil
	}
	if !box.IsNotFound(err) {
		return nil, eris.Wrapf(err, "metadata: look up template %s", templateKey)
	}

	// Create is attempted once; a timed-out create may already have landed.
	created, err := r.client.CreateMetadataTemplate(ctx, box.CreateMetadataTemplateRequest{
		Scope:       scope,
		TemplateKey: templateKey,
		DisplayName: displayName,
		Fields:      fields,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: create template %s", templateKey)
	}
	zap.L().Info("created metadata template",
		zap.String("scope", scope),
		zap.String("template_key", templateKey),
		zap.String("template_id", created.ID),
		zap.Int("fields", len(fields)),
	)
	return created, nil
}

// EnsureSchema is EnsureTemplate for a Schema.
func (r *Resolver) EnsureSchema(ctx context.Context, scope string, s Schema) (*box.MetadataTemplate, error) {
	return r.EnsureTemplate(ctx, scope, s.TemplateKey, s.DisplayName, s.TemplateFields())
}

// DeleteTemplate removes scope/templateKey. A missing template is not an
// error.
func (r *Resolver) DeleteTemplate(ctx context.Context, scope, templateKey string) error {
	err := resilience.Do(ctx, r.retry, func(ctx context.Context) error {
		return r.client.DeleteMetadataTemplate(ctx, scope, templateKey)
	})
	if err != nil && !box.IsNotFound(err) {
		return eris.Wrapf(err, "metadata: delete template %s", templateKey)
	}
	return nil
}
