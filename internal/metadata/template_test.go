package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxflow/pkg/box"
	"github.com/sells-group/boxflow/pkg/box/mocks"
)

func TestEnsureTemplate_Exists(t *testing.T) {
	c := mocks.NewMockClient(t)
	existing := &box.MetadataTemplate{ID: "tmpl-1", TemplateKey: "invoicePO"}
	c.On("GetMetadataTemplate", mock.Anything, "enterprise", "invoicePO").Return(existing, nil).Once()

	got, err := NewResolver(c, fastRetry()).EnsureTemplate(context.Background(), "enterprise", "invoicePO", "Invoice & PO", nil)
	require.NoError(t, err)
	assert.Same(t, existing, got)
	c.AssertNotCalled(t, "CreateMetadataTemplate", mock.Anything, mock.Anything)
}

func TestEnsureTemplate_CreatesOnceThenFinds(t *testing.T) {
	c := mocks.NewMockClient(t)
	s := InvoiceSchema()
	created := &box.MetadataTemplate{ID: "tmpl-new", TemplateKey: s.TemplateKey, Fields: s.TemplateFields()}

	c.On("GetMetadataTemplate", mock.Anything, "enterprise", s.TemplateKey).Return(nil, apiErr(404)).Once()
	c.On("CreateMetadataTemplate", mock.Anything, mock.MatchedBy(func(req box.CreateMetadataTemplateRequest) bool {
		return req.Scope == "enterprise" && req.TemplateKey == s.TemplateKey &&
			req.DisplayName == s.DisplayName && len(req.Fields) == len(s.Fields)
	})).Return(created, nil).Once()
	c.On("GetMetadataTemplate", mock.Anything, "enterprise", s.TemplateKey).Return(created, nil).Once()

	r := NewResolver(c, fastRetry())
	first, err := r.EnsureSchema(context.Background(), "enterprise", s)
	require.NoError(t, err)
	second, err := r.EnsureSchema(context.Background(), "enterprise", s)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	c.AssertNumberOfCalls(t, "CreateMetadataTemplate", 1)
}

func TestEnsureTemplate_LookupError(t *testing.T) {
	c := mocks.NewMockClient(t)
	c.On("GetMetadataTemplate", mock.Anything, "enterprise", "k").Return(nil, apiErr(403)).Once()

	_, err := NewResolver(c, fastRetry()).EnsureTemplate(context.Background(), "enterprise", "k", "K", nil)
	require.Error(t, err)
	assert.Equal(t, 403, box.StatusCode(err))
	c.AssertNotCalled(t, "CreateMetadataTemplate", mock.Anything, mock.Anything)
}

func TestEnsureTemplate_RetriesTransientLookup(t *testing.T) {
	c := mocks.NewMockClient(t)
	tmpl := &box.MetadataTemplate{ID: "tmpl-1"}
	c.On("GetMetadataTemplate", mock.Anything, "enterprise", "k").Return(nil, apiErr(503)).Once()
	c.On("GetMetadataTemplate", mock.Anything, "enterprise", "k").Return(tmpl, nil).Once()

	got, err := NewResolver(c, fastRetry()).EnsureTemplate(context.Background(), "enterprise", "k", "K", nil)
	require.NoError(t, err)
	assert.Equal(t, "tmpl-1", got.ID)
}

func TestEnsureTemplate_CreateRaceLoserGetsError(t *testing.T) {
	c := mocks.NewMockClient(t)
	c.On("GetMetadataTemplate", mock.Anything, "enterprise", "k").Return(nil, apiErr(404)).Once()
	c.On("CreateMetadataTemplate", mock.Anything, mock.Anything).Return(nil, apiErr(409)).Once()

	_, err := NewResolver(c, fastRetry()).EnsureTemplate(context.Background(), "enterprise", "k", "K", nil)
	require.Error(t, err)
	assert.True(t, box.IsConflict(err))
}

func TestDeleteTemplate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"deleted", nil, false},
		{"already gone", apiErr(404), false},
		{"forbidden", apiErr(403), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mocks.NewMockClient(t)
			c.On("DeleteMetadataTemplate", mock.Anything, "enterprise", "k").Return(tt.err).Once()

			err := NewResolver(c, fastRetry()).DeleteTemplate(context.Background(), "enterprise", "k")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
