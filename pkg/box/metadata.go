package box

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// Metadata template field types.
const (
	FieldString = "string"
	FieldFloat  = "float"
	FieldDate   = "date"
	FieldEnum   = "enum"
)

// MetadataTemplate is an enterprise-scoped metadata schema.
type MetadataTemplate struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Scope       string          `json:"scope"`
	TemplateKey string          `json:"templateKey"`
	DisplayName string          `json:"displayName"`
	Hidden      bool            `json:"hidden"`
	Fields      []TemplateField `json:"fields"`
}

// TemplateField is a single field definition on a metadata template.
type TemplateField struct {
	ID          string        `json:"id,omitempty"`
	Type        string        `json:"type"`
	Key         string        `json:"key"`
	DisplayName string        `json:"displayName"`
	Description string        `json:"description,omitempty"`
	Hidden      bool          `json:"hidden,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
}

// FieldOption is an allowed value for an enum field.
type FieldOption struct {
	ID  string `json:"id,omitempty"`
	Key string `json:"key"`
}

// CreateMetadataTemplateRequest is the body for POST /metadata_templates/schema.
type CreateMetadataTemplateRequest struct {
	Scope                  string          `json:"scope"`
	TemplateKey            string          `json:"templateKey"`
	DisplayName            string          `json:"displayName"`
	Hidden                 bool            `json:"hidden,omitempty"`
	Fields                 []TemplateField `json:"fields"`
	CopyInstanceOnItemCopy bool            `json:"copyInstanceOnItemCopy,omitempty"`
}

// MetadataInstance is a metadata record attached to a file. Keys prefixed
// with "$" are system properties; the rest are template field values.
type MetadataInstance map[string]any

// Fields returns the template field values without system properties.
func (m MetadataInstance) Fields() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, "$") {
			continue
		}
		out[k] = v
	}
	return out
}

// Metadata patch operations.
const (
	OpAdd     = "add"
	OpReplace = "replace"
	OpRemove  = "remove"
	OpTest    = "test"
	OpMove    = "move"
	OpCopy    = "copy"
)

// MetadataOperation is one JSON-Patch style operation for
// PUT /files/{id}/metadata/{scope}/{template}.
type MetadataOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	From  string `json:"from,omitempty"`
	Value any    `json:"value,omitempty"`
}

func templatePath(scope, templateKey string) string {
	return fmt.Sprintf("/metadata_templates/%s/%s/schema", escape(scope), escape(templateKey))
}

func (c *httpClient) GetMetadataTemplate(ctx context.Context, scope, templateKey string) (*MetadataTemplate, error) {
	var tmpl MetadataTemplate
	if err := c.get(ctx, templatePath(scope, templateKey), nil, &tmpl); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: get metadata template %s/%s", scope, templateKey))
	}
	return &tmpl, nil
}

func (c *httpClient) CreateMetadataTemplate(ctx context.Context, req CreateMetadataTemplateRequest) (*MetadataTemplate, error) {
	var tmpl MetadataTemplate
	if err := c.send(ctx, http.MethodPost, "/metadata_templates/schema", "application/json", req, &tmpl); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: create metadata template %s/%s", req.Scope, req.TemplateKey))
	}
	return &tmpl, nil
}

func (c *httpClient) DeleteMetadataTemplate(ctx context.Context, scope, templateKey string) error {
	if err := c.delete(ctx, templatePath(scope, templateKey)); err != nil {
		return eris.Wrap(err, fmt.Sprintf("box: delete metadata template %s/%s", scope, templateKey))
	}
	return nil
}

func (c *httpClient) GetFileMetadata(ctx context.Context, fileID, scope, templateKey string) (MetadataInstance, error) {
	var inst MetadataInstance
	if err := c.get(ctx, metadataPath(fileID, scope, templateKey), nil, &inst); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: get metadata on file %s", fileID))
	}
	return inst, nil
}

func (c *httpClient) CreateFileMetadata(ctx context.Context, fileID, scope, templateKey string, values map[string]any) (MetadataInstance, error) {
	var inst MetadataInstance
	if err := c.send(ctx, http.MethodPost, metadataPath(fileID, scope, templateKey), "application/json", values, &inst); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: create metadata on file %s", fileID))
	}
	return inst, nil
}

func (c *httpClient) UpdateFileMetadata(ctx context.Context, fileID, scope, templateKey string, ops []MetadataOperation) (MetadataInstance, error) {
	var inst MetadataInstance
	if err := c.send(ctx, http.MethodPut, metadataPath(fileID, scope, templateKey), "application/json-patch+json", ops, &inst); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: update metadata on file %s", fileID))
	}
	return inst, nil
}
