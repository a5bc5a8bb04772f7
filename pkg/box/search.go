package box

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// Sort directions for metadata queries.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// OrderBy is one ordering directive for a metadata query.
type OrderBy struct {
	FieldKey  string `json:"field_key"`
	Direction string `json:"direction,omitempty"`
}

// MetadataQueryRequest is the body for POST /metadata_queries/execute_read.
type MetadataQueryRequest struct {
	From             string         `json:"from"`
	Query            string         `json:"query,omitempty"`
	QueryParams      map[string]any `json:"query_params,omitempty"`
	AncestorFolderID string         `json:"ancestor_folder_id"`
	OrderBy          []OrderBy      `json:"order_by,omitempty"`
	Fields           []string       `json:"fields,omitempty"`
	Limit            int            `json:"limit,omitempty"`
	Marker           string         `json:"marker,omitempty"`
}

// MetadataQueryResponse is one page of metadata query results.
type MetadataQueryResponse struct {
	Entries    []QueryEntry `json:"entries"`
	NextMarker string       `json:"next_marker"`
}

// QueryEntry is a file or folder matched by a metadata query. Metadata is
// keyed by scope id (e.g. "enterprise_123") then template key.
type QueryEntry struct {
	Type     string                               `json:"type"`
	ID       string                               `json:"id"`
	Name     string                               `json:"name"`
	Metadata map[string]map[string]map[string]any `json:"metadata"`
}

// TemplateFields returns the projected field values for scopeID/templateKey.
func (e QueryEntry) TemplateFields(scopeID, templateKey string) map[string]any {
	inst := MetadataInstance(e.Metadata[scopeID][templateKey])
	if inst == nil {
		return map[string]any{}
	}
	return inst.Fields()
}

// ScopeID returns the scope identifier used in metadata queries and query
// results. The "enterprise" scope is qualified with the enterprise id.
func ScopeID(scope, enterpriseID string) string {
	if scope == "enterprise" && enterpriseID != "" {
		return "enterprise_" + enterpriseID
	}
	return scope
}

// FieldPath returns the projection path for a template field, as used in
// MetadataQueryRequest.Fields.
func FieldPath(scopeID, templateKey, field string) string {
	return strings.Join([]string{"metadata", scopeID, templateKey, field}, ".")
}

func (c *httpClient) QueryMetadata(ctx context.Context, req MetadataQueryRequest) (*MetadataQueryResponse, error) {
	var resp MetadataQueryResponse
	if err := c.send(ctx, http.MethodPost, "/metadata_queries/execute_read", "application/json", req, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: metadata query %s", req.From))
	}
	return &resp, nil
}
