// Package box provides OAuth2-authenticated REST API access to Box.
package box

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Default base URL for the Box content API.
const defaultBaseURL = "https://api.box.com/2.0"

// Client defines the Box API operations used by boxflow.
type Client interface {
	// File requests. Box has no list endpoint for these.
	GetFileRequest(ctx context.Context, id string) (*FileRequest, error)
	CopyFileRequest(ctx context.Context, id string, req FileRequestCopyRequest) (*FileRequest, error)
	UpdateFileRequest(ctx context.Context, id string, req FileRequestUpdateRequest) (*FileRequest, error)
	DeleteFileRequest(ctx context.Context, id string) error

	// Metadata templates.
	GetMetadataTemplate(ctx context.Context, scope, templateKey string) (*MetadataTemplate, error)
	CreateMetadataTemplate(ctx context.Context, req CreateMetadataTemplateRequest) (*MetadataTemplate, error)
	DeleteMetadataTemplate(ctx context.Context, scope, templateKey string) error

	// Metadata instances on files.
	GetFileMetadata(ctx context.Context, fileID, scope, templateKey string) (MetadataInstance, error)
	CreateFileMetadata(ctx context.Context, fileID, scope, templateKey string, values map[string]any) (MetadataInstance, error)
	UpdateFileMetadata(ctx context.Context, fileID, scope, templateKey string, ops []MetadataOperation) (MetadataInstance, error)

	// Box AI.
	SuggestMetadata(ctx context.Context, req SuggestionRequest) (*SuggestionResponse, error)
	AIAsk(ctx context.Context, req AIAskRequest) (*AIResponse, error)
	AITextGen(ctx context.Context, req AITextGenRequest) (*AIResponse, error)

	// Metadata query (search).
	QueryMetadata(ctx context.Context, req MetadataQueryRequest) (*MetadataQueryResponse, error)

	// Folders and file content.
	ListFolderItems(ctx context.Context, folderID string, offset, limit int) (*FolderItems, error)
	DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client. The caller is responsible for
// attaching credentials to outgoing requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for Box API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// httpClient implements Client using net/http with an oauth2 transport.
type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Box client that authenticates every request with
// tokens from ts.
func NewClient(ts oauth2.TokenSource, opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &oauth2.Transport{
				Source: ts,
				Base: &http.Transport{
					MaxIdleConnsPerHost: 20,
					IdleConnTimeout:     90 * time.Second,
				},
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req, out)
}

func (c *httpClient) send(ctx context.Context, method, path, contentType string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req, out)
}

func (c *httpClient) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	return c.do(ctx, req, nil)
}

func (c *httpClient) do(ctx context.Context, req *http.Request, out any) error {
	data, err := c.raw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

// raw executes req and returns the response body for 2xx responses.
// Non-2xx responses become *APIError.
func (c *httpClient) raw(ctx context.Context, req *http.Request) ([]byte, error) {
	return c.rawLimit(ctx, req, 0)
}

// rawLimit is raw with the body read capped at maxBytes. Zero reads it all.
func (c *httpClient) rawLimit(ctx context.Context, req *http.Request, maxBytes int64) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limit")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func escape(id string) string {
	return url.PathEscape(id)
}

func metadataPath(fileID, scope, templateKey string) string {
	return fmt.Sprintf("/files/%s/metadata/%s/%s", escape(fileID), escape(scope), escape(templateKey))
}
