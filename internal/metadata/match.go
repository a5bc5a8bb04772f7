package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/pkg/box"
)

// UnmatchedPredicate finds documents of a type whose purchase-order
// cross-reference is still a given value.
const UnmatchedPredicate = FieldDocumentType + " = :docType AND " + FieldPurchaseOrderNumber + " = :poNumber"

// ErrStale is returned by WaitForMatches when the staleness bound elapses
// before the search index reflects the expected writes.
var ErrStale = eris.New("metadata: search index did not converge within staleness bound")

// Match is one file returned by a metadata search.
type Match struct {
	FileID   string         `json:"file_id"`
	FileName string         `json:"file_name"`
	Fields   map[string]any `json:"fields"`
}

// Query describes a metadata search below a folder.
type Query struct {
	TemplateKey string
	FolderID    string
	Predicate   Predicate
	Params      map[string]any

	// OrderBy defaults to invoiceNumber; Direction defaults to ascending.
	OrderBy   string
	Direction string

	// Fields is the projection. Identifying fields are always added.
	Fields []string

	// Limit caps the total number of matches; 0 means all.
	Limit int
}

// UnmatchedInvoices returns the query for invoices whose purchase-order
// number is still the Unknown default.
func UnmatchedInvoices(templateKey, folderID string) Query {
	return Query{
		TemplateKey: templateKey,
		FolderID:    folderID,
		Predicate:   MustParsePredicate(UnmatchedPredicate),
		Params:      map[string]any{"docType": DocInvoice, "poNumber": Unknown},
		OrderBy:     FieldInvoiceNumber,
		Direction:   box.SortAsc,
		Fields:      []string{FieldDocumentType, FieldVendor, FieldTotal, FieldDocumentDate},
	}
}

// Matcher runs metadata searches against Box.
type Matcher struct {
	client    box.Client
	scope     string
	scopeID   string
	pageLimit int
	retry     resilience.RetryConfig
	staleness time.Duration
	poll      time.Duration
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithPageLimit sets the page size requested from Box (max 100).
func WithPageLimit(n int) MatcherOption {
	return func(m *Matcher) {
		if n > 0 && n <= 100 {
			m.pageLimit = n
		}
	}
}

// WithStalenessBound sets how long WaitForMatches polls before giving up.
func WithStalenessBound(d time.Duration) MatcherOption {
	return func(m *Matcher) {
		if d > 0 {
			m.staleness = d
		}
	}
}

// WithPollInterval sets the first delay between WaitForMatches attempts.
func WithPollInterval(d time.Duration) MatcherOption {
	return func(m *Matcher) {
		if d > 0 {
			m.poll = d
		}
	}
}

// WithMatchRetry sets the retry policy for individual Box calls.
func WithMatchRetry(cfg resilience.RetryConfig) MatcherOption {
	return func(m *Matcher) {
		m.retry = cfg
	}
}

// NewMatcher returns a Matcher for templates in scope. enterpriseID
// qualifies the "enterprise" scope in query paths.
func NewMatcher(c box.Client, scope, enterpriseID string, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		client:    c,
		scope:     scope,
		scopeID:   box.ScopeID(scope, enterpriseID),
		pageLimit: 100,
		retry:     resilience.DefaultRetryConfig(),
		staleness: 5 * time.Minute,
		poll:      2 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindUnmatched runs q against the metadata search index and returns the
// matching files in q's order. The index is updated asynchronously, so
// records applied in the last few minutes may be missing or out of date.
func (m *Matcher) FindUnmatched(ctx context.Context, q Query) ([]Match, error) {
	params, err := q.Predicate.Bind(q.Params)
	if err != nil {
		return nil, err
	}
	if q.FolderID == "" {
		return nil, eris.New("metadata: query needs an ancestor folder")
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = FieldInvoiceNumber
	}
	dir := q.Direction
	if dir == "" {
		dir = box.SortAsc
	}

	fields := projection(orderBy, q.Fields)
	paths := make([]string, 0, len(fields)+1)
	paths = append(paths, "name")
	for _, f := range fields {
		paths = append(paths, box.FieldPath(m.scopeID, q.TemplateKey, f))
	}

	req := box.MetadataQueryRequest{
		From:             m.scopeID + "." + q.TemplateKey,
		Query:            q.Predicate.String(),
		QueryParams:      params,
		AncestorFolderID: q.FolderID,
		OrderBy:          []box.OrderBy{{FieldKey: orderBy, Direction: dir}},
		Fields:           paths,
		Limit:            m.pageLimit,
	}

	var out []Match
	for {
		page, err := resilience.DoVal(ctx, m.retry, func(ctx context.Context) (*box.MetadataQueryResponse, error) {
			return m.client.QueryMetadata(ctx, req)
		})
		if err != nil {
			return nil, eris.Wrap(err, "metadata: find unmatched")
		}
		for _, e := range page.Entries {
			if e.Type != "" && e.Type != "file" {
				continue
			}
			out = append(out, Match{
				FileID:   e.ID,
				FileName: e.Name,
				Fields:   e.TemplateFields(m.scopeID, q.TemplateKey),
			})
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}
		if page.NextMarker == "" {
			break
		}
		req.Marker = page.NextMarker
	}

	zap.L().Debug("metadata query complete",
		zap.String("from", req.From),
		zap.String("query", req.Query),
		zap.Int("matches", len(out)),
	)
	return out, nil
}

// Verify re-reads each match's live metadata instance and keeps only those
// that still satisfy q. Instances that were removed are dropped.
func (m *Matcher) Verify(ctx context.Context, q Query, matches []Match) ([]Match, error) {
	out := make([]Match, 0, len(matches))
	for _, mt := range matches {
		inst, err := resilience.DoVal(ctx, m.retry, func(ctx context.Context) (box.MetadataInstance, error) {
			return m.client.GetFileMetadata(ctx, mt.FileID, m.scope, q.TemplateKey)
		})
		if box.IsNotFound(err) {
			zap.L().Debug("dropping match without instance", zap.String("file_id", mt.FileID))
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "metadata: verify file %s", mt.FileID)
		}
		live := inst.Fields()
		if !q.Predicate.Matches(live, q.Params) {
			zap.L().Debug("dropping stale match", zap.String("file_id", mt.FileID))
			continue
		}
		mt.Fields = live
		out = append(out, mt)
	}
	return out, nil
}

// ContainsFiles returns a readiness check for WaitForMatches that passes
// once every id in fileIDs is among the matches.
func ContainsFiles(fileIDs ...string) func([]Match) bool {
	return func(ms []Match) bool {
		have := make(map[string]bool, len(ms))
		for _, m := range ms {
			have[m.FileID] = true
		}
		for _, id := range fileIDs {
			if !have[id] {
				return false
			}
		}
		return true
	}
}

// WaitForMatches repeats q with exponential backoff until ready accepts the
// results or the staleness bound elapses. On timeout it returns the last
// results together with ErrStale.
func (m *Matcher) WaitForMatches(ctx context.Context, q Query, ready func([]Match) bool) ([]Match, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.poll
	b.MaxInterval = 15 * m.poll
	b.MaxElapsedTime = m.staleness

	var last []Match
	errNotReady := eris.New("metadata: matches not ready")
	op := func() ([]Match, error) {
		ms, err := m.FindUnmatched(ctx, q)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		last = ms
		if !ready(ms) {
			return ms, errNotReady
		}
		return ms, nil
	}

	ms, err := backoff.RetryNotifyWithData(op, backoff.WithContext(b, ctx), func(_ error, wait time.Duration) {
		zap.L().Debug("search index not converged", zap.Duration("wait", wait), zap.Int("matches", len(last)))
	})
	switch {
	case err == nil:
		return ms, nil
	case errors.Is(err, errNotReady):
		return last, ErrStale
	default:
		return last, err
	}
}

// projection returns the requested fields plus the identifying fields,
// without duplicates and in a stable order.
func projection(orderBy string, requested []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	add(orderBy)
	add(FieldInvoiceNumber)
	add(FieldPurchaseOrderNumber)
	for _, f := range requested {
		add(f)
	}
	return out
}
