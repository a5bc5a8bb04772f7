package report

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxflow/internal/metadata"
	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/pkg/notion"
)

// Notion database property names.
const (
	PropName     = "Name"
	PropFileID   = "File ID"
	PropType     = "Document Type"
	PropReported = "Reported"
)

// NotionSink upserts one database row per matched file, keyed by file id.
type NotionSink struct {
	client notion.Client
	dbID   string
	fields []string
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NotionOption configures a NotionSink.
type NotionOption func(*NotionSink)

// WithPublishRetry sets the retry policy for each row's upsert.
func WithPublishRetry(cfg resilience.RetryConfig) NotionOption {
	return func(s *NotionSink) { s.retry = cfg }
}

// NewNotionSink returns a sink writing to database dbID. Each of fields
// becomes a rich-text column named by its display name.
func NewNotionSink(c notion.Client, dbID string, fields []string, opts ...NotionOption) *NotionSink {
	s := &NotionSink{client: c, dbID: dbID, fields: fields, retry: resilience.DefaultRetryConfig(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishResult counts rows written by Publish.
type PublishResult struct {
	Created int
	Updated int
}

// Publish writes matches to the database. It stops at the first error and
// returns what was written so far.
func (s *NotionSink) Publish(ctx context.Context, matches []metadata.Match) (PublishResult, error) {
	var res PublishResult
	if s.dbID == "" {
		return res, eris.New("report: notion database id is required")
	}
	reported := s.now().UTC()
	for _, m := range matches {
		props := s.properties(m, reported)
		created, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (bool, error) {
			return notion.Upsert(ctx, s.client, s.dbID, PropFileID, m.FileID, props)
		})
		if err != nil {
			return res, eris.Wrapf(err, "report: publish file %s", m.FileID)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	zap.L().Info("published report to notion",
		zap.String("database", s.dbID),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
	)
	return res, nil
}

func (s *NotionSink) properties(m metadata.Match, reported time.Time) notionapi.Properties {
	props := notionapi.Properties{
		PropName:     notion.Title(m.FileName),
		PropFileID:   notion.Text(m.FileID),
		PropReported: notion.Date(reported),
	}
	if dt, ok := m.Fields[metadata.FieldDocumentType].(string); ok && dt != "" {
		props[PropType] = notion.Select(dt)
	}
	for _, f := range s.fields {
		if f == metadata.FieldDocumentType {
			continue
		}
		props[metadata.DisplayName(f)] = notion.Text(cell(m.Fields[f]))
	}
	return props
}
