package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/pkg/anthropic"
	"github.com/sells-group/boxflow/pkg/box"
)

// Suggester names.
const (
	SuggesterBox    = "box"
	SuggesterClaude = "claude"
)

// ErrNotText is returned by ClaudeSuggester for files that are not UTF-8
// text.
var ErrNotText = eris.New("metadata: file is not text")

// ErrTemplateMismatch is returned by ClaudeSuggester when asked for a
// template other than its schema's.
var ErrTemplateMismatch = eris.New("metadata: template key mismatch")

// Suggester produces raw field suggestions for a file. Values may be
// missing or nil for fields the oracle could not fill.
type Suggester interface {
	Suggest(ctx context.Context, fileID, templateKey string) (SuggestionRecord, error)
}

// BoxSuggester asks Box AI for metadata suggestions.
type BoxSuggester struct {
	client     box.Client
	scope      string
	confidence string
	retry      resilience.RetryConfig
}

// NewBoxSuggester returns a Suggester backed by the Box AI suggestions
// endpoint. An empty confidence uses "experimental".
func NewBoxSuggester(c box.Client, scope, confidence string, retry resilience.RetryConfig) *BoxSuggester {
	if confidence == "" {
		confidence = box.ConfidenceExperimental
	}
	return &BoxSuggester{client: c, scope: scope, confidence: confidence, retry: retry}
}

// Suggest implements Suggester.
func (s *BoxSuggester) Suggest(ctx context.Context, fileID, templateKey string) (SuggestionRecord, error) {
	resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*box.SuggestionResponse, error) {
		return s.client.SuggestMetadata(ctx, box.SuggestionRequest{
			FileID:      fileID,
			Scope:       s.scope,
			TemplateKey: templateKey,
			Confidence:  s.confidence,
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: suggest for file %s", fileID)
	}
	return SuggestionRecord(resp.For(templateKey)), nil
}

// maxDocumentChars bounds the document text sent to Claude, in bytes. Only
// this much of each file is downloaded.
const maxDocumentChars = 60000

// ClaudeSuggester extracts field values from a file's text with Claude.
// It reads only UTF-8 text files; binary formats return ErrNotText.
type ClaudeSuggester struct {
	box       box.Client
	ai        anthropic.Client
	model     string
	maxTokens int64
	schema    Schema
	system    []anthropic.SystemBlock
}

// NewClaudeSuggester returns a Suggester that downloads each file from Box
// and asks model to fill the fields of schema.
func NewClaudeSuggester(bc box.Client, ai anthropic.Client, model string, maxTokens int64, schema Schema) *ClaudeSuggester {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ClaudeSuggester{
		box:       bc,
		ai:        ai,
		model:     model,
		maxTokens: maxTokens,
		schema:    schema,
		system:    anthropic.CachedSystem(extractionPrompt(schema)),
	}
}

// Suggest implements Suggester. templateKey must be the key of the schema
// the suggester was built with.
func (s *ClaudeSuggester) Suggest(ctx context.Context, fileID, templateKey string) (SuggestionRecord, error) {
	if templateKey != s.schema.TemplateKey {
		return nil, eris.Wrapf(ErrTemplateMismatch, "got %q, suggester extracts %q", templateKey, s.schema.TemplateKey)
	}
	data, err := s.box.DownloadFile(ctx, fileID, maxDocumentChars)
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: download file %s", fileID)
	}
	if len(data) > maxDocumentChars {
		data = data[:maxDocumentChars]
	}
	if len(data) == maxDocumentChars {
		data = trimPartialRune(data)
	}
	if !utf8.Valid(data) {
		return nil, eris.Wrapf(ErrNotText, "file %s", fileID)
	}
	text := string(data)

	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    s.system,
		Messages:  []anthropic.Message{{Role: "user", Content: "<document>\n" + text + "\n</document>"}},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: claude suggest for file %s", fileID)
	}
	resp.Usage.LogCost(s.model, fileID)

	var out SuggestionRecord
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &out); err != nil {
		return nil, eris.Wrapf(err, "metadata: parse claude output for file %s", fileID)
	}
	return out, nil
}

// trimPartialRune drops an incomplete UTF-8 sequence cut off at the end of
// b. Other invalid bytes are left for utf8.Valid to reject.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}

// extractionPrompt describes the template fields to the model.
func extractionPrompt(s Schema) string {
	var b strings.Builder
	b.WriteString("You extract structured metadata from business documents.\n")
	b.WriteString("Reply with a single JSON object and nothing else. Use these keys:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "- %s (%s)", f.Key, f.Type)
		if f.Description != "" {
			fmt.Fprintf(&b, ": %s", f.Description)
		}
		if len(f.Options) > 0 {
			fmt.Fprintf(&b, " One of: %s.", strings.Join(f.Options, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("Dates are ISO-8601 (YYYY-MM-DDTHH:MM:SSZ). Use null for any value not present in the document.\n")
	return b.String()
}

// cleanJSON extracts a JSON object from model output that may be wrapped in
// markdown code fences or prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
