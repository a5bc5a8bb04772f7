package box

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Suggestion confidence tiers.
const (
	ConfidenceExperimental = "experimental"
)

// AI ask modes.
const (
	AskSingleItem    = "single_item_qa"
	AskMultipleItems = "multiple_item_qa"
)

// SuggestionRequest selects the file and template for
// GET /metadata_instances/suggestions.
type SuggestionRequest struct {
	FileID      string
	Scope       string
	TemplateKey string
	Confidence  string
}

// SuggestionResponse holds Box AI metadata suggestions. Suggested values may
// be absent or null for fields the model could not fill.
type SuggestionResponse struct {
	Entries []SuggestionEntry `json:"entries"`
}

// SuggestionEntry is the suggestion set for one template.
type SuggestionEntry struct {
	Type        string         `json:"$type"`
	Scope       string         `json:"$scope"`
	TemplateKey string         `json:"$templateKey"`
	Suggestions map[string]any `json:"suggestions"`
}

// For returns the suggestions for templateKey, or nil if none were returned.
func (r *SuggestionResponse) For(templateKey string) map[string]any {
	if r == nil {
		return nil
	}
	for _, e := range r.Entries {
		if e.TemplateKey == "" || e.TemplateKey == templateKey {
			return e.Suggestions
		}
	}
	return nil
}

// AIItem is an item handed to Box AI, usually a file.
type AIItem struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// AIDialogueTurn is a previous prompt/answer pair for text generation.
type AIDialogueTurn struct {
	Prompt    string    `json:"prompt"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// AIAskRequest is the body for POST /ai/ask.
type AIAskRequest struct {
	Mode   string   `json:"mode"`
	Prompt string   `json:"prompt"`
	Items  []AIItem `json:"items"`
}

// AITextGenRequest is the body for POST /ai/text_gen.
type AITextGenRequest struct {
	Prompt          string           `json:"prompt"`
	Items           []AIItem         `json:"items"`
	DialogueHistory []AIDialogueTurn `json:"dialogue_history,omitempty"`
}

// AIResponse is the answer returned by Box AI.
type AIResponse struct {
	Answer           string    `json:"answer"`
	CreatedAt        time.Time `json:"created_at"`
	CompletionReason string    `json:"completion_reason"`
}

func (c *httpClient) SuggestMetadata(ctx context.Context, req SuggestionRequest) (*SuggestionResponse, error) {
	confidence := req.Confidence
	if confidence == "" {
		confidence = ConfidenceExperimental
	}
	q := url.Values{}
	q.Set("item", "file_"+req.FileID)
	q.Set("scope", req.Scope)
	q.Set("template_key", req.TemplateKey)
	q.Set("confidence", confidence)

	var resp SuggestionResponse
	if err := c.get(ctx, "/metadata_instances/suggestions", q, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("box: suggest metadata for file %s", req.FileID))
	}
	return &resp, nil
}

func (c *httpClient) AIAsk(ctx context.Context, req AIAskRequest) (*AIResponse, error) {
	if req.Mode == "" {
		req.Mode = AskSingleItem
		if len(req.Items) > 1 {
			req.Mode = AskMultipleItems
		}
	}
	var resp AIResponse
	if err := c.send(ctx, http.MethodPost, "/ai/ask", "application/json", req, &resp); err != nil {
		return nil, eris.Wrap(err, "box: ai ask")
	}
	return &resp, nil
}

func (c *httpClient) AITextGen(ctx context.Context, req AITextGenRequest) (*AIResponse, error) {
	var resp AIResponse
	if err := c.send(ctx, http.MethodPost, "/ai/text_gen", "application/json", req, &resp); err != nil {
		return nil, eris.Wrap(err, "box: ai text gen")
	}
	return &resp, nil
}
