package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/metrics"
	"github.com/jeanpaul/foundernote/internal/provider"
	"github.com/jeanpaul/foundernote/internal/schema"
)

const normalizePrompt = `Extract distinct action items or things to remember from the user's text. For each item, produce a short, clean label (max 10 words). Capitalize properly. No trailing periods.
Classify each as: remember, todo, or follow-up.
Return JSON: { "items": [{ "text": "...", "type": "remember" }] }

Examples:
Input: "i have my door unlocked, and that i have to pick up my kids from school at 1 am"
Output: { "items": [{ "text": "Door is unlocked", "type": "remember" }, { "text": "Pick up kids from school at 1 AM", "type": "todo" }] }

Input: "follow up with sarah about the pitch deck next week"
Output: { "items": [{ "text": "Follow up with Sarah about pitch deck next week", "type": "follow-up" }] }

Input: "the meeting with investors is on friday at 3pm"
Output: { "items": [{ "text": "Investor meeting on Friday at 3 PM", "type": "remember" }] }`

const itemsSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {
          "text": {"type": "string", "minLength": 1},
          "type": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var validator = schema.NewValidator()

// captureItem is one thing to remember, split out of a payload.
type captureItem struct {
	Text string
	Type intent.Type
}

// normalize asks the model to split payload into clean items. Any failure
// falls back to the payload itself as a single remember item, so a detected
// request is never lost to the model.
func (s *Service) normalize(ctx context.Context, payload string) []captureItem {
	fallback := []captureItem{{Text: payload, Type: intent.TypeRemember}}

	started := time.Now()
	c, err := s.llm.Complete(ctx, provider.CompletionRequest{
		Model: s.cfg.NormalizeModel,
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: normalizePrompt},
			{Role: provider.RoleUser, Content: payload},
		},
		Temperature: provider.Temp(0.2),
		MaxTokens:   300,
		JSON:        true,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("intent normalization failed, keeping raw text")
		return fallback
	}
	metrics.ObserveLLM("normalize", started, c.Usage.InputTokens, c.Usage.OutputTokens)

	items, err := parseItems(c.Content)
	if err != nil {
		s.log.Warn().Err(err).Msg("unusable normalization output, keeping raw text")
		return fallback
	}
	return items
}

func parseItems(raw string) ([]captureItem, error) {
	doc := []byte(strings.TrimSpace(raw))
	if err := validator.Validate(itemsSchema, doc); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var out struct {
		Items []struct {
			Text string  `json:"text"`
			Type *string `json:"type"`
		} `json:"items"`
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("normalize: decode: %w", err)
	}

	var items []captureItem
	for _, it := range out.Items {
		text := strings.TrimSpace(it.Text)
		if text == "" {
			continue
		}
		var typ string
		if it.Type != nil {
			typ = strings.ToLower(strings.TrimSpace(*it.Type))
		}
		items = append(items, captureItem{Text: text, Type: intent.ParseType(typ)})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("normalize: no usable items")
	}
	return items, nil
}
