package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenAIProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI builds a client for an OpenAI-compatible API. timeout bounds a
// whole request; zero leaves it to the caller's context.
func NewOpenAI(name, baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIProvider) Name() string { return o.name }

func (o *OpenAIProvider) ModelName() string { return o.model }

func (o *OpenAIProvider) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	o.authorize(req)
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %s: %w", o.name, describeTransportError(err), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Provider: o.name, StatusCode: resp.StatusCode, Message: describeStatus(o.name, o.model, resp.StatusCode, body)}
	}
	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	models := make([]string, len(result.Data))
	for i, m := range result.Data {
		models[i] = m.ID
	}
	return models, nil
}

type oaiRequest struct {
	Model          string             `json:"model"`
	Messages       []oaiMessage       `json:"messages"`
	Stream         bool               `json:"stream"`
	Temperature    *float64           `json:"temperature,omitempty"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	ResponseFormat *oaiResponseFormat `json:"response_format,omitempty"`
	Options        map[string]any     `json:"options,omitempty"` // Ollama-specific parameters
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponseFormat struct {
	Type string `json:"type"`
}

type oaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

func (o *OpenAIProvider) Complete(ctx context.Context, cr CompletionRequest) (Completion, error) {
	msgs := make([]oaiMessage, len(cr.Messages))
	for i, m := range cr.Messages {
		msgs[i] = oaiMessage{Role: string(m.Role), Content: m.Content}
	}

	model := cr.Model
	if model == "" {
		model = o.model
	}
	reqBody := oaiRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: cr.Temperature,
		MaxTokens:   cr.MaxTokens,
	}
	if cr.JSON {
		reqBody.ResponseFormat = &oaiResponseFormat{Type: "json_object"}
	}

	// Ollama defaults to a 2048 token context, too small for a digest of 30 notes.
	if strings.Contains(o.baseURL, "11434") || strings.Contains(o.baseURL, "localhost") {
		reqBody.Options = map[string]any{"num_ctx": 32768}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Completion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	o.authorize(req)

	resp, err := o.client.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("provider %s: %s: %w", o.name, describeTransportError(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("provider %s: %s: %w", o.name, describeTransportError(err), err)
	}
	if resp.StatusCode != http.StatusOK {
		return Completion{}, &StatusError{
			Provider:   o.name,
			StatusCode: resp.StatusCode,
			Message:    describeStatus(o.name, model, resp.StatusCode, body),
		}
	}

	var out oaiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Completion{}, fmt.Errorf("provider %s: malformed response: %w", o.name, err)
	}
	if len(out.Choices) == 0 {
		return Completion{}, fmt.Errorf("provider %s: response has no choices", o.name)
	}

	content, thinking := splitThinking(out.Choices[0].Message.Content)
	c := Completion{Content: content, Thinking: thinking, Model: out.Model}
	if out.Usage != nil {
		c.Usage = Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		}
	}
	return c, nil
}

func (o *OpenAIProvider) authorize(req *http.Request) {
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
}

// splitThinking separates the <think> blocks reasoning models (DeepSeek-R1,
// QwQ) prepend to their answer. An unterminated block is all thinking.
func splitThinking(s string) (content, thinking string) {
	var answer, thought strings.Builder
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			answer.WriteString(s)
			break
		}
		answer.WriteString(s[:start])
		rest := s[start+len("<think>"):]
		end := strings.Index(rest, "</think>")
		if end == -1 {
			thought.WriteString(rest)
			break
		}
		thought.WriteString(rest[:end])
		s = rest[end+len("</think>"):]
	}
	return strings.TrimSpace(answer.String()), strings.TrimSpace(thought.String())
}
