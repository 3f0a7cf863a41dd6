// Package provider talks to OpenAI-compatible chat completion endpoints.
package provider

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one non-streaming completion. Zero values fall back
// to the provider's defaults.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	Temperature *float64
	MaxTokens   int
	// JSON asks the model for a single JSON object.
	JSON bool
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Completion struct {
	Content string
	// Thinking holds any <think> block reasoning models emit before the answer.
	Thinking string
	Model    string
	Usage    Usage
}

type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Name() string
	ModelName() string
	Models(ctx context.Context) ([]string, error)
}

// Temp is a convenience for CompletionRequest.Temperature.
func Temp(v float64) *float64 { return &v }
