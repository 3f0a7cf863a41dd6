package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusError is a non-200 reply from the provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider %s: %s (HTTP %d)", e.Provider, e.Message, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

// statusHints is what a digest or chat user can do about each status.
var statusHints = map[int]string{
	401: "the provider rejected the API key (set FOUNDERNOTE_PROVIDER_API_KEY)",
	403: "the API key is not allowed to use this model",
	429: "the provider is rate limiting digest requests",
	500: "the provider failed while writing the digest",
	502: "the provider is unavailable",
	503: "the provider is unavailable",
	529: "the provider is overloaded",
}

// describeStatus turns an error reply into one line. It understands the
// OpenAI shape {"error":{"message":...}} and Ollama's {"error":"..."}.
// A 404 usually means the model has not been pulled into a local Ollama.
func describeStatus(providerName, model string, statusCode int, body []byte) string {
	msg := errorMessage(body)
	if statusCode == 404 && (msg == "" || strings.Contains(msg, "not found")) && model != "" {
		return fmt.Sprintf("model %q is not available on %s; for Ollama run: ollama pull %s", model, providerName, model)
	}
	if msg != "" {
		return msg
	}
	if hint, ok := statusHints[statusCode]; ok {
		return hint
	}
	if statusCode == 404 {
		return "endpoint not found, check the provider base URL"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return fmt.Sprintf("%s returned HTTP %d", providerName, statusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", providerName, statusCode, s)
}

func errorMessage(body []byte) string {
	var resp struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &resp) != nil {
		return ""
	}
	if len(resp.Error) > 0 {
		var s string
		if json.Unmarshal(resp.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(resp.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return resp.Message
}

// transportHints maps fragments of dial and read errors to something a
// user can act on. Checked in order.
var transportHints = []struct{ fragment, hint string }{
	{"connection refused", "nothing is listening at the provider URL (start it with: ollama serve)"},
	{"no such host", "provider host not found, check the base URL"},
	{"deadline exceeded", "the provider took too long to answer"},
	{"timeout", "the provider took too long to answer"},
	{"reset by peer", "the provider dropped the connection"},
	{"EOF", "the provider closed the connection mid-reply"},
}

// describeTransportError explains an error from the HTTP round trip itself.
func describeTransportError(err error) string {
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	msg := err.Error()
	for _, h := range transportHints {
		if strings.Contains(msg, h.fragment) {
			return h.hint
		}
	}
	return msg
}
