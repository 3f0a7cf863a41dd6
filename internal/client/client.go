// Package client talks to a foundernote server on behalf of one user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeanpaul/foundernote/internal/brain"
	"github.com/jeanpaul/foundernote/internal/chat"
	"github.com/jeanpaul/foundernote/internal/fetcher"
	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/scope"
	"github.com/jeanpaul/foundernote/internal/synthesis"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Config holds the server address and the per-call time limits.
type Config struct {
	BaseURL    string
	UserID     string
	UserHeader string
	// SynthesisTimeout bounds a digest request.
	SynthesisTimeout time.Duration
	// IntentsTimeout bounds intent, note and data calls.
	IntentsTimeout time.Duration
	ChatTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:8787",
		UserHeader:       "X-User-ID",
		SynthesisTimeout: 45 * time.Second,
		IntentsTimeout:   10 * time.Second,
		ChatTimeout:      60 * time.Second,
	}
}

type Client struct {
	cfg  Config
	http *http.Client
}

var (
	_ fetcher.Synthesizer = (*Client)(nil)
	_ intent.Updater      = (*Client)(nil)
)

func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UserHeader == "" {
		cfg.UserHeader = def.UserHeader
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = def.SynthesisTimeout
	}
	if cfg.IntentsTimeout <= 0 {
		cfg.IntentsTimeout = def.IntentsTimeout
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = def.ChatTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{}}
}

// Synthesize asks the server for a scope's digest.
func (c *Client) Synthesize(ctx context.Context, req fetcher.Request) (fetcher.Response, error) {
	var out struct {
		Synthesis synthesis.Result `json:"synthesis"`
		Cached    bool             `json:"cached"`
		CachedAt  *time.Time       `json:"cachedAt"`
	}
	if err := c.do(ctx, c.cfg.SynthesisTimeout, http.MethodPost, "/api/brain-dump", req, &out); err != nil {
		return fetcher.Response{}, err
	}
	resp := fetcher.Response{Synthesis: out.Synthesis.Clone(), Cached: out.Cached}
	if out.CachedAt != nil {
		resp.CachedAt = *out.CachedAt
	}
	return resp, nil
}

// Digest is Synthesize with the server's description of the scope.
func (c *Client) Digest(ctx context.Context, sc scope.Descriptor, force bool) (brain.Result, error) {
	var out struct {
		Synthesis synthesis.Result `json:"synthesis"`
		Scope     string           `json:"scope"`
		NoteCount int              `json:"noteCount"`
		Cached    bool             `json:"cached"`
		CachedAt  *time.Time       `json:"cachedAt"`
		Notes     []brain.NoteRef  `json:"notes"`
	}
	req := fetcher.Request{Scope: sc, ForceRefresh: force}
	if err := c.do(ctx, c.cfg.SynthesisTimeout, http.MethodPost, "/api/brain-dump", req, &out); err != nil {
		return brain.Result{}, err
	}
	res := brain.Result{
		Synthesis: out.Synthesis.Clone(),
		Scope:     out.Scope,
		NoteCount: out.NoteCount,
		Cached:    out.Cached,
		Notes:     out.Notes,
	}
	if out.CachedAt != nil {
		res.CachedAt = *out.CachedAt
	}
	return res, nil
}

// ListIntents returns intents with the given status; "" means active.
func (c *Client) ListIntents(ctx context.Context, status intent.Status, limit int) ([]intent.Intent, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Intents []intent.Intent `json:"intents"`
	}
	if err := c.do(ctx, c.cfg.IntentsTimeout, http.MethodGet, withQuery("/api/intents", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Intents, nil
}

// SetIntentStatus moves an intent to status and returns it as stored.
func (c *Client) SetIntentStatus(ctx context.Context, id string, status intent.Status) (intent.Intent, error) {
	var out struct {
		Intent intent.Intent `json:"intent"`
	}
	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, c.cfg.IntentsTimeout, http.MethodPut, "/api/intents/"+url.PathEscape(id), body, &out); err != nil {
		return intent.Intent{}, err
	}
	return out.Intent, nil
}

// ChatReply is the server's answer to a chat turn.
type ChatReply struct {
	Message        string          `json:"message"`
	Scope          chat.ScopeInfo  `json:"scope"`
	Sources        []chat.Source   `json:"sources"`
	IntentCaptured []chat.Captured `json:"intentCaptured"`
	Clarify        bool            `json:"clarify"`
}

func (c *Client) Chat(ctx context.Context, msgs []chat.Message, sc scope.Descriptor) (ChatReply, error) {
	body := struct {
		Messages     []chat.Message   `json:"messages"`
		ContextScope scope.Descriptor `json:"contextScope"`
	}{msgs, sc}
	var out ChatReply
	if err := c.do(ctx, c.cfg.ChatTimeout, http.MethodPost, "/api/chat", body, &out); err != nil {
		return ChatReply{}, err
	}
	return out, nil
}

// ClearData deletes the user's intents and cached digests.
func (c *Client) ClearData(ctx context.Context) error {
	return c.do(ctx, c.cfg.IntentsTimeout, http.MethodDelete, "/api/user/data", nil, nil)
}

// ListNotes returns the notes in a scope. limit applies to the global scope only.
func (c *Client) ListNotes(ctx context.Context, sc scope.Descriptor, limit int) ([]notes.Note, error) {
	q := url.Values{}
	q.Set("type", string(sc.Kind))
	for k, v := range map[string]string{"folder": sc.Folder, "tag": sc.Tag, "noteId": sc.NoteID} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Notes []notes.Note `json:"notes"`
	}
	if err := c.do(ctx, c.cfg.IntentsTimeout, http.MethodGet, withQuery("/api/notes", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Notes, nil
}

func (c *Client) ListTodos(ctx context.Context) ([]notes.Todo, error) {
	var out struct {
		Todos []notes.Todo `json:"todos"`
	}
	if err := c.do(ctx, c.cfg.IntentsTimeout, http.MethodGet, "/api/todos", nil, &out); err != nil {
		return nil, err
	}
	return out.Todos, nil
}

// Ping checks that the server is up and healthy.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, c.cfg.IntentsTimeout, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserID != "" {
		req.Header.Set(c.cfg.UserHeader, c.cfg.UserID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s %s timed out after %s: %w", method, path, timeout, context.DeadlineExceeded)
		}
		return fmt.Errorf("cannot reach server at %s: %w", c.cfg.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
