// Package chat answers messages to the assistant over a scope of notes and,
// when a message explicitly asks it to remember something, stores that as
// intents alongside the reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/metrics"
	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/provider"
	"github.com/jeanpaul/foundernote/internal/scope"
	"github.com/jeanpaul/foundernote/internal/trigger"
)

var (
	ErrNoMessages   = errors.New("messages required")
	ErrNoteNotFound = errors.New("note not found")
)

// MaxSources bounds the notes cited under a reply.
const MaxSources = 5

type NoteSource interface {
	ListNotes(ctx context.Context, userID string, sel scope.Selector) ([]notes.Note, error)
}

// IntentWriter stores captured intents.
type IntentWriter interface {
	Create(ctx context.Context, in intent.Intent) (intent.Intent, error)
}

type Config struct {
	Model          string
	NormalizeModel string
	Temperature    float64
	MaxTokens      int
	// GlobalLimit caps the notes read for the global scope.
	GlobalLimit int
	// MaxNoteChars bounds the body text per note in folder, tag and global prompts.
	MaxNoteChars int
	// IntentTimeout bounds capture, which runs detached from the request.
	IntentTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Temperature:   0.7,
		MaxTokens:     1500,
		GlobalLimit:   50,
		MaxNoteChars:  800,
		IntentTimeout: 10 * time.Second,
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Messages []Message
	Scope    scope.Descriptor
}

// Source is a note the reply drew on.
type Source struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Date   time.Time `json:"date"`
	Folder string    `json:"folder,omitempty"`
	Tags   []string  `json:"tags"`
}

// Captured is an intent stored from the message.
type Captured struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Type      intent.Type `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

type ScopeInfo struct {
	Type        scope.Kind `json:"type"`
	Description string     `json:"description"`
	NoteCount   int        `json:"noteCount"`
}

type Reply struct {
	Message string
	Scope   ScopeInfo
	Sources []Source
	// IntentCaptured lists the intents stored for this message, if any.
	IntentCaptured []Captured
	// Clarify is set when the message asked to remember something but said
	// nothing worth storing; the reply asks what to save.
	Clarify bool
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

type Service struct {
	notes    NoteSource
	intents  IntentWriter
	llm      provider.Provider
	detector *trigger.Detector
	cfg      Config
	log      zerolog.Logger
}

func New(src NoteSource, intents IntentWriter, llm provider.Provider, det *trigger.Detector, cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.GlobalLimit <= 0 {
		cfg.GlobalLimit = def.GlobalLimit
	}
	if cfg.MaxNoteChars <= 0 {
		cfg.MaxNoteChars = def.MaxNoteChars
	}
	if cfg.IntentTimeout <= 0 {
		cfg.IntentTimeout = def.IntentTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if det == nil {
		det = trigger.Default()
	}
	s := &Service{notes: src, intents: intents, llm: llm, detector: det, cfg: cfg, log: log.Logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

type captureResult struct {
	items []Captured
	err   error
}

// Reply answers the conversation. Only the latest user message is checked
// for a remember request; capturing it runs concurrently with the reply and
// never fails it.
func (s *Service) Reply(ctx context.Context, userID string, req Request) (Reply, error) {
	if len(req.Messages) == 0 {
		return Reply{}, ErrNoMessages
	}
	sc := req.Scope
	sel, err := sc.Selector()
	if err != nil {
		return Reply{}, err
	}
	if sc.Kind == scope.KindGlobal {
		sel.Limit = s.cfg.GlobalLimit
	}

	var det trigger.Result
	if latest, ok := latestUserMessage(req.Messages); ok {
		det = s.detector.Detect(latest)
	}

	var captured chan captureResult
	switch {
	case det.Storable():
		raw, _ := latestUserMessage(req.Messages)
		captured = make(chan captureResult, 1)
		// The capture outlives the request context: leaving the chat must not
		// drop what the user asked to remember.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.IntentTimeout)
		go func() {
			defer cancel()
			items, err := s.capture(cctx, userID, sc, raw, det.Text)
			captured <- captureResult{items, err}
		}()
	case det.Triggered:
		metrics.TriggerDetections.WithLabelValues("suppressed").Inc()
		s.log.Debug().Str("rule", det.Rule).Msg("remember request without payload")
	}

	list, err := s.notes.ListNotes(ctx, userID, sel)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to read notes: %w", err)
	}
	if sc.Kind == scope.KindNote && len(list) == 0 {
		return Reply{}, fmt.Errorf("%w: %s", ErrNoteNotFound, sc.NoteID)
	}

	label := describe(sc, list)
	msgs := []provider.Message{{Role: provider.RoleSystem, Content: systemPrompt(sc, list, label, s.cfg.MaxNoteChars)}}
	for _, m := range req.Messages {
		msgs = append(msgs, provider.Message{Role: role(m.Role), Content: m.Content})
	}
	reply := Reply{Scope: ScopeInfo{Type: sc.Kind, Description: label, NoteCount: len(list)}, Sources: []Source{}}
	switch {
	case det.Storable():
		msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: captureNote(det.Text)})
	case det.Triggered:
		msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: clarifyNote})
		reply.Clarify = true
	}

	started := time.Now()
	c, err := s.llm.Complete(ctx, provider.CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    msgs,
		Temperature: provider.Temp(s.cfg.Temperature),
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("reply failed: %w", err)
	}
	metrics.ObserveLLM("chat", started, c.Usage.InputTokens, c.Usage.OutputTokens)
	reply.Message = c.Content

	if !det.Triggered {
		reply.Sources = sources(sc, list, c.Content)
	}

	if captured != nil {
		select {
		case r := <-captured:
			if r.err != nil {
				s.log.Error().Err(r.err).Msg("intent capture failed")
			}
			if len(r.items) > 0 {
				reply.IntentCaptured = r.items
			}
		case <-ctx.Done():
			// The capture finishes on its own.
		}
	}
	return reply, nil
}

// capture normalizes the payload and stores one intent per item. It returns
// what was stored; err reports the first failure.
func (s *Service) capture(ctx context.Context, userID string, sc scope.Descriptor, raw, payload string) ([]Captured, error) {
	items := s.normalize(ctx, payload)

	source := intent.SourceChat
	if sc.Kind == scope.KindNote {
		source = intent.SourceNote
	}
	var tags []string
	if sc.Tag != "" {
		tags = []string{sc.Tag}
	}

	var (
		out      []Captured
		firstErr error
	)
	for _, it := range items {
		in, err := s.intents.Create(ctx, intent.Intent{
			UserID:           userID,
			RawText:          raw,
			NormalizedIntent: it.Text,
			IntentType:       it.Type,
			SourceType:       source,
			SourceID:         sc.NoteID,
			SourceTitle:      sc.NoteTitle,
			ContextScope:     string(sc.Kind),
			ContextValue:     firstNonEmpty(sc.Folder, sc.Tag),
			Folder:           sc.Folder,
			Tags:             tags,
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.IntentsCaptured.WithLabelValues(string(in.IntentType)).Inc()
		out = append(out, Captured{ID: in.ID, Content: it.Text, Type: in.IntentType, Timestamp: in.CreatedAt})
	}

	if len(out) == 0 {
		metrics.TriggerDetections.WithLabelValues("failed").Inc()
	} else {
		metrics.TriggerDetections.WithLabelValues("captured").Inc()
		s.log.Info().Str("user", userID).Int("intents", len(out)).Msg("intents captured")
	}
	return out, firstErr
}

// sources lists the notes a reply drew on: the note itself for a note scope,
// otherwise the notes whose titles the reply mentions.
func sources(sc scope.Descriptor, list []notes.Note, reply string) []Source {
	out := []Source{}
	for _, n := range list {
		if sc.Kind != scope.KindNote && (n.Title == "" || !strings.Contains(reply, n.Title)) {
			continue
		}
		tags := n.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, Source{ID: n.ID, Title: n.Title, Date: n.CreatedAt, Folder: n.Folder, Tags: tags})
		if len(out) == MaxSources {
			break
		}
	}
	return out
}

func latestUserMessage(msgs []Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == string(provider.RoleUser) {
			return msgs[i].Content, true
		}
	}
	return "", false
}

func role(r string) provider.Role {
	switch provider.Role(r) {
	case provider.RoleAssistant, provider.RoleSystem:
		return provider.Role(r)
	}
	return provider.RoleUser
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
