// Package brain produces scoped digests on the server: it reads the notes a
// scope covers, reuses the stored digest while those notes are unchanged,
// and otherwise asks the model for a new one.
package brain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jeanpaul/foundernote/internal/metrics"
	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/provider"
	"github.com/jeanpaul/foundernote/internal/scope"
	"github.com/jeanpaul/foundernote/internal/synthesis"
)

// NoteSource reads the notes a scope selects, newest first.
type NoteSource interface {
	ListNotes(ctx context.Context, userID string, sel scope.Selector) ([]notes.Note, error)
}

// SnapshotStore keeps one digest per user and scope.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, userID, kind, value string) (synthesis.Snapshot, bool, error)
	SaveSnapshot(ctx context.Context, snap synthesis.Snapshot) error
}

type Config struct {
	// Model overrides the provider's default model.
	Model       string
	Temperature float64
	// MaxNoteChars bounds the body text sent per note.
	MaxNoteChars int
	// Timeout bounds one generation, independent of the callers waiting on it.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{Temperature: 0.5, MaxNoteChars: 1000, Timeout: 45 * time.Second}
}

// NoteRef names a note that went into a digest.
type NoteRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Result struct {
	Synthesis synthesis.Result
	// Scope is the human label of the scope.
	Scope     string
	NoteCount int
	Cached    bool
	CachedAt  time.Time
	Notes     []NoteRef
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	notes NoteSource
	snaps SnapshotStore
	llm   provider.Provider
	cfg   Config
	log   zerolog.Logger
	now   func() time.Time

	group singleflight.Group
}

func New(src NoteSource, snaps SnapshotStore, llm provider.Provider, cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.MaxNoteChars <= 0 {
		cfg.MaxNoteChars = def.MaxNoteChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	s := &Service{notes: src, snaps: snaps, llm: llm, cfg: cfg, log: log.Logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Synthesize returns the digest of the user's notes in sc. A stored digest
// is reused unless force is set or the notes changed since it was made.
func (s *Service) Synthesize(ctx context.Context, userID string, sc scope.Descriptor, force bool) (Result, error) {
	sel, err := sc.Selector()
	if err != nil {
		return Result{}, err
	}
	kind, value := string(sc.Kind), sc.Value()

	list, err := s.notes.ListNotes(ctx, userID, sel)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read notes: %w", err)
	}

	res := Result{Scope: sc.Describe(), NoteCount: len(list), Notes: refs(list)}
	if len(list) == 0 {
		metrics.SynthesisResults.WithLabelValues(kind, "empty").Inc()
		res.Synthesis = synthesis.Empty()
		return res, nil
	}

	hash := ContentHash(list)
	if !force {
		snap, ok, err := s.snaps.LoadSnapshot(ctx, userID, kind, value)
		if err != nil {
			s.log.Warn().Err(err).Str("scope", kind).Msg("digest cache read failed")
		}
		if ok && snap.ContentHash == hash {
			metrics.SynthesisResults.WithLabelValues(kind, "cached").Inc()
			res.Synthesis = snap.Result
			res.Cached = true
			res.CachedAt = snap.UpdatedAt
			return res, nil
		}
	}

	// Concurrent requests for the same notes share one generation. It runs
	// detached from any single caller so one of them leaving does not fail
	// the rest.
	key := strings.Join([]string{userID, kind, value, hash}, "\x00")
	ch := s.group.DoChan(key, func() (any, error) {
		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()
		return s.generate(gctx, userID, sc, list, hash)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		res.Synthesis = r.Val.(synthesis.Result).Clone()
		return res, nil
	}
}

func (s *Service) generate(ctx context.Context, userID string, sc scope.Descriptor, list []notes.Note, hash string) (synthesis.Result, error) {
	kind := string(sc.Kind)
	started := time.Now()
	c, err := s.llm.Complete(ctx, provider.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: systemPrompt},
			{Role: provider.RoleUser, Content: buildPrompt(sc.Describe(), list, s.cfg.MaxNoteChars, synthesis.MaxPerCategory)},
		},
		Temperature: provider.Temp(s.cfg.Temperature),
		JSON:        true,
	})
	if err != nil {
		return synthesis.Result{}, fmt.Errorf("digest generation failed: %w", err)
	}
	metrics.ObserveLLM("synthesis", started, c.Usage.InputTokens, c.Usage.OutputTokens)

	result, err := synthesis.Parse(c.Content)
	if err != nil {
		// A digest that could not be read is shown empty but never stored,
		// so the next request tries again.
		s.log.Warn().Err(err).Str("scope", kind).Msg("unusable digest from model")
		metrics.SynthesisResults.WithLabelValues(kind, "fallback").Inc()
		return result, nil
	}

	idByTitle := make(map[string]string, len(list))
	for _, n := range list {
		idByTitle[n.Title] = n.ID
	}
	result.ResolveNoteIDs(idByTitle)

	err = s.snaps.SaveSnapshot(ctx, synthesis.Snapshot{
		UserID:      userID,
		ScopeKind:   kind,
		ScopeValue:  sc.Value(),
		ContentHash: hash,
		Result:      result,
		NoteCount:   len(list),
		UpdatedAt:   s.now(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("scope", kind).Msg("failed to store digest")
	}
	metrics.SynthesisResults.WithLabelValues(kind, "generated").Inc()
	s.log.Debug().Str("scope", kind).Int("notes", len(list)).Dur("took", time.Since(started)).Msg("digest generated")
	return result, nil
}

// ContentHash fingerprints a note set by id and last update. Order does not
// matter; adding, removing or editing a note changes it.
func ContentHash(list []notes.Note) string {
	parts := make([]string, len(list))
	for i, n := range list {
		at := n.UpdatedAt
		if at.IsZero() {
			at = n.CreatedAt
		}
		parts[i] = n.ID + ":" + at.UTC().Format(time.RFC3339Nano)
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func refs(list []notes.Note) []NoteRef {
	out := make([]NoteRef, len(list))
	for i, n := range list {
		out[i] = NoteRef{ID: n.ID, Title: n.Title}
	}
	return out
}
