// Package server exposes the digest, intent and chat services over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeanpaul/foundernote/internal/brain"
	"github.com/jeanpaul/foundernote/internal/chat"
	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/metrics"
	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/scope"
)

// DefaultUserHeader carries the caller's user id. Authentication happens in
// front of this server.
const DefaultUserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

type Synthesizer interface {
	Synthesize(ctx context.Context, userID string, sc scope.Descriptor, force bool) (brain.Result, error)
}

type Chatter interface {
	Reply(ctx context.Context, userID string, req chat.Request) (chat.Reply, error)
}

// NoteReader is the read side of notes and todos.
type NoteReader interface {
	ListNotes(ctx context.Context, userID string, sel scope.Selector) ([]notes.Note, error)
	ListTodos(ctx context.Context, userID string) ([]notes.Todo, error)
}

type Deps struct {
	Brain   Synthesizer
	Chat    Chatter
	Intents intent.Store
	Notes   NoteReader
	// Health reports whether the server can do its job; nil means always healthy.
	Health func(ctx context.Context) error
}

type Config struct {
	UserHeader       string
	SynthesisTimeout time.Duration
	ChatTimeout      time.Duration
	IntentsTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		UserHeader:       DefaultUserHeader,
		SynthesisTimeout: 45 * time.Second,
		ChatTimeout:      60 * time.Second,
		IntentsTimeout:   10 * time.Second,
	}
}

type Server struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger
}

func New(deps Deps, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.UserHeader == "" {
		cfg.UserHeader = def.UserHeader
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = def.SynthesisTimeout
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = def.ChatTimeout
	}
	if cfg.IntentsTimeout <= 0 {
		cfg.IntentsTimeout = def.IntentsTimeout
	}
	return &Server{deps: deps, cfg: cfg, log: log.With().Str("component", "http").Logger()}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "POST /api/brain-dump", s.cfg.SynthesisTimeout, s.handleBrainDump)
	s.route(mux, "GET /api/intents", s.cfg.IntentsTimeout, s.handleListIntents)
	s.route(mux, "PUT /api/intents/{id}", s.cfg.IntentsTimeout, s.handleUpdateIntent)
	s.route(mux, "POST /api/chat", s.cfg.ChatTimeout, s.handleChat)
	s.route(mux, "DELETE /api/user/data", s.cfg.IntentsTimeout, s.handleClearData)
	s.route(mux, "GET /api/notes", s.cfg.IntentsTimeout, s.handleListNotes)
	s.route(mux, "GET /api/todos", s.cfg.IntentsTimeout, s.handleListTodos)

	mux.Handle("GET /healthz", s.instrument("GET /healthz", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

type userKey struct{}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// route registers an API handler behind the user check and a per-route timeout.
func (s *Server) route(mux *http.ServeMux, pattern string, timeout time.Duration, h http.HandlerFunc) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(s.cfg.UserHeader)
		if uid == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		ctx = context.WithValue(ctx, userKey{}, uid)
		h(w, r.WithContext(ctx))
	})
	mux.Handle(pattern, s.instrument(pattern, inner))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records metrics and an access log line per request.
func (s *Server) instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		metrics.RequestCount.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, pattern).Observe(elapsed.Seconds())

		ev := s.log.Info()
		if rec.status >= 500 {
			ev = s.log.Error()
		}
		ev.Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.status).
			Dur("took", elapsed).Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure maps a service error to a status code.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, scope.ErrUnknownKind), errors.Is(err, scope.ErrIncomplete),
		errors.Is(err, intent.ErrInvalidStatus), errors.Is(err, chat.ErrNoMessages):
		status = http.StatusBadRequest
	case errors.Is(err, intent.ErrNotFound), errors.Is(err, chat.ErrNoteNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= 500 {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
