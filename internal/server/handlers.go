package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jeanpaul/foundernote/internal/brain"
	"github.com/jeanpaul/foundernote/internal/chat"
	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/scope"
	"github.com/jeanpaul/foundernote/internal/synthesis"
)

type brainDumpRequest struct {
	ContextScope *scope.Descriptor `json:"contextScope"`
	ForceRefresh bool              `json:"forceRefresh"`
}

type brainDumpResponse struct {
	Success   bool             `json:"success"`
	Synthesis synthesis.Result `json:"synthesis"`
	Scope     string           `json:"scope"`
	NoteCount int              `json:"noteCount"`
	Cached    bool             `json:"cached"`
	CachedAt  *time.Time       `json:"cachedAt,omitempty"`
	Notes     []brain.NoteRef  `json:"notes,omitempty"`
}

func (s *Server) handleBrainDump(w http.ResponseWriter, r *http.Request) {
	var req brainDumpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// A missing scope means everything.
	sc := scope.Global()
	if req.ContextScope != nil && req.ContextScope.Kind != "" {
		sc = *req.ContextScope
	}

	res, err := s.deps.Brain.Synthesize(r.Context(), userID(r.Context()), sc, req.ForceRefresh)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	out := brainDumpResponse{
		Success:   true,
		Synthesis: res.Synthesis.Clone(),
		Scope:     res.Scope,
		NoteCount: res.NoteCount,
		Cached:    res.Cached,
		Notes:     res.Notes,
	}
	if res.Cached && !res.CachedAt.IsZero() {
		at := res.CachedAt
		out.CachedAt = &at
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListIntents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := intent.StatusActive
	if v := q.Get("status"); v != "" {
		if v == string(intent.StatusAll) {
			status = intent.StatusAll
		} else {
			st, err := intent.ParseStatus(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid status")
				return
			}
			status = st
		}
	}
	limit, err := parseLimit(q.Get("limit"), intent.DefaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	list, err := s.deps.Intents.List(r.Context(), intent.Filter{UserID: userID(r.Context()), Status: status, Limit: limit})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"intents": list, "count": len(list)})
}

func (s *Server) handleUpdateIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := intent.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	in, err := s.deps.Intents.SetStatus(r.Context(), userID(r.Context()), r.PathValue("id"), status)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "intent": in})
}

type chatRequest struct {
	Messages     []chat.Message    `json:"messages"`
	ContextScope *scope.Descriptor `json:"contextScope"`
}

type chatResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	Scope          chat.ScopeInfo  `json:"scope"`
	Sources        []chat.Source   `json:"sources"`
	IntentCaptured []chat.Captured `json:"intentCaptured"`
	Clarify        bool            `json:"clarify,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages required")
		return
	}
	if req.ContextScope == nil || req.ContextScope.Kind == "" {
		writeError(w, http.StatusBadRequest, "contextScope with type required")
		return
	}

	rep, err := s.deps.Chat.Reply(r.Context(), userID(r.Context()), chat.Request{Messages: req.Messages, Scope: *req.ContextScope})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Success:        true,
		Message:        rep.Message,
		Scope:          rep.Scope,
		Sources:        rep.Sources,
		IntentCaptured: rep.IntentCaptured,
		Clarify:        rep.Clarify,
	})
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Intents.ClearUser(r.Context(), userID(r.Context())); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleListNotes lists notes in a scope given as query parameters
// (type, folder, tag, noteId). Global listings are unbounded unless limit is set.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sc := scope.Descriptor{
		Kind:   scope.Kind(q.Get("type")),
		Folder: q.Get("folder"),
		Tag:    q.Get("tag"),
		NoteID: q.Get("noteId"),
	}
	if sc.Kind == "" {
		sc.Kind = scope.KindGlobal
	}
	sel, err := sc.Selector()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if sc.Kind == scope.KindGlobal {
		if sel.Limit, err = parseLimit(q.Get("limit"), 0); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
	}

	list, err := s.deps.Notes.ListNotes(r.Context(), userID(r.Context()), sel)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list, "count": len(list)})
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Notes.ListTodos(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if list == nil {
		list = []notes.Todo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": list, "count": len(list)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseLimit(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}
