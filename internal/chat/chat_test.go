package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/provider"
	"github.com/jeanpaul/foundernote/internal/scope"
	"github.com/jeanpaul/foundernote/internal/trigger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memNotes []notes.Note

func (m memNotes) ListNotes(_ context.Context, userID string, sel scope.Selector) ([]notes.Note, error) {
	out := []notes.Note{}
	for _, n := range m {
		if n.UserID == userID && sel.Match(n) {
			out = append(out, n)
		}
	}
	if sel.Limit > 0 && len(out) > sel.Limit {
		out = out[:sel.Limit]
	}
	return out, nil
}

type memIntents struct {
	mu    sync.Mutex
	saved []intent.Intent
	err   error
}

func (m *memIntents) Create(_ context.Context, in intent.Intent) (intent.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return intent.Intent{}, m.err
	}
	in.ID = fmt.Sprintf("i%d", len(m.saved)+1)
	in.Status = intent.StatusActive
	in.CreatedAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	m.saved = append(m.saved, in)
	return in, nil
}

func (m *memIntents) all() []intent.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]intent.Intent{}, m.saved...)
}

// scriptedLLM answers normalization and chat requests differently.
type scriptedLLM struct {
	mu         sync.Mutex
	normalized string
	normErr    error
	reply      string
	replyErr   error
	// blockReply makes the chat call wait for its context to end.
	blockReply  bool
	replyCalled chan struct{}

	normCalls int
	chatReqs  []provider.CompletionRequest
}

func (s *scriptedLLM) Complete(ctx context.Context, req provider.CompletionRequest) (provider.Completion, error) {
	if req.Messages[0].Content == normalizePrompt {
		s.mu.Lock()
		s.normCalls++
		s.mu.Unlock()
		if s.normErr != nil {
			return provider.Completion{}, s.normErr
		}
		return provider.Completion{Content: s.normalized}, nil
	}

	s.mu.Lock()
	s.chatReqs = append(s.chatReqs, req)
	s.mu.Unlock()
	if s.replyCalled != nil {
		close(s.replyCalled)
	}
	if s.blockReply {
		<-ctx.Done()
		return provider.Completion{}, ctx.Err()
	}
	if s.replyErr != nil {
		return provider.Completion{}, s.replyErr
	}
	return provider.Completion{Content: s.reply}, nil
}

func (s *scriptedLLM) Name() string                             { return "scripted" }
func (s *scriptedLLM) ModelName() string                        { return "scripted" }
func (s *scriptedLLM) Models(context.Context) ([]string, error) { return nil, nil }

func (s *scriptedLLM) lastChat() provider.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatReqs[len(s.chatReqs)-1]
}

var day = time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)

func library() memNotes {
	return memNotes{
		{ID: "n1", UserID: "u1", Title: "Pricing call", Folder: "Sales", Tags: []string{"pricing"}, Summary: "Seats vs usage", CreatedAt: day},
		{ID: "n2", UserID: "u1", Title: "Hiring plan", Folder: "Team", Tags: []string{"hiring"}, CreatedAt: day.Add(time.Hour)},
		{ID: "n3", UserID: "u1", Title: "Investor update", Tags: []string{"fundraising"}, Transcription: "Raised a bridge", CreatedAt: day.Add(2 * time.Hour)},
	}
}

func user(text string) []Message { return []Message{{Role: "user", Content: text}} }

func TestReply_CapturesRememberRequest(t *testing.T) {
	llm := &scriptedLLM{
		normalized: `{"items":[{"text":"Renew the domain before Friday","type":"todo"},{"text":"Registrar is Gandi","type":"remember"}]}`,
		reply:      "Got it, I'll remember to renew the domain.",
	}
	store := &memIntents{}
	s := New(library(), store, llm, trigger.Default(), DefaultConfig())

	msg := "Hey Remy, remember this: renew the domain before Friday, registrar is Gandi"
	r, err := s.Reply(context.Background(), "u1", Request{Messages: user(msg), Scope: scope.Folder("Sales")})
	require.NoError(t, err)

	require.Len(t, r.IntentCaptured, 2)
	assert.Equal(t, "Renew the domain before Friday", r.IntentCaptured[0].Content)
	assert.Equal(t, intent.TypeTodo, r.IntentCaptured[0].Type)
	assert.False(t, r.Clarify)
	assert.Empty(t, r.Sources, "no sources when acknowledging a capture")

	saved := store.all()
	require.Len(t, saved, 2)
	assert.Equal(t, msg, saved[0].RawText)
	assert.Equal(t, intent.SourceChat, saved[0].SourceType)
	assert.Equal(t, "folder", saved[0].ContextScope)
	assert.Equal(t, "Sales", saved[0].ContextValue)
	assert.Equal(t, "Sales", saved[0].Folder)

	last := llm.lastChat().Messages
	assert.Equal(t, provider.RoleSystem, last[len(last)-1].Role)
	assert.Contains(t, last[len(last)-1].Content, `"renew the domain before Friday, registrar is Gandi"`)
}

func TestReply_NormalizationFallsBackToPayload(t *testing.T) {
	for name, llm := range map[string]*scriptedLLM{
		"garbage":     {normalized: "I think you mean the domain", reply: "ok"},
		"empty items": {normalized: `{"items":[]}`, reply: "ok"},
		"error":       {normErr: errors.New("503"), reply: "ok"},
	} {
		t.Run(name, func(t *testing.T) {
			store := &memIntents{}
			s := New(library(), store, llm, nil, DefaultConfig())
			r, err := s.Reply(context.Background(), "u1", Request{Messages: user("Remy, don't forget the board meets Tuesday"), Scope: scope.Global()})
			require.NoError(t, err)
			require.Len(t, r.IntentCaptured, 1)
			saved := store.all()
			require.Len(t, saved, 1)
			assert.Equal(t, "the board meets Tuesday", saved[0].NormalizedIntent)
			assert.Equal(t, intent.TypeRemember, saved[0].IntentType)
		})
	}
}

func TestReply_SuppressedTriggerAsksForClarification(t *testing.T) {
	llm := &scriptedLLM{reply: "What would you like me to remember?"}
	store := &memIntents{}
	s := New(library(), store, llm, nil, DefaultConfig())

	r, err := s.Reply(context.Background(), "u1", Request{Messages: user("Remy, remember"), Scope: scope.Global()})
	require.NoError(t, err)
	assert.True(t, r.Clarify)
	assert.Nil(t, r.IntentCaptured)
	assert.Empty(t, store.all())
	assert.Zero(t, llm.normCalls)

	last := llm.lastChat().Messages
	assert.Equal(t, clarifyNote, last[len(last)-1].Content)
}

func TestReply_SourcesAreNotesNamedInReply(t *testing.T) {
	llm := &scriptedLLM{reply: "Your Pricing call and Investor update both mention runway."}
	s := New(library(), &memIntents{}, llm, nil, DefaultConfig())

	r, err := s.Reply(context.Background(), "u1", Request{Messages: user("what about runway?"), Scope: scope.Global()})
	require.NoError(t, err)
	var titles []string
	for _, src := range r.Sources {
		titles = append(titles, src.Title)
	}
	assert.ElementsMatch(t, []string{"Pricing call", "Investor update"}, titles)
	assert.Equal(t, "all notes (3 total)", r.Scope.Description)
	assert.Equal(t, 3, r.Scope.NoteCount)
	assert.Nil(t, r.IntentCaptured)
}

func TestReply_SourcesCapped(t *testing.T) {
	var list memNotes
	reply := ""
	for i := 0; i < 8; i++ {
		title := fmt.Sprintf("Note %c", 'A'+i)
		list = append(list, notes.Note{ID: title, UserID: "u1", Title: title, CreatedAt: day})
		reply += title + ". "
	}
	s := New(list, &memIntents{}, &scriptedLLM{reply: reply}, nil, DefaultConfig())
	r, err := s.Reply(context.Background(), "u1", Request{Messages: user("summarize"), Scope: scope.Global()})
	require.NoError(t, err)
	assert.Len(t, r.Sources, MaxSources)
}

func TestReply_NoteScope(t *testing.T) {
	llm := &scriptedLLM{reply: "It covers seat pricing.", normalized: `{"items":[{"text":"Send pricing deck","type":"todo"}]}`}
	store := &memIntents{}
	s := New(library(), store, llm, nil, DefaultConfig())

	r, err := s.Reply(context.Background(), "u1", Request{Messages: user("what is this about"), Scope: scope.Note("n1", "Pricing call")})
	require.NoError(t, err)
	require.Len(t, r.Sources, 1, "the note is always the source")
	assert.Equal(t, "n1", r.Sources[0].ID)
	assert.Equal(t, `the note titled "Pricing call"`, r.Scope.Description)
	assert.Contains(t, llm.lastChat().Messages[0].Content, "Title: Pricing call")

	_, err = s.Reply(context.Background(), "u1", Request{Messages: user("@remy send pricing deck"), Scope: scope.Note("n1", "Pricing call")})
	require.NoError(t, err)
	saved := store.all()
	require.Len(t, saved, 1)
	assert.Equal(t, intent.SourceNote, saved[0].SourceType)
	assert.Equal(t, "n1", saved[0].SourceID)
	assert.Equal(t, "Pricing call", saved[0].SourceTitle)
	assert.Equal(t, "note", saved[0].ContextScope)

	_, err = s.Reply(context.Background(), "u2", Request{Messages: user("hi"), Scope: scope.Note("n1", "")})
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestReply_OnlyLatestUserMessageIsChecked(t *testing.T) {
	llm := &scriptedLLM{reply: "sure"}
	store := &memIntents{}
	s := New(library(), store, llm, nil, DefaultConfig())

	msgs := []Message{
		{Role: "user", Content: "Remy, remember the office code is 4411"},
		{Role: "assistant", Content: "Saved."},
		{Role: "user", Content: "thanks!"},
	}
	r, err := s.Reply(context.Background(), "u1", Request{Messages: msgs, Scope: scope.Global()})
	require.NoError(t, err)
	assert.Nil(t, r.IntentCaptured)
	assert.Empty(t, store.all())
	assert.Len(t, llm.lastChat().Messages, 4)
}

func TestReply_StoreFailureDoesNotFailReply(t *testing.T) {
	llm := &scriptedLLM{reply: "Noted.", normalized: `{"items":[{"text":"Call the bank"}]}`}
	s := New(library(), &memIntents{err: errors.New("disk full")}, llm, nil, DefaultConfig())

	r, err := s.Reply(context.Background(), "u1", Request{Messages: user("remy note this: call the bank"), Scope: scope.Global()})
	require.NoError(t, err)
	assert.Equal(t, "Noted.", r.Message)
	assert.Nil(t, r.IntentCaptured)
}

func TestReply_CaptureOutlivesRequest(t *testing.T) {
	llm := &scriptedLLM{blockReply: true, replyCalled: make(chan struct{}), normalized: `{"items":[{"text":"Book flights to Lisbon"}]}`}
	store := &memIntents{}
	s := New(library(), store, llm, nil, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Reply(ctx, "u1", Request{Messages: user("Remy keep in mind to book flights to Lisbon"), Scope: scope.Global()})
		done <- err
	}()
	<-llm.replyCalled
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	require.Eventually(t, func() bool { return len(store.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Book flights to Lisbon", store.all()[0].NormalizedIntent)
}

func TestReply_Validation(t *testing.T) {
	s := New(library(), &memIntents{}, &scriptedLLM{}, nil, DefaultConfig())
	_, err := s.Reply(context.Background(), "u1", Request{Scope: scope.Global()})
	assert.ErrorIs(t, err, ErrNoMessages)
	_, err = s.Reply(context.Background(), "u1", Request{Messages: user("hi"), Scope: scope.Descriptor{Kind: scope.KindTag}})
	assert.ErrorIs(t, err, scope.ErrIncomplete)
	_, err = s.Reply(context.Background(), "u1", Request{Messages: user("hi")})
	assert.Error(t, err)
}

func TestReply_ModelFailure(t *testing.T) {
	s := New(library(), &memIntents{}, &scriptedLLM{replyErr: errors.New("overloaded")}, nil, DefaultConfig())
	_, err := s.Reply(context.Background(), "u1", Request{Messages: user("hi"), Scope: scope.Global()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestSystemPrompts(t *testing.T) {
	list := []notes.Note(library())
	global := systemPrompt(scope.Global(), list, "all notes (3 total)", 800)
	assert.Contains(t, global, "Folders: Sales, Team")
	assert.Contains(t, global, "--- UNFILED NOTES (1) ---")
	assert.Contains(t, global, `1. "Investor update" - Raised a bridge`)
	assert.Contains(t, global, "You are scoped to: all notes (3 total)")

	folder := systemPrompt(scope.Folder("Empty"), nil, "x", 800)
	assert.Contains(t, folder, "This folder is empty.")

	tag := systemPrompt(scope.Tag("hiring"), list[1:2], "x", 800)
	assert.Contains(t, tag, "=== TAG: #hiring ===")
	assert.Contains(t, tag, `--- Note 1: "Hiring plan" ---`)
}
