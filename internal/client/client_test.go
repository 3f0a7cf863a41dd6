package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/foundernote/internal/brain"
	"github.com/jeanpaul/foundernote/internal/cache"
	"github.com/jeanpaul/foundernote/internal/chat"
	"github.com/jeanpaul/foundernote/internal/fetcher"
	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/scope"
	"github.com/jeanpaul/foundernote/internal/server"
	"github.com/jeanpaul/foundernote/internal/store"
	"github.com/jeanpaul/foundernote/internal/synthesis"
)

type stubBrain struct {
	calls atomic.Int32
	delay time.Duration
}

func (b *stubBrain) Synthesize(ctx context.Context, userID string, sc scope.Descriptor, force bool) (brain.Result, error) {
	b.calls.Add(1)
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return brain.Result{}, ctx.Err()
		}
	}
	r := synthesis.Empty()
	r.Questions = []synthesis.Item{{Text: "Who owns hiring for " + sc.Value() + "?"}}
	return brain.Result{Synthesis: r, Scope: sc.Describe(), NoteCount: 2}, nil
}

type stubChat struct{}

func (stubChat) Reply(_ context.Context, _ string, req chat.Request) (chat.Reply, error) {
	return chat.Reply{
		Message: "You mentioned pricing twice.",
		Scope:   chat.ScopeInfo{Type: req.Scope.Kind, Description: req.Scope.Describe()},
		Sources: []chat.Source{{ID: "n1", Title: "Pricing"}},
	}, nil
}

func newServer(t *testing.T, b *stubBrain) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	srv := httptest.NewServer(server.New(server.Deps{
		Brain: b, Chat: stubChat{}, Intents: st, Notes: st,
	}, server.DefaultConfig()).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func TestClient_FetcherOverHTTP(t *testing.T) {
	b := &stubBrain{}
	srv, _ := newServer(t, b)
	c := New(Config{BaseURL: srv.URL, UserID: "u1"})

	f := fetcher.New(cache.New(), c)
	v, err := f.Load(context.Background(), scope.Folder("Hiring"), fetcher.LoadOptions{})
	require.NoError(t, err)
	require.NotNil(t, v.Synthesis)
	assert.Equal(t, "Who owns hiring for Hiring?", v.Synthesis.Questions[0].Text)
	assert.False(t, v.CachedAt.IsZero(), "fresh digests are stamped on arrival")

	v, err = f.Load(context.Background(), scope.Folder("Hiring"), fetcher.LoadOptions{})
	require.NoError(t, err)
	assert.True(t, v.FromCache)
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestClient_Digest(t *testing.T) {
	srv, _ := newServer(t, &stubBrain{})
	c := New(Config{BaseURL: srv.URL, UserID: "u1"})
	res, err := c.Digest(context.Background(), scope.Global(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NoteCount)
	assert.Equal(t, []synthesis.Item{}, res.Synthesis.Blockers)
}

func TestClient_IntentsAndBoard(t *testing.T) {
	srv, st := newServer(t, &stubBrain{})
	ctx := context.Background()
	in, err := st.Create(ctx, intent.Intent{UserID: "u1", RawText: "remember to send the deck", NormalizedIntent: "Send the deck"})
	require.NoError(t, err)

	c := New(Config{BaseURL: srv.URL, UserID: "u1"})
	active, err := c.ListIntents(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, active, 1)

	b := intent.NewBoard(c)
	b.Replace(active, nil)
	require.NoError(t, b.Toggle(ctx, in.ID, intent.StatusCompleted))
	assert.Empty(t, b.Active())
	require.Len(t, b.Completed(), 1)
	assert.NotNil(t, b.Completed()[0].CompletedAt)

	done, err := c.ListIntents(ctx, intent.StatusCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, done, 1)

	_, err = c.SetIntentStatus(ctx, "missing", intent.StatusActive)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	require.NoError(t, c.ClearData(ctx))
	all, err := c.ListIntents(ctx, intent.StatusAll, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestClient_ChatNotesTodos(t *testing.T) {
	srv, st := newServer(t, &stubBrain{})
	ctx := context.Background()
	require.NoError(t, st.ImportNotes(ctx, []notes.Note{
		{ID: "n1", UserID: "u1", Title: "Pricing", Tags: []string{"money"}, CreatedAt: time.Now()},
	}))
	require.NoError(t, st.ImportTodos(ctx, []notes.Todo{{ID: "t1", UserID: "u1", NoteID: "n1", Title: "Draft tiers"}}))

	c := New(Config{BaseURL: srv.URL, UserID: "u1"})
	rep, err := c.Chat(ctx, []chat.Message{{Role: "user", Content: "what about pricing?"}}, scope.Tag("money"))
	require.NoError(t, err)
	assert.Equal(t, "You mentioned pricing twice.", rep.Message)
	assert.Equal(t, scope.KindTag, rep.Scope.Type)

	list, err := c.ListNotes(ctx, scope.Tag("money"), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pricing", list[0].Title)

	todos, err := c.ListTodos(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "Pricing", todos[0].NoteTitle)

	require.NoError(t, c.Ping(ctx))
}

func TestClient_Unauthorized(t *testing.T) {
	srv, _ := newServer(t, &stubBrain{})
	c := New(Config{BaseURL: srv.URL})
	_, err := c.ListIntents(context.Background(), "", 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestClient_Timeout(t *testing.T) {
	srv, _ := newServer(t, &stubBrain{delay: time.Second})
	c := New(Config{BaseURL: srv.URL, UserID: "u1", SynthesisTimeout: 20 * time.Millisecond})
	_, err := c.Synthesize(context.Background(), fetcher.Request{Scope: scope.Global()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Unreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", UserID: "u1", IntentsTimeout: time.Second})
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach server")
}
