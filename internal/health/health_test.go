package health

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/foundernote/internal/provider"
)

type fakeLister struct {
	models []string
	err    error
	calls  int
}

func (f *fakeLister) Name() string { return "fake" }

func (f *fakeLister) Models(context.Context) ([]string, error) {
	f.calls++
	return f.models, f.err
}

func TestCheck(t *testing.T) {
	s := Check(context.Background(), &fakeLister{models: []string{"llama3.1:8b"}}, 0)
	assert.True(t, s.Reachable)
	assert.Equal(t, "fake", s.Provider)
	assert.NoError(t, CheckModel(s, "llama3.1:8b"))
	assert.ErrorContains(t, CheckModel(s, "gpt-4o"), "available: llama3.1:8b")
}

func TestCheck_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&provider.StatusError{StatusCode: http.StatusUnauthorized}, "authentication failed"},
		{&provider.StatusError{StatusCode: http.StatusBadGateway}, "HTTP 502"},
		{errors.New("dial tcp: connection refused"), "connection refused"},
		{errors.New("lookup llm.internal: no such host"), "host not found"},
		{context.DeadlineExceeded, "timed out"},
	}
	for _, tt := range tests {
		s := Check(context.Background(), &fakeLister{err: tt.err}, time.Second)
		assert.False(t, s.Reachable)
		assert.Contains(t, s.Error, tt.want)
		assert.ErrorContains(t, CheckModel(s, "x"), "not reachable")
	}
}

func TestCheckModel_EmptyListing(t *testing.T) {
	assert.NoError(t, CheckModel(Status{Reachable: true}, "anything"))
}

func TestChecker_CachesResult(t *testing.T) {
	l := &fakeLister{err: errors.New("connection refused")}
	c := NewChecker(l, time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.Error(t, c.Healthy(context.Background()))
	l.err = nil
	require.Error(t, c.Healthy(context.Background()), "served from the last check")
	assert.Equal(t, 1, l.calls)

	now = now.Add(time.Minute)
	require.NoError(t, c.Healthy(context.Background()))
	assert.Equal(t, 2, l.calls)
}
