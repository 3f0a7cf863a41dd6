// Package fetcher decides, for each request to show a scope's digest, whether
// to serve it from the session cache or ask the synthesizer, and makes sure
// only the most recent request ever lands.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeanpaul/foundernote/internal/cache"
	"github.com/jeanpaul/foundernote/internal/scope"
	"github.com/jeanpaul/foundernote/internal/synthesis"
)

// ErrSuperseded is returned by a Load whose result was discarded because a
// later Load started before it finished.
var ErrSuperseded = errors.New("fetcher: superseded by a newer load")

// Request is what the synthesizer is asked for.
type Request struct {
	Scope        scope.Descriptor `json:"contextScope"`
	ForceRefresh bool             `json:"forceRefresh"`
}

// Response is what the synthesizer returns. Cached reports that it was
// served from the synthesizer's own cache.
type Response struct {
	Synthesis synthesis.Result `json:"synthesis"`
	Cached    bool             `json:"cached"`
	CachedAt  time.Time        `json:"cachedAt"`
}

// Synthesizer produces digests. Calls must be safe to repeat, and honor ctx
// cancellation.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Response, error)
}

// LoadOptions tune a single Load.
type LoadOptions struct {
	ForceRefresh bool
}

// View is what a screen bound to the fetcher shows.
type View struct {
	// ScopeKey identifies the scope Synthesis belongs to.
	ScopeKey  string
	Scope     scope.Descriptor
	Synthesis *synthesis.Result
	Cached    bool
	CachedAt  time.Time
	// FromCache is set when the session cache served the digest.
	FromCache bool

	// Loading and PendingKey describe the request in flight, if any.
	Loading    bool
	PendingKey string
	// Err is the last failure. The previous Synthesis stays in place.
	Err error
}

type Option func(*Fetcher)

func WithLogger(l zerolog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// Fetcher serves one view. At most one request is in flight at a time: each
// Load bumps a generation counter and cancels the previous request, and a
// response is applied only if its generation is still current.
type Fetcher struct {
	cache *cache.Cache
	src   Synthesizer
	log   zerolog.Logger
	now   func() time.Time

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	view   View
}

func New(c *cache.Cache, src Synthesizer, opts ...Option) *Fetcher {
	f := &Fetcher{
		cache: c,
		src:   src,
		log:   log.Logger,
		now:   time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Load shows the digest for sc. It returns the resulting view; the error is
// non-nil when the synthesizer failed, the load was superseded, or sc is not
// a valid scope.
func (f *Fetcher) Load(ctx context.Context, sc scope.Descriptor, opts LoadOptions) (View, error) {
	key, err := sc.Key()
	if err != nil {
		return f.State(), fmt.Errorf("fetcher: %w", err)
	}

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
	gen := f.gen

	if !opts.ForceRefresh && !f.cache.IsStale() {
		if e, ok := f.cache.Get(key); ok {
			s := e.Synthesis
			f.view = View{
				ScopeKey:  key,
				Scope:     sc,
				Synthesis: &s,
				Cached:    true,
				CachedAt:  e.CachedAt,
				FromCache: true,
			}
			v := f.view
			f.mu.Unlock()
			f.log.Debug().Str("scope", key).Msg("digest served from session cache")
			return v, nil
		}
	}

	staleGen := f.cache.StaleGen()
	reqCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.view.Loading = true
	f.view.PendingKey = key
	f.view.Err = nil
	f.mu.Unlock()

	resp, err := f.src.Synthesize(reqCtx, Request{Scope: sc, ForceRefresh: opts.ForceRefresh})

	f.mu.Lock()
	defer f.mu.Unlock()
	cancel()

	if gen != f.gen {
		f.log.Debug().Str("scope", key).Msg("discarding superseded digest")
		return f.view, ErrSuperseded
	}
	f.cancel = nil
	f.view.Loading = false
	f.view.PendingKey = ""

	if err != nil {
		f.view.Err = err
		f.log.Warn().Err(err).Str("scope", key).Msg("digest refresh failed, keeping previous digest")
		return f.view, err
	}

	cachedAt := resp.CachedAt
	if cachedAt.IsZero() {
		cachedAt = f.now()
	}
	f.cache.Put(key, resp.Synthesis, cachedAt)
	if !f.cache.ClearStaleIf(staleGen) {
		f.log.Debug().Str("scope", key).Msg("cache marked stale during load, keeping flag")
	}

	s := resp.Synthesis.Clone()
	f.view = View{
		ScopeKey:  key,
		Scope:     sc,
		Synthesis: &s,
		Cached:    resp.Cached,
		CachedAt:  cachedAt,
	}
	return f.view, nil
}

// State returns the current view.
func (f *Fetcher) State() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Close cancels any request in flight; its result will be discarded.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
	f.view.Loading = false
	f.view.PendingKey = ""
}
