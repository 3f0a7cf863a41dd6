// Package cache keeps the digests a session has already loaded, keyed by
// scope key, plus one session-wide staleness flag.
//
// The cache never fetches anything. It has no eviction and no TTL: it grows
// with the number of distinct scopes visited, and goes stale only when told to.
package cache

import (
	"sync"
	"time"

	"github.com/jeanpaul/foundernote/internal/synthesis"
)

// Entry is the digest stored for one scope key.
type Entry struct {
	ScopeKey  string
	Synthesis synthesis.Result
	CachedAt  time.Time
}

// Cache is safe for concurrent use. Create one per session and pass it to
// whatever needs it; there is no package-level instance.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	stale   bool
	gen     uint64 // bumped by every MarkStale and Reset
}

// New returns an empty cache. It starts stale: nothing has been loaded yet.
func New() *Cache {
	return &Cache{entries: make(map[string]Entry), stale: true}
}

// Get returns the entry for key. It is a pure lookup.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	e.Synthesis = e.Synthesis.Clone()
	return e, true
}

// Put replaces the entry for key as a whole.
func (c *Cache) Put(key string, s synthesis.Result, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{ScopeKey: key, Synthesis: s.Clone(), CachedAt: at}
}

// MarkStale flags every entry as possibly outdated. The next load of any
// scope bypasses the cache once.
func (c *Cache) MarkStale() {
	c.mu.Lock()
	c.stale = true
	c.gen++
	c.mu.Unlock()
}

func (c *Cache) IsStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

func (c *Cache) ClearStale() {
	c.mu.Lock()
	c.stale = false
	c.mu.Unlock()
}

// StaleGen returns a token that changes whenever the cache is marked stale.
// Read it before starting a fetch and hand it to ClearStaleIf afterwards.
func (c *Cache) StaleGen() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// ClearStaleIf clears the flag only if the cache has not been marked stale
// since gen was read. It reports whether the flag was cleared.
func (c *Cache) ClearStaleIf(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.stale = false
	return true
}

// Reset drops every entry, as after clearing the account's data.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.stale = true
	c.gen++
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
