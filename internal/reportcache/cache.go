// Package reportcache implements the mutation-epoch-keyed report cache
// described in SPEC_FULL.md §4.9: an exact-key hit with an unchanged epoch
// returns the cached document; a miss admits exactly one producer per key
// and lets concurrent requesters wait on its result. Grounded on the
// teacher's pkg/agent/circuit.go mutex-guarded-state shape, generalized
// from a pass/fail circuit to a per-key single-flight cache.
package reportcache

import (
	"sync"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// Key identifies one cache slot within a session (§4.9).
type Key struct {
	DumpID          string
	IncludeWatches  bool
	IncludeSecurity bool
	IncludeAI       bool
	MaxStackFrames  int
	MutationEpoch   uint64
}

type entry struct {
	ready chan struct{} // closed once doc/err are set
	doc   *report.Report
	err   error
}

// Cache is a per-session report cache. One Cache instance is owned by each
// session.Session.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	order   []Key // last-use order, most-recent last
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[Key]*entry)}
}

// Producer builds the report for a cache miss.
type Producer func() (*report.Report, error)

// GetOrProduce returns the cached document for key if present, otherwise
// runs produce exactly once for that key even under concurrent callers;
// all other concurrent callers for the same key wait for that result.
func (c *Cache) GetOrProduce(key Key, produce Producer) (*report.Report, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.touch(key)
		c.mu.Unlock()
		<-e.ready
		return e.doc, e.err
	}

	e := &entry{ready: make(chan struct{})}
	c.entries[key] = e
	c.order = append(c.order, key)
	c.mu.Unlock()

	e.doc, e.err = produce()
	close(e.ready)
	return e.doc, e.err
}

// touch must be called with c.mu held; moves key to the end of the
// last-use order.
func (c *Cache) touch(key Key) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

// Invalidate drops every cached entry for dumpID, called whenever the
// session's mutation epoch advances (§4.9, §8 invariant 10) so stale
// lower-epoch slots don't accumulate unboundedly.
func (c *Cache) Invalidate(dumpID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.DumpID == dumpID {
			delete(c.entries, k)
		}
	}
	filtered := c.order[:0]
	for _, k := range c.order {
		if _, ok := c.entries[k]; ok {
			filtered = append(filtered, k)
		}
	}
	c.order = filtered
}

// EvictLeastRecentlyUsed drops the least-recently-used entry, if any, and
// reports whether anything was evicted.
func (c *Cache) EvictLeastRecentlyUsed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) == 0 {
		return false
	}
	victim := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, victim)
	return true
}

// Len reports the number of cached entries, for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
