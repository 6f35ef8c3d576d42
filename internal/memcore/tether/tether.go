// Package tether implements the per-thread tether cache that coalesces
// repeated borrows of the same region into a single atomic increment
// (§4.3).
package tether

import "github.com/omnilisp-lang/omnilisp/internal/memcore/region"

const defaultCapacity = 16

type entry struct {
	r     *region.Region
	count int
}

// Cache is a small, strictly thread-local associative array mapping region
// pointers to a local borrow count. It must never be shared across
// threads; callers typically keep one Cache per OS thread alongside its
// scratch.Pair.
type Cache struct {
	entries  []entry
	capacity int
}

// New constructs an empty tether cache with the default 16-entry capacity.
func New() *Cache {
	return &Cache{capacity: defaultCapacity}
}

// NewWithCapacity constructs a tether cache with a caller-chosen capacity.
func NewWithCapacity(capacity int) *Cache {
	return &Cache{capacity: capacity}
}

func (c *Cache) find(r *region.Region) int {
	for i := range c.entries {
		if c.entries[i].r == r {
			return i
		}
	}

	return -1
}

// Start performs tether_start(R): the first start on a region by this
// thread does one atomic increment and records the region in the cache
// with local count 1; subsequent starts on the same region increment only
// the local count. When the cache is full, additional regions fall back to
// uncoalesced atomic semantics (a direct region.TetherStart/TetherEnd pair
// tracked nowhere).
func (c *Cache) Start(r *region.Region) {
	if i := c.find(r); i >= 0 {
		c.entries[i].count++

		return
	}

	if len(c.entries) < c.capacity {
		r.TetherStart()
		c.entries = append(c.entries, entry{r: r, count: 1})

		return
	}

	// Cache full: uncoalesced fallback.
	r.TetherStart()
}

// End performs tether_end(R): the last local end for a cached region
// performs the atomic decrement and evicts the entry. A region not present
// in the cache (because it overflowed capacity) is decremented directly.
func (c *Cache) End(r *region.Region) {
	i := c.find(r)
	if i < 0 {
		r.TetherEnd()

		return
	}

	c.entries[i].count--
	if c.entries[i].count == 0 {
		r.TetherEnd()
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
	}
}

// Len reports the number of distinct regions currently cached, for tests
// and the debug inspector.
func (c *Cache) Len() int { return len(c.entries) }
