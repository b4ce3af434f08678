// Package cache keeps decoded vector rasters resident between recomputes so
// large fields need not be resent or re-decoded on every pan or zoom.
//
// The cache is an explicit object owned by the caller. Consumers pin an
// entry with Acquire and unpin it with Handle.Release. Pinned entries are
// never evicted; unpinned entries are evicted least recently used first once
// more than the configured capacity of them accumulate.
//
//	fc := cache.NewFieldCache(8)
//	fc.Put("wind", f)
//	h, err := fc.Acquire("wind")
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//	lines, err := streamline.Build(h.Field(), settings)
package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/flowline/internal/field"
)

// DefaultCapacity is the default number of unpinned fields kept resident.
const DefaultCapacity = 16

// ErrUnknownField is returned by Acquire for ids that are not cached.
var ErrUnknownField = errors.New("cache: unknown field id")

// FieldCache maps opaque ids to fields.
//
// FieldCache is safe for concurrent use and must not be copied.
type FieldCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	capacity int
	tick     uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type entry struct {
	id    string
	field *field.Field
	refs  int
	atime uint64

	// removed marks an entry replaced or removed while pinned; its handles
	// stay valid but it is no longer reachable by id.
	removed bool
}

// Handle pins one cached field until released.
type Handle struct {
	cache    *FieldCache
	entry    *entry
	released atomic.Bool
}

// Field returns the pinned field.
func (h *Handle) Field() *field.Field {
	return h.entry.field
}

// ID returns the id the field was acquired under.
func (h *Handle) ID() string {
	return h.entry.id
}

// Release unpins the field. Calling Release more than once is a no-op.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	h.cache.release(h.entry)
}

// NewFieldCache creates a cache keeping up to capacity unpinned fields.
// If capacity <= 0, DefaultCapacity is used.
func NewFieldCache(capacity int) *FieldCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FieldCache{
		entries:  make(map[string]*entry),
		capacity: capacity,
	}
}

// Put stores f under id, replacing any previous field. Handles on the old
// field remain valid.
func (c *FieldCache) Put(id string, f *field.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[id]; ok {
		old.removed = true
	}
	c.tick++
	c.entries[id] = &entry{id: id, field: f, atime: c.tick}
	c.evict()
}

// Acquire pins the field stored under id.
func (c *FieldCache) Acquire(id string) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		c.misses.Add(1)
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	c.hits.Add(1)
	c.tick++
	e.atime = c.tick
	e.refs++
	return &Handle{cache: c, entry: e}, nil
}

// Contains reports whether id is cached, without touching recency.
func (c *FieldCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Remove drops id from the cache. Outstanding handles remain valid.
// It returns false if id was not cached.
func (c *FieldCache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return false
	}
	e.removed = true
	delete(c.entries, id)
	return true
}

func (c *FieldCache) release(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.refs--
	if !e.removed {
		c.evict()
	}
}

// evict drops the least recently used unpinned entries until at most
// capacity of them remain. Caller must hold c.mu.
func (c *FieldCache) evict() {
	for {
		var oldest *entry
		unpinned := 0
		for _, e := range c.entries {
			if e.refs > 0 {
				continue
			}
			unpinned++
			if oldest == nil || e.atime < oldest.atime {
				oldest = e
			}
		}
		if unpinned <= c.capacity || oldest == nil {
			return
		}
		oldest.removed = true
		delete(c.entries, oldest.id)
		c.evictions.Add(1)
	}
}

// Len returns the number of cached fields, pinned or not.
func (c *FieldCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Pinned    int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns current statistics.
func (c *FieldCache) Stats() Stats {
	c.mu.Lock()
	pinned := 0
	for _, e := range c.entries {
		if e.refs > 0 {
			pinned++
		}
	}
	s := Stats{Len: len(c.entries), Pinned: pinned, Capacity: c.capacity}
	c.mu.Unlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Evictions = c.evictions.Load()
	return s
}
