package cache

import (
	"fmt"
	"slices"
	"sync"
)

// entry is the per-key state. value always holds a Snapshot[T] for the T
// the key was first written with.
type entry struct {
	value any
	// version is bumped on every write.
	version uint64
	// appliedSeq is the issuance sequence of the last write.
	appliedSeq uint64
	// generation is bumped on every invalidation.
	generation uint64
}

// Cache is an in-memory keyed store of collection snapshots. It never
// touches the network. All methods are safe for concurrent use; the
// generic helpers Get, Set, SetAt and Update are the typed accessors.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	// seq is the issuance counter shared by all keys, so sequence numbers
	// from different keys are still ordered.
	seq uint64

	subMu     sync.RWMutex
	subs      map[int]func(Key)
	nextSubID int
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		subs:    make(map[int]func(Key)),
	}
}

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Reserve returns the next issuance sequence number. Writers that will
// store a value later (fetches) reserve one before suspending on the
// network and pass it to SetAt.
func (c *Cache) Reserve() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Version returns the write version of key, 0 if it was never written.
func (c *Cache) Version(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.version
	}
	return 0
}

// Generation returns how many times key has been invalidated.
func (c *Cache) Generation(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.generation
	}
	return 0
}

// Invalidate marks the snapshot under key stale. The data is kept so it
// can still be served alongside a failed refetch.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	e.generation++
	if s, ok := e.value.(interface{ markStale() any }); ok {
		e.value = s.markStale()
	}
}

func (s Snapshot[T]) markStale() any {
	s.Stale = true
	return s
}

// Delete drops the value under key. Fetches issued before the call can
// no longer store into it.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.dropLocked(e)
	}
	c.mu.Unlock()
	if ok {
		c.notify(key)
	}
}

// Clear drops every value, e.g. on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.entries))
	for k, e := range c.entries {
		c.dropLocked(e)
		keys = append(keys, k)
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.notify(k)
	}
}

// dropLocked empties e but keeps its counters moving forward, so stale
// writers and in-flight fetches stay ordered behind the drop.
func (c *Cache) dropLocked(e *entry) {
	c.seq++
	e.value = nil
	e.version++
	e.generation++
	e.appliedSeq = c.seq
}

// Keys returns the keys currently holding a value, sorted.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.entries))
	for k, e := range c.entries {
		if e.value != nil {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Subscribe registers fn to be called with the key after every write.
// Calls happen outside the cache lock, on the writer's goroutine.
func (c *Cache) Subscribe(fn func(Key)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Cache) notify(key Key) {
	c.subMu.RLock()
	fns := make([]func(Key), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.RUnlock()
	for _, fn := range fns {
		fn(key)
	}
}

func getLocked[T any](e *entry, key Key) (Snapshot[T], bool) {
	if e == nil || e.value == nil {
		return Snapshot[T]{}, false
	}
	s, ok := e.value.(Snapshot[T])
	if !ok {
		panic(fmt.Sprintf("cache: key %q holds %T, not Snapshot[%T]", key, e.value, *new(T)))
	}
	return s, true
}

// Get returns the snapshot stored under key.
func Get[T any](c *Cache, key Key) (Snapshot[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return getLocked[T](c.entries[key], key)
}

// Set stores snap under key unconditionally and notifies subscribers.
func Set[T any](c *Cache, key Key, snap Snapshot[T]) {
	c.mu.Lock()
	c.seq++
	e := c.entryLocked(key)
	e.value = snap
	e.version++
	e.appliedSeq = c.seq
	c.mu.Unlock()
	c.notify(key)
}

// SetAt stores snap only if seq was issued after the last write to key.
// It reports whether the write was applied; a false return means a newer
// write already landed and snap is stale by issuance order.
func SetAt[T any](c *Cache, key Key, snap Snapshot[T], seq uint64) bool {
	c.mu.Lock()
	e := c.entryLocked(key)
	if seq <= e.appliedSeq {
		c.mu.Unlock()
		return false
	}
	e.value = snap
	e.version++
	e.appliedSeq = seq
	c.mu.Unlock()
	c.notify(key)
	return true
}

// Entry is what Update hands to its callback: the current snapshot,
// whether one is present, the key's write version and its invalidation
// generation.
type Entry[T any] struct {
	Snapshot   Snapshot[T]
	Present    bool
	Version    uint64
	Generation uint64
}

// Update atomically replaces the snapshot under key with fn's result.
// Returning write=false leaves the cache untouched. Update returns the
// entry fn saw and the key's version after the call.
//
// fn runs under the cache lock and must not call back into the cache.
func Update[T any](c *Cache, key Key, fn func(cur Entry[T]) (next Snapshot[T], write bool)) (prior Entry[T], version uint64) {
	c.mu.Lock()
	e := c.entryLocked(key)
	snap, ok := getLocked[T](e, key)
	prior = Entry[T]{Snapshot: snap, Present: ok, Version: e.version, Generation: e.generation}
	next, write := fn(prior)
	if write {
		c.seq++
		e.value = next
		e.version++
		e.appliedSeq = c.seq
	}
	version = e.version
	c.mu.Unlock()
	if write {
		c.notify(key)
	}
	return prior, version
}

// Restore puts prior back under key, including its absence, but only if
// the key's version still equals ifVersion. It reports whether the
// restore happened; false means another write landed in between. An
// invalidation since prior was taken survives: the restored snapshot
// comes back stale.
func Restore[T any](c *Cache, key Key, prior Entry[T], ifVersion uint64) bool {
	c.mu.Lock()
	e := c.entryLocked(key)
	if e.version != ifVersion {
		c.mu.Unlock()
		return false
	}
	c.seq++
	if prior.Present {
		if e.generation != prior.Generation {
			prior.Snapshot.Stale = true
		}
		e.value = prior.Snapshot
	} else {
		e.value = nil
	}
	e.version++
	e.appliedSeq = c.seq
	c.mu.Unlock()
	c.notify(key)
	return true
}
