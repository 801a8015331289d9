// Package certcache implements the certificate cache (C5): certificates
// fetched during validation are kept warm under a TTL keyed by name, so a
// chain revisited shortly after doesn't refetch every intermediate.
package certcache

import (
	"sync"
	"time"

	"trustschema/pkg/cache"
	"trustschema/pkg/cert"
	"trustschema/pkg/metrics"
	"trustschema/pkg/ndn"
)

// entry pairs a cached certificate with the timer scheduled to evict it.
type entry struct {
	cert  *cert.Certificate
	timer *time.Timer
}

// defaultCapacity bounds a Cache built with New, for call sites that don't
// care about sizing the backing store explicitly.
const defaultCapacity = 10000

// Cache is TTL-indexed by key name, backed by pkg/cache.LRUCache so a burst
// of fetches inside one TTL window can't grow memory without bound while
// the scheduled per-entry evictions catch up. Eviction is still driven
// primarily by the per-entry timer, not LRU pressure — the LRU capacity is
// a backstop, not the intended eviction path.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries *cache.LRUCache[string, *entry]
	metrics *metrics.Registry
}

func New(ttl time.Duration) *Cache {
	return NewWithCapacity(ttl, defaultCapacity)
}

// NewWithCapacity builds a Cache whose backing LRU store holds at most
// maxEntries certificates regardless of how much of the TTL window remains.
func NewWithCapacity(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{ttl: ttl, entries: cache.NewLRUCache[string, *entry](maxEntries)}
}

// SetMetrics attaches a metrics registry after construction, so existing
// call sites that don't care about observability are unaffected.
func (ch *Cache) SetMetrics(r *metrics.Registry) { ch.metrics = r }

func keyFor(name ndn.Name) string { return name.String() }

// Put inserts c under its key name (its name with the trailing version
// component stripped), scheduling eviction ttl from now — the same
// index Get looks up by a signature's key locator. Re-inserting the same
// key name cancels and replaces the previous timer.
func (ch *Cache) Put(c *cert.Certificate) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	key := keyFor(c.KeyName())
	if old, ok := ch.entries.Get(key); ok {
		old.timer.Stop()
	}
	e := &entry{cert: c}
	e.timer = time.AfterFunc(ch.ttl, func() { ch.evict(key) })
	ch.entries.Put(key, e)
	if ch.metrics != nil {
		ch.metrics.SetCacheSize(ch.entries.Size())
	}
}

func (ch *Cache) evict(key string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.entries.Remove(key) {
		return
	}
	if ch.metrics != nil {
		ch.metrics.RecordCacheEviction("ttl")
		ch.metrics.SetCacheSize(ch.entries.Size())
	}
}

// Get looks a certificate up by key name (the name a signature's key
// locator carries); a full certificate name does not hit.
func (ch *Cache) Get(name ndn.Name) (*cert.Certificate, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	e, ok := ch.entries.Get(keyFor(name))
	if ch.metrics != nil {
		if ok {
			ch.metrics.RecordCacheHit()
		} else {
			ch.metrics.RecordCacheMiss()
		}
	}
	if !ok {
		return nil, false
	}
	return e.cert, true
}

// Reset empties the cache, cancelling every scheduled deletion first so
// none of them later fire against a store that has already moved on.
func (ch *Cache) Reset() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.entries.IterateAll(func(_ string, e *entry) bool {
		e.timer.Stop()
		return true
	})
	ch.entries.Clear()
}

func (ch *Cache) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.entries.Size()
}
