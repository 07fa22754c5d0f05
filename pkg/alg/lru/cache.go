// Package lru provides a generic thread-safe LRU cache with optional Bloom
// pre-filtering and byte-size-based eviction.
//
// The generation backends keep one instance per loaded model to memoize
// narration embeddings, and the snapshot store keeps one for decoded take
// payloads on the restore path.
package lru

import (
	"sync"
	"sync/atomic"

	"github.com/Sumatoshi-tech/recut/pkg/alg/bloom"
)

// defaultBloomFPRate is the false-positive rate for the Bloom pre-filter.
// At 1%, almost all definite misses skip lock acquisition.
const defaultBloomFPRate = 0.01

// entry is a doubly-linked list node holding a key-value pair.
type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
	prev  *entry[K, V]
	next  *entry[K, V]
}

// Cache is a thread-safe generic LRU cache. At least one capacity limit
// must be configured.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	head    *entry[K, V] // Most recently used.
	tail    *entry[K, V] // Least recently used.

	maxEntries int
	maxSize    int64
	curSize    int64

	filter     *bloom.Filter
	keyToBytes func(K) []byte
	sizeFunc   func(V) int64

	// Metrics, atomic for lock-free reads.
	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	bloomFiltered atomic.Int64
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithMaxEntries sets the maximum number of entries (count-based eviction).
func WithMaxEntries[K comparable, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.maxEntries = n
	}
}

// WithMaxBytes sets the maximum total value size in bytes and the function
// used to measure each value. Enables size-based eviction.
func WithMaxBytes[K comparable, V any](maxBytes int64, sizeFunc func(V) int64) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.maxSize = maxBytes
		c.sizeFunc = sizeFunc
	}
}

// WithBloomFilter enables a Bloom pre-filter on Get. keyToBytes converts a
// key to bytes for filter hashing; expectedN sizes the filter.
func WithBloomFilter[K comparable, V any](keyToBytes func(K) []byte, expectedN uint) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.keyToBytes = keyToBytes

		// Error is structurally impossible: expectedN is clamped to 1 and
		// the FP rate is a constant inside (0, 1).
		bf, err := bloom.NewWithEstimates(max(expectedN, 1), defaultBloomFPRate)
		if err != nil {
			panic("lru: bloom filter initialization failed: " + err.Error())
		}

		c.filter = bf
	}
}

// New creates an LRU cache. Without any capacity option the cache is
// unbounded, which is almost never what a caller wants.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]*entry[K, V]),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// valueSize measures a value using the configured size function.
func (c *Cache[K, V]) valueSize(v V) int64 {
	if c.sizeFunc == nil {
		return 0
	}

	return c.sizeFunc(v)
}

// moveToFront promotes an existing entry to most recently used. Callers
// hold mu.
func (c *Cache[K, V]) moveToFront(ent *entry[K, V]) {
	if c.head == ent {
		return
	}

	c.unlink(ent)
	c.addToFront(ent)
}

// addToFront links a detached entry as most recently used. Callers hold mu.
func (c *Cache[K, V]) addToFront(ent *entry[K, V]) {
	ent.prev = nil
	ent.next = c.head

	if c.head != nil {
		c.head.prev = ent
	}

	c.head = ent

	if c.tail == nil {
		c.tail = ent
	}
}

// unlink detaches an entry from the list. Callers hold mu.
func (c *Cache[K, V]) unlink(ent *entry[K, V]) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.head = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.tail = ent.prev
	}

	ent.prev = nil
	ent.next = nil
}

// evictUntilFits removes least recently used entries until both capacity
// limits would accommodate an incoming value. Callers hold mu.
func (c *Cache[K, V]) evictUntilFits(incoming int64) {
	for c.tail != nil {
		overEntries := c.maxEntries > 0 && len(c.entries) >= c.maxEntries
		overBytes := c.maxSize > 0 && c.curSize+incoming > c.maxSize

		if !overEntries && !overBytes {
			return
		}

		victim := c.tail
		c.unlink(victim)
		delete(c.entries, victim.key)
		c.curSize -= victim.size
		c.evictions.Add(1)
	}
}
