// Package thumbs implements the content-addressed, size-bounded thumbnail
// cache. Entries are keyed by (image path, max pixel dimension) and evicted
// by recency when the entry-count or byte-cost ceiling is exceeded.
package thumbs

import (
	"container/list"
	"fmt"
	"strconv"
	"sync"

	"github.com/rewdy/snaption/internal/metrics"
)

// Renderer produces encoded thumbnail bytes for an image file.
type Renderer func(path string, maxDim int) ([]byte, error)

// Stats is the instrumentation snapshot. Counters are monotonic for the
// lifetime of a project session and reset explicitly on project reload.
type Stats struct {
	Requests       int `json:"requests"`
	Hits           int `json:"hits"`
	Misses         int `json:"misses"`
	TrackedEntries int `json:"tracked_entries"`
}

// Options bound the cache.
type Options struct {
	MaxEntries int
	MaxBytes   int64
}

// DefaultOptions mirror a grid of ~900 on-screen tiles at 256 MB.
func DefaultOptions() Options {
	return Options{MaxEntries: 900, MaxBytes: 256 << 20}
}

type entry struct {
	key  string
	data []byte
}

// Cache is safe for concurrent use from any goroutine.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	maxBytes   int64
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	bytes      int64
	requests   int
	hits       int
	misses     int
	tracked    map[string]struct{}
	render     Renderer
}

// NewCache creates a cache that decodes thumbnails from disk.
func NewCache(opts Options) *Cache {
	return NewCacheWithRenderer(opts, renderThumbnail)
}

// NewCacheWithRenderer creates a cache with a custom renderer.
func NewCacheWithRenderer(opts Options, render Renderer) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultOptions().MaxEntries
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultOptions().MaxBytes
	}
	return &Cache{
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		tracked:    make(map[string]struct{}),
		render:     render,
	}
}

// Thumbnail returns encoded thumbnail bytes for (path, maxDim), generating
// and memoizing them on first request. A decode failure returns an error;
// the caller shows a placeholder.
func (c *Cache) Thumbnail(path string, maxDim int) ([]byte, error) {
	key := path + "#" + strconv.Itoa(maxDim)

	c.mu.Lock()
	c.requests++
	metrics.ThumbnailRequestsTotal.Inc()
	if el, ok := c.entries[key]; ok {
		c.hits++
		metrics.ThumbnailHitsTotal.Inc()
		c.order.MoveToFront(el)
		data := el.Value.(*entry).data
		c.mu.Unlock()
		return data, nil
	}
	c.misses++
	metrics.ThumbnailMissesTotal.Inc()
	c.mu.Unlock()

	// Decode outside the lock; concurrent first requests for the same key
	// may both decode, the second store wins harmlessly.
	data, err := c.render(path, maxDim)
	if err != nil {
		return nil, fmt.Errorf("thumbs: %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry).data, nil
	}
	el := c.order.PushFront(&entry{key: key, data: data})
	c.entries[key] = el
	c.bytes += int64(len(data))
	c.tracked[key] = struct{}{}
	c.evictLocked()
	metrics.ThumbnailCacheEntries.Set(float64(len(c.entries)))
	metrics.ThumbnailCacheBytes.Set(float64(c.bytes))
	return data, nil
}

// evictLocked drops least-recently-used entries until both bounds hold.
func (c *Cache) evictLocked() {
	for (len(c.entries) > c.maxEntries || c.bytes > c.maxBytes) && c.order.Len() > 0 {
		back := c.order.Back()
		e := back.Value.(*entry)
		c.order.Remove(back)
		delete(c.entries, e.key)
		c.bytes -= int64(len(e.data))
	}
}

// Stats returns the current instrumentation snapshot.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Requests:       c.requests,
		Hits:           c.hits,
		Misses:         c.misses,
		TrackedEntries: len(c.tracked),
	}
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset clears cache contents and all counters atomically with respect to
// concurrent readers; called on project reload.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
	c.tracked = make(map[string]struct{})
	c.bytes = 0
	c.requests = 0
	c.hits = 0
	c.misses = 0
	metrics.ThumbnailCacheEntries.Set(0)
	metrics.ThumbnailCacheBytes.Set(0)
}
