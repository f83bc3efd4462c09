package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nsahraei/newsblend/models"
)

// ContentSource is the read-only accessor for classified content. Both
// methods return items ordered by recency descending; the cache never
// re-sorts within a source.
type ContentSource interface {
	FetchArticles(ctx context.Context, status string, limit, offset int) ([]models.ContentItem, error)
	FetchVideos(ctx context.Context, limit, offset int) ([]models.ContentItem, error)
}

// windowFetchFactor pads upstream fetches for time-bounded requests: window
// filtering happens after the fetch, so bounded windows need extra rows to
// still fill a page.
const windowFetchFactor = 4

// entry is one memoized feed page. Entries are replaced whole, never patched.
type entry struct {
	items      []models.ContentItem
	computedAt time.Time
	expiresAt  time.Time
}

// flight marks a computation in progress for a key. Invalidate flips stale so
// the finished result is still handed to its waiters but not stored.
type flight struct {
	stale bool
}

// Cache memoizes ratio-mixed feed pages per FeedKey. Concurrent misses on the
// same key share a single upstream computation; failures are handed to every
// waiter of that key and never cached.
type Cache struct {
	source ContentSource
	now    func() time.Time
	group  singleflight.Group

	mu       sync.RWMutex
	entries  map[FeedKey]*entry
	inflight map[FeedKey]*flight
}

// NewCache builds a cache over the given source using the wall clock.
func NewCache(source ContentSource) *Cache {
	return &Cache{
		source:   source,
		now:      time.Now,
		entries:  make(map[FeedKey]*entry),
		inflight: make(map[FeedKey]*flight),
	}
}

// Get returns the mixed page for key, computing it at most once per cold key
// regardless of how many callers ask concurrently. The entry stays live for
// ttl from the moment the computation finished. The returned slice is shared
// between callers and must be treated as read-only.
func (c *Cache) Get(ctx context.Context, key FeedKey, ttl time.Duration) ([]models.ContentItem, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidRequest, ttl)
	}

	if items, ok := c.lookup(key); ok {
		recordCacheHit(ctx)
		return items, nil
	}
	recordCacheMiss(ctx)

	v, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
		return c.compute(ctx, key, ttl)
	})
	if shared {
		recordCoalesced(ctx)
	}
	if err != nil {
		return nil, err
	}
	return v.([]models.ContentItem), nil
}

// Invalidate drops every live entry whose key matches pred and marks matching
// in-flight computations stale, so the next Get for a matching key recomputes
// even if its TTL has not elapsed. It returns the number of entries dropped.
func (c *Cache) Invalidate(pred func(FeedKey) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if pred(k) {
			delete(c.entries, k)
			n++
		}
	}
	for k, fl := range c.inflight {
		if pred(k) {
			fl.stale = true
		}
	}
	recordEvictions(n)
	return n
}

// Len reports the number of live entries, expired ones included until their
// next lookup.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// lookup returns a live entry's items, dropping the entry when expired.
func (c *Cache) lookup(key FeedKey) ([]models.ContentItem, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Before(e.expiresAt) {
		return e.items, true
	}
	c.mu.Lock()
	// Re-check: a fresh entry may have replaced the expired one meanwhile.
	if cur, ok := c.entries[key]; ok && cur == e {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil, false
}

// compute runs the fetch-filter-mix pipeline for one key and stores the
// result unless an Invalidate arrived while it ran.
func (c *Cache) compute(ctx context.Context, key FeedKey, ttl time.Duration) ([]models.ContentItem, error) {
	// A computation that finished while this caller queued may have already
	// stored a live entry.
	if items, ok := c.lookup(key); ok {
		return items, nil
	}

	fl := &flight{}
	c.mu.Lock()
	c.inflight[key] = fl
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	need := (key.Page + 1) * key.PageSize
	fetch := need
	if key.WindowSince != 0 || key.WindowUntil != 0 {
		fetch = need * windowFetchFactor
	}

	articles, err := c.source.FetchArticles(ctx, models.StatusPublished, fetch, 0)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	videos, err := c.source.FetchVideos(ctx, fetch, 0)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	mixed, err := Mix(key.filterWindow(articles), key.filterWindow(videos), key.ArticleRatio, key.VideoRatio, need)
	if err != nil {
		return nil, err
	}
	page := paginate(mixed, key.Page, key.PageSize)

	now := c.now()
	c.mu.Lock()
	if !fl.stale {
		c.entries[key] = &entry{items: page, computedAt: now, expiresAt: now.Add(ttl)}
	}
	c.mu.Unlock()
	return page, nil
}

// paginate slices one page out of the mixed sequence. Pages past the end come
// back empty, not nil, so handlers can serialize them as [].
func paginate(items []models.ContentItem, page, size int) []models.ContentItem {
	start := page * size
	if start >= len(items) {
		return []models.ContentItem{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
