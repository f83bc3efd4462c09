package feed

import (
	"fmt"
	"time"

	"github.com/nsahraei/newsblend/models"
)

// FeedKey identifies one memoizable feed computation. Two requests that build
// the same key share one cache entry. Window bounds are kept as unix seconds
// so keys compare structurally and can serve as map keys.
type FeedKey struct {
	ArticleRatio int
	VideoRatio   int
	Page         int
	PageSize     int
	// WindowSince and WindowUntil bound PublishedAt as [since, until).
	// Zero means unbounded on that side.
	WindowSince int64
	WindowUntil int64
}

// NewFeedKey builds a key from request parameters. Zero time values leave the
// corresponding window side open.
func NewFeedKey(articleRatio, videoRatio, page, pageSize int, since, until time.Time) FeedKey {
	k := FeedKey{
		ArticleRatio: articleRatio,
		VideoRatio:   videoRatio,
		Page:         page,
		PageSize:     pageSize,
	}
	if !since.IsZero() {
		k.WindowSince = since.Unix()
	}
	if !until.IsZero() {
		k.WindowUntil = until.Unix()
	}
	return k
}

// Validate rejects keys no computation could satisfy.
func (k FeedKey) Validate() error {
	if k.ArticleRatio <= 0 || k.VideoRatio <= 0 {
		return fmt.Errorf("%w: ratio must be positive on both sides, got %d:%d", ErrInvalidRequest, k.ArticleRatio, k.VideoRatio)
	}
	if k.Page < 0 {
		return fmt.Errorf("%w: page must not be negative, got %d", ErrInvalidRequest, k.Page)
	}
	if k.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidRequest, k.PageSize)
	}
	if k.WindowSince != 0 && k.WindowUntil != 0 && k.WindowUntil < k.WindowSince {
		return fmt.Errorf("%w: window closes before it opens", ErrInvalidRequest)
	}
	return nil
}

// String renders a stable identifier used for request coalescing and logs.
func (k FeedKey) String() string {
	return fmt.Sprintf("%d:%d:p%d:s%d:w%d-%d", k.ArticleRatio, k.VideoRatio, k.Page, k.PageSize, k.WindowSince, k.WindowUntil)
}

// inWindow reports whether an item's publication time falls inside the key's
// half-open window.
func (k FeedKey) inWindow(it models.ContentItem) bool {
	ts := it.PublishedAt.Unix()
	if k.WindowSince != 0 && ts < k.WindowSince {
		return false
	}
	if k.WindowUntil != 0 && ts >= k.WindowUntil {
		return false
	}
	return true
}

// filterWindow keeps only the items inside the key's window, preserving
// order. With both sides open it returns the input untouched.
func (k FeedKey) filterWindow(items []models.ContentItem) []models.ContentItem {
	if k.WindowSince == 0 && k.WindowUntil == 0 {
		return items
	}
	out := make([]models.ContentItem, 0, len(items))
	for _, it := range items {
		if k.inWindow(it) {
			out = append(out, it)
		}
	}
	return out
}
