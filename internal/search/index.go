package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/nsahraei/newsblend/internal/feed"
	"github.com/nsahraei/newsblend/models"
)

// ErrInvalidQuery marks search requests with no query text or a non-positive
// limit.
var ErrInvalidQuery = errors.New("invalid search query")

// Hit is one search result hydrated from the indexed catalog.
type Hit struct {
	ContentID string             `json:"content_id"`
	Kind      models.ContentKind `json:"kind"`
	Title     string             `json:"title"`
	URL       string             `json:"url"`
	Topic     string             `json:"topic"`
	Score     float64            `json:"score"`
	Rank      int                `json:"rank"`
}

// document is the indexable projection of a content item.
type document struct {
	Title     string `json:"title"`
	Topic     string `json:"topic"`
	Kind      string `json:"kind"`
	Sentiment string `json:"sentiment"`
}

// Index is an in-memory full-text index over the published catalog. Rebuild
// swaps the whole index; queries keep serving the previous build while a new
// one is assembled.
type Index struct {
	source feed.ContentSource

	mu   sync.RWMutex
	idx  bleve.Index
	meta map[string]models.ContentItem
}

// New starts with an empty index so queries work before the first rebuild.
func New(source feed.ContentSource) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return &Index{source: source, idx: idx, meta: make(map[string]models.ContentItem)}, nil
}

// Rebuild fetches up to limit items per kind, indexes them into a fresh
// build and swaps it in. On any error the previous build stays live.
func (x *Index) Rebuild(ctx context.Context, limit int) error {
	articles, err := x.source.FetchArticles(ctx, models.StatusPublished, limit, 0)
	if err != nil {
		return fmt.Errorf("search rebuild: %w", err)
	}
	videos, err := x.source.FetchVideos(ctx, limit, 0)
	if err != nil {
		return fmt.Errorf("search rebuild: %w", err)
	}

	fresh, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("search rebuild: %w", err)
	}
	items := make([]models.ContentItem, 0, len(articles)+len(videos))
	items = append(items, articles...)
	items = append(items, videos...)

	meta := make(map[string]models.ContentItem, len(items))
	for _, it := range items {
		doc := document{
			Title:     it.Title,
			Topic:     it.Classification.Topic,
			Kind:      string(it.Kind),
			Sentiment: it.Classification.Sentiment,
		}
		if err := fresh.Index(it.ID, doc); err != nil {
			return fmt.Errorf("search rebuild: index %s: %w", it.ID, err)
		}
		meta[it.ID] = it
	}

	x.mu.Lock()
	old := x.idx
	x.idx = fresh
	x.meta = meta
	x.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Printf("[SEARCH] closing previous build: %v", err)
		}
	}
	return nil
}

// Query runs a query-string search and hydrates up to k hits.
func (x *Index) Query(q string, k int) ([]Hit, error) {
	if q == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrInvalidQuery)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidQuery, k)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for i, h := range res.Hits {
		it, ok := x.meta[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			ContentID: h.ID,
			Kind:      it.Kind,
			Title:     it.Title,
			URL:       it.URL,
			Topic:     it.Classification.Topic,
			Score:     h.Score,
			Rank:      i + 1,
		})
	}
	return hits, nil
}

// Len reports how many items the live build holds.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.meta)
}
