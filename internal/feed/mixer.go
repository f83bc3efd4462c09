package feed

import (
	"fmt"

	"github.com/nsahraei/newsblend/models"
)

// Mix interleaves two ranked streams in blocks of articleRatio articles
// followed by videoRatio videos. Once either stream runs out the other keeps
// flowing until limit or exhaustion, so a 2:1 mix of four articles and two
// videos yields a1 a2 v1 a3 a4 v2. Relative order within each input is
// preserved and the result length is min(limit, len(articles)+len(videos)).
func Mix(articles, videos []models.ContentItem, articleRatio, videoRatio, limit int) ([]models.ContentItem, error) {
	if articleRatio <= 0 || videoRatio <= 0 {
		return nil, fmt.Errorf("%w: ratio must be positive on both sides, got %d:%d", ErrInvalidRequest, articleRatio, videoRatio)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidRequest, limit)
	}

	total := len(articles) + len(videos)
	if total > limit {
		total = limit
	}
	out := make([]models.ContentItem, 0, total)

	var i, j int
	for i < len(articles) && j < len(videos) && len(out) < limit {
		out, i = takeBlock(out, articles, i, articleRatio, limit)
		out, j = takeBlock(out, videos, j, videoRatio, limit)
	}
	// Drain: exactly one stream can still have items here.
	for i < len(articles) && len(out) < limit {
		out, i = takeBlock(out, articles, i, articleRatio, limit)
	}
	for j < len(videos) && len(out) < limit {
		out, j = takeBlock(out, videos, j, videoRatio, limit)
	}
	return out, nil
}

// takeBlock appends up to size items from src starting at start, stopping
// early at limit, and returns the advanced cursor.
func takeBlock(out, src []models.ContentItem, start, size, limit int) ([]models.ContentItem, int) {
	for n := 0; n < size && start < len(src) && len(out) < limit; n++ {
		out = append(out, src[start])
		start++
	}
	return out, start
}
