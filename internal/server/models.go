package server

import (
	"github.com/nsahraei/newsblend/internal/search"
	"github.com/nsahraei/newsblend/internal/vote"
	"github.com/nsahraei/newsblend/models"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// FeedResponse is one page of blended feed content.
type FeedResponse struct {
	Variant      string               `json:"variant,omitempty"`
	ArticleRatio int                  `json:"article_ratio"`
	VideoRatio   int                  `json:"video_ratio"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	Window       *WindowResponse      `json:"window,omitempty"`
	Items        []models.ContentItem `json:"items"`
}

// WindowResponse echoes the publication window the feed was filtered by.
type WindowResponse struct {
	Since string `json:"since,omitempty"`
	Until string `json:"until,omitempty"`
}

// VoteRequest submits a batch of content votes for the caller's session.
type VoteRequest struct {
	ContentIDs []string `json:"content_ids"`
}

// VoteResponse acknowledges a recorded submission.
type VoteResponse struct {
	SessionID string `json:"session_id"`
	Recorded  int    `json:"recorded"`
}

// LeaderboardResponse lists the most-voted content.
type LeaderboardResponse struct {
	Tallies []vote.Tally `json:"tallies"`
}

// SetFactRequest replaces the daily fact slot.
type SetFactRequest struct {
	ContentID  string   `json:"content_id"`
	Source     string   `json:"source"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// RefreshResponse reports the outcome of an admin refresh.
type RefreshResponse struct {
	Invalidated int `json:"invalidated"`
	Indexed     int `json:"indexed"`
}

// SearchResponse carries ranked catalog search hits.
type SearchResponse struct {
	Query string       `json:"query"`
	Hits  []search.Hit `json:"hits"`
}
