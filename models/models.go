package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ContentKind distinguishes the two content streams the platform blends.
type ContentKind string

const (
	KindArticle ContentKind = "article"
	KindVideo   ContentKind = "video"
)

// Article publication statuses as written by the ingest pipeline.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
	StatusArchived  = "archived"
)

// Classification is the per-item bundle produced by the external AI pipeline.
// It is stored and served as-is; nothing in this repo rewrites it.
type Classification struct {
	Topic       string                 `json:"topic"`
	Sentiment   string                 `json:"sentiment"`
	Credibility float64                `json:"credibility"`
	Urgency     float64                `json:"urgency"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// ContentItem is one classified article or video as read from the datastore.
// Items are immutable once fetched; feed assembly references them and never
// rewrites them.
type ContentItem struct {
	ID             string         `json:"id"`
	Kind           ContentKind    `json:"kind"`
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	PublishedAt    time.Time      `json:"published_at"`
	Classification Classification `json:"classification"`
}

// FactSource tags how a daily fact was chosen.
type FactSource string

const (
	FactSourceAI     FactSource = "ai"
	FactSourceManual FactSource = "manual"
)

// DailyFact is the single "fact of the day" slot. A replacement supersedes
// the previous fact whole; facts are never mutated in place.
type DailyFact struct {
	ContentID  string     `json:"content_id"`
	SelectedAt time.Time  `json:"selected_at"`
	Source     FactSource `json:"source"`
	Confidence *float64   `json:"confidence,omitempty"`
}
