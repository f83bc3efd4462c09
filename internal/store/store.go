package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nsahraei/newsblend/internal/feed"
	"github.com/nsahraei/newsblend/internal/vote"
	"github.com/nsahraei/newsblend/models"
)

// Store wraps the Postgres connection pool. It is the ContentSource the feed
// cache and search index read from, and the durable side of votes and facts.
type Store struct {
	DB *sql.DB
}

var _ feed.ContentSource = (*Store)(nil)

// New connects using DATABASE_URL, or composes a DSN from POSTGRES_* vars.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

const contentColumns = `id, kind, title, url, published_at, classification`

// FetchArticles returns articles in the given status, newest first. The id
// tiebreak keeps equal timestamps in a stable order.
func (s *Store) FetchArticles(ctx context.Context, status string, limit, offset int) ([]models.ContentItem, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE kind='article' AND status=$1 ORDER BY published_at DESC, id ASC LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanContentItems(rows)
}

// FetchVideos returns videos newest first. Videos have no draft lifecycle, so
// there is no status filter.
func (s *Store) FetchVideos(ctx context.Context, limit, offset int) ([]models.ContentItem, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE kind='video' ORDER BY published_at DESC, id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanContentItems(rows)
}

func scanContentItems(rows *sql.Rows) ([]models.ContentItem, error) {
	defer rows.Close()
	var out []models.ContentItem
	for rows.Next() {
		var it models.ContentItem
		var classification []byte
		if err := rows.Scan(&it.ID, &it.Kind, &it.Title, &it.URL, &it.PublishedAt, &classification); err != nil {
			return nil, err
		}
		if len(classification) > 0 {
			if err := json.Unmarshal(classification, &it.Classification); err != nil {
				return nil, fmt.Errorf("decode classification for %s: %w", it.ID, err)
			}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// InsertContent writes one classified item, replacing any previous row with
// the same id. A missing id gets a generated one; the chosen id is returned.
func (s *Store) InsertContent(ctx context.Context, item models.ContentItem, status string) (string, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	classification, err := json.Marshal(item.Classification)
	if err != nil {
		return "", fmt.Errorf("encode classification: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO content_items (id, kind, title, url, published_at, classification, status)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  kind           = EXCLUDED.kind,
  title          = EXCLUDED.title,
  url            = EXCLUDED.url,
  published_at   = EXCLUDED.published_at,
  classification = EXCLUDED.classification,
  status         = EXCLUDED.status;
`, item.ID, item.Kind, item.Title, item.URL, item.PublishedAt, classification, status)
	return item.ID, err
}

// SaveDailyFact appends one fact selection. History is kept; LatestDailyFact
// reads the newest row.
func (s *Store) SaveDailyFact(ctx context.Context, f models.DailyFact) error {
	var confidence sql.NullFloat64
	if f.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *f.Confidence, Valid: true}
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO daily_facts (content_id, selected_at, source, confidence) VALUES ($1,$2,$3,$4)`, f.ContentID, f.SelectedAt, f.Source, confidence)
	return err
}

// LatestDailyFact returns the most recent selection, or models.ErrNotFound
// when none has ever been saved.
func (s *Store) LatestDailyFact(ctx context.Context) (models.DailyFact, error) {
	var f models.DailyFact
	var confidence sql.NullFloat64
	err := s.DB.QueryRowContext(ctx, `SELECT content_id, selected_at, source, confidence FROM daily_facts ORDER BY selected_at DESC, id DESC LIMIT 1`).Scan(&f.ContentID, &f.SelectedAt, &f.Source, &confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyFact{}, models.ErrNotFound
	}
	if err != nil {
		return models.DailyFact{}, err
	}
	if confidence.Valid {
		f.Confidence = &confidence.Float64
	}
	return f, nil
}

// UpsertTallies persists a tally snapshot in one round trip. GREATEST keeps
// counts monotonic even when an older snapshot lands after a newer one.
func (s *Store) UpsertTallies(ctx context.Context, tallies []vote.Tally) error {
	if len(tallies) == 0 {
		return nil
	}
	ids := make([]string, len(tallies))
	counts := make([]int64, len(tallies))
	updated := make([]time.Time, len(tallies))
	for i, t := range tallies {
		ids[i] = t.ContentID
		counts[i] = t.Count
		updated[i] = t.LastUpdated
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO vote_tallies (content_id, votes, last_updated)
SELECT * FROM unnest($1::text[], $2::bigint[], $3::timestamptz[])
ON CONFLICT (content_id) DO UPDATE SET
  votes        = GREATEST(vote_tallies.votes, EXCLUDED.votes),
  last_updated = GREATEST(vote_tallies.last_updated, EXCLUDED.last_updated);
`, pq.Array(ids), pq.Array(counts), pq.Array(updated))
	return err
}

// LoadTallies reads every persisted tally, used to seed the ledger at boot.
func (s *Store) LoadTallies(ctx context.Context) ([]vote.Tally, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT content_id, votes, last_updated FROM vote_tallies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []vote.Tally
	for rows.Next() {
		var t vote.Tally
		if err := rows.Scan(&t.ContentID, &t.Count, &t.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
