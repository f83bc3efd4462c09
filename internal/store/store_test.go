package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/nsahraei/newsblend/internal/vote"
	"github.com/nsahraei/newsblend/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{DB: db}, mock
}

func TestFetchArticles(t *testing.T) {
	s, mock := newMockStore(t)

	published := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "kind", "title", "url", "published_at", "classification"}).
		AddRow("a1", "article", "Solar farms expand", "https://example.com/a1", published, []byte(`{"topic":"energy","sentiment":"positive","credibility":0.9,"urgency":0.2}`)).
		AddRow("a2", "article", "Budget vote delayed", "https://example.com/a2", published.Add(-time.Hour), nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM content_items WHERE kind='article' AND status=$1 ORDER BY published_at DESC, id ASC LIMIT $2 OFFSET $3`)).
		WithArgs(models.StatusPublished, 10, 0).
		WillReturnRows(rows)

	items, err := s.FetchArticles(context.Background(), models.StatusPublished, 10, 0)
	if err != nil {
		t.Fatalf("fetch articles: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "a1" || items[0].Classification.Topic != "energy" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Classification.Topic != "" {
		t.Fatalf("null classification should decode empty, got %+v", items[1].Classification)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFetchVideos(t *testing.T) {
	s, mock := newMockStore(t)

	published := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "kind", "title", "url", "published_at", "classification"}).
		AddRow("v1", "video", "Factory tour", "https://example.com/v1", published, []byte(`{"topic":"industry","sentiment":"neutral","credibility":0.7,"urgency":0.1}`))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM content_items WHERE kind='video' ORDER BY published_at DESC, id ASC LIMIT $1 OFFSET $2`)).
		WithArgs(5, 0).
		WillReturnRows(rows)

	items, err := s.FetchVideos(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("fetch videos: %v", err)
	}
	if len(items) != 1 || items[0].Kind != models.KindVideo {
		t.Fatalf("unexpected items: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFetchArticlesPropagatesError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM content_items").WillReturnError(errors.New("connection refused"))

	if _, err := s.FetchArticles(context.Background(), models.StatusPublished, 10, 0); err == nil {
		t.Fatalf("expected query error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertContent(t *testing.T) {
	s, mock := newMockStore(t)

	published := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := models.ContentItem{
		Kind:        models.KindArticle,
		Title:       "Solar farms expand",
		URL:         "https://example.com/a1",
		PublishedAt: published,
		Classification: models.Classification{
			Topic: "energy", Sentiment: "positive", Credibility: 0.9, Urgency: 0.2,
		},
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO content_items`)).
		WithArgs(sqlmock.AnyArg(), item.Kind, item.Title, item.URL, published, []byte(`{"topic":"energy","sentiment":"positive","credibility":0.9,"urgency":0.2}`), models.StatusPublished).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.InsertContent(context.Background(), item, models.StatusPublished)
	if err != nil {
		t.Fatalf("insert content: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveDailyFact(t *testing.T) {
	s, mock := newMockStore(t)

	selected := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO daily_facts (content_id, selected_at, source, confidence) VALUES ($1,$2,$3,$4)`)).
		WithArgs("c1", selected, "manual", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.SaveDailyFact(context.Background(), models.DailyFact{
		ContentID:  "c1",
		SelectedAt: selected,
		Source:     models.FactSourceManual,
	})
	if err != nil {
		t.Fatalf("save fact: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLatestDailyFact(t *testing.T) {
	s, mock := newMockStore(t)

	selected := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"content_id", "selected_at", "source", "confidence"}).
		AddRow("c1", selected, "ai", 0.93)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT content_id, selected_at, source, confidence FROM daily_facts ORDER BY selected_at DESC, id DESC LIMIT 1`)).
		WillReturnRows(rows)

	f, err := s.LatestDailyFact(context.Background())
	if err != nil {
		t.Fatalf("latest fact: %v", err)
	}
	if f.ContentID != "c1" || f.Source != models.FactSourceAI {
		t.Fatalf("unexpected fact: %+v", f)
	}
	if f.Confidence == nil || *f.Confidence != 0.93 {
		t.Fatalf("expected confidence 0.93, got %v", f.Confidence)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLatestDailyFactEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM daily_facts").WillReturnError(sql.ErrNoRows)

	if _, err := s.LatestDailyFact(context.Background()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertTallies(t *testing.T) {
	s, mock := newMockStore(t)

	updated := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	tallies := []vote.Tally{
		{ContentID: "a", Count: 3, LastUpdated: updated},
		{ContentID: "b", Count: 1, LastUpdated: updated.Add(-time.Minute)},
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vote_tallies (content_id, votes, last_updated)`)).
		WithArgs(pq.Array([]string{"a", "b"}), pq.Array([]int64{3, 1}), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := s.UpsertTallies(context.Background(), tallies); err != nil {
		t.Fatalf("upsert tallies: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertTalliesEmptyIsNoop(t *testing.T) {
	s, mock := newMockStore(t)

	if err := s.UpsertTallies(context.Background(), nil); err != nil {
		t.Fatalf("empty upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadTallies(t *testing.T) {
	s, mock := newMockStore(t)

	updated := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"content_id", "votes", "last_updated"}).
		AddRow("a", int64(3), updated).
		AddRow("b", int64(1), updated.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT content_id, votes, last_updated FROM vote_tallies`)).
		WillReturnRows(rows)

	tallies, err := s.LoadTallies(context.Background())
	if err != nil {
		t.Fatalf("load tallies: %v", err)
	}
	if len(tallies) != 2 || tallies[0].ContentID != "a" || tallies[0].Count != 3 {
		t.Fatalf("unexpected tallies: %+v", tallies)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
