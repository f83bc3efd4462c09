package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/nsahraei/newsblend/internal/fact"
	"github.com/nsahraei/newsblend/internal/feed"
	"github.com/nsahraei/newsblend/internal/store"
	"github.com/nsahraei/newsblend/models"
)

const adminToken = "letmein-ops"

func adminTokenHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func adminRequest(method, target, body, token string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	return req
}

func TestAdminSetFactPersistsAndServes(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	selector := fact.NewSelector()
	handler := &AdminHandler{
		Store:     &store.Store{DB: db},
		Selector:  selector,
		Cache:     feed.NewCache(&stubSource{}),
		TokenHash: adminTokenHash(t),
	}

	mock.ExpectExec(`INSERT INTO daily_facts`).
		WithArgs("content-42", sqlmock.AnyArg(), "manual", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := adminRequest(http.MethodPut, "/api/admin/fact", `{"content_id":"content-42","source":"manual"}`, adminToken)
	rec := httptest.NewRecorder()
	if err := handler.requireAdmin(handler.setFact)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("setFact: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	fh := &FactHandler{Selector: selector}
	getReq := httptest.NewRequest(http.MethodGet, "/api/fact", nil)
	getRec := httptest.NewRecorder()
	if err := fh.get(e.NewContext(getReq, getRec)); err != nil {
		t.Fatalf("fact get: %v", err)
	}
	var served models.DailyFact
	if err := json.Unmarshal(getRec.Body.Bytes(), &served); err != nil {
		t.Fatalf("decode fact: %v", err)
	}
	if served.ContentID != "content-42" || served.Source != models.FactSourceManual {
		t.Fatalf("unexpected fact: %+v", served)
	}
	if served.SelectedAt.IsZero() {
		t.Fatalf("expected selected_at to be stamped")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAdminSetFactValidation(t *testing.T) {
	e := echo.New()
	handler := &AdminHandler{
		Selector:  fact.NewSelector(),
		Cache:     feed.NewCache(&stubSource{}),
		TokenHash: adminTokenHash(t),
	}

	cases := []struct {
		name string
		body string
	}{
		{"ai without confidence", `{"content_id":"c1","source":"ai"}`},
		{"manual with confidence", `{"content_id":"c1","source":"manual","confidence":0.5}`},
		{"missing content id", `{"source":"manual"}`},
		{"unknown source", `{"content_id":"c1","source":"oracle"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := adminRequest(http.MethodPut, "/api/admin/fact", tc.body, adminToken)
			rec := httptest.NewRecorder()
			err := handler.requireAdmin(handler.setFact)(e.NewContext(req, rec))
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 error, got %#v", err)
			}
		})
	}

	if _, ok := handler.Selector.Current(); ok {
		t.Fatalf("rejected facts must not land in the slot")
	}
}

func TestAdminRejectsBadToken(t *testing.T) {
	e := echo.New()
	handler := &AdminHandler{
		Selector:  fact.NewSelector(),
		Cache:     feed.NewCache(&stubSource{}),
		TokenHash: adminTokenHash(t),
	}

	req := adminRequest(http.MethodPost, "/api/admin/refresh", "", "wrong-token")
	rec := httptest.NewRecorder()
	err := handler.requireAdmin(handler.refresh)(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 error, got %#v", err)
	}
}

func TestAdminDisabledWithoutHash(t *testing.T) {
	e := echo.New()
	handler := &AdminHandler{
		Selector: fact.NewSelector(),
		Cache:    feed.NewCache(&stubSource{}),
	}

	req := adminRequest(http.MethodPost, "/api/admin/refresh", "", adminToken)
	rec := httptest.NewRecorder()
	err := handler.requireAdmin(handler.refresh)(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 error, got %#v", err)
	}
}

func TestAdminRefreshDropsCachedPages(t *testing.T) {
	e := echo.New()
	src := &stubSource{
		articles: []models.ContentItem{contentItem(models.KindArticle, "a1", 0)},
		videos:   []models.ContentItem{contentItem(models.KindVideo, "v1", 0)},
	}
	cache := feed.NewCache(src)
	handler := &AdminHandler{
		Selector:  fact.NewSelector(),
		Cache:     cache,
		TokenHash: adminTokenHash(t),
	}

	key := feed.NewFeedKey(2, 1, 0, 6, time.Time{}, time.Time{})
	if _, err := cache.Get(context.Background(), key, time.Minute); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	req := adminRequest(http.MethodPost, "/api/admin/refresh", "", adminToken)
	rec := httptest.NewRecorder()
	if err := handler.requireAdmin(handler.refresh)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var resp RefreshResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Invalidated != 1 {
		t.Fatalf("expected 1 invalidated page, got %+v", resp)
	}
	if cache.Len() != 0 {
		t.Fatalf("cache should be empty after refresh, has %d", cache.Len())
	}
}

func TestFactNotSet(t *testing.T) {
	e := echo.New()
	handler := &FactHandler{Selector: fact.NewSelector()}

	req := httptest.NewRequest(http.MethodGet, "/api/fact", nil)
	rec := httptest.NewRecorder()
	err := handler.get(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 error, got %#v", err)
	}
}
