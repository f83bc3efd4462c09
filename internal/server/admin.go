package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/nsahraei/newsblend/internal/fact"
	"github.com/nsahraei/newsblend/internal/feed"
	"github.com/nsahraei/newsblend/internal/search"
	"github.com/nsahraei/newsblend/internal/store"
	"github.com/nsahraei/newsblend/models"
)

// AdminHandler exposes operator endpoints guarded by the admin token.
type AdminHandler struct {
	Store      *store.Store
	Selector   *fact.Selector
	Cache      *feed.Cache
	Search     *search.Index // nil when search is disabled
	TokenHash  string        // bcrypt hash of the admin token
	IndexLimit int
}

func (h *AdminHandler) Register(g *echo.Group) {
	g.Use(h.requireAdmin)
	g.PUT("/fact", h.setFact)
	g.POST("/refresh", h.refresh)
}

func (h *AdminHandler) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.TokenHash == "" {
			return echo.NewHTTPError(http.StatusForbidden, "admin endpoints disabled")
		}
		token := c.Request().Header.Get("X-Admin-Token")
		if bcrypt.CompareHashAndPassword([]byte(h.TokenHash), []byte(token)) != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin token")
		}
		return next(c)
	}
}

// SetFact
//
//	@Summary		Set the daily fact
//	@Description	Replaces the fact of the day atomically and persists the selection
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			X-Admin-Token	header		string			true	"Admin token"
//	@Param			payload			body		SetFactRequest	true	"Fact selection"
//	@Success		200				{object}	models.DailyFact
//	@Failure		400				{object}	HTTPError
//	@Failure		401				{object}	HTTPError
//	@Router			/api/admin/fact [put]
func (h *AdminHandler) setFact(c echo.Context) error {
	var req SetFactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f := models.DailyFact{
		ContentID:  req.ContentID,
		SelectedAt: time.Now().UTC(),
		Source:     models.FactSource(req.Source),
		Confidence: req.Confidence,
	}
	if err := h.Selector.Set(f); err != nil {
		return httpError(err)
	}
	if h.Store != nil {
		if err := h.Store.SaveDailyFact(c.Request().Context(), f); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, f)
}

// Refresh
//
//	@Summary		Refresh cached content
//	@Description	Drops every cached feed page and rebuilds the search index so new content shows up immediately
//	@Tags			admin
//	@Produce		json
//	@Param			X-Admin-Token	header		string	true	"Admin token"
//	@Success		200				{object}	RefreshResponse
//	@Failure		401				{object}	HTTPError
//	@Failure		503				{object}	HTTPError
//	@Router			/api/admin/refresh [post]
func (h *AdminHandler) refresh(c echo.Context) error {
	evicted := h.Cache.Invalidate(func(feed.FeedKey) bool { return true })
	indexed := 0
	if h.Search != nil {
		if err := h.Search.Rebuild(c.Request().Context(), h.IndexLimit); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		indexed = h.Search.Len()
	}
	return c.JSON(http.StatusOK, RefreshResponse{Invalidated: evicted, Indexed: indexed})
}
