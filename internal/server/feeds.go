package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nsahraei/newsblend/config"
	"github.com/nsahraei/newsblend/internal/feed"
)

// FeedsHandler serves blended article/video feed pages.
type FeedsHandler struct {
	Cache *feed.Cache
	Feeds config.FeedsConfig
}

func (h *FeedsHandler) Register(g *echo.Group) {
	g.GET("", h.get)
	g.GET("/custom", h.custom)
}

// Feed
//
//	@Summary		Get a feed page
//	@Description	Returns one page of a named feed variant, articles and videos interleaved by the variant's ratio
//	@Tags			feed
//	@Produce		json
//	@Param			variant	query		string	false	"Feed variant name"
//	@Param			page	query		int		false	"Zero-based page"
//	@Success		200		{object}	FeedResponse
//	@Failure		400		{object}	HTTPError
//	@Failure		404		{object}	HTTPError
//	@Failure		503		{object}	HTTPError
//	@Router			/api/feed [get]
func (h *FeedsHandler) get(c echo.Context) error {
	name := c.QueryParam("variant")
	if name == "" {
		name = h.Feeds.DefaultVariant
	}
	variant, ok := h.Feeds.Variants[name]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown feed variant: "+name)
	}
	page, err := intParam(c, "page", 0)
	if err != nil {
		return err
	}
	key := feed.NewFeedKey(variant.ArticleRatio, variant.VideoRatio, page, variant.PageSize, time.Time{}, time.Time{})
	items, err := h.Cache.Get(c.Request().Context(), key, variant.TTL)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, FeedResponse{
		Variant:      name,
		ArticleRatio: variant.ArticleRatio,
		VideoRatio:   variant.VideoRatio,
		Page:         page,
		PageSize:     variant.PageSize,
		Items:        items,
	})
}

// CustomFeed
//
//	@Summary		Get an ad-hoc feed page
//	@Description	Blends articles and videos with caller-chosen ratios, page size and optional publication window
//	@Tags			feed
//	@Produce		json
//	@Param			articles	query		int		false	"Articles per block"
//	@Param			videos		query		int		false	"Videos per block"
//	@Param			page		query		int		false	"Zero-based page"
//	@Param			size		query		int		false	"Page size"
//	@Param			since		query		string	false	"Window start, RFC3339 inclusive"
//	@Param			until		query		string	false	"Window end, RFC3339 exclusive"
//	@Success		200			{object}	FeedResponse
//	@Failure		400			{object}	HTTPError
//	@Failure		503			{object}	HTTPError
//	@Router			/api/feed/custom [get]
func (h *FeedsHandler) custom(c echo.Context) error {
	articles, err := intParam(c, "articles", 2)
	if err != nil {
		return err
	}
	videos, err := intParam(c, "videos", 1)
	if err != nil {
		return err
	}
	page, err := intParam(c, "page", 0)
	if err != nil {
		return err
	}
	size, err := intParam(c, "size", 20)
	if err != nil {
		return err
	}
	if articles > h.Feeds.MaxRatio || videos > h.Feeds.MaxRatio {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("ratio above limit %d", h.Feeds.MaxRatio))
	}
	if size > h.Feeds.MaxPageSize {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("page size above limit %d", h.Feeds.MaxPageSize))
	}
	since, err := timeParam(c, "since")
	if err != nil {
		return err
	}
	until, err := timeParam(c, "until")
	if err != nil {
		return err
	}
	key := feed.NewFeedKey(articles, videos, page, size, since, until)
	items, err := h.Cache.Get(c.Request().Context(), key, h.Feeds.CustomTTL)
	if err != nil {
		return httpError(err)
	}
	resp := FeedResponse{
		ArticleRatio: articles,
		VideoRatio:   videos,
		Page:         page,
		PageSize:     size,
		Items:        items,
	}
	if !since.IsZero() || !until.IsZero() {
		w := &WindowResponse{}
		if !since.IsZero() {
			w.Since = since.UTC().Format(time.RFC3339)
		}
		if !until.IsZero() {
			w.Until = until.UTC().Format(time.RFC3339)
		}
		resp.Window = w
	}
	return c.JSON(http.StatusOK, resp)
}
