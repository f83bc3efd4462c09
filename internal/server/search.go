package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nsahraei/newsblend/internal/search"
)

// SearchHandler serves full-text catalog search.
type SearchHandler struct {
	Index *search.Index
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.GET("", h.query)
}

// Search
//
//	@Summary		Search content
//	@Description	Full-text search over indexed titles and topics
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Query string"
//	@Param			limit	query		int		false	"Maximum hits"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	HTTPError
//	@Router			/api/search [get]
func (h *SearchHandler) query(c echo.Context) error {
	limit, err := intParam(c, "limit", 10)
	if err != nil {
		return err
	}
	hits, err := h.Index.Query(c.QueryParam("q"), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: c.QueryParam("q"), Hits: hits})
}
