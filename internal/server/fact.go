package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nsahraei/newsblend/internal/fact"
)

// FactHandler serves the current fact of the day.
type FactHandler struct {
	Selector *fact.Selector
}

func (h *FactHandler) Register(g *echo.Group) {
	g.GET("", h.get)
}

// DailyFact
//
//	@Summary		Get the daily fact
//	@Description	Returns the currently selected fact of the day
//	@Tags			fact
//	@Produce		json
//	@Success		200	{object}	models.DailyFact
//	@Failure		404	{object}	HTTPError
//	@Router			/api/fact [get]
func (h *FactHandler) get(c echo.Context) error {
	f, ok := h.Selector.Current()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no daily fact selected")
	}
	return c.JSON(http.StatusOK, f)
}
