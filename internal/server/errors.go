package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nsahraei/newsblend/internal/fact"
	"github.com/nsahraei/newsblend/internal/feed"
	"github.com/nsahraei/newsblend/internal/search"
	"github.com/nsahraei/newsblend/internal/vote"
	"github.com/nsahraei/newsblend/models"
)

// httpError maps domain errors onto the HTTP status the API promises for
// each failure class: bad input 400, duplicate vote 409, missing record
// 404, unreachable content source 503, everything else 500.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, feed.ErrInvalidRequest),
		errors.Is(err, vote.ErrInvalidVote),
		errors.Is(err, fact.ErrInvalidFact),
		errors.Is(err, search.ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, vote.ErrAlreadyVoted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	var upstream *feed.UpstreamError
	if errors.As(err, &upstream) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// intParam reads an optional integer query parameter.
func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" parameter")
	}
	return v, nil
}

// timeParam reads an optional RFC3339 query parameter.
func timeParam(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" timestamp, want RFC3339")
	}
	return t, nil
}
