package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/nsahraei/newsblend/config"
	"github.com/nsahraei/newsblend/internal/vote"
)

// VotesHandler records community votes and serves the leaderboard.
type VotesHandler struct {
	Ledger *vote.Ledger
	Secret []byte
	Votes  config.VotesConfig
}

// Register wires the vote routes. Submissions are rate limited per client
// IP; rateLimit <= 0 disables the limiter (tests).
func (h *VotesHandler) Register(g *echo.Group, rateLimit float64, burst int) {
	if rateLimit > 0 {
		g.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(rateLimit),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}
	g.POST("", h.submit)
	g.GET("/leaderboard", h.leaderboard)
}

// SubmitVotes
//
//	@Summary		Submit votes
//	@Description	Records votes for one or more content ids against the caller's session; the whole batch succeeds or fails
//	@Tags			votes
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		VoteRequest	true	"Content ids to vote for"
//	@Success		201		{object}	VoteResponse
//	@Failure		400		{object}	HTTPError
//	@Failure		409		{object}	HTTPError
//	@Router			/api/votes [post]
func (h *VotesHandler) submit(c echo.Context) error {
	var req VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sessionID, err := ensureSession(c, h.Secret, h.Votes.SessionWindow)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Ledger.Vote(sessionID, req.ContentIDs, h.Votes.MaxPerSession); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, VoteResponse{SessionID: sessionID, Recorded: len(req.ContentIDs)})
}

// Leaderboard
//
//	@Summary		Vote leaderboard
//	@Description	Returns the most-voted content, ordered by count then recency
//	@Tags			votes
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum rows"
//	@Success		200		{object}	LeaderboardResponse
//	@Failure		400		{object}	HTTPError
//	@Router			/api/votes/leaderboard [get]
func (h *VotesHandler) leaderboard(c echo.Context) error {
	limit, err := intParam(c, "limit", h.Votes.LeaderboardLimit)
	if err != nil {
		return err
	}
	tallies, err := h.Ledger.Leaderboard(limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, LeaderboardResponse{Tallies: tallies})
}
