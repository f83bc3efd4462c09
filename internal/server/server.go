package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nsahraei/newsblend/config"
	"github.com/nsahraei/newsblend/internal/fact"
	"github.com/nsahraei/newsblend/internal/feed"
	"github.com/nsahraei/newsblend/internal/search"
	"github.com/nsahraei/newsblend/internal/store"
	"github.com/nsahraei/newsblend/internal/vote"
	"github.com/nsahraei/newsblend/models"
)

// Run wires the storage, feed, vote, fact and search components together
// and serves the HTTP API until the listener fails.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "X-Admin-Token"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	registerDocs(e)
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	bootLogger := log.New(log.Writer(), "[BOOT] ", log.LstdFlags)
	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		bootLogger.Printf("migrate: %v", err)
	}

	// Initialize shared dependencies (top-level DI)
	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	cache := feed.NewCache(st)

	ledger := vote.NewLedger(cfg.Votes.SessionWindow)
	if tallies, err := st.LoadTallies(ctx); err != nil {
		bootLogger.Printf("load vote tallies: %v", err)
	} else {
		ledger.Restore(tallies)
		bootLogger.Printf("restored %d vote tallies", len(tallies))
	}

	selector := fact.NewSelector()
	if f, err := st.LatestDailyFact(ctx); err == nil {
		if err := selector.Set(f); err != nil {
			bootLogger.Printf("reload daily fact: %v", err)
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		bootLogger.Printf("load daily fact: %v", err)
	}

	var idx *search.Index
	if cfg.Search.Enabled {
		idx, err = search.New(st)
		if err != nil {
			return err
		}
		if err := idx.Rebuild(ctx, cfg.Search.IndexLimit); err != nil {
			bootLogger.Printf("initial search rebuild: %v", err)
		} else {
			bootLogger.Printf("indexed %d content items", idx.Len())
		}
	}

	secret := cfg.Server.SessionSecret
	if secret == "" {
		return fmt.Errorf("session secret not configured (server.session_secret)")
	}

	api := e.Group("/api")

	fh := &FeedsHandler{Cache: cache, Feeds: cfg.Feeds}
	fh.Register(api.Group("/feed"))

	vh := &VotesHandler{Ledger: ledger, Secret: []byte(secret), Votes: cfg.Votes}
	vh.Register(api.Group("/votes"), cfg.Server.VoteRateLimit, cfg.Server.VoteRateBurst)

	fah := &FactHandler{Selector: selector}
	fah.Register(api.Group("/fact"))

	if idx != nil {
		sh := &SearchHandler{Index: idx}
		sh.Register(api.Group("/search"))
	}

	ah := &AdminHandler{
		Store:      st,
		Selector:   selector,
		Cache:      cache,
		Search:     idx,
		TokenHash:  cfg.Server.AdminTokenHash,
		IndexLimit: cfg.Search.IndexLimit,
	}
	ah.Register(api.Group("/admin"))

	// scheduler with redis-backed locks so replicas don't double-run jobs
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}
	sched := &Scheduler{
		Store:      st,
		Cache:      cache,
		Ledger:     ledger,
		Selector:   selector,
		Search:     idx,
		Rdb:        rdb,
		Cfg:        cfg.Scheduler,
		IndexLimit: cfg.Search.IndexLimit,
		Stop:       make(chan struct{}),
	}
	sched.Start()

	if addr == "" {
		addr = cfg.Server.Address
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10001"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
