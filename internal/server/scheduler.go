package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/nsahraei/newsblend/config"
	"github.com/nsahraei/newsblend/internal/fact"
	"github.com/nsahraei/newsblend/internal/feed"
	"github.com/nsahraei/newsblend/internal/search"
	"github.com/nsahraei/newsblend/internal/store"
	"github.com/nsahraei/newsblend/internal/vote"
	"github.com/nsahraei/newsblend/models"
)

var schedLogger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)

// Scheduler runs the periodic feed refresh and vote snapshot jobs.
// Redis locks keep multiple replicas from running the same job at once.
type Scheduler struct {
	Store      *store.Store
	Cache      *feed.Cache
	Ledger     *vote.Ledger
	Selector   *fact.Selector
	Search     *search.Index // nil when search is disabled
	Rdb        *redis.Client
	Cfg        config.SchedulerConfig
	IndexLimit int
	Stop       chan struct{}

	lastRefresh  *time.Time
	lastSnapshot *time.Time
}

func (s *Scheduler) Start() {
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if isDue(s.Cfg.RefreshCron, s.lastRefresh) && s.acquire(ctx, "refresh") {
		s.runRefresh(ctx)
		now := time.Now()
		s.lastRefresh = &now
	}
	if isDue(s.Cfg.SnapshotCron, s.lastSnapshot) && s.acquire(ctx, "snapshot") {
		s.runSnapshot(ctx)
		now := time.Now()
		s.lastSnapshot = &now
	}
}

// acquire takes the distributed lock for a job. The lock is not released
// explicitly; the TTL expires it, which also spaces out re-runs.
func (s *Scheduler) acquire(ctx context.Context, job string) bool {
	if s.Rdb == nil {
		return true
	}
	ok, _ := s.Rdb.SetNX(ctx, "sched:lock:"+job, "1", s.Cfg.LockTTL).Result()
	return ok
}

// runRefresh drops every cached feed page, rebuilds the search index and
// reloads the persisted daily fact so freshly ingested content shows up.
func (s *Scheduler) runRefresh(ctx context.Context) {
	// jitter to avoid stampedes across replicas
	time.Sleep(time.Duration(250+int64(time.Now().UnixNano()%250)) * time.Millisecond)

	evicted := s.Cache.Invalidate(func(feed.FeedKey) bool { return true })
	schedLogger.Printf("refresh: invalidated %d feed pages", evicted)

	if s.Search != nil {
		if err := s.Search.Rebuild(ctx, s.IndexLimit); err != nil {
			schedLogger.Printf("refresh: search rebuild: %v", err)
		} else {
			schedLogger.Printf("refresh: indexed %d content items", s.Search.Len())
		}
	}

	if s.Store == nil || s.Selector == nil {
		return
	}
	f, err := s.Store.LatestDailyFact(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			schedLogger.Printf("refresh: load daily fact: %v", err)
		}
		return
	}
	if err := s.Selector.Set(f); err != nil {
		schedLogger.Printf("refresh: reload daily fact: %v", err)
	}
}

// runSnapshot persists the in-memory vote tallies and sweeps expired
// sessions so the ledger survives restarts without unbounded growth.
func (s *Scheduler) runSnapshot(ctx context.Context) {
	swept := s.Ledger.Sweep()
	tallies := s.Ledger.Snapshot()
	if s.Store != nil {
		if err := s.Store.UpsertTallies(ctx, tallies); err != nil {
			schedLogger.Printf("snapshot: persist tallies: %v", err)
			return
		}
	}
	schedLogger.Printf("snapshot: persisted %d tallies, swept %d sessions", len(tallies), swept)
}

// isDue determines whether a job with cronSpec should run now given its
// last run time. Supports "@daily", "@hourly", and standard 5-field cron
// expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat an invalid spec as @daily
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
