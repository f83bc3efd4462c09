package feed

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	feedMetricsOnce  sync.Once
	cacheHitCounter  otelmetric.Int64Counter
	cacheMissCounter otelmetric.Int64Counter
	cacheEvictions   otelmetric.Int64Counter
	cacheCoalesced   otelmetric.Int64Counter
)

func initFeedMetrics() {
	feedMetricsOnce.Do(func() {
		meter := otel.Meter("newsblend/feed")
		var err error
		if cacheHitCounter, err = meter.Int64Counter("feed_cache_hits_total"); err != nil {
			log.Printf("[FEED] metrics init error: %v", err)
		}
		if cacheMissCounter, err = meter.Int64Counter("feed_cache_misses_total"); err != nil {
			log.Printf("[FEED] metrics init error: %v", err)
		}
		if cacheEvictions, err = meter.Int64Counter("feed_cache_evictions_total"); err != nil {
			log.Printf("[FEED] metrics init error: %v", err)
		}
		if cacheCoalesced, err = meter.Int64Counter("feed_cache_coalesced_total"); err != nil {
			log.Printf("[FEED] metrics init error: %v", err)
		}
	})
}

func recordCacheHit(ctx context.Context) {
	initFeedMetrics()
	if cacheHitCounter != nil {
		cacheHitCounter.Add(ctx, 1)
	}
}

func recordCacheMiss(ctx context.Context) {
	initFeedMetrics()
	if cacheMissCounter != nil {
		cacheMissCounter.Add(ctx, 1)
	}
}

func recordEvictions(n int) {
	initFeedMetrics()
	if cacheEvictions != nil && n > 0 {
		cacheEvictions.Add(context.Background(), int64(n))
	}
}

func recordCoalesced(ctx context.Context) {
	initFeedMetrics()
	if cacheCoalesced != nil {
		cacheCoalesced.Add(ctx, 1)
	}
}
