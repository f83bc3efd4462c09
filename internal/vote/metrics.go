package vote

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	voteMetricsOnce sync.Once
	votesRecorded   otelmetric.Int64Counter
	votesRejected   otelmetric.Int64Counter
)

func initVoteMetrics() {
	voteMetricsOnce.Do(func() {
		meter := otel.Meter("newsblend/vote")
		var err error
		if votesRecorded, err = meter.Int64Counter("votes_recorded_total"); err != nil {
			log.Printf("[VOTE] metrics init error: %v", err)
		}
		if votesRejected, err = meter.Int64Counter("votes_rejected_total"); err != nil {
			log.Printf("[VOTE] metrics init error: %v", err)
		}
	})
}

func recordVotes(n int) {
	initVoteMetrics()
	if votesRecorded != nil && n > 0 {
		votesRecorded.Add(context.Background(), int64(n))
	}
}

func recordRejection() {
	initVoteMetrics()
	if votesRejected != nil {
		votesRejected.Add(context.Background(), 1)
	}
}
