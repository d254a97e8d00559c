package seed

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/trainerscope/pkg/logger"
	"github.com/sourcegraph/conc/pool"
)

// progressEvery controls how often progress is logged.
const progressEvery = 1000

// Submit posts every assessment with at most workers requests in flight.
// Individual failures are counted, not returned; only cancellation of ctx
// is an error.
func Submit(ctx context.Context, client *Client, assessments []Assessment, workers int) (Stats, error) {
	log := logger.Named("seed")
	start := time.Now()

	var accepted, duplicate, failed, done atomic.Int64

	p := pool.New().WithMaxGoroutines(max(workers, 1)).WithContext(ctx)
	for i := range assessments {
		a := &assessments[i]
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome, err := client.Submit(ctx, a)
			switch outcome {
			case OutcomeAccepted:
				accepted.Add(1)
			case OutcomeDuplicate:
				duplicate.Add(1)
			default:
				failed.Add(1)
				log.Debug(ctx, "submission failed", logger.String("id", a.ID), logger.Error(err))
			}
			if n := done.Add(1); n%progressEvery == 0 {
				log.Info(ctx, "progress", logger.Int64("submitted", n), logger.Int("total", len(assessments)))
			}
			return nil
		})
	}
	err := p.Wait()

	stats := Stats{
		Generated: len(assessments),
		Accepted:  int(accepted.Load()),
		Duplicate: int(duplicate.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}
	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))
	return stats, err
}
