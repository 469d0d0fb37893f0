package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Call is one unit of load; i is the call's index within its batch.
type Call func(ctx context.Context, i int) error

// Stats summarizes a load run.
type Stats struct {
	Requests int64
	Failures int64
	Elapsed  time.Duration
}

// Fanout issues n calls in parallel and waits for all of them. The first
// error is returned and cancels the context handed to the remaining calls;
// calls already in flight are not guaranteed to stop.
func Fanout(ctx context.Context, n int, call Call) (Stats, error) {
	var stats Stats
	start := time.Now()
	err := fanout(ctx, n, call, &stats)
	stats.Elapsed = time.Since(start)
	return stats, err
}

func fanout(ctx context.Context, n int, call Call, stats *Stats) error {
	if n <= 0 {
		return fmt.Errorf("fanout size must be positive, got %d", n)
	}
	if call == nil {
		return errors.New("fanout call is nil")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			atomic.AddInt64(&stats.Requests, 1)
			if err := call(gctx, i); err != nil {
				atomic.AddInt64(&stats.Failures, 1)
				return fmt.Errorf("call %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Batches runs size-wide fan-outs back to back, stopping at the first failing batch.
func Batches(ctx context.Context, batches, size int, call Call, onBatch func(done, total int)) (Stats, error) {
	var stats Stats
	start := time.Now()

	if batches <= 0 {
		return stats, fmt.Errorf("batch count must be positive, got %d", batches)
	}
	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}
		if err := fanout(ctx, size, call, &stats); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("batch %d/%d: %w", b+1, batches, err)
		}
		if onBatch != nil {
			onBatch(b+1, batches)
		}
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}

// Sustained fires perSecond parallel calls once per second for the given
// number of seconds. Pacing is enforced by a token bucket refilled at
// perSecond tokens per second.
func Sustained(ctx context.Context, perSecond, seconds int, call Call) (Stats, error) {
	var stats Stats
	start := time.Now()

	if perSecond <= 0 || seconds <= 0 {
		return stats, fmt.Errorf("sustained load needs positive rate and duration, got %d/s for %ds", perSecond, seconds)
	}

	limiter := rate.NewLimiter(rate.Limit(perSecond), perSecond)
	for s := 0; s < seconds; s++ {
		if err := limiter.WaitN(ctx, perSecond); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("second %d: wait for rate limiter: %w", s+1, err)
		}
		if err := fanout(ctx, perSecond, call, &stats); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("second %d: %w", s+1, err)
		}
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}
