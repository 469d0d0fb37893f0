package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/tokens-api-suite/internal/loadgen"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

func scalabilityScenarios() []Scenario {
	return []Scenario{
		{
			ID:       scenarioID(23),
			Category: CategoryScalability,
			Name:     "handles 50 concurrent requests",
			Params:   Params{MaxDuration: 10 * time.Second, Concurrency: 50},
			Run: func(ctx context.Context, env *Env) error {
				return timedFanout(ctx, env, env.Params.Concurrency, "response time")
			},
		},
		{
			ID:       scenarioID(24),
			Category: CategoryScalability,
			Name:     "handles 100 concurrent requests",
			Params:   Params{MaxDuration: 50 * time.Second, Concurrency: 100},
			Run: func(ctx context.Context, env *Env) error {
				return timedFanout(ctx, env, env.Params.Concurrency, "response time")
			},
		},
		{
			ID:       scenarioID(25),
			Category: CategoryScalability,
			Name:     "stays consistent under varying loads",
			Params:   Params{Loads: []int{10, 50, 100}, PerRequestBudget: time.Second},
			Run: func(ctx context.Context, env *Env) error {
				for _, load := range env.Params.Loads {
					stats, err := loadgen.Fanout(ctx, load, tokensCall(env))
					env.measureDuration(fmt.Sprintf("load_%d_ms", load), stats.Elapsed)
					if err != nil {
						return fmt.Errorf("load %d: %w", load, err)
					}
					limit := time.Duration(load) * env.Params.PerRequestBudget
					if err := requireWithin(fmt.Sprintf("response time for %d concurrent requests", load), stats.Elapsed, limit); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID:       scenarioID(26),
			Category: CategoryScalability,
			Name:     "absorbs a burst of 500 requests in batches of 50",
			Params:   Params{MaxDuration: 90 * time.Second, Batches: 10, Concurrency: 50},
			Run: func(ctx context.Context, env *Env) error {
				stats, err := loadgen.Batches(ctx, env.Params.Batches, env.Params.Concurrency, tokensCall(env), func(done, total int) {
					env.Log.InfoObj("burst batch completed", "burst_progress", map[string]any{
						"batch": done,
						"total": total,
					})
				})
				env.measureDuration("response_ms", stats.Elapsed)
				env.Measure("requests", float64(stats.Requests))
				if err != nil {
					return err
				}
				total := env.Params.Batches * env.Params.Concurrency
				return requireWithin(fmt.Sprintf("response time for %d requests", total), stats.Elapsed, env.Params.MaxDuration)
			},
		},
		{
			ID:       scenarioID(27),
			Category: CategoryScalability,
			Name:     "sustains 10 requests per second for 60 seconds",
			Params:   Params{MaxDuration: 120 * time.Second, RatePerSecond: 10, DurationSeconds: 60},
			Run: func(ctx context.Context, env *Env) error {
				stats, err := loadgen.Sustained(ctx, env.Params.RatePerSecond, env.Params.DurationSeconds, tokensCall(env))
				env.measureDuration("total_ms", stats.Elapsed)
				env.Measure("requests", float64(stats.Requests))
				if err != nil {
					return err
				}
				return requireWithin("total time for sustained load", stats.Elapsed, env.Params.MaxDuration)
			},
		},
	}
}

func tokensCall(env *Env) loadgen.Call {
	return func(ctx context.Context, _ int) error {
		_, err := env.Gateway.Send(ctx, gateway.TokensPath, nil, nil)
		return err
	}
}
