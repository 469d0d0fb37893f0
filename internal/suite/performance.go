package suite

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/samvad-hq/tokens-api-suite/internal/loadgen"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

const bytesPerMB = 1024 * 1024

func performanceScenarios() []Scenario {
	return []Scenario{
		{
			ID:       scenarioID(16),
			Category: CategoryPerformance,
			Name:     "responds within the latency budget",
			Params:   Params{MaxDuration: 2 * time.Second},
			Run: func(ctx context.Context, env *Env) error {
				return timedSingle(ctx, env, nil, "response time")
			},
		},
		{
			ID:       scenarioID(17),
			Category: CategoryPerformance,
			Name:     "responds quickly for a specific chain",
			Params:   Params{MaxDuration: time.Second},
			Run: func(ctx context.Context, env *Env) error {
				return timedSingle(ctx, env, gateway.Params{"chains": "1"}, "response time for specific chain")
			},
		},
		{
			ID:       scenarioID(18),
			Category: CategoryPerformance,
			Name:     "handles concurrent requests for different chains",
			Params:   Params{MaxDuration: 3 * time.Second},
			Run: func(ctx context.Context, env *Env) error {
				chains := []string{"1", "137", "56"}
				stats, err := loadgen.Fanout(ctx, len(chains), func(ctx context.Context, i int) error {
					_, err := env.Gateway.Send(ctx, gateway.TokensPath, gateway.Params{"chains": chains[i]}, nil)
					return err
				})
				env.measureDuration("response_ms", stats.Elapsed)
				if err != nil {
					return err
				}
				return requireWithin("concurrent requests response time", stats.Elapsed, env.Params.MaxDuration)
			},
		},
		{
			ID:       scenarioID(19),
			Category: CategoryPerformance,
			Name:     "handles concurrent requests without query parameters",
			Params:   Params{MaxDuration: 5 * time.Second, Concurrency: 10},
			Run: func(ctx context.Context, env *Env) error {
				return timedFanout(ctx, env, env.Params.Concurrency, "concurrent response time")
			},
		},
		{
			ID:       scenarioID(20),
			Category: CategoryPerformance,
			Name:     "keeps heap growth during a request within bounds",
			Params:   Params{MaxMemoryMB: 50},
			Run: func(ctx context.Context, env *Env) error {
				var before, after runtime.MemStats
				runtime.GC()
				runtime.ReadMemStats(&before)

				data, err := env.Gateway.Send(ctx, gateway.TokensPath, nil, nil)
				if err != nil {
					return err
				}
				runtime.ReadMemStats(&after)
				runtime.KeepAlive(data)

				diff := (float64(after.HeapAlloc) - float64(before.HeapAlloc)) / bytesPerMB
				env.Measure("heap_growth_mb", diff)
				if limit := env.Params.MaxMemoryMB; limit > 0 && diff > limit {
					return fmt.Errorf("memory usage exceeded acceptable limit: %.2f MB > %.2f MB", diff, limit)
				}
				return nil
			},
		},
		{
			ID:       scenarioID(21),
			Category: CategoryPerformance,
			Name:     "keeps the response size within bounds",
			Params:   Params{MaxSizeKB: 2500},
			Run: func(ctx context.Context, env *Env) error {
				data, err := env.Gateway.Send(ctx, gateway.TokensPath, nil, nil)
				if err != nil {
					return err
				}
				raw, err := json.Marshal(data)
				if err != nil {
					return fmt.Errorf("encode response: %w", err)
				}
				size := float64(len(raw)) / 1024
				env.Measure("response_kb", size)
				if limit := env.Params.MaxSizeKB; limit > 0 && size > limit {
					return fmt.Errorf("response size exceeded limit: %.2f KB > %.2f KB", size, limit)
				}
				return nil
			},
		},
		{
			ID:       scenarioID(22),
			Category: CategoryPerformance,
			Name:     "does not degrade with a multi-chain filter",
			Params:   Params{MaxDuration: 4 * time.Second},
			Run: func(ctx context.Context, env *Env) error {
				return timedSingle(ctx, env, gateway.Params{"chains": "1,137,56,100,43114,250"}, "response time for large data")
			},
		},
	}
}

func timedSingle(ctx context.Context, env *Env, params gateway.Params, what string) error {
	start := time.Now()
	_, err := env.Gateway.Send(ctx, gateway.TokensPath, params, nil)
	elapsed := time.Since(start)
	env.measureDuration("response_ms", elapsed)
	if err != nil {
		return err
	}
	return requireWithin(what, elapsed, env.Params.MaxDuration)
}

func timedFanout(ctx context.Context, env *Env, n int, what string) error {
	stats, err := loadgen.Fanout(ctx, n, tokensCall(env))
	env.measureDuration("response_ms", stats.Elapsed)
	env.Measure("requests", float64(stats.Requests))
	if err != nil {
		return err
	}
	return requireWithin(fmt.Sprintf("%s for %d concurrent requests", what, n), stats.Elapsed, env.Params.MaxDuration)
}
