package suite

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/tokens-api-suite/internal/domain"
	"github.com/samvad-hq/tokens-api-suite/internal/logger"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

// ResultObserver is told about every finished scenario.
type ResultObserver interface {
	ObserveScenario(category, status string)
}

// Runner executes scenarios one after another against a gateway.
type Runner struct {
	gw       *gateway.Gateway
	log      logger.Logger
	observer ResultObserver
	now      func() time.Time
}

// NewRunner wires a runner. log and observer may be nil.
func NewRunner(gw *gateway.Gateway, log logger.Logger, observer ResultObserver) *Runner {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Runner{gw: gw, log: log, observer: observer, now: time.Now}
}

// Run executes scenarios in order and returns the tallied report. A cancelled
// context stops the run; scenarios not reached are left out of the report.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*domain.RunReport, error) {
	if r == nil || r.gw == nil {
		return nil, errors.New("runner is not initialized")
	}

	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		BaseURL:   r.gw.BaseURL(),
		StartedAt: r.now().UTC(),
		Results:   make([]domain.ScenarioResult, 0, len(scenarios)),
	}

	r.log.InfoObj("suite run started", "run_meta", map[string]any{
		"run_id":    report.RunID,
		"base_url":  report.BaseURL,
		"scenarios": len(scenarios),
	})

	var runErr error
	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("suite run interrupted: %w", err)
			break
		}
		res := r.runScenario(ctx, s)
		report.Results = append(report.Results, res)
		if r.observer != nil {
			r.observer.ObserveScenario(string(s.Category), res.Status)
		}
	}

	report.FinishedAt = r.now().UTC()
	report.Tally()

	r.log.InfoObj("suite run finished", "run_totals", map[string]any{
		"run_id":     report.RunID,
		"passed":     report.Totals.Passed,
		"failed":     report.Totals.Failed,
		"skipped":    report.Totals.Skipped,
		"elapsed_ms": report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})
	return report, runErr
}

// RunOne executes a single scenario and returns its result.
func (r *Runner) RunOne(ctx context.Context, s Scenario) domain.ScenarioResult {
	return r.runScenario(ctx, s)
}

func (r *Runner) runScenario(ctx context.Context, s Scenario) (res domain.ScenarioResult) {
	env := newEnv(r.gw, r.log, s.Params)
	res = domain.ScenarioResult{
		ID:       s.ID,
		Category: string(s.Category),
		Name:     s.Name,
	}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			res.Status = domain.StatusFailed
			res.Error = fmt.Sprintf("scenario panicked: %v", p)
			r.log.ErrorObj("scenario panicked", "scenario_panic", map[string]any{
				"id":    s.ID,
				"panic": fmt.Sprint(p),
				"stack": string(debug.Stack()),
			})
		}
		res.ElapsedMs = time.Since(start).Milliseconds()
		res.Measurements = env.Measurements()
		r.logResult(res)
	}()

	if s.Run == nil {
		res.Status = domain.StatusFailed
		res.Error = "scenario has no run function"
		return res
	}

	err := s.Run(ctx, env)
	switch {
	case err == nil:
		res.Status = domain.StatusPassed
	case errors.Is(err, ErrSkipped):
		res.Status = domain.StatusSkipped
		res.Error = err.Error()
	default:
		res.Status = domain.StatusFailed
		res.Error = err.Error()
	}
	return res
}

func (r *Runner) logResult(res domain.ScenarioResult) {
	fields := map[string]any{
		"id":         res.ID,
		"category":   res.Category,
		"status":     res.Status,
		"elapsed_ms": res.ElapsedMs,
	}
	if len(res.Measurements) > 0 {
		fields["measurements"] = res.Measurements
	}
	if res.Error != "" {
		fields["error"] = res.Error
	}
	switch res.Status {
	case domain.StatusFailed:
		r.log.ErrorObj("scenario failed", "scenario_result", fields)
	case domain.StatusSkipped:
		r.log.WarnObj("scenario skipped", "scenario_result", fields)
	default:
		r.log.InfoObj("scenario passed", "scenario_result", fields)
	}
}
