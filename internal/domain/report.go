package domain

import "time"

// Scenario outcome statuses.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ScenarioResult is the outcome of one catalog scenario.
type ScenarioResult struct {
	ID           string             `json:"id"`
	Category     string             `json:"category"`
	Name         string             `json:"name"`
	Status       string             `json:"status"`
	Error        string             `json:"error,omitempty"`
	ElapsedMs    int64              `json:"elapsed_ms"`
	Measurements map[string]float64 `json:"measurements,omitempty"`
}

// Totals counts results by status.
type Totals struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// RunReport is the record of one suite run.
type RunReport struct {
	RunID       string           `json:"run_id"`
	BaseURL     string           `json:"base_url"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Results     []ScenarioResult `json:"results"`
	Totals      Totals           `json:"totals"`
	Regressions []string         `json:"regressions,omitempty"`
}

// Tally recomputes Totals from Results.
func (r *RunReport) Tally() {
	var t Totals
	for _, res := range r.Results {
		switch res.Status {
		case StatusPassed:
			t.Passed++
		case StatusFailed:
			t.Failed++
		case StatusSkipped:
			t.Skipped++
		}
	}
	r.Totals = t
}

// Passed reports whether no scenario failed.
func (r *RunReport) Passed() bool { return r.Totals.Failed == 0 }

// Result returns the result for a scenario id.
func (r *RunReport) Result(id string) (ScenarioResult, bool) {
	if r == nil {
		return ScenarioResult{}, false
	}
	for _, res := range r.Results {
		if res.ID == id {
			return res, true
		}
	}
	return ScenarioResult{}, false
}

// RegressionsSince lists scenarios that passed in prev and fail in r.
func (r *RunReport) RegressionsSince(prev *RunReport) []string {
	if r == nil || prev == nil {
		return nil
	}
	var out []string
	for _, res := range r.Results {
		if res.Status != StatusFailed {
			continue
		}
		if before, ok := prev.Result(res.ID); ok && before.Status == StatusPassed {
			out = append(out, res.ID)
		}
	}
	return out
}
