package publishers

import (
	"time"

	"github.com/samvad-hq/tokens-api-suite/internal/domain"
)

// Outcome attribute values.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
)

// Event represents the payload published downstream after a suite run.
type Event struct {
	RunID       string            `json:"run_id"`
	BaseURL     string            `json:"base_url"`
	Outcome     string            `json:"outcome"`
	Totals      domain.Totals     `json:"totals"`
	Regressions []string          `json:"regressions,omitempty"`
	Report      *domain.RunReport `json:"report"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewEvent constructs an Event summarizing report.
func NewEvent(report *domain.RunReport) Event {
	evt := Event{Report: report, PublishedAt: time.Now().UTC(), Outcome: OutcomePassed}
	if report == nil {
		return evt
	}
	evt.RunID = report.RunID
	evt.BaseURL = report.BaseURL
	evt.Totals = report.Totals
	evt.Regressions = report.Regressions
	if !report.Passed() {
		evt.Outcome = OutcomeFailed
	}
	return evt
}

// attributes are the routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"run_id":  e.RunID,
		"outcome": e.Outcome,
	}
}
