package suite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samvad-hq/tokens-api-suite/internal/logger"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

// Category groups scenarios the way the catalog is reported.
type Category string

const (
	CategoryFunctional  Category = "functional"
	CategoryPerformance Category = "performance"
	CategoryScalability Category = "scalability"
	CategorySecurity    Category = "security"
)

// Categories lists every category in reporting order.
func Categories() []Category {
	return []Category{CategoryFunctional, CategoryPerformance, CategoryScalability, CategorySecurity}
}

// ParseCategory validates a category name.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown scenario category %q", raw)
}

// IDPrefix prefixes every scenario id.
const IDPrefix = "TC_LIFI-API_"

// ErrSkipped marks a scenario that decided not to assert anything.
var ErrSkipped = errors.New("scenario skipped")

func skip(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSkipped, fmt.Sprintf(format, args...))
}

// Params carries the thresholds and load shape of a scenario. Zero fields
// are unused by the scenario they belong to.
type Params struct {
	MaxDuration      time.Duration
	Concurrency      int
	Batches          int
	Loads            []int
	PerRequestBudget time.Duration
	RatePerSecond    int
	DurationSeconds  int
	MaxMemoryMB      float64
	MaxSizeKB        float64
}

// Scenario is one catalog entry.
type Scenario struct {
	ID       string
	Category Category
	Name     string
	Params   Params
	Run      func(ctx context.Context, env *Env) error
}

// Env is what a running scenario can reach.
type Env struct {
	Gateway      *gateway.Gateway
	Log          logger.Logger
	Params       Params
	measurements map[string]float64
}

func newEnv(gw *gateway.Gateway, log logger.Logger, p Params) *Env {
	return &Env{Gateway: gw, Log: log, Params: p, measurements: make(map[string]float64)}
}

// Measure records a named numeric observation on the scenario result.
func (e *Env) Measure(name string, value float64) {
	e.measurements[name] = value
}

// Measurements returns a copy of everything recorded so far.
func (e *Env) Measurements() map[string]float64 {
	if len(e.measurements) == 0 {
		return nil
	}
	out := make(map[string]float64, len(e.measurements))
	for k, v := range e.measurements {
		out[k] = v
	}
	return out
}

func (e *Env) measureDuration(name string, d time.Duration) {
	e.Measure(name, float64(d.Microseconds())/1000)
}

// Catalog returns every scenario ordered by id.
func Catalog() []Scenario {
	var all []Scenario
	all = append(all, functionalScenarios()...)
	all = append(all, performanceScenarios()...)
	all = append(all, scalabilityScenarios()...)
	all = append(all, securityScenarios()...)
	all = append(all, consistencyScenarios()...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func scenarioID(n int) string { return fmt.Sprintf("%s%03d", IDPrefix, n) }
