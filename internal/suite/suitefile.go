package suite

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk suite selection: which scenarios run and with which thresholds.
type File struct {
	Categories []string            `json:"categories" yaml:"categories"`
	Only       []string            `json:"only" yaml:"only"`
	Skip       []string            `json:"skip" yaml:"skip"`
	Overrides  map[string]Override `json:"overrides" yaml:"overrides"`
}

// Override replaces individual scenario defaults. Nil fields keep the default.
type Override struct {
	MaxDurationMs      *int64   `json:"max_duration_ms" yaml:"max_duration_ms"`
	Concurrency        *int     `json:"concurrency" yaml:"concurrency"`
	Batches            *int     `json:"batches" yaml:"batches"`
	Loads              []int    `json:"loads" yaml:"loads"`
	PerRequestBudgetMs *int64   `json:"per_request_budget_ms" yaml:"per_request_budget_ms"`
	RatePerSecond      *int     `json:"rate_per_second" yaml:"rate_per_second"`
	DurationSeconds    *int     `json:"duration_seconds" yaml:"duration_seconds"`
	MaxMemoryMB        *float64 `json:"max_memory_mb" yaml:"max_memory_mb"`
	MaxSizeKB          *float64 `json:"max_size_kb" yaml:"max_size_kb"`
}

// Apply layers o over p.
func (o Override) Apply(p Params) Params {
	if o.MaxDurationMs != nil {
		p.MaxDuration = time.Duration(*o.MaxDurationMs) * time.Millisecond
	}
	if o.Concurrency != nil {
		p.Concurrency = *o.Concurrency
	}
	if o.Batches != nil {
		p.Batches = *o.Batches
	}
	if len(o.Loads) > 0 {
		p.Loads = append([]int(nil), o.Loads...)
	}
	if o.PerRequestBudgetMs != nil {
		p.PerRequestBudget = time.Duration(*o.PerRequestBudgetMs) * time.Millisecond
	}
	if o.RatePerSecond != nil {
		p.RatePerSecond = *o.RatePerSecond
	}
	if o.DurationSeconds != nil {
		p.DurationSeconds = *o.DurationSeconds
	}
	if o.MaxMemoryMB != nil {
		p.MaxMemoryMB = *o.MaxMemoryMB
	}
	if o.MaxSizeKB != nil {
		p.MaxSizeKB = *o.MaxSizeKB
	}
	return p
}

func (o Override) validate() error {
	for name, v := range map[string]*int{
		"concurrency":      o.Concurrency,
		"batches":          o.Batches,
		"rate_per_second":  o.RatePerSecond,
		"duration_seconds": o.DurationSeconds,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	for _, load := range o.Loads {
		if load <= 0 {
			return fmt.Errorf("loads must be positive, got %d", load)
		}
	}
	if o.MaxDurationMs != nil && *o.MaxDurationMs < 0 {
		return errors.New("max_duration_ms must not be negative")
	}
	return nil
}

// LoadFile reads a suite file. The returned error wraps fs.ErrNotExist when the file is missing.
func LoadFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("suite file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open suite file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read suite file: %w", err)
	}

	return parseFile(raw, filepath.Ext(path))
}

func parseFile(data []byte, ext string) (*File, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var f File
		if err := d.fn(data, &f); err != nil {
			lastErr = fmt.Errorf("decode %s suite file: %w", d.name, err)
			continue
		}
		return &f, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("suite file format not recognized (expected YAML or JSON)")
}

// Select resolves f against the catalog: it validates every id and category
// named in f, drops what f excludes and applies overrides.
func Select(catalog []Scenario, f *File) ([]Scenario, error) {
	if f == nil {
		f = &File{}
	}

	known := make(map[string]struct{}, len(catalog))
	for _, s := range catalog {
		known[s.ID] = struct{}{}
	}
	checkIDs := func(field string, ids []string) (map[string]struct{}, error) {
		set := make(map[string]struct{}, len(ids))
		for _, raw := range ids {
			id := normalizeID(raw)
			if _, ok := known[id]; !ok {
				return nil, fmt.Errorf("%s: unknown scenario id %q", field, raw)
			}
			set[id] = struct{}{}
		}
		return set, nil
	}

	only, err := checkIDs("only", f.Only)
	if err != nil {
		return nil, err
	}
	skipped, err := checkIDs("skip", f.Skip)
	if err != nil {
		return nil, err
	}

	categories := make(map[Category]struct{}, len(f.Categories))
	for _, raw := range f.Categories {
		c, err := ParseCategory(raw)
		if err != nil {
			return nil, err
		}
		categories[c] = struct{}{}
	}

	overrides := make(map[string]Override, len(f.Overrides))
	overrideIDs := make([]string, 0, len(f.Overrides))
	for raw := range f.Overrides {
		overrideIDs = append(overrideIDs, raw)
	}
	sort.Strings(overrideIDs)
	for _, raw := range overrideIDs {
		id := normalizeID(raw)
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("overrides: unknown scenario id %q", raw)
		}
		o := f.Overrides[raw]
		if err := o.validate(); err != nil {
			return nil, fmt.Errorf("overrides[%s]: %w", raw, err)
		}
		overrides[id] = o
	}

	out := make([]Scenario, 0, len(catalog))
	for _, s := range catalog {
		if len(only) > 0 {
			if _, ok := only[s.ID]; !ok {
				continue
			}
		}
		if _, ok := skipped[s.ID]; ok {
			continue
		}
		if len(categories) > 0 {
			if _, ok := categories[s.Category]; !ok {
				continue
			}
		}
		if o, ok := overrides[s.ID]; ok {
			s.Params = o.Apply(s.Params)
		}
		out = append(out, s)
	}
	return out, nil
}

// normalizeID accepts both full ids and bare numbers ("7", "007").
func normalizeID(raw string) string {
	id := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToUpper(id), IDPrefix) {
		return IDPrefix + id[len(IDPrefix):]
	}
	var n int
	if _, err := fmt.Sscanf(id, "%d", &n); err == nil && fmt.Sprint(n) == strings.TrimLeft(id, "0") {
		return scenarioID(n)
	}
	return id
}
