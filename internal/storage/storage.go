package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/tokens-api-suite/internal/domain"
)

// Package storage keeps a bounded history of suite run reports.

// Store persists run reports for regression diffs and the history command.
type Store interface {
	Close() error
	SaveRun(report *domain.RunReport) error
	// Runs returns up to limit reports, newest first. A limit <= 0 returns all.
	Runs(limit int) ([]domain.RunReport, error)
	// LastRun returns the newest report, or nil when none is stored.
	LastRun() (*domain.RunReport, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RunTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRunTTL          = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RunTTL <= 0 {
		opts.RunTTL = defaultRunTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                         { return nil }
func (noopStore) SaveRun(*domain.RunReport) error      { return nil }
func (noopStore) Runs(int) ([]domain.RunReport, error) { return nil, nil }
func (noopStore) LastRun() (*domain.RunReport, error)  { return nil, nil }
