package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/samvad-hq/tokens-api-suite/internal/config"
	"github.com/samvad-hq/tokens-api-suite/internal/domain"
	"github.com/samvad-hq/tokens-api-suite/internal/logger"
	"github.com/samvad-hq/tokens-api-suite/internal/metrics"
	"github.com/samvad-hq/tokens-api-suite/internal/storage"
	"github.com/samvad-hq/tokens-api-suite/internal/suite"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
	"github.com/samvad-hq/tokens-api-suite/pkg/httpclient"
	"github.com/samvad-hq/tokens-api-suite/pkg/publishers"
)

// Selection narrows the suite file from the command line. Non-empty fields
// replace the file's categories and only lists.
type Selection struct {
	Categories []string
	Only       []string
}

// SuiteApp is the suite runtime. It owns the gateway, the scenario runner,
// the report store and the publisher fanout, and drives one run or a
// scheduled loop of runs.
type SuiteApp struct {
	cfg       *config.Config
	gw        *gateway.Gateway
	runner    *suite.Runner
	scenarios []suite.Scenario
	recorder  *metrics.Recorder
	store     storage.Store
	fanout    *publishers.Fanout
	log       logger.Logger
}

// NewSuiteApp builds the runtime from config files.
func NewSuiteApp(ctx context.Context, cfg *config.Config, log logger.Logger, sel Selection) (*SuiteApp, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	scenarios, err := selectScenarios(cfg.SuiteFile, sel, log)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	gw, err := gateway.New(gateway.Options{
		BaseURL:  cfg.APIBaseURL,
		Client:   httpclient.NewRestyClient(cfg.RequestTimeout),
		Logger:   log,
		Observer: recorder,
	})
	if err != nil {
		return nil, fmt.Errorf("init gateway: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		RunTTL:          cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"run_ttl_seconds":          int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &SuiteApp{
		cfg:       cfg,
		gw:        gw,
		runner:    suite.NewRunner(gw, log, recorder),
		scenarios: scenarios,
		recorder:  recorder,
		store:     store,
		fanout:    fanout,
		log:       log,
	}, nil
}

// ResolveScenarios applies sel to the suite file at path without building a runtime.
func ResolveScenarios(path string, sel Selection, log logger.Logger) ([]suite.Scenario, error) {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return selectScenarios(path, sel, log)
}

// selectScenarios loads the suite file, falling back to the full catalog when it is absent.
func selectScenarios(path string, sel Selection, log logger.Logger) ([]suite.Scenario, error) {
	file, err := suite.LoadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.WarnObj("suite file not found; running full catalog", "suite_file", path)
		file = &suite.File{}
	case err != nil:
		return nil, fmt.Errorf("load suite file: %w", err)
	}
	if len(sel.Categories) > 0 {
		file.Categories = sel.Categories
	}
	if len(sel.Only) > 0 {
		file.Only = sel.Only
	}

	scenarios, err := suite.Select(suite.Catalog(), file)
	if err != nil {
		return nil, fmt.Errorf("select scenarios: %w", err)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios selected")
	}
	log.InfoObj("suite selection resolved", "suite_meta", map[string]any{
		"suite_file": path,
		"scenarios":  len(scenarios),
		"categories": file.Categories,
		"only":       file.Only,
	})
	return scenarios, nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	reg, err := publishers.LoadRegistry(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.InfoObj("publishers file not found; reports stay local", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	case err != nil:
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, cfg := range enabled {
		summaries = append(summaries, map[string]string{"id": cfg.ID, "type": cfg.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Scenarios returns the resolved selection.
func (a *SuiteApp) Scenarios() []suite.Scenario { return a.scenarios }

// Store exposes the report store for read-only commands.
func (a *SuiteApp) Store() storage.Store { return a.store }

// RunOnce executes the selection, diffs it against the previous stored run,
// saves it and publishes it. Store and publish failures are logged, not returned;
// the report is returned even when the run was interrupted.
func (a *SuiteApp) RunOnce(ctx context.Context) (*domain.RunReport, error) {
	if a == nil || a.runner == nil {
		return nil, fmt.Errorf("suite app is not initialized")
	}

	prev, err := a.store.LastRun()
	if err != nil {
		a.log.WarnObj("previous run unavailable", "error", err)
	}

	report, runErr := a.runner.Run(ctx, a.scenarios)
	if report == nil {
		return nil, runErr
	}
	report.Regressions = report.RegressionsSince(prev)
	if len(report.Regressions) > 0 {
		a.log.WarnObj("regressions since previous run", "regressions", map[string]any{
			"run_id":      report.RunID,
			"previous":    prev.RunID,
			"regressions": report.Regressions,
		})
	}

	if err := a.store.SaveRun(report); err != nil {
		a.log.ErrorObj("saving run report failed", "error", err)
	}

	if a.fanout.Size() > 0 {
		// An interrupted run still gets published; ctx may already be done.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		delivered, err := a.fanout.Publish(pubCtx, publishers.NewEvent(report))
		cancel()
		if err != nil {
			a.log.ErrorObj("publishing run report failed", "error", err)
		}
		a.log.InfoObj("run report published", "publish_meta", map[string]any{
			"run_id":    report.RunID,
			"delivered": delivered,
			"sinks":     a.fanout.Size(),
		})
	}
	return report, runErr
}

// Run executes the suite once, or on cfg.RunInterval until ctx is cancelled.
// It also serves metrics while running when cfg.MetricsAddr is set. The
// returned report is the last completed run.
func (a *SuiteApp) Run(ctx context.Context) (*domain.RunReport, error) {
	if a == nil || a.runner == nil {
		return nil, fmt.Errorf("suite app is not initialized")
	}
	defer a.close()

	if a.cfg.MetricsAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := a.recorder.Serve(metricsCtx, a.cfg.MetricsAddr); err != nil {
				a.log.ErrorObj("metrics listener stopped", "error", err)
			}
		}()
		a.log.InfoObj("metrics listener started", "metrics_addr", a.cfg.MetricsAddr)
	}

	report, err := a.RunOnce(ctx)
	if a.cfg.RunInterval <= 0 {
		return report, err
	}
	if err != nil {
		a.log.ErrorObj("initial suite run failed", "error", err)
	}

	a.log.InfoObj("suite loop starting", "suite_state", map[string]any{
		"scenarios":        len(a.scenarios),
		"publishers_count": a.fanout.Size(),
		"run_interval":     a.cfg.RunInterval.String(),
	})

	ticker := time.NewTicker(a.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.InfoObj("suite loop exiting", "reason", ctx.Err())
			return report, nil
		case <-ticker.C:
			next, err := a.RunOnce(ctx)
			if err != nil {
				a.log.ErrorObj("scheduled suite run failed", "error", err)
			}
			if next != nil && err == nil && ctx.Err() == nil {
				report = next
			}
		}
	}
}

// Close releases the store and publisher clients. Run calls it on return.
func (a *SuiteApp) Close() { a.close() }

func (a *SuiteApp) close() {
	if a == nil {
		return
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.ErrorObj("storage close failed", "error", err)
		}
		a.store = nil
	}
	if a.fanout != nil {
		if err := a.fanout.Close(); err != nil {
			a.log.ErrorObj("publisher close failed", "error", err)
		}
		a.fanout = nil
	}
}
