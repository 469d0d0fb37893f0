package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/samvad-hq/tokens-api-suite/internal/app"
	"github.com/samvad-hq/tokens-api-suite/internal/config"
	"github.com/samvad-hq/tokens-api-suite/internal/logger"
	"github.com/samvad-hq/tokens-api-suite/internal/storage"
	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
	"github.com/samvad-hq/tokens-api-suite/pkg/httpclient"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tokensuite",
		Short:         "Black-box test suite for the token listing API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(),
		newListCmd(),
		newGetCmd(),
		newHistoryCmd(),
	)
	return root
}

// setup loads config and initializes the global logger.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := logger.Init(cfg); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, func() { _ = logger.Close() }, nil
}

func newRunCmd() *cobra.Command {
	var (
		sel         app.Selection
		interval    time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the selected scenarios once, or on an interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := setup()
			if err != nil {
				return err
			}
			defer done()

			if cmd.Flags().Changed("interval") {
				if interval < 0 {
					return fmt.Errorf("--interval must not be negative")
				}
				cfg.RunInterval = interval
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			logger.InfoObj("tokensuite starting", "config", cfg)

			suiteApp, err := app.NewSuiteApp(cmd.Context(), cfg, logger.Global{}, sel)
			if err != nil {
				logger.ErrorObj("failed to initialize suite", "error", err)
				return err
			}

			report, err := suiteApp.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("suite run: %w", err)
			}
			if report == nil {
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d passed, %d failed, %d skipped\n",
				report.RunID, report.Totals.Passed, report.Totals.Failed, report.Totals.Skipped)
			for _, id := range report.Regressions {
				fmt.Fprintf(out, "regression: %s\n", id)
			}
			if cfg.RunInterval <= 0 && !report.Passed() {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sel.Categories, "category", nil, "categories to run (functional, performance, scalability, security)")
	cmd.Flags().StringSliceVar(&sel.Only, "only", nil, "scenario ids to run, e.g. TC_LIFI-API_004 or 4")
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat the run on this interval until interrupted")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

func newListCmd() *cobra.Command {
	var sel app.Selection
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the scenarios the suite file selects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			scenarios, err := app.ResolveScenarios(cfg.SuiteFile, sel, nil)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tNAME")
			for _, s := range scenarios {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Category, s.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&sel.Categories, "category", nil, "restrict to categories")
	cmd.Flags().StringSliceVar(&sel.Only, "only", nil, "restrict to scenario ids")
	return cmd
}

func newGetCmd() *cobra.Command {
	var (
		headers []string
		noColor bool
	)
	cmd := &cobra.Command{
		Use:     "get <endpoint> [key=value ...]",
		Short:   "Send one GET through the gateway and pretty-print the response",
		Example: "  tokensuite get /tokens chains=1,137 -H 'Origin: https://example.com'",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			gw, err := gateway.New(gateway.Options{
				BaseURL: cfg.APIBaseURL,
				Client:  httpclient.NewRestyClient(cfg.RequestTimeout),
			})
			if err != nil {
				return err
			}
			data, err := gw.Send(cmd.Context(), args[0], params, hdrs)
			if err != nil {
				return err
			}

			printer := pp.New()
			printer.SetOutput(cmd.OutOrStdout())
			printer.SetColoringEnabled(!noColor)
			printer.Println(data)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra request header, 'Name: value'")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored run reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
				RunTTL:          cfg.StorageTTL,
				CleanupInterval: cfg.StorageCleanupInterval,
			})
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			defer store.Close()

			runs, err := store.Runs(limit)
			if err != nil {
				return fmt.Errorf("read runs: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tRUN ID\tPASSED\tFAILED\tSKIPPED\tREGRESSIONS")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					r.StartedAt.Format(time.RFC3339), r.RunID,
					r.Totals.Passed, r.Totals.Failed, r.Totals.Skipped,
					strings.Join(r.Regressions, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show, 0 for all")
	return cmd
}

// parseParams turns key=value arguments into query parameters. Repeated keys
// are joined with commas.
func parseParams(args []string) (gateway.Params, error) {
	params := gateway.Params{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (want key=value)", arg)
		}
		if prev, exists := params[key]; exists {
			value = prev.(string) + "," + value
		}
		params[key] = value
	}
	return params, nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (want 'Name: value')", h)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}
