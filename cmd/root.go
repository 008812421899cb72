// Package cmd implements the covidchart CLI command tree.
// This file defines the root command, which draws the chart, and registers
// all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/covidchart/internal/app"
	"github.com/derickschaefer/covidchart/internal/config"
	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/render"
	"github.com/derickschaefer/covidchart/internal/util"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Format  string
	NoCache bool
	Refresh bool
	Timeout string
	Verbose bool
	Debug   bool
}

// chartFlags holds the root command's own flags.
var chartFlags struct {
	State  string
	Metric string
	Height int
	Latest int
	Width  int
	Margin int
	Smooth int
	Since  string
	Until  string
	PNG    string
}

// rootCmd charts a metric when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "covidchart",
	Short: "covidchart: COVID-19 time series as terminal charts",
	Long: `covidchart downloads the daily COVID-19 feeds published by The COVID
Tracking Project and draws them as an ASCII line chart, followed by the most
recent values.

Data sourced from The COVID Tracking Project at The Atlantic;
https://covidtracking.com/ (CC BY 4.0)

Quick start:
  covidchart                         # new cases in the USA
  covidchart --state NY              # new cases in New York
  covidchart --metric deathIncrease  # new deaths in the USA
  covidchart metrics                 # list chartable metrics`,
	Example: `  covidchart --state CA --smooth 7
  covidchart --since 2020-10-01 --until 2021-01-31 --latest 5
  covidchart --metric hospitalizedCurrently --format json
  covidchart --state TX --png tx.png`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: setupLogging,
	RunE:              runChart,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs the slog handler. --debug enables request, cache and
// parse diagnostics on stderr; otherwise only warnings are logged.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if globalFlags.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})))
	return nil
}

// loadConfig resolves config and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.NoCache = globalFlags.NoCache
	cfg.Refresh = globalFlags.Refresh
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", globalFlags.Timeout, err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return app.New(cfg), nil
}

// runChart is the root command's RunE.
func runChart(cmd *cobra.Command, args []string) error {
	// Validate the query before touching the network or the cache.
	q, err := resolveQuery(chartFlags.State, chartFlags.Metric)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyChartFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := resolveRunOptions(cfg)
	if err != nil {
		return err
	}

	deps := app.New(cfg)
	defer deps.Close()
	if !cfg.NoCache {
		if err := deps.OpenStore(); err != nil {
			render.Warn(cmd.ErrOrStderr(), "cache unavailable, continuing without it: %v", err)
		}
	}

	_, err = showData(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), deps.Fetcher, q, opts)
	return err
}

// resolveQuery builds the immutable query for a run.
func resolveQuery(state, metric string) (model.Query, error) {
	m, err := model.ParseMetric(metric)
	if err != nil {
		return model.Query{}, fmt.Errorf("--metric: %w", err)
	}
	return model.Query{Region: state, Metric: m}, nil
}

// applyChartFlags copies explicitly set chart flags over config values.
func applyChartFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("height") {
		cfg.Height = chartFlags.Height
	}
	if f.Changed("latest") {
		cfg.Latest = chartFlags.Latest
	}
	if f.Changed("margin") {
		cfg.Margin = chartFlags.Margin
	}
}

// resolveRunOptions derives the per-run rendering options from config and
// the remaining chart flags.
func resolveRunOptions(cfg *config.Config) (RunOptions, error) {
	opts := RunOptions{
		Height:  cfg.Height,
		Latest:  cfg.Latest,
		Margin:  cfg.Margin,
		Columns: chartFlags.Width,
		Smooth:  chartFlags.Smooth,
		PNGPath: chartFlags.PNG,
		Format:  cfg.Format,
		Verbose: cfg.Verbose,
	}
	if opts.Columns <= 0 {
		opts.Columns = util.TermWidth()
	}
	if opts.Smooth < 0 {
		return opts, fmt.Errorf("--smooth must not be negative, got %d", opts.Smooth)
	}

	var err error
	if chartFlags.Since != "" {
		if opts.Since, err = util.ParseDate(chartFlags.Since); err != nil {
			return opts, fmt.Errorf("--since: %w", err)
		}
	}
	if chartFlags.Until != "" {
		if opts.Until, err = util.ParseDate(chartFlags.Until); err != nil {
			return opts, fmt.Errorf("--until: %w", err)
		}
	}
	if !opts.Since.IsZero() && !opts.Until.IsZero() && opts.Until.Before(opts.Since) {
		return opts, fmt.Errorf("--until %s is before --since %s", chartFlags.Until, chartFlags.Since)
	}
	return opts, nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Format, "format", "",
		"latest-values format: text|table|json|csv (default: text)")
	pf.BoolVar(&globalFlags.NoCache, "no-cache", false,
		"bypass the feed cache entirely")
	pf.BoolVar(&globalFlags.Refresh, "refresh", false,
		"force re-fetch and overwrite the cached feed")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show cache/timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests, cache lookups and skipped rows")

	f := rootCmd.Flags()
	f.StringVar(&chartFlags.State, "state", "",
		"2-letter region code, matched exactly (default: national data)")
	f.StringVar(&chartFlags.Metric, "metric", "",
		"metric column to chart (default: positiveIncrease; see 'covidchart metrics')")
	f.IntVar(&chartFlags.Height, "height", config.DefaultHeight,
		"chart height in rows")
	f.IntVar(&chartFlags.Latest, "latest", config.DefaultLatest,
		"number of latest values to list")
	f.IntVar(&chartFlags.Width, "width", 0,
		"terminal width in columns (default: detected, else 80)")
	f.IntVar(&chartFlags.Margin, "margin", config.DefaultMargin,
		"columns reserved for axis labels")
	f.IntVar(&chartFlags.Smooth, "smooth", 0,
		"trailing N-day mean before charting (0 = off)")
	f.StringVar(&chartFlags.Since, "since", "",
		"first date to include (YYYY-MM-DD)")
	f.StringVar(&chartFlags.Until, "until", "",
		"last date to include (YYYY-MM-DD)")
	f.StringVar(&chartFlags.PNG, "png", "",
		"also write the chart as a PNG image to this path")

	_ = rootCmd.RegisterFlagCompletionFunc("metric", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(model.Metrics))
		for i, m := range model.Metrics {
			names[i] = string(m) + "\t" + m.Label()
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}
