package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/derickschaefer/covidchart/internal/chart"
	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/parse"
	"github.com/derickschaefer/covidchart/internal/render"
	"github.com/derickschaefer/covidchart/internal/source"
	"github.com/derickschaefer/covidchart/internal/transform"
)

// RunOptions controls a single chart run. It is resolved once from config
// and flags and passed by value.
type RunOptions struct {
	Height  int
	Latest  int
	Columns int
	Margin  int
	Smooth  int
	Since   time.Time
	Until   time.Time
	PNGPath string
	Format  string
	Verbose bool
}

// showData runs fetch, parse, window, trim, smooth, scale and render for q.
// The chart and latest values go to out; warnings and stats go to errOut.
// With json or csv format only the latest values are written to out, so the
// output stays machine-readable.
func showData(ctx context.Context, out, errOut io.Writer, f source.Fetcher, q model.Query, opts RunOptions) (model.RunStats, error) {
	start := time.Now()
	var stats model.RunStats

	feed, err := f.Fetch(ctx, q.Region)
	if err != nil {
		return stats, err
	}
	stats.CacheHit = feed.FromCache

	res, err := parse.Parse(bytes.NewReader(feed.Body), q)
	if err != nil {
		return stats, fmt.Errorf("parsing %s: %w", feed.URL, err)
	}
	slog.Debug("parsed feed",
		"url", feed.URL,
		"rows", res.Diagnostics.Rows,
		"kept", res.Diagnostics.Kept,
		"skipped_region", res.Diagnostics.SkippedRegion)

	windowed := transform.Window(res.Series.Points, opts.Since, opts.Until)
	trimmed := transform.TrimLeadingZeros(windowed)
	samples := model.Samples(trimmed)
	if opts.Smooth > 1 {
		if samples, err = transform.Roll(samples, opts.Smooth); err != nil {
			return stats, err
		}
	}
	bucketed := transform.Scale(samples, opts.Columns, opts.Margin)
	slog.Debug("scaled series",
		"points", len(trimmed),
		"columns", opts.Columns,
		"margin", opts.Margin,
		"factor", bucketed.Factor,
		"buckets", len(bucketed.Samples),
		"lines", chart.Lines(bucketed.Samples, opts.Height))

	machine := opts.Format == render.FormatJSON || opts.Format == render.FormatCSV
	if !machine {
		if err := render.ChartHeader(out, q); err != nil {
			return stats, err
		}
		if err := chart.Plot(out, bucketed.Samples, chart.PlotOptions{Height: opts.Height}); err != nil {
			return stats, err
		}
		fmt.Fprintln(out)
	}
	if err := render.Latest(out, windowed, opts.Latest, opts.Format); err != nil {
		return stats, err
	}

	switch {
	case opts.PNGPath == "":
	case len(samples) < chart.MinPNGSamples:
		render.Warn(errOut, "PNG not written: %d point(s) to chart, need at least %d", len(samples), chart.MinPNGSamples)
	default:
		if err := chart.ExportPNG(opts.PNGPath, render.Title(q), samples); err != nil {
			return stats, err
		}
		if !machine {
			fmt.Fprintf(out, "\n✓ Wrote %s\n", opts.PNGPath)
		}
	}

	stats.Items = len(trimmed)
	stats.DurationMs = time.Since(start).Milliseconds()
	render.PrintFooter(errOut, stats, res.Diagnostics, opts.Verbose)
	return stats, nil
}
