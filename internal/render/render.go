// Package render writes the human-readable and machine-parseable blocks that
// surround the chart: the header line, the latest-values listing, the metric
// catalogue and the warnings/stats footer.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// ─── Chart Header ─────────────────────────────────────────────────────────────

// ChartHeader writes the title line naming the metric and region. The title
// is bold when colour output is enabled.
func ChartHeader(w io.Writer, q model.Query) error {
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if _, err := color.New(color.Bold).Fprintln(w, Title(q)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// Title returns the chart title for q.
func Title(q model.Query) string {
	metric := q.Metric
	if metric == "" {
		metric = model.DefaultMetric
	}
	return fmt.Sprintf("COVID-19 %s in %s, over time", metric.Label(), q.RegionLabel())
}

// ─── Latest Values ────────────────────────────────────────────────────────────

// latestRow is the machine-readable form of one latest value.
type latestRow struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// Latest writes up to n of the most recent points, newest first. points
// must be oldest-first. Fewer than n points (or none) is not an error.
func Latest(w io.Writer, points []model.Point, n int, format string) error {
	rows := latest(points, n)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatCSV:
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"date", "value"})
		for _, r := range rows {
			_ = cw.Write([]string{r.Date, strconv.FormatInt(r.Value, 10)})
		}
		cw.Flush()
		return cw.Error()
	case FormatTable:
		fmt.Fprintf(w, "Latest %d values:\n", n)
		tw := tablewriter.NewWriter(w)
		tw.SetHeader([]string{"DATE", "VALUE"})
		tw.SetBorder(true)
		tw.SetRowLine(false)
		tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		tw.SetColumnAlignment([]int{
			tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_RIGHT,
		})
		tw.SetAutoWrapText(false)
		for _, r := range rows {
			tw.Append([]string{r.Date, strconv.FormatInt(r.Value, 10)})
		}
		tw.Render()
		return nil
	default:
		if _, err := fmt.Fprintf(w, "Latest %d values:\n", n); err != nil {
			return err
		}
		for _, r := range rows {
			if _, err := fmt.Fprintf(w, "%s: %d\n", r.Date, r.Value); err != nil {
				return err
			}
		}
		return nil
	}
}

// latest returns the last n points in reverse order.
func latest(points []model.Point, n int) []latestRow {
	if n < 0 {
		n = 0
	}
	if n > len(points) {
		n = len(points)
	}
	rows := make([]latestRow, 0, n)
	for i := len(points) - 1; i >= len(points)-n; i-- {
		rows = append(rows, latestRow{
			Date:  util.FormatDate(points[i].Date),
			Value: points[i].Value,
		})
	}
	return rows
}

// ─── Metric Catalogue ─────────────────────────────────────────────────────────

// Metrics writes the list of chartable metrics. The default is marked.
func Metrics(w io.Writer, format string) error {
	type metricRow struct {
		Name    string `json:"name"`
		Label   string `json:"label"`
		Default bool   `json:"default"`
	}
	rows := make([]metricRow, len(model.Metrics))
	for i, m := range model.Metrics {
		rows[i] = metricRow{Name: string(m), Label: m.Label(), Default: m == model.DefaultMetric}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatCSV:
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"name", "label", "default"})
		for _, r := range rows {
			_ = cw.Write([]string{r.Name, r.Label, strconv.FormatBool(r.Default)})
		}
		cw.Flush()
		return cw.Error()
	default:
		tw := tablewriter.NewWriter(w)
		tw.SetHeader([]string{"METRIC", "DESCRIPTION", "DEFAULT"})
		tw.SetBorder(true)
		tw.SetRowLine(false)
		tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAutoWrapText(false)
		for _, r := range rows {
			mark := ""
			if r.Default {
				mark = "*"
			}
			tw.Append([]string{r.Name, r.Label, mark})
		}
		tw.Render()
		return nil
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes parse warnings to w and, in verbose mode, a one-line
// summary of the run.
func PrintFooter(w io.Writer, stats model.RunStats, diag model.Diagnostics, verbose bool) {
	for _, warn := range diag.Warnings() {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "live"
		if stats.CacheHit {
			src = "cache"
		}
		fmt.Fprintf(w, "\n[%s • %d rows • %d points • %dms • %s]\n",
			time.Now().UTC().Format(time.RFC3339),
			diag.Rows,
			stats.Items,
			stats.DurationMs,
			src,
		)
	}
}

// Warn writes a single warning line in the footer style.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "⚠  "+format+"\n", args...)
}
