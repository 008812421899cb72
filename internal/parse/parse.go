// Package parse turns a raw daily CSV feed into a chronological series.
//
// The feed is newest-first with a header row naming its columns. Rows are
// split on commas without quote handling; any row whose field count differs
// from the header is skipped. Problems with individual rows never fail the
// parse; they are recorded in model.Diagnostics instead.
package parse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/util"
)

// Required column names.
const (
	ColumnDate  = "date"
	ColumnState = "state"
)

var (
	// ErrNoHeader is returned when the input holds no non-empty line.
	ErrNoHeader = errors.New("feed has no header row")
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing column")
)

// maxLine bounds a single CSV line. The states feed has ~50 columns.
const maxLine = 1 << 20

// Parse reads a CSV feed and extracts the metric named by q, filtered to
// q.Region when it is set.
func Parse(r io.Reader, q model.Query) (*model.ParseResult, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		header []string
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			header = strings.Split(line, ",")
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if header == nil {
		return nil, ErrNoHeader
	}

	cols, err := locate(header, q)
	if err != nil {
		return nil, err
	}

	res := &model.ParseResult{
		Series: model.Series{Region: q.Region, Metric: q.Metric},
	}
	diag := &res.Diagnostics
	var points []model.Point

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		diag.Rows++

		fields := strings.Split(line, ",")
		if len(fields) != len(header) {
			diag.SkippedShape = append(diag.SkippedShape, lineNo)
			slog.Debug("row skipped", "line", lineNo, "reason", "field count", "got", len(fields), "want", len(header))
			continue
		}

		if q.Region != "" && fields[cols.state] != q.Region {
			diag.SkippedRegion++
			continue
		}

		date, err := util.ParseCompactDate(strings.TrimSpace(fields[cols.date]))
		if err != nil {
			diag.SkippedDate = append(diag.SkippedDate, lineNo)
			slog.Debug("row skipped", "line", lineNo, "reason", "date", "value", fields[cols.date])
			continue
		}

		value, ok := parseCount(fields[cols.metric])
		if !ok {
			diag.Coerced = append(diag.Coerced, lineNo)
			slog.Debug("value coerced to 0", "line", lineNo, "value", fields[cols.metric])
		}

		points = append(points, model.Point{Date: date, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	// Feed order is newest-first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	res.Series.Points = points
	diag.Kept = len(points)
	return res, nil
}

type columns struct {
	date, metric, state int
}

// locate maps the required column names to their header positions.
func locate(header []string, q model.Query) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	c := columns{state: -1}
	var ok bool
	if c.date, ok = index[ColumnDate]; !ok {
		return c, fmt.Errorf("%w %q", ErrMissingColumn, ColumnDate)
	}
	if c.metric, ok = index[string(q.Metric)]; !ok {
		return c, fmt.Errorf("%w %q", ErrMissingColumn, string(q.Metric))
	}
	if q.Region != "" {
		if c.state, ok = index[ColumnState]; !ok {
			return c, fmt.Errorf("%w %q", ErrMissingColumn, ColumnState)
		}
	}
	return c, nil
}

// parseCount parses an integer count. Anything that is not a base-10
// integer, decimals and exponents included, returns (0, false).
func parseCount(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
