// Package model defines the canonical data types used throughout covidchart.
// These types are the single source of truth for the query a run answers,
// the parsed series, and the diagnostics collected along the way.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ─── Metrics ──────────────────────────────────────────────────────────────────

// Metric is the name of a numeric CSV column that can be charted.
type Metric string

const (
	MetricPositiveIncrease         Metric = "positiveIncrease"
	MetricPositive                 Metric = "positive"
	MetricDeathIncrease            Metric = "deathIncrease"
	MetricDeath                    Metric = "death"
	MetricHospitalizedIncrease     Metric = "hospitalizedIncrease"
	MetricHospitalizedCurrently    Metric = "hospitalizedCurrently"
	MetricHospitalizedCumulative   Metric = "hospitalizedCumulative"
	MetricInIcuCurrently           Metric = "inIcuCurrently"
	MetricOnVentilatorCurrently    Metric = "onVentilatorCurrently"
	MetricTotalTestResultsIncrease Metric = "totalTestResultsIncrease"
)

// Metrics lists every known metric. The first entry is the default.
var Metrics = []Metric{
	MetricPositiveIncrease,
	MetricPositive,
	MetricDeathIncrease,
	MetricDeath,
	MetricHospitalizedIncrease,
	MetricHospitalizedCurrently,
	MetricHospitalizedCumulative,
	MetricInIcuCurrently,
	MetricOnVentilatorCurrently,
	MetricTotalTestResultsIncrease,
}

// DefaultMetric is used when no metric is requested.
var DefaultMetric = Metrics[0]

var metricLabels = map[Metric]string{
	MetricPositiveIncrease:         "new cases",
	MetricPositive:                 "cumulative cases",
	MetricDeathIncrease:            "new deaths",
	MetricDeath:                    "cumulative deaths",
	MetricHospitalizedIncrease:     "new hospitalizations",
	MetricHospitalizedCurrently:    "current hospitalizations",
	MetricHospitalizedCumulative:   "cumulative hospitalizations",
	MetricInIcuCurrently:           "patients currently in ICU",
	MetricOnVentilatorCurrently:    "patients currently on a ventilator",
	MetricTotalTestResultsIncrease: "new test results",
}

// ErrUnknownMetric is returned by ParseMetric for names outside Metrics.
var ErrUnknownMetric = errors.New("unknown metric")

// ParseMetric validates s against the known metrics.
// An empty string selects DefaultMetric.
func ParseMetric(s string) (Metric, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultMetric, nil
	}
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	names := make([]string, len(Metrics))
	for i, m := range Metrics {
		names[i] = string(m)
	}
	return "", fmt.Errorf("%w %q (valid: %s)", ErrUnknownMetric, s, strings.Join(names, ", "))
}

// Label returns the human-readable description used in chart headers.
func (m Metric) Label() string {
	if l, ok := metricLabels[m]; ok {
		return l
	}
	return string(m)
}

// ─── Query ────────────────────────────────────────────────────────────────────

// Query is the resolved input of a single run. Region is empty for
// national data; otherwise it must match the feed's state column exactly.
type Query struct {
	Region string `json:"region,omitempty"`
	Metric Metric `json:"metric"`
}

// RegionLabel returns the region name used in chart headers.
func (q Query) RegionLabel() string {
	if q.Region == "" {
		return "the USA"
	}
	return q.Region
}

// ─── Time Series Types ────────────────────────────────────────────────────────

// Point is a single dated count from the feed.
type Point struct {
	Date  time.Time `json:"date"`
	Value int64     `json:"value"`
}

// Series holds the points for one metric and region, oldest first.
type Series struct {
	Region string  `json:"region,omitempty"`
	Metric Metric  `json:"metric"`
	Points []Point `json:"points"`
}

// Sample is a float-valued point: the view used for smoothing, downsampling
// and plotting.
type Sample struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Samples converts points to samples.
func Samples(points []Point) []Sample {
	out := make([]Sample, len(points))
	for i, p := range points {
		out[i] = Sample{Date: p.Date, Value: float64(p.Value)}
	}
	return out
}

// Bucketed is a downsampled series. Factor is the number of source samples
// averaged into each bucket (the last bucket may hold fewer).
type Bucketed struct {
	Factor  int      `json:"factor"`
	Samples []Sample `json:"samples"`
}

// ─── Feed ─────────────────────────────────────────────────────────────────────

// Feed is a raw CSV document as fetched from the data source or the cache.
type Feed struct {
	URL       string    `json:"url"`
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
	FromCache bool      `json:"-"`
}

// ─── Diagnostics ──────────────────────────────────────────────────────────────

// Diagnostics records what the parser did with rows it could not use as-is.
// Line numbers are 1-based and count the header line.
type Diagnostics struct {
	Rows          int   `json:"rows"`
	Kept          int   `json:"kept"`
	SkippedRegion int   `json:"skipped_region"`
	SkippedShape  []int `json:"skipped_shape,omitempty"`
	SkippedDate   []int `json:"skipped_date,omitempty"`
	Coerced       []int `json:"coerced,omitempty"`
}

// Warnings summarises the diagnostics as user-facing messages.
func (d Diagnostics) Warnings() []string {
	var w []string
	if n := len(d.SkippedShape); n > 0 {
		w = append(w, fmt.Sprintf("%d row(s) skipped: field count differs from header (lines %s)", n, lineList(d.SkippedShape)))
	}
	if n := len(d.SkippedDate); n > 0 {
		w = append(w, fmt.Sprintf("%d row(s) skipped: unparsable date (lines %s)", n, lineList(d.SkippedDate)))
	}
	if n := len(d.Coerced); n > 0 {
		w = append(w, fmt.Sprintf("%d value(s) not numeric, charted as 0 (lines %s)", n, lineList(d.Coerced)))
	}
	return w
}

// lineList formats up to five line numbers, eliding the rest.
func lineList(lines []int) string {
	const limit = 5
	parts := make([]string, 0, limit+1)
	for i, l := range lines {
		if i == limit {
			parts = append(parts, fmt.Sprintf("… +%d more", len(lines)-limit))
			break
		}
		parts = append(parts, fmt.Sprintf("%d", l))
	}
	return strings.Join(parts, ", ")
}

// ParseResult bundles a parsed series with its diagnostics.
type ParseResult struct {
	Series      Series      `json:"series"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// ─── Run Stats ────────────────────────────────────────────────────────────────

// RunStats carries performance and cache metadata for a run.
type RunStats struct {
	CacheHit   bool  `json:"cache_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}
