// Package transform implements the stateless series operators applied between
// parsing and rendering. Each operator is a pure function that returns a new
// slice; inputs are never modified.
package transform

import (
	"fmt"
	"time"

	"github.com/derickschaefer/covidchart/internal/model"
)

// DefaultMargin is the number of terminal columns reserved for axis labels.
const DefaultMargin = 12

// ─── Leading Zeros ────────────────────────────────────────────────────────────

// TrimLeadingZeros drops the run of zero values at the start of the series.
// Zeros after the first non-zero value are kept. An all-zero series yields
// an empty slice.
func TrimLeadingZeros(points []model.Point) []model.Point {
	n := 0
	for n < len(points) && points[n].Value == 0 {
		n++
	}
	out := make([]model.Point, len(points)-n)
	copy(out, points[n:])
	return out
}

// ─── Date Window ──────────────────────────────────────────────────────────────

// Window keeps points with since <= date <= until. A zero bound is open.
func Window(points []model.Point, since, until time.Time) []model.Point {
	out := make([]model.Point, 0, len(points))
	for _, p := range points {
		if !since.IsZero() && p.Date.Before(since) {
			continue
		}
		if !until.IsZero() && p.Date.After(until) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ─── Downsampling ─────────────────────────────────────────────────────────────

// ScaleFactor returns how many samples are averaged into each bucket so that
// n samples fit in columns-margin chart columns. It is always at least 1.
func ScaleFactor(n, columns, margin int) int {
	width := columns - margin
	if width < 1 {
		width = 1
	}
	f := (n + width - 1) / width
	if f < 1 {
		f = 1
	}
	return f
}

// Scale downsamples samples to fit the terminal. Samples are split into
// contiguous chunks of ScaleFactor length (the last may be shorter). Each
// bucket is the mean of its chunk, dated with the chunk's first date.
func Scale(samples []model.Sample, columns, margin int) model.Bucketed {
	factor := ScaleFactor(len(samples), columns, margin)
	if factor == 1 {
		out := make([]model.Sample, len(samples))
		copy(out, samples)
		return model.Bucketed{Factor: 1, Samples: out}
	}

	out := make([]model.Sample, 0, (len(samples)+factor-1)/factor)
	for start := 0; start < len(samples); start += factor {
		end := start + factor
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[start:end]
		out = append(out, model.Sample{
			Date:  chunk[0].Date,
			Value: mean(chunk),
		})
	}
	return model.Bucketed{Factor: factor, Samples: out}
}

// ─── Rolling Window ───────────────────────────────────────────────────────────

// Roll computes a trailing mean. Each output sample averages the current
// sample and the (window-1) preceding ones; the first window-1 outputs
// average however many samples exist so far.
func Roll(samples []model.Sample, window int) ([]model.Sample, error) {
	if window < 1 {
		return nil, fmt.Errorf("roll: window must be >= 1, got %d", window)
	}
	out := make([]model.Sample, len(samples))
	if window == 1 {
		copy(out, samples)
		return out, nil
	}

	var running float64
	for i, s := range samples {
		running += s.Value
		if i >= window {
			running -= samples[i-window].Value
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		out[i] = model.Sample{Date: s.Date, Value: running / float64(n)}
	}
	return out, nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func mean(samples []model.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var s float64
	for _, v := range samples {
		s += v.Value
	}
	return s / float64(len(samples))
}
