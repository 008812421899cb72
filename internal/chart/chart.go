// Package chart renders a series as a terminal line chart.
//
// The plot is scaled so the value range spans Height rows. Each row starts
// with a fixed-width value label and an axis tick; the series is drawn with
// box-drawing characters, one column per sample. A date axis with the first,
// middle and last sample dates is printed underneath.
//
//	   41265 ┤      ╭╮
//	   20632 ┤  ╭───╯╰─╮
//	       0 ┼──╯      ╰
//	         2021-01-01          2021-01-05          2021-01-10
package chart

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/util"
)

// Defaults for PlotOptions.
const (
	DefaultHeight      = 30
	DefaultLabelFormat = "%8.0f"
)

// dateWidth is the width of a formatted YYYY-MM-DD date.
const dateWidth = len("2006-01-02")

// Box-drawing glyphs.
const (
	glyphZero      = '┼'
	glyphTick      = '┤'
	glyphFlat      = '─'
	glyphDownEnter = '╰'
	glyphUpEnter   = '╭'
	glyphDownLeave = '╮'
	glyphUpLeave   = '╯'
	glyphVertical  = '│'
)

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls plot rendering.
type PlotOptions struct {
	// Height is the number of rows the value range is scaled to.
	// If 0, defaults to DefaultHeight.
	Height int
	// LabelFormat is the fmt verb used for y-axis labels.
	// If empty, defaults to DefaultLabelFormat.
	LabelFormat string
	// NoDates suppresses the date axis line.
	NoDates bool
}

// Plot renders samples to w. An empty series writes nothing.
func Plot(w io.Writer, samples []model.Sample, opts PlotOptions) error {
	if len(samples) == 0 {
		return nil
	}
	height := opts.Height
	if height <= 0 {
		height = DefaultHeight
	}
	format := opts.LabelFormat
	if format == "" {
		format = DefaultLabelFormat
	}

	g := newGrid(samples, height)
	labelWidth := 0
	for r := 0; r <= g.rows; r++ {
		label := fmt.Sprintf(format, g.label(r))
		if n := utf8.RuneCountInString(label); n > labelWidth {
			labelWidth = n
		}
		line := label + " " + string(g.axis[r]) + string(g.cells[r])
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}

	if opts.NoDates || len(samples) < 2 {
		return nil
	}
	axis := dateAxis(samples)
	_, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", labelWidth+2), axis)
	return err
}

// Lines returns the number of lines Plot writes for samples at the given
// height, excluding the date axis.
func Lines(samples []model.Sample, height int) int {
	if len(samples) == 0 {
		return 0
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return newGrid(samples, height).rows + 1
}

// ─── Grid building ────────────────────────────────────────────────────────────

// grid holds the scaled plot. Row 0 is the top (maximum value) and row
// `rows` is the bottom (minimum value).
type grid struct {
	minVal, maxVal float64
	ratio          float64
	min2, max2     int
	rows           int
	axis           []rune
	cells          [][]rune
}

func newGrid(samples []model.Sample, height int) *grid {
	minVal, maxVal := samples[0].Value, samples[0].Value
	for _, s := range samples[1:] {
		if s.Value < minVal {
			minVal = s.Value
		}
		if s.Value > maxVal {
			maxVal = s.Value
		}
	}

	g := &grid{minVal: minVal, maxVal: maxVal, ratio: 1}
	if interval := maxVal - minVal; interval > 0 {
		g.ratio = float64(height) / interval
	}
	g.min2 = int(math.Floor(minVal * g.ratio))
	g.max2 = int(math.Ceil(maxVal * g.ratio))
	g.rows = g.max2 - g.min2

	width := len(samples) - 1
	g.axis = make([]rune, g.rows+1)
	g.cells = make([][]rune, g.rows+1)
	for r := range g.cells {
		g.axis[r] = glyphTick
		if g.max2-r == 0 {
			g.axis[r] = glyphZero
		}
		g.cells[r] = []rune(strings.Repeat(" ", width))
	}

	g.axis[g.rowOf(samples[0].Value)] = glyphZero

	for x := 0; x < width; x++ {
		y0 := g.level(samples[x].Value)
		y1 := g.level(samples[x+1].Value)
		if y0 == y1 {
			g.cells[g.rows-y0][x] = glyphFlat
			continue
		}
		if y0 > y1 {
			g.cells[g.rows-y1][x] = glyphDownEnter
			g.cells[g.rows-y0][x] = glyphDownLeave
		} else {
			g.cells[g.rows-y1][x] = glyphUpEnter
			g.cells[g.rows-y0][x] = glyphUpLeave
		}
		lo, hi := y0, y1
		if lo > hi {
			lo, hi = hi, lo
		}
		for y := lo + 1; y < hi; y++ {
			g.cells[g.rows-y][x] = glyphVertical
		}
	}
	return g
}

// level maps a value to its scaled height above the bottom row.
func (g *grid) level(v float64) int {
	v = math.Max(g.minVal, math.Min(g.maxVal, v))
	y := int(math.Round(v*g.ratio)) - g.min2
	if y < 0 {
		y = 0
	}
	if y > g.rows {
		y = g.rows
	}
	return y
}

func (g *grid) rowOf(v float64) int {
	return g.rows - g.level(v)
}

// label returns the value printed on row r.
func (g *grid) label(r int) float64 {
	div := float64(g.rows)
	if div == 0 {
		div = 1
	}
	return g.maxVal - float64(r)*(g.maxVal-g.minVal)/div
}

// ─── Axis helpers ─────────────────────────────────────────────────────────────

// dateAxis builds a line with the first, middle and last sample dates,
// positioned under their columns. The middle date is dropped when it would
// collide with the others.
func dateAxis(samples []model.Sample) string {
	first := util.FormatDate(samples[0].Date)
	last := util.FormatDate(samples[len(samples)-1].Date)
	mid := util.FormatDate(samples[len(samples)/2].Date)

	width := len(samples)
	if minWidth := 2*dateWidth + 1; width < minWidth {
		width = minWidth
	}
	buf := []rune(strings.Repeat(" ", width))

	writeAt := func(pos int, s string) {
		for i, ch := range s {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}

	endPos := width - len(last)
	midPos := len(samples)/2 - len(mid)/2
	writeAt(0, first)
	if midPos > len(first) && midPos+len(mid) < endPos {
		writeAt(midPos, mid)
	}
	writeAt(endPos, last)

	return strings.TrimRight(string(buf), " ")
}
