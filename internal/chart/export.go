package chart

import (
	"bytes"
	"fmt"
	"os"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/derickschaefer/covidchart/internal/model"
)

// PNG dimensions.
const (
	PNGWidth  = 1200
	PNGHeight = 600

	// MinPNGSamples is the fewest samples RenderPNG can draw.
	MinPNGSamples = 2
)

// RenderPNG draws samples as a single time-series line chart and returns the
// encoded PNG. At least two samples are required.
func RenderPNG(title string, samples []model.Sample) ([]byte, error) {
	if len(samples) < MinPNGSamples {
		return nil, fmt.Errorf("png export: need at least %d samples (got %d)", MinPNGSamples, len(samples))
	}

	xs := make([]time.Time, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Date
		ys[i] = s.Value
	}

	ch := gochart.Chart{
		Title:      title,
		Width:      PNGWidth,
		Height:     PNGHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeDateValueFormatter,
		},
		YAxis: gochart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    title,
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: drawing.ColorFromHex("1f77b4"),
					StrokeWidth: 2,
				},
			},
		},
	}

	// A flat series has a zero y range, which the renderer rejects.
	if lo, hi := bounds(ys); lo == hi {
		ch.YAxis.Range = &gochart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	var buf bytes.Buffer
	if err := ch.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("png export: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPNG renders samples to a PNG file at path.
func ExportPNG(path, title string, samples []model.Sample) error {
	data, err := RenderPNG(title, samples)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func bounds(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
