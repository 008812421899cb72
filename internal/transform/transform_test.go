package transform_test

import (
	"math"
	"testing"
	"time"

	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/transform"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// makePoints builds daily points starting 2021-01-01 from values.
func makePoints(values ...int64) []model.Point {
	out := make([]model.Point, len(values))
	for i, v := range values {
		out[i] = model.Point{
			Date:  time.Date(2021, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Value: v,
		}
	}
	return out
}

// makeSamples builds daily samples starting 2021-01-01 from values.
func makeSamples(values ...float64) []model.Sample {
	out := make([]model.Sample, len(values))
	for i, v := range values {
		out[i] = model.Sample{
			Date:  time.Date(2021, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Value: v,
		}
	}
	return out
}

// date parses "YYYY-MM-DD" and panics on error. Test use only.
func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic("date: " + err.Error())
	}
	return t
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func pointValues(points []model.Point) []int64 {
	out := make([]int64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func sampleValues(samples []model.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

// ─── TrimLeadingZeros ─────────────────────────────────────────────────────────

func TestTrimLeadingZeros(t *testing.T) {
	in := makePoints(0, 0, 0, 5, 3, 0, 2)
	out := transform.TrimLeadingZeros(in)

	want := []int64{5, 3, 0, 2}
	got := pointValues(out)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if !out[0].Date.Equal(date("2021-01-04")) {
		t.Errorf("dates must move with values: first date %v", out[0].Date)
	}
}

func TestTrimLeadingZerosAllZero(t *testing.T) {
	out := transform.TrimLeadingZeros(makePoints(0, 0, 0))
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", out)
	}
}

func TestTrimLeadingZerosNoLeadingRun(t *testing.T) {
	in := makePoints(4, 0, 0)
	out := transform.TrimLeadingZeros(in)
	if len(out) != 3 {
		t.Errorf("nothing should be trimmed, got %v", pointValues(out))
	}
}

func TestTrimLeadingZerosEmpty(t *testing.T) {
	if out := transform.TrimLeadingZeros(nil); len(out) != 0 {
		t.Errorf("expected empty result, got %v", out)
	}
}

func TestTrimLeadingZerosDoesNotAlias(t *testing.T) {
	in := makePoints(0, 1, 2)
	out := transform.TrimLeadingZeros(in)
	out[0].Value = 99
	if in[1].Value != 1 {
		t.Error("TrimLeadingZeros must not alias its input")
	}
}

// ─── Window ───────────────────────────────────────────────────────────────────

func TestWindowInclusiveBounds(t *testing.T) {
	in := makePoints(1, 2, 3, 4, 5) // Jan 1..5
	out := transform.Window(in, date("2021-01-02"), date("2021-01-04"))
	got := pointValues(out)
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Errorf("expected [2 3 4], got %v", got)
	}
}

func TestWindowOpenBounds(t *testing.T) {
	in := makePoints(1, 2, 3, 4, 5)
	if out := transform.Window(in, time.Time{}, time.Time{}); len(out) != 5 {
		t.Errorf("zero bounds should keep everything, got %d", len(out))
	}
	if out := transform.Window(in, date("2021-01-04"), time.Time{}); len(out) != 2 {
		t.Errorf("since only: expected 2, got %d", len(out))
	}
	if out := transform.Window(in, time.Time{}, date("2021-01-01")); len(out) != 1 {
		t.Errorf("until only: expected 1, got %d", len(out))
	}
}

// ─── Scale ────────────────────────────────────────────────────────────────────

func TestScaleFactor(t *testing.T) {
	cases := []struct {
		n, cols, margin, want int
	}{
		{97, 80, 12, 2},
		{68, 80, 12, 1},
		{69, 80, 12, 2},
		{0, 80, 12, 1},
		{10, 5, 12, 10}, // width clamps to 1
		{300, 80, 12, 5},
	}
	for _, tc := range cases {
		if got := transform.ScaleFactor(tc.n, tc.cols, tc.margin); got != tc.want {
			t.Errorf("ScaleFactor(%d, %d, %d): expected %d, got %d", tc.n, tc.cols, tc.margin, tc.want, got)
		}
	}
}

func TestScaleDownsample97(t *testing.T) {
	vals := make([]float64, 97)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	in := makeSamples(vals...)
	out := transform.Scale(in, 80, transform.DefaultMargin)

	if out.Factor != 2 {
		t.Fatalf("expected factor 2, got %d", out.Factor)
	}
	if len(out.Samples) != 49 {
		t.Fatalf("expected 49 buckets, got %d", len(out.Samples))
	}
	for i, s := range out.Samples[:48] {
		want := (vals[2*i] + vals[2*i+1]) / 2
		if !approxEqual(s.Value, want, 1e-9) {
			t.Errorf("bucket %d: expected %g, got %g", i, want, s.Value)
		}
		if !s.Date.Equal(in[2*i].Date) {
			t.Errorf("bucket %d: date should be chunk start %v, got %v", i, in[2*i].Date, s.Date)
		}
	}
	last := out.Samples[48]
	if last.Value != 97 {
		t.Errorf("short last bucket: expected 97, got %g", last.Value)
	}
	if !last.Date.Equal(in[96].Date) {
		t.Errorf("last bucket date: got %v", last.Date)
	}
}

func TestScaleFitsUnchanged(t *testing.T) {
	in := makeSamples(1, 2, 3)
	out := transform.Scale(in, 80, 12)
	if out.Factor != 1 {
		t.Errorf("expected factor 1, got %d", out.Factor)
	}
	got := sampleValues(out.Samples)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("expected input unchanged, got %v", got)
	}
	out.Samples[0].Value = 42
	if in[0].Value != 1 {
		t.Error("Scale must copy when factor is 1")
	}
}

func TestScaleEmpty(t *testing.T) {
	out := transform.Scale(nil, 80, 12)
	if out.Factor != 1 || len(out.Samples) != 0 {
		t.Errorf("expected factor 1 with no samples, got %+v", out)
	}
}

func TestScaleBucketCountMatchesDates(t *testing.T) {
	for n := 1; n <= 400; n += 7 {
		vals := make([]float64, n)
		out := transform.Scale(makeSamples(vals...), 80, 12)
		want := (n + out.Factor - 1) / out.Factor
		if len(out.Samples) != want {
			t.Errorf("n=%d factor=%d: expected %d buckets, got %d", n, out.Factor, want, len(out.Samples))
		}
		if len(out.Samples) > 68 {
			t.Errorf("n=%d: %d buckets exceed chart width", n, len(out.Samples))
		}
	}
}

// ─── Roll ─────────────────────────────────────────────────────────────────────

func TestRollMean(t *testing.T) {
	out, err := transform.Roll(makeSamples(1, 2, 3, 4, 5), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1, 1.5, 2, 3, 4}
	for i, w := range want {
		if !approxEqual(out[i].Value, w, 1e-9) {
			t.Errorf("index %d: expected %g, got %g", i, w, out[i].Value)
		}
	}
}

func TestRollWindowOneIsIdentity(t *testing.T) {
	in := makeSamples(3, 1, 4)
	out, err := transform.Roll(in, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("index %d: expected %+v, got %+v", i, in[i], out[i])
		}
	}
}

func TestRollInvalidWindow(t *testing.T) {
	if _, err := transform.Roll(makeSamples(1), 0); err == nil {
		t.Error("expected error for window 0")
	}
}

func TestRollDatesPreserved(t *testing.T) {
	in := makeSamples(1, 2, 3)
	out, _ := transform.Roll(in, 2)
	for i := range in {
		if !out[i].Date.Equal(in[i].Date) {
			t.Errorf("index %d: date changed", i)
		}
	}
}

func TestRollEmpty(t *testing.T) {
	out, err := transform.Roll(nil, 7)
	if err != nil || len(out) != 0 {
		t.Errorf("expected empty result, got %v, %v", out, err)
	}
}
