package parse_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/covidchart/internal/model"
	"github.com/derickschaefer/covidchart/internal/parse"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustParse(t *testing.T, csv string, q model.Query) *model.ParseResult {
	t.Helper()
	res, err := parse.Parse(strings.NewReader(csv), q)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return res
}

func values(points []model.Point) []int64 {
	out := make([]int64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

var national = model.Query{Metric: model.MetricPositiveIncrease}

// ─── Round trip ───────────────────────────────────────────────────────────────

func TestParseRoundTrip(t *testing.T) {
	const n = 20
	var b strings.Builder
	b.WriteString("date,state,positiveIncrease\n")
	// newest-first, as the feed publishes it
	for i := n; i >= 1; i-- {
		fmt.Fprintf(&b, "%s,CA,%d\n", day(2021, 1, 1).AddDate(0, 0, i-1).Format("20060102"), i*100)
	}

	res := mustParse(t, b.String(), national)
	pts := res.Series.Points
	if len(pts) != n {
		t.Fatalf("expected %d points, got %d", n, len(pts))
	}
	for i, p := range pts {
		if p.Value != int64((i+1)*100) {
			t.Errorf("point %d: expected %d, got %d", i, (i+1)*100, p.Value)
		}
		if i > 0 && !p.Date.After(pts[i-1].Date) {
			t.Errorf("dates not strictly ascending at %d: %v after %v", i, p.Date, pts[i-1].Date)
		}
	}
	if !pts[0].Date.Equal(day(2021, 1, 1)) {
		t.Errorf("first date: got %v", pts[0].Date)
	}
	if res.Diagnostics.Rows != n || res.Diagnostics.Kept != n {
		t.Errorf("diagnostics: %+v", res.Diagnostics)
	}
	if w := res.Diagnostics.Warnings(); len(w) != 0 {
		t.Errorf("expected no warnings, got %v", w)
	}
}

// ─── Row skipping ─────────────────────────────────────────────────────────────

func TestParseSkipsWrongShapeRows(t *testing.T) {
	csv := "date,state,positiveIncrease\n" +
		"20210103,CA,3\n" +
		"20210102,CA\n" +
		"20210101,CA,1\n" +
		"20201231,CA,9,extra\n"
	res := mustParse(t, csv, national)

	got := values(res.Series.Points)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected [1 3], got %v", got)
	}
	if want := []int{3, 5}; fmt.Sprint(res.Diagnostics.SkippedShape) != fmt.Sprint(want) {
		t.Errorf("SkippedShape: expected %v, got %v", want, res.Diagnostics.SkippedShape)
	}
}

func TestParseIgnoresBlankLinesAndCRLF(t *testing.T) {
	csv := "\r\ndate,positiveIncrease\r\n20210102,2\r\n\r\n20210101,1\r\n"
	res := mustParse(t, csv, national)
	if got := values(res.Series.Points); fmt.Sprint(got) != "[1 2]" {
		t.Errorf("expected [1 2], got %v", got)
	}
	if len(res.Diagnostics.SkippedShape) != 0 {
		t.Errorf("blank lines should not count as shape skips: %v", res.Diagnostics.SkippedShape)
	}
}

// ─── Region filtering ─────────────────────────────────────────────────────────

const statesCSV = "date,state,positiveIncrease\n" +
	"20210102,NY,20\n" +
	"20210102,CA,2\n" +
	"20210101,NY,10\n" +
	"20210101,CA,1\n"

func TestParseRegionFilter(t *testing.T) {
	res := mustParse(t, statesCSV, model.Query{Region: "CA", Metric: model.MetricPositiveIncrease})
	if got := values(res.Series.Points); fmt.Sprint(got) != "[1 2]" {
		t.Errorf("CA filter: expected [1 2], got %v", got)
	}
	if res.Diagnostics.SkippedRegion != 2 {
		t.Errorf("SkippedRegion: expected 2, got %d", res.Diagnostics.SkippedRegion)
	}
	if res.Series.Region != "CA" {
		t.Errorf("Series.Region: got %q", res.Series.Region)
	}
}

func TestParseRegionFilterIsCaseSensitive(t *testing.T) {
	res := mustParse(t, statesCSV, model.Query{Region: "ca", Metric: model.MetricPositiveIncrease})
	if len(res.Series.Points) != 0 {
		t.Errorf("lower-case filter should match nothing, got %d points", len(res.Series.Points))
	}
}

func TestParseNoFilterKeepsAllRegions(t *testing.T) {
	res := mustParse(t, statesCSV, national)
	if len(res.Series.Points) != 4 {
		t.Errorf("expected all 4 rows, got %d", len(res.Series.Points))
	}
}

// ─── Malformed fields ─────────────────────────────────────────────────────────

func TestParseCoercesBadValues(t *testing.T) {
	csv := "date,positiveIncrease\n" +
		"20210104,\n" +
		"20210103,n/a\n" +
		"20210102,12\n" +
		"20210101,5\n"
	res := mustParse(t, csv, national)

	if got := values(res.Series.Points); fmt.Sprint(got) != "[5 12 0 0]" {
		t.Errorf("expected [5 12 0 0], got %v", got)
	}
	if fmt.Sprint(res.Diagnostics.Coerced) != "[2 3]" {
		t.Errorf("Coerced: expected [2 3], got %v", res.Diagnostics.Coerced)
	}
	if len(res.Diagnostics.Warnings()) != 1 {
		t.Errorf("expected one warning, got %v", res.Diagnostics.Warnings())
	}
}

func TestParseNonIntegerValuesBecomeZero(t *testing.T) {
	csv := "date,positiveIncrease\n" +
		"20210104,9223372036854775808\n" +
		"20210103,1e3\n" +
		"20210102,12.7\n" +
		"20210101,5\n"
	res := mustParse(t, csv, national)

	if got := values(res.Series.Points); fmt.Sprint(got) != "[5 0 0 0]" {
		t.Errorf("expected [5 0 0 0], got %v", got)
	}
	if fmt.Sprint(res.Diagnostics.Coerced) != "[2 3 4]" {
		t.Errorf("Coerced: expected [2 3 4], got %v", res.Diagnostics.Coerced)
	}
}

func TestParseSkipsUndatedRows(t *testing.T) {
	csv := "date,positiveIncrease\n" +
		"20210102,2\n" +
		"2021-01-01,1\n" +
		",7\n"
	res := mustParse(t, csv, national)

	if len(res.Series.Points) != 1 || res.Series.Points[0].Value != 2 {
		t.Errorf("expected only the dated row, got %+v", res.Series.Points)
	}
	if fmt.Sprint(res.Diagnostics.SkippedDate) != "[3 4]" {
		t.Errorf("SkippedDate: expected [3 4], got %v", res.Diagnostics.SkippedDate)
	}
}

// ─── Header errors ────────────────────────────────────────────────────────────

func TestParseMissingColumns(t *testing.T) {
	cases := []struct {
		name string
		csv  string
		q    model.Query
	}{
		{"no date", "day,positiveIncrease\n", national},
		{"no metric", "date,positive\n", national},
		{"no state with filter", "date,positiveIncrease\n", model.Query{Region: "CA", Metric: model.MetricPositiveIncrease}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse.Parse(strings.NewReader(tc.csv), tc.q)
			if !errors.Is(err, parse.ErrMissingColumn) {
				t.Errorf("expected ErrMissingColumn, got %v", err)
			}
		})
	}
}

func TestParseStateColumnOptionalWithoutFilter(t *testing.T) {
	res := mustParse(t, "date,positiveIncrease\n20210101,4\n", national)
	if len(res.Series.Points) != 1 {
		t.Errorf("expected 1 point, got %d", len(res.Series.Points))
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, in := range []string{"", "\n\n  \n"} {
		if _, err := parse.Parse(strings.NewReader(in), national); !errors.Is(err, parse.ErrNoHeader) {
			t.Errorf("input %q: expected ErrNoHeader, got %v", in, err)
		}
	}
}

func TestParseHeaderOnly(t *testing.T) {
	res := mustParse(t, "date,positiveIncrease\n", national)
	if len(res.Series.Points) != 0 {
		t.Errorf("expected empty series, got %d points", len(res.Series.Points))
	}
}

func TestParseSelectsMetricColumn(t *testing.T) {
	csv := "date,positiveIncrease,deathIncrease\n20210101,100,3\n"
	res := mustParse(t, csv, model.Query{Metric: model.MetricDeathIncrease})
	if res.Series.Points[0].Value != 3 {
		t.Errorf("expected deathIncrease value 3, got %d", res.Series.Points[0].Value)
	}
	if res.Series.Metric != model.MetricDeathIncrease {
		t.Errorf("Series.Metric: got %q", res.Series.Metric)
	}
}
