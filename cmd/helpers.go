package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/covidchart/internal/render"
)

// resolveFormat returns the effective format string, falling back to "table"
// when neither --format nor the config picks something other than text.
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" && globalFlags.Format != render.FormatText {
		return globalFlags.Format
	}
	if cfgFormat != "" && cfgFormat != render.FormatText {
		return cfgFormat
	}
	return render.FormatTable
}

// printSimpleTable renders rows with a bordered tablewriter table.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTable renders a two-column key/value listing using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

// parsePositiveInt parses s as an integer greater than zero, naming key in errors.
func parsePositiveInt(s, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return n, nil
}

// parseNonNegativeInt parses s as an integer of zero or more, naming key in errors.
func parseNonNegativeInt(s, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be zero or a positive integer, got %q", key, s)
	}
	return n, nil
}
