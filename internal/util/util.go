// Package util provides shared utilities: date parsing for the feed and the
// CLI, and terminal width detection.
package util

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/term"
)

// ─── Date Parsing ─────────────────────────────────────────────────────────────

const (
	dateLayout        = "2006-01-02"
	compactDateLayout = "20060102"
)

// ParseDate parses a YYYY-MM-DD string into a time.Time (UTC midnight).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseCompactDate parses the feed's 8-digit YYYYMMDD date (UTC midnight).
func ParseCompactDate(s string) (time.Time, error) {
	if len(s) != len(compactDateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYYMMDD", s)
	}
	t, err := time.Parse(compactDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYYMMDD", s)
	}
	return t, nil
}

// FormatDate formats a time.Time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ─── Terminal ─────────────────────────────────────────────────────────────────

// DefaultTermWidth is used when the width cannot be detected.
const DefaultTermWidth = 80

// TermWidth returns the terminal width: $COLUMNS when set, otherwise the
// size of stdout when it is a terminal, otherwise DefaultTermWidth.
func TermWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 0 {
			return n
		}
	}
	if !IsTTY() {
		return DefaultTermWidth
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return DefaultTermWidth
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
