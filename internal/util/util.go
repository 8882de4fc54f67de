// Package util provides shared utilities: date and day-window parsing, ASIN
// validation, value formatting, and error aggregation.
package util

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ─── Date Parsing ─────────────────────────────────────────────────────────────

const dateLayout = "2006-01-02"

// FormatDate formats a time.Time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseNow parses the --now override: RFC 3339 or YYYY-MM-DD (local midnight).
// An empty string returns the current time.
func ParseNow(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseDays parses a day window: a positive integer, or "all" (returned as 0).
func ParseDays(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "all" || s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid day window %q: expected a positive integer or \"all\"", s)
	}
	return n, nil
}

// ─── ASINs ────────────────────────────────────────────────────────────────────

var asinRe = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// ValidASIN reports whether s looks like an Amazon ASIN (ten uppercase
// alphanumerics).
func ValidASIN(s string) bool {
	return asinRe.MatchString(s)
}

// NormalizeASINs uppercases, trims and de-duplicates ASINs, splitting
// comma-separated entries. Order of first appearance is kept.
func NormalizeASINs(in []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, arg := range in {
		for _, part := range strings.Split(arg, ",") {
			a := strings.ToUpper(strings.TrimSpace(part))
			if a == "" || seen[a] {
				continue
			}
			if !ValidASIN(a) {
				return nil, fmt.Errorf("invalid ASIN %q", part)
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out, nil
}

// ─── Value Formatting ─────────────────────────────────────────────────────────

// FormatValue formats an optional float for display, showing "." for nil
// or NaN.
func FormatValue(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "."
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormatMoney formats an optional currency amount with two decimals,
// showing "." for nil.
func FormatMoney(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "."
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Addf adds a formatted error.
func (m *MultiError) Addf(format string, args ...interface{}) {
	m.Errors = append(m.Errors, fmt.Errorf(format, args...))
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
