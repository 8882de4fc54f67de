package util_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/derickschaefer/sellerscope/internal/util"
)

func TestFormatDate(t *testing.T) {
	got := util.FormatDate(time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC))
	if got != "2024-06-15" {
		t.Errorf("got %s", got)
	}
}

func TestParseNow(t *testing.T) {
	got, err := util.ParseNow("2024-06-15T09:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("got %s", got)
	}
	if _, err := util.ParseNow("2024-06-15"); err != nil {
		t.Errorf("date-only form should parse: %v", err)
	}
	if _, err := util.ParseNow("tomorrow"); err == nil {
		t.Error("expected error")
	}
}

func TestParseDays(t *testing.T) {
	cases := map[string]int{"30": 30, "all": 0, "ALL": 0, " 90 ": 90}
	for in, want := range cases {
		got, err := util.ParseDays(in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: got %d, want %d", in, got, want)
		}
	}
	for _, bad := range []string{"-3", "week", "1.5"} {
		if _, err := util.ParseDays(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestNormalizeASINs(t *testing.T) {
	got, err := util.NormalizeASINs([]string{"b0abcdef12, B0ABCDEF12", "B0XYZ98765"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "B0ABCDEF12" || got[1] != "B0XYZ98765" {
		t.Errorf("got %v", got)
	}
	if _, err := util.NormalizeASINs([]string{"short"}); err == nil {
		t.Error("expected error for invalid ASIN")
	}
}

func TestFormatValue(t *testing.T) {
	v := 12.5
	nan := math.NaN()
	if util.FormatValue(&v) != "12.5" {
		t.Errorf("got %s", util.FormatValue(&v))
	}
	if util.FormatValue(nil) != "." || util.FormatValue(&nan) != "." {
		t.Error("missing values should render as '.'")
	}
	if util.FormatMoney(&v) != "12.50" {
		t.Errorf("FormatMoney: got %s", util.FormatMoney(&v))
	}
}

func TestMultiError(t *testing.T) {
	var m util.MultiError
	if m.Err() != nil {
		t.Fatal("empty MultiError should be nil")
	}
	m.Add(nil)
	m.Add(errors.New("first"))
	m.Addf("second %d", 2)
	if m.Err() == nil {
		t.Fatal("expected error")
	}
	if m.Error() != "first; second 2" {
		t.Errorf("got %q", m.Error())
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"Wireless Earbuds Pro", 10, "Wireles..."},
		{"Kaffeemühle", 8, "Kaffe..."},
		{"abcdef", 2, "ab"},
	}
	for _, c := range cases {
		if got := util.Truncate(c.in, c.n); got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}
