package analyze_test

import (
	"math"
	"testing"
	"time"

	"github.com/derickschaefer/sellerscope/internal/analyze"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/transform"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// makePoints builds daily points for key "v" starting 2024-01-01.
// NaN values become null cells.
func makePoints(values ...float64) []model.TimePoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.TimePoint, len(values))
	for i, v := range values {
		c := model.Num(v)
		if math.IsNaN(v) {
			c = model.Cell{}
		}
		out[i] = model.TimePoint{
			Time:   base.AddDate(0, 0, i).UnixMilli(),
			Values: map[string]model.Cell{"v": c},
		}
	}
	return out
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func isNaN(v float64) bool { return math.IsNaN(v) }

var nan = math.NaN()

// ─── Summarize ────────────────────────────────────────────────────────────────

func TestSummarizeBasicCounts(t *testing.T) {
	s := analyze.Summarize("v", makePoints(1, 2, nan, 4, 5))

	if s.Key != "v" {
		t.Errorf("Key: expected v, got %q", s.Key)
	}
	if s.Count != 5 {
		t.Errorf("Count: expected 5, got %d", s.Count)
	}
	if s.Missing != 1 {
		t.Errorf("Missing: expected 1, got %d", s.Missing)
	}
	if !approxEqual(s.MissingPct, 20.0, 1e-9) {
		t.Errorf("MissingPct: expected 20.0, got %g", s.MissingPct)
	}
}

func TestSummarizeMeanStdMinMax(t *testing.T) {
	s := analyze.Summarize("v", makePoints(2, 4, 4, 4, 5, 5, 7, 9))
	if !approxEqual(s.Mean, 5.0, 1e-9) {
		t.Errorf("Mean: expected 5, got %g", s.Mean)
	}
	// Sample standard deviation.
	if !approxEqual(s.Std, 2.138089935, 1e-6) {
		t.Errorf("Std: expected ~2.138, got %g", s.Std)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("Min/Max: got %g / %g", s.Min, s.Max)
	}
	if !approxEqual(s.Median, 4.5, 1e-9) {
		t.Errorf("Median: expected 4.5, got %g", s.Median)
	}
}

func TestSummarizeFirstLastChange(t *testing.T) {
	s := analyze.Summarize("v", makePoints(nan, 20, 25, 30, nan))
	if s.First != 20 || s.Last != 30 {
		t.Errorf("First/Last: got %g / %g", s.First, s.Last)
	}
	if s.Change != 10 {
		t.Errorf("Change: expected 10, got %g", s.Change)
	}
	if !approxEqual(s.ChangePct, 50, 1e-9) {
		t.Errorf("ChangePct: expected 50, got %g", s.ChangePct)
	}
}

func TestSummarizeChangeZeroFirst(t *testing.T) {
	s := analyze.Summarize("v", makePoints(0, 5))
	if !isNaN(s.ChangePct) {
		t.Errorf("ChangePct from zero should be NaN, got %g", s.ChangePct)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	s := analyze.Summarize("v", nil)
	if s.Count != 0 || s.Missing != 0 {
		t.Errorf("expected zero counts, got %+v", s)
	}
}

func TestSummarizeAllNull(t *testing.T) {
	s := analyze.Summarize("v", makePoints(nan, nan))
	if s.Missing != 2 || !isNaN(s.Mean) || !isNaN(s.First) {
		t.Errorf("all-null series should yield NaN stats, got %+v", s)
	}
}

func TestSummarizeBreakCountsAsMissing(t *testing.T) {
	pts := makePoints(3, 4)
	pts[1].Values["v"] = model.Gap()
	s := analyze.Summarize("v", pts)
	if s.Missing != 1 || s.Last != 3 {
		t.Errorf("break should be missing, got %+v", s)
	}
}

func TestSummarizeGraphKeyOrder(t *testing.T) {
	g := &model.GraphSet{Keys: []string{"v", "absent"}, Points: makePoints(1, 2)}
	out := analyze.SummarizeGraph(g)
	if len(out) != 2 || out[0].Key != "v" || out[1].Key != "absent" {
		t.Fatalf("unexpected summaries: %+v", out)
	}
	if out[1].Missing != 2 {
		t.Errorf("absent key: expected 2 missing, got %d", out[1].Missing)
	}
}

// ─── Trend ────────────────────────────────────────────────────────────────────

func TestTrendLinearUpward(t *testing.T) {
	tr, err := analyze.Trend("v", makePoints(10, 11, 12, 13, 14), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(tr.Slope, 1, 1e-9) {
		t.Errorf("Slope: expected 1/day, got %g", tr.Slope)
	}
	if !approxEqual(tr.R2, 1, 1e-9) {
		t.Errorf("R2: expected 1, got %g", tr.R2)
	}
	if tr.Direction != "up" || !approxEqual(tr.SlopePer30d, 30, 1e-9) {
		t.Errorf("got direction %s, slope/30d %g", tr.Direction, tr.SlopePer30d)
	}
}

func TestTrendLinearDownward(t *testing.T) {
	tr, err := analyze.Trend("v", makePoints(20, 18, 16, 14), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Direction != "down" {
		t.Errorf("Direction: expected down, got %s", tr.Direction)
	}
}

func TestTrendFlat(t *testing.T) {
	tr, err := analyze.Trend("v", makePoints(5, 5, 5, 5), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Direction != "flat" || tr.R2 != 1 {
		t.Errorf("got %+v", tr)
	}
}

func TestTrendNullsExcluded(t *testing.T) {
	tr, err := analyze.Trend("v", makePoints(nan, 1, nan, 3, 4), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(tr.Slope, 1, 1e-9) {
		t.Errorf("Slope: expected 1, got %g", tr.Slope)
	}
}

func TestTrendTooFewValues(t *testing.T) {
	if _, err := analyze.Trend("v", makePoints(1, nan), analyze.TrendLinear); err == nil {
		t.Error("expected error with a single value")
	}
}

func TestTrendTheilSenRobustToOutlier(t *testing.T) {
	pts := makePoints(1, 2, 3, 4, 100, 6, 7)
	ts, err := analyze.Trend("v", pts, analyze.TrendTheilSen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approxEqual(ts.Slope, 1, 1e-9) {
		t.Errorf("Theil-Sen slope: expected 1, got %g", ts.Slope)
	}
	ols, _ := analyze.Trend("v", pts, analyze.TrendLinear)
	if approxEqual(ols.Slope, 1, 0.1) {
		t.Errorf("OLS slope should be pulled by the outlier, got %g", ols.Slope)
	}
	if ts.Method != analyze.TrendTheilSen {
		t.Errorf("Method: got %s", ts.Method)
	}
}

// ─── HistoryDays ──────────────────────────────────────────────────────────────

func TestHistoryDays(t *testing.T) {
	minute := func(d time.Time) int64 { return transform.MillisToKeepaMinute(d.UnixMilli()) }
	jan1 := minute(time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC))
	jan10 := minute(time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC))
	feb1 := minute(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	p := &model.Product{CSV: make([]model.RawSeries, 19)}
	p.CSV[model.CSVAmazon] = model.RawSeries{jan10, 1000, feb1, 1100}
	p.CSV[model.CSVBuyBoxShipping] = model.RawSeries{jan1, 999, 0, jan10, 1099, 0}

	// Jan 1 06:00 → Feb 1 00:00 is 30.75 days: floor + 1.
	if got := analyze.HistoryDays(p); got != 31 {
		t.Errorf("HistoryDays: expected 31, got %d", got)
	}
}

func TestHistoryDaysEmpty(t *testing.T) {
	if got := analyze.HistoryDays(&model.Product{}); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
