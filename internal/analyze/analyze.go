// Package analyze computes descriptive statistics and trends over assembled
// graph series, plus history-length metrics over raw Keepa products.
// All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"

	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/transform"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for one graph series.
type Summary struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`       // total points
	Missing    int     `json:"missing"`     // null points
	MissingPct float64 `json:"missing_pct"` // percent null
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	Median     float64 `json:"median"`
	Max        float64 `json:"max"`
	First      float64 `json:"first"`  // first non-null value
	Last       float64 `json:"last"`   // last non-null value
	Change     float64 `json:"change"` // Last - First
	ChangePct  float64 `json:"change_pct"`
}

// Summarize computes descriptive statistics for key over points.
// Null cells are excluded from the numbers but counted as missing.
func Summarize(key string, points []model.TimePoint) Summary {
	s := Summary{Key: key, Count: len(points)}
	if len(points) == 0 {
		return s
	}

	vals := make([]float64, 0, len(points))
	for _, p := range points {
		c := p.Values[key]
		if c.Valid() {
			vals = append(vals, c.Value)
		} else {
			s.Missing++
		}
	}
	s.MissingPct = float64(s.Missing) / float64(s.Count) * 100

	if len(vals) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Median, s.Max = nan, nan, nan, nan, nan
		s.First, s.Last, s.Change, s.ChangePct = nan, nan, nan, nan
		return s
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = sumF(vals) / float64(len(vals))
	s.Std = stddevF(vals, s.Mean)
	s.Median = percentile(sorted, 50)

	s.First = vals[0]
	s.Last = vals[len(vals)-1]
	s.Change = s.Last - s.First
	if s.First != 0 {
		s.ChangePct = s.Change / math.Abs(s.First) * 100
	} else {
		s.ChangePct = math.NaN()
	}
	return s
}

// SummarizeGraph summarizes every key of g, in key order.
func SummarizeGraph(g *model.GraphSet) []Summary {
	out := make([]Summary, len(g.Keys))
	for i, k := range g.Keys {
		out[i] = Summarize(k, g.Points)
	}
	return out
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// TrendMethod selects the regression algorithm.
type TrendMethod string

const (
	TrendLinear   TrendMethod = "linear"
	TrendTheilSen TrendMethod = "theil-sen"
)

// TrendResult holds the output of a trend analysis.
type TrendResult struct {
	Key         string      `json:"key"`
	Method      TrendMethod `json:"method"`
	Slope       float64     `json:"slope"` // units per day
	Intercept   float64     `json:"intercept"`
	R2          float64     `json:"r2"`
	Direction   string      `json:"direction"`     // "up", "down", "flat"
	SlopePer30d float64     `json:"slope_per_30d"` // slope * 30
}

// Trend fits a trend line to key over points. X values are days since the
// first non-null point. Null cells are excluded.
func Trend(key string, points []model.TimePoint, method TrendMethod) (TrendResult, error) {
	tr := TrendResult{Key: key, Method: method}

	var pts []point
	var t0 int64
	first := true
	for _, p := range points {
		c := p.Values[key]
		if !c.Valid() {
			continue
		}
		if first {
			t0 = p.Time
			first = false
		}
		x := float64(p.Time-t0) / msPerDay
		pts = append(pts, point{x, c.Value})
	}
	if len(pts) < 2 {
		return tr, fmt.Errorf("trend %s: need at least 2 values, got %d", key, len(pts))
	}

	switch method {
	case TrendTheilSen:
		tr.Slope = theilSenSlope(pts)
		xMean := meanPts(pts, func(p point) float64 { return p.x })
		yMean := meanPts(pts, func(p point) float64 { return p.y })
		tr.Intercept = yMean - tr.Slope*xMean
	default:
		tr.Slope, tr.Intercept = olsRegress(pts)
	}

	tr.R2 = r2(pts, tr.Slope, tr.Intercept)
	tr.SlopePer30d = tr.Slope * 30

	switch {
	case tr.SlopePer30d > 0.01:
		tr.Direction = "up"
	case tr.SlopePer30d < -0.01:
		tr.Direction = "down"
	default:
		tr.Direction = "flat"
	}
	return tr, nil
}

// ─── History Length ───────────────────────────────────────────────────────────

const msPerDay = 24 * 60 * 60 * 1000

// historySources are the csv histories that count toward HistoryDays, with
// their record widths.
var historySources = []struct {
	index, width int
}{
	{model.CSVAmazon, 2},
	{model.CSVBuyBoxShipping, 3},
	{model.CSVNew, 2},
	{model.CSVSalesRank, 2},
	{model.CSVCountNew, 2},
}

// HistoryDays returns the number of calendar days covered by a product's
// price, rank and offer histories: from the earliest first record to the
// latest last record, inclusive. 0 when there is no history.
func HistoryDays(p *model.Product) int {
	earliest, latest := int64(math.MaxInt64), int64(math.MinInt64)
	found := false
	for _, src := range historySources {
		h := p.History(src.index)
		if len(h) < src.width {
			continue
		}
		first, ok1 := h.At(0)
		last, ok2 := h.At(len(h) - src.width)
		if !ok1 || !ok2 {
			continue
		}
		found = true
		if ms := transform.KeepaMinuteToMillis(first); ms < earliest {
			earliest = ms
		}
		if ms := transform.KeepaMinuteToMillis(last); ms > latest {
			latest = ms
		}
	}
	if !found {
		return 0
	}
	return int((latest-earliest)/msPerDay) + 1
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

type point struct{ x, y float64 }

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		xSum += p.x
		ySum += p.y
		xySum += p.x * p.y
		x2Sum += p.x * p.x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}

func theilSenSlope(pts []point) float64 {
	var slopes []float64
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			dx := pts[j].x - pts[i].x
			if dx == 0 {
				continue
			}
			slopes = append(slopes, (pts[j].y-pts[i].y)/dx)
		}
	}
	if len(slopes) == 0 {
		return 0
	}
	sort.Float64s(slopes)
	return percentile(slopes, 50)
}

func r2(pts []point, slope, intercept float64) float64 {
	yMean := meanPts(pts, func(p point) float64 { return p.y })
	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func meanPts(pts []point, f func(point) float64) float64 {
	var s float64
	for _, p := range pts {
		s += f(p)
	}
	return s / float64(len(pts))
}
