// Package chart renders graph series as terminal charts and PNG images.
// Two terminal renderers are available:
//
//   - Bar: horizontal bar chart, one bar per bucket of points (weekly by
//     default)
//   - Plot: multi-line ASCII chart with labeled axes
//
// Null cells are gaps, never zeros.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// sample is one point of a single series. NaN marks a null cell.
type sample struct {
	Date  time.Time
	Value float64
}

// samples extracts key from g in point order.
func samples(g *model.GraphSet, key string, loc *time.Location) []sample {
	if loc == nil {
		loc = time.Local
	}
	out := make([]sample, len(g.Points))
	for i, p := range g.Points {
		v := math.NaN()
		if c := p.Values[key]; c.Valid() {
			v = c.Value
		}
		out[i] = sample{Date: p.Date(loc), Value: v}
	}
	return out
}

// HasKey reports whether key is one of g's series.
func HasKey(g *model.GraphSet, key string) bool {
	for _, k := range g.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// BucketDays groups points into buckets of this many days, each drawn
	// with the last non-null value in it. If 0, defaults to 7.
	BucketDays int
	// MaxBars keeps only the most recent bars. If 0, no limit is applied.
	MaxBars int
	// Location is used for date labels. nil means time.Local.
	Location *time.Location
}

// Bar renders a horizontal bar chart of one series of g to w.
//
// Output example:
//
//	B000TEST01 buyBox  2024-03-01 – 2024-05-24
//	2024-03-01  19.99  ████████████
//	2024-03-08  24.99  ████████████████████
//	2024-03-15  21.5   █████████████
func Bar(w io.Writer, g *model.GraphSet, key string, opts BarOptions) error {
	if !HasKey(g, key) {
		return fmt.Errorf("chart bar: graph has no series %q", key)
	}
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}
	bucketDays := opts.BucketDays
	if bucketDays <= 0 {
		bucketDays = 7
	}

	valid := bucket(samples(g, key, opts.Location), bucketDays)
	if len(valid) < 1 {
		return fmt.Errorf("chart bar: no non-null values to render")
	}

	if opts.MaxBars > 0 && len(valid) > opts.MaxBars {
		valid = valid[len(valid)-opts.MaxBars:]
	}

	if len(valid) > 60 {
		fmt.Fprintf(w, "⚠  %d bars; consider a larger --bucket-days or --max-bars\n\n", len(valid))
	}

	minVal, maxVal := valid[0].Value, valid[0].Value
	for _, s := range valid[1:] {
		if s.Value < minVal {
			minVal = s.Value
		}
		if s.Value > maxVal {
			maxVal = s.Value
		}
	}

	const dateFmt = "2006-01-02"
	dateWidth := len(dateFmt)

	valWidth := 0
	for _, s := range valid {
		if l := len(formatFloat(s.Value)); l > valWidth {
			valWidth = l
		}
	}

	// date, value and two double-space separators
	barAreaWidth := totalWidth - dateWidth - valWidth - 4
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
	}

	hasNeg := minVal < 0
	var zeroPos int
	if hasNeg {
		zeroPos = int(math.Round((-minVal / valRange) * float64(barAreaWidth-1)))
	}

	fmt.Fprintf(w, "%s  %s – %s\n", title(g, key),
		valid[0].Date.Format(dateFmt), valid[len(valid)-1].Date.Format(dateFmt))

	for _, s := range valid {
		var bar string
		if hasNeg {
			bar = buildBiBar(s.Value, minVal, maxVal, barAreaWidth, zeroPos)
		} else {
			barLen := int(math.Round((s.Value - minVal) / valRange * float64(barAreaWidth)))
			if barLen < 1 {
				barLen = 1
			}
			if barLen > barAreaWidth {
				barLen = barAreaWidth
			}
			bar = strings.Repeat("█", barLen)
		}
		fmt.Fprintf(w, "%-*s  %*s  %s\n",
			dateWidth, s.Date.Format(dateFmt),
			valWidth, formatFloat(s.Value),
			bar,
		)
	}
	return nil
}

// bucket groups samples into consecutive windows of days starting at the
// first sample, keeping the last non-null value of each window dated at the
// window start. Windows with no value are dropped.
func bucket(in []sample, days int) []sample {
	if len(in) == 0 {
		return nil
	}
	start := in[0].Date
	span := time.Duration(days) * 24 * time.Hour

	var out []sample
	cur := -1
	for _, s := range in {
		idx := int(s.Date.Sub(start) / span)
		if math.IsNaN(s.Value) {
			continue
		}
		at := start.Add(time.Duration(idx) * span)
		if idx == cur {
			out[len(out)-1].Value = s.Value
			continue
		}
		cur = idx
		out = append(out, sample{Date: at, Value: s.Value})
	}
	return out
}

// buildBiBar renders a bar that may extend left (negative) or right (positive)
// from a zero baseline at zeroPos within a field of width barAreaWidth.
func buildBiBar(val, minVal, maxVal float64, barAreaWidth, zeroPos int) string {
	valRange := maxVal - minVal
	buf := []rune(strings.Repeat(" ", barAreaWidth))

	if zeroPos >= 0 && zeroPos < barAreaWidth {
		buf[zeroPos] = '│'
	}

	if val >= 0 {
		end := zeroPos + int(math.Round(val/valRange*float64(barAreaWidth-1)))
		if end > barAreaWidth {
			end = barAreaWidth
		}
		for i := zeroPos + 1; i <= end && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	} else {
		start := zeroPos - int(math.Round((-val)/valRange*float64(barAreaWidth-1)))
		if start < 0 {
			start = 0
		}
		for i := start; i < zeroPos && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	}

	return string(buf)
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls multi-line ASCII plot rendering.
type PlotOptions struct {
	// Width is the total character width of the chart (including Y-axis label).
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// Height is the number of data rows in the chart body (not counting axis labels).
	// If 0, defaults to 12.
	Height int
	// Title overrides the default "<asin> <key>" title.
	Title string
	// Location is used for date labels. nil means time.Local.
	Location *time.Location
}

// Plot renders one series of g as a multi-line ASCII chart to w.
func Plot(w io.Writer, g *model.GraphSet, key string, opts PlotOptions) error {
	if !HasKey(g, key) {
		return fmt.Errorf("chart plot: graph has no series %q", key)
	}
	width := opts.Width
	if width <= 0 {
		width = termWidth()
	}
	height := opts.Height
	if height <= 0 {
		height = 12
	}
	heading := opts.Title
	if heading == "" {
		heading = title(g, key)
	}

	obs := samples(g, key, opts.Location)
	var validVals []float64
	for _, s := range obs {
		if !math.IsNaN(s.Value) {
			validVals = append(validVals, s.Value)
		}
	}
	if len(validVals) < 2 {
		return fmt.Errorf("chart plot: need at least 2 non-null values (got %d)", len(validVals))
	}

	minVal, maxVal := validVals[0], validVals[0]
	for _, v := range validVals[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	ticks := yTicks(minVal, maxVal, height)
	yLabelWidth := 0
	for _, t := range ticks {
		if l := len(formatFloat(t)); l > yLabelWidth {
			yLabelWidth = l
		}
	}
	yAxisWidth := yLabelWidth + 2

	plotWidth := width - yAxisWidth
	if plotWidth < 10 {
		plotWidth = 10
	}

	cols := sampleCols(obs, plotWidth)
	grid := buildGrid(cols, minVal, maxVal, height)

	layout := dateLayout(obs)
	fmt.Fprintf(w, "%s  (%s to %s)\n", heading,
		obs[0].Date.Format(layout), obs[len(obs)-1].Date.Format(layout))

	for row := 0; row < height; row++ {
		label := ""
		for _, t := range ticks {
			if math.Abs(rowForValue(t, minVal, maxVal, height)-float64(row)) < 0.5 {
				label = formatFloat(t)
				break
			}
		}
		labelPadded := fmt.Sprintf("%*s", yLabelWidth, label)

		axisCh := "┤"
		if label != "" && math.Abs(minVal) < 1e-9 && row == height-1 {
			axisCh = "┼"
		} else if label == "" {
			axisCh = " "
		}

		var rowSB strings.Builder
		for col := 0; col < plotWidth; col++ {
			rowSB.WriteRune(grid[row][col])
		}
		fmt.Fprintf(w, "%s%s%s\n", labelPadded, axisCh, rowSB.String())
	}

	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", yLabelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), xAxisLabels(obs, plotWidth, layout))
	return nil
}

func title(g *model.GraphSet, key string) string {
	if g.ASIN == "" {
		return key
	}
	return g.ASIN + " " + key
}

// dateLayout picks day labels for short spans and month labels otherwise.
func dateLayout(obs []sample) string {
	if len(obs) > 1 && obs[len(obs)-1].Date.Sub(obs[0].Date) > 180*24*time.Hour {
		return "2006-01"
	}
	return "2006-01-02"
}

// ─── Grid building ────────────────────────────────────────────────────────────

// sampleCols reduces obs to exactly n columns by sampling.
// Each column holds the average of its bucket, or NaN if all are null.
func sampleCols(obs []sample, n int) []float64 {
	total := len(obs)
	cols := make([]float64, n)
	for col := 0; col < n; col++ {
		lo := col * total / n
		hi := (col+1)*total/n - 1
		if hi >= total {
			hi = total - 1
		}
		sum, count := 0.0, 0
		for i := lo; i <= hi; i++ {
			if !math.IsNaN(obs[i].Value) {
				sum += obs[i].Value
				count++
			}
		}
		if count == 0 {
			cols[col] = math.NaN()
		} else {
			cols[col] = sum / float64(count)
		}
	}
	return cols
}

// rowForValue returns the float row index (0=top=max) for a given value.
func rowForValue(v, minVal, maxVal float64, height int) float64 {
	if maxVal == minVal {
		return float64(height) / 2
	}
	return (maxVal - v) / (maxVal - minVal) * float64(height-1)
}

// buildGrid renders columns into a height×width rune grid using
// box-drawing characters to connect adjacent data points.
func buildGrid(cols []float64, minVal, maxVal float64, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = make([]rune, len(cols))
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}

	rowOf := make([]int, len(cols))
	for col, v := range cols {
		if math.IsNaN(v) {
			rowOf[col] = -1 // gap
		} else {
			r := int(math.Round(rowForValue(v, minVal, maxVal, height)))
			if r < 0 {
				r = 0
			}
			if r >= height {
				r = height - 1
			}
			rowOf[col] = r
		}
	}

	for col := 0; col < len(cols); col++ {
		r := rowOf[col]
		if r < 0 {
			continue
		}

		prevRow := -2
		if col > 0 {
			prevRow = rowOf[col-1]
		}
		nextRow := -2
		if col < len(cols)-1 {
			nextRow = rowOf[col+1]
		}

		if prevRow == -2 && nextRow == -2 {
			grid[r][col] = '·'
			continue
		}

		if (prevRow < 0 || prevRow == r) && (nextRow < 0 || nextRow == r) {
			grid[r][col] = '─'
			continue
		}

		goingUp := (nextRow >= 0 && nextRow < r) || (prevRow >= 0 && prevRow < r)
		goingDown := (nextRow >= 0 && nextRow > r) || (prevRow >= 0 && prevRow > r)

		switch {
		case prevRow >= 0 && prevRow < r && nextRow >= 0 && nextRow < r:
			grid[r][col] = '─'
		case prevRow >= 0 && prevRow > r && nextRow >= 0 && nextRow > r:
			grid[r][col] = '─'
		case (prevRow < 0 || prevRow < r) && nextRow >= 0 && nextRow > r:
			grid[r][col] = '╭'
		case (prevRow < 0 || prevRow > r) && nextRow >= 0 && nextRow < r:
			grid[r][col] = '╰'
		case prevRow >= 0 && prevRow < r && (nextRow < 0 || nextRow > r):
			grid[r][col] = '╮'
		case prevRow >= 0 && prevRow > r && (nextRow < 0 || nextRow < r):
			grid[r][col] = '╯'
		default:
			if goingUp || goingDown {
				grid[r][col] = '│'
			} else {
				grid[r][col] = '─'
			}
		}

		if prevRow >= 0 && prevRow != r {
			lo, hi := r, prevRow
			if lo > hi {
				lo, hi = hi, lo
			}
			for fill := lo + 1; fill < hi; fill++ {
				if grid[fill][col] == ' ' {
					grid[fill][col] = '│'
				}
			}
		}
	}

	return grid
}

// ─── Axis helpers ─────────────────────────────────────────────────────────────

// yTicks returns 3–4 evenly-spaced tick values for the Y axis.
func yTicks(minVal, maxVal float64, height int) []float64 {
	if maxVal == minVal {
		return []float64{minVal}
	}
	nTicks := 4
	if height <= 6 {
		nTicks = 3
	}
	ticks := make([]float64, nTicks)
	for i := 0; i < nTicks; i++ {
		ticks[i] = minVal + float64(i)*(maxVal-minVal)/float64(nTicks-1)
	}
	return ticks
}

// xAxisLabels builds a padded string with start, middle, and end date labels.
func xAxisLabels(obs []sample, plotWidth int, layout string) string {
	if len(obs) == 0 {
		return ""
	}
	startLabel := obs[0].Date.Format(layout)
	endLabel := obs[len(obs)-1].Date.Format(layout)
	midLabel := obs[len(obs)/2].Date.Format(layout)

	midPos := plotWidth/2 - len(midLabel)/2
	endPos := plotWidth - len(endLabel)

	buf := []rune(strings.Repeat(" ", plotWidth))
	writeAt := func(pos int, s string) {
		for i, ch := range s {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}

	writeAt(0, startLabel)
	writeAt(midPos, midLabel)
	writeAt(endPos, endLabel)

	return string(buf)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats a float for axis labels: no unnecessary trailing zeros,
// at least one decimal place, compact notation for large ranks and counts.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		s = strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e4:
		s = strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 100:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	case abs >= 1:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 4, 64)
	}
	if strings.Contains(s, ".") && !strings.Contains(s, "M") && !strings.Contains(s, "K") {
		s = strings.TrimRight(s, "0")
		if strings.HasSuffix(s, ".") {
			s += "0"
		}
	}
	return s
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
