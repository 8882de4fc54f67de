package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// PNGOptions controls image rendering.
type PNGOptions struct {
	Title    string
	Width    int // 0 = 900
	Height   int // 0 = 500
	Location *time.Location
}

// PriceKeys are the currency series a product graph carries, in legend order.
var PriceKeys = []string{"buyBox", "amazon", "newPrice"}

// PNG renders keys of g as a line chart and returns the encoded image.
// Null cells repeat the previous value; leading nulls take the first value.
// Keys with no values at all are left out.
func PNG(g *model.GraphSet, keys []string, opts PNGOptions) ([]byte, error) {
	if len(g.Points) < 2 {
		return nil, fmt.Errorf("chart png: need at least 2 points (got %d)", len(g.Points))
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	var names []string
	var values [][]float64
	for _, k := range keys {
		if !HasKey(g, k) {
			return nil, fmt.Errorf("chart png: graph has no series %q", k)
		}
		line, ok := carried(samples(g, k, loc))
		if !ok {
			continue
		}
		names = append(names, k)
		values = append(values, line)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("chart png: no values to render for %s", strings.Join(keys, ", "))
	}

	labels := make([]string, len(g.Points))
	for i, p := range g.Points {
		labels[i] = p.Date(loc).Format("01-02")
	}

	heading := opts.Title
	if heading == "" {
		heading = g.ASIN
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 900
	}
	if height <= 0 {
		height = 500
	}
	split := 6
	if len(labels) < 18 {
		split = len(labels) / 3
		if split < 2 {
			split = 2
		}
	}

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(heading),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionBottom}),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("chart png: render: %w", err)
	}
	buf, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("chart png: encode: %w", err)
	}
	return buf, nil
}

// carried replaces NaN samples with the previous value, or the first
// non-NaN value for a leading run. It reports false when all are NaN.
func carried(in []sample) ([]float64, bool) {
	first := math.NaN()
	for _, s := range in {
		if !math.IsNaN(s.Value) {
			first = s.Value
			break
		}
	}
	if math.IsNaN(first) {
		return nil, false
	}
	out := make([]float64, len(in))
	prev := first
	for i, s := range in {
		if !math.IsNaN(s.Value) {
			prev = s.Value
		}
		out[i] = prev
	}
	return out, true
}
