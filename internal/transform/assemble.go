package transform

import (
	"github.com/derickschaefer/sellerscope/internal/model"
)

// KeepaGraphName names the standard product graph.
const KeepaGraphName = "keepaGraphData"

// KeepaSeries is the standard product chart: buy box, Amazon and new prices,
// sales rank, new-offer count and monthly sold. Every series keeps its own
// "no data" markers as breaks so charts show gaps instead of stale values.
var KeepaSeries = []model.SeriesConfig{
	{Key: "buyBox", Source: model.SourceBuyBox, Width: 3, Transform: model.TransformPrice, NullPolicy: model.NullAsBreak},
	{Key: "amazon", Source: model.SourceAmazon, Width: 2, Transform: model.TransformPrice, NullPolicy: model.NullAsBreak},
	{Key: "salesRank", Source: model.SourceSalesRank, Width: 2, Transform: model.TransformCount, NullPolicy: model.NullAsBreak},
	{Key: "newPrice", Source: model.SourceNewPrice, Width: 2, Transform: model.TransformPrice, NullPolicy: model.NullAsBreak},
	{Key: "offerCount", Source: model.SourceOfferCount, Width: 2, Transform: model.TransformCount, NullPolicy: model.NullAsBreak},
	{Key: "monthlySold", Source: model.SourceMonthlySold, Width: 2, Transform: model.TransformCount, NullPolicy: model.NullAsBreak},
}

// Options controls Assemble.
type Options struct {
	Window Window
	// NoFill skips forward filling.
	NoFill bool
	Fill   FillOptions
}

// Keys returns the output keys of configs, in order.
func Keys(configs []model.SeriesConfig) []string {
	keys := make([]string, len(configs))
	for i, c := range configs {
		keys[i] = c.Key
	}
	return keys
}

// Assemble runs the full pipeline over one product's raw histories:
// Decode → Merge → ForwardFill → Clamp → Prune. Sources missing from the
// payload decode as empty series; their keys still appear on every point.
func Assemble(name string, sources map[string]model.RawSeries, configs []model.SeriesConfig, opts Options) model.GraphSet {
	keys := Keys(configs)

	decoded := make(map[string]map[int64]model.Cell, len(configs))
	for _, c := range configs {
		decoded[c.Key] = Decode(sources[c.Source], c)
	}

	points := Merge(keys, decoded)
	if !opts.NoFill {
		points = ForwardFillWith(points, keys, opts.Fill)
	}
	points = Clamp(points, keys, opts.Window)
	points = Prune(points, keys)

	days := opts.Window.Days
	if days < 0 {
		days = 0
	}
	return model.GraphSet{
		Name:   name,
		Keys:   keys,
		Days:   days,
		Points: points,
	}
}

// Prune drops points where every key is null. A single surviving point is
// duplicated so line charts always receive at least two points; that pair is
// the only place two points share a timestamp.
func Prune(points []model.TimePoint, keys []string) []model.TimePoint {
	out := make([]model.TimePoint, 0, len(points))
	for _, p := range points {
		if !p.AllNull(keys) {
			out = append(out, p)
		}
	}
	if len(out) == 1 {
		out = append(out, out[0].Clone())
	}
	return out
}
