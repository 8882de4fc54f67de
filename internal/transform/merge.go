package transform

import (
	"sort"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// Merge unions the timestamp domains of several decoded series into a single
// chronological timeline. Every row carries a cell for every key in keys;
// a series with no entry at that timestamp gets an Empty cell.
// Rows are strictly increasing by timestamp.
func Merge(keys []string, decoded map[string]map[int64]model.Cell) []model.TimePoint {
	seen := make(map[int64]struct{})
	for _, k := range keys {
		for ts := range decoded[k] {
			seen[ts] = struct{}{}
		}
	}

	stamps := make([]int64, 0, len(seen))
	for ts := range seen {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	out := make([]model.TimePoint, len(stamps))
	for i, ts := range stamps {
		vals := make(map[string]model.Cell, len(keys))
		for _, k := range keys {
			vals[k] = decoded[k][ts]
		}
		out[i] = model.TimePoint{Time: ts, Values: vals}
	}
	return out
}
