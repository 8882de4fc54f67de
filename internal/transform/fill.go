package transform

import (
	"github.com/derickschaefer/sellerscope/internal/model"
)

// FillOptions tunes ForwardFillWith.
type FillOptions struct {
	// Leading fills cells before a series' first value with that first value.
	// Off everywhere: whether charts should show invented history before the
	// first observation is an open product question.
	Leading bool
}

// ForwardFill propagates each key's last known value forward across the
// timeline. Leading Empty cells stay Empty. A Break resets the carry, so the
// cells after it stay null until the series reports a value again.
// The input is not modified. Applying ForwardFill twice equals applying it once.
func ForwardFill(points []model.TimePoint, keys []string) []model.TimePoint {
	return ForwardFillWith(points, keys, FillOptions{})
}

// ForwardFillWith is ForwardFill with explicit options.
func ForwardFillWith(points []model.TimePoint, keys []string, opts FillOptions) []model.TimePoint {
	out := make([]model.TimePoint, len(points))
	for i, p := range points {
		out[i] = p.Clone()
	}

	for _, k := range keys {
		if opts.Leading {
			fillLeading(out, k)
		}
		var carry model.Cell
		for i := range out {
			c := out[i].Values[k]
			switch c.State {
			case model.Present:
				carry = c
			case model.Break:
				carry = model.Gap()
			default:
				if carry.State != model.Empty {
					out[i].Values[k] = carry
				}
			}
		}
	}
	return out
}

// fillLeading copies the first non-Empty cell of key k into every Empty cell
// before it.
func fillLeading(points []model.TimePoint, k string) {
	first := -1
	for i, p := range points {
		if p.Values[k].State != model.Empty {
			first = i
			break
		}
	}
	if first <= 0 {
		return
	}
	v := points[first].Values[k]
	for i := 0; i < first; i++ {
		points[i].Values[k] = v
	}
}
