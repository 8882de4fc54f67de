package transform

import (
	"sort"
	"time"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// reportingLag is added to "now" before truncating to a day. Keepa's feed
// trails real time, and chart consumers expect the afternoon to already
// count as the next day's boundary. Must stay 12h for compatibility.
const reportingLag = 12 * time.Hour

// Window selects a trailing day range anchored at "today".
type Window struct {
	// Days is the number of trailing days to keep. Days <= 0 keeps all history.
	Days int
	// Now is the caller's current instant; its Location defines day boundaries.
	// The zero value means time.Now().
	Now time.Time
}

// Bounded reports whether the window has a start date.
func (w Window) Bounded() bool { return w.Days > 0 }

func (w Window) now() time.Time {
	if w.Now.IsZero() {
		return time.Now()
	}
	return w.Now
}

// Today returns the window's right edge: the start of the day containing
// now+12h, in now's location.
func (w Window) Today() time.Time {
	return Today(w.now())
}

// Start returns the window's left edge: the start of the day Days days before
// now+12h. Only meaningful when Bounded.
func (w Window) Start() time.Time {
	return startOfDay(w.now().Add(reportingLag).AddDate(0, 0, -w.Days))
}

// Today returns the start of the day containing now+12h, in now's location.
func Today(now time.Time) time.Time {
	return startOfDay(now.Add(reportingLag))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Clamp restricts a forward-filled timeline to w:
//
//  1. timestamps later than today are pulled back to today
//  2. one point per calendar day survives (the last one)
//  3. with a bounded window, points outside [start, today] are dropped; the
//     first survivor is copied back to start if it begins later, and an empty
//     result becomes two all-Empty placeholders at start and today
//  4. if nothing lands on today, the latest earlier point is copied to today
//
// The input is not modified.
func Clamp(points []model.TimePoint, keys []string, w Window) []model.TimePoint {
	now := w.now()
	loc := now.Location()
	today := Today(now)
	todayMs := today.UnixMilli()

	clipped := make([]model.TimePoint, len(points))
	for i, p := range points {
		c := p.Clone()
		if c.Time > todayMs {
			c.Time = todayMs
		}
		clipped[i] = c
	}
	sort.SliceStable(clipped, func(i, j int) bool { return clipped[i].Time < clipped[j].Time })

	daily := dedupeDays(clipped, loc)

	out := daily
	if w.Bounded() {
		startMs := w.Start().UnixMilli()
		out = make([]model.TimePoint, 0, len(daily)+2)
		for _, p := range daily {
			if p.Time >= startMs && p.Time <= todayMs {
				out = append(out, p)
			}
		}

		switch {
		case len(out) == 0:
			out = append(out, placeholder(keys, startMs), placeholder(keys, todayMs))
		case out[0].Time > startMs:
			out = append([]model.TimePoint{out[0].Retime(startMs)}, out...)
		}
	}

	if !hasTime(out, todayMs) {
		for i := len(out) - 1; i >= 0; i-- {
			if out[i].Time < todayMs {
				out = append(out, out[i].Retime(todayMs))
				break
			}
		}
	}
	return out
}

// dedupeDays keeps the last point of each calendar day in loc.
// points must be sorted by time.
func dedupeDays(points []model.TimePoint, loc *time.Location) []model.TimePoint {
	out := make([]model.TimePoint, 0, len(points))
	var lastDay time.Time
	for _, p := range points {
		day := startOfDay(p.Date(loc))
		if len(out) > 0 && day.Equal(lastDay) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
		lastDay = day
	}
	return out
}

// placeholder builds a synthetic point at ms with every key Empty.
func placeholder(keys []string, ms int64) model.TimePoint {
	vals := make(map[string]model.Cell, len(keys))
	for _, k := range keys {
		vals[k] = model.Cell{}
	}
	return model.TimePoint{Time: ms, Values: vals}
}

func hasTime(points []model.TimePoint, ms int64) bool {
	for _, p := range points {
		if p.Time == ms {
			return true
		}
	}
	return false
}
