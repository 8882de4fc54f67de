// Package model defines the canonical data types used throughout sellerscope.
// These types are the single source of truth for decoded time series, Keepa
// API entities, and the result envelope that every command returns.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// ─── Raw Series ───────────────────────────────────────────────────────────────

// Absent marks an element of a RawSeries that was null in the source payload.
// It never collides with a real Keepa minute or value.
const Absent int64 = math.MinInt64

// RawSeries is one compact Keepa history array: logical records of
// (keepaMinute, value) or (keepaMinute, value, extra). Values are scaled
// integers or the sentinels -1 ("no data") and -2 ("unknown").
// A RawSeries is never mutated once decoded from the payload.
type RawSeries []int64

// At returns element i, or false if i is out of range or the element was null.
func (r RawSeries) At(i int) (int64, bool) {
	if i < 0 || i >= len(r) {
		return 0, false
	}
	if r[i] == Absent {
		return 0, false
	}
	return r[i], true
}

// Last returns the element offset positions from the end (1 = last element).
func (r RawSeries) Last(offset int) (int64, bool) {
	return r.At(len(r) - offset)
}

// UnmarshalJSON accepts a JSON array of integers, tolerating null elements
// (stored as Absent) and a null array (stored as nil).
func (r *RawSeries) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}
	var elems []*json.Number
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("raw series: %w", err)
	}
	out := make(RawSeries, len(elems))
	for i, e := range elems {
		if e == nil {
			out[i] = Absent
			continue
		}
		v, err := e.Int64()
		if err != nil {
			f, ferr := e.Float64()
			if ferr != nil {
				out[i] = Absent
				continue
			}
			v = int64(f)
		}
		out[i] = v
	}
	*r = out
	return nil
}

// MarshalJSON writes Absent elements back out as null.
func (r RawSeries) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if v == Absent {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatInt(v, 10))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ─── Cells ────────────────────────────────────────────────────────────────────

// CellState distinguishes the three ways a series can look at one timestamp.
type CellState uint8

const (
	// Empty: the series has no entry here. Renders as null; forward fill may
	// replace it.
	Empty CellState = iota
	// Present: a real number.
	Present
	// Break: the source explicitly reported "no data" here. Renders as null
	// and stops forward fill from carrying older values across it.
	Break
)

// Cell is an optional series value. The zero Cell is Empty.
type Cell struct {
	Value float64
	State CellState
}

// Num returns a Present cell holding v.
func Num(v float64) Cell { return Cell{Value: v, State: Present} }

// Gap returns a Break cell.
func Gap() Cell { return Cell{State: Break} }

// Valid reports whether the cell holds a number.
func (c Cell) Valid() bool { return c.State == Present }

// Ptr returns a pointer to the value, or nil when the cell renders as null.
func (c Cell) Ptr() *float64 {
	if c.State != Present {
		return nil
	}
	v := c.Value
	return &v
}

// ─── Time Points ──────────────────────────────────────────────────────────────

// TimePoint is one row of an assembled graph: an absolute instant in Unix
// milliseconds and one cell per configured series key.
type TimePoint struct {
	Time   int64
	Values map[string]Cell
}

// Date returns the point's instant as a time.Time in loc.
func (p TimePoint) Date(loc *time.Location) time.Time {
	return time.UnixMilli(p.Time).In(loc)
}

// Clone returns a deep copy of p.
func (p TimePoint) Clone() TimePoint {
	vals := make(map[string]Cell, len(p.Values))
	for k, v := range p.Values {
		vals[k] = v
	}
	return TimePoint{Time: p.Time, Values: vals}
}

// Retime returns a copy of p moved to ms.
func (p TimePoint) Retime(ms int64) TimePoint {
	c := p.Clone()
	c.Time = ms
	return c
}

// AllNull reports whether no key in keys has a Present value.
func (p TimePoint) AllNull(keys []string) bool {
	for _, k := range keys {
		if p.Values[k].Valid() {
			return false
		}
	}
	return true
}

// MarshalJSON renders {"date": <ms>, "<key>": number|null, ...} with series
// keys in sorted order after date.
func (p TimePoint) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(`{"date":`)
	buf.WriteString(strconv.FormatInt(p.Time, 10))
	for _, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		c := p.Values[k]
		if c.Valid() && !math.IsNaN(c.Value) && !math.IsInf(c.Value, 0) {
			buf.WriteString(strconv.FormatFloat(c.Value, 'f', -1, 64))
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON is the inverse of MarshalJSON. Null values decode as Empty.
func (p *TimePoint) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dateRaw, ok := raw["date"]
	if !ok {
		return fmt.Errorf("time point: missing date")
	}
	if err := json.Unmarshal(dateRaw, &p.Time); err != nil {
		return fmt.Errorf("time point: invalid date: %w", err)
	}
	p.Values = make(map[string]Cell, len(raw)-1)
	for k, v := range raw {
		if k == "date" {
			continue
		}
		var f *float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("time point: key %s: %w", k, err)
		}
		if f == nil {
			p.Values[k] = Cell{}
		} else {
			p.Values[k] = Num(*f)
		}
	}
	return nil
}

// ─── Series Configuration ─────────────────────────────────────────────────────

// ValueTransform selects how raw integers become series values.
type ValueTransform uint8

const (
	// TransformPrice divides by the price divisor to render currency.
	TransformPrice ValueTransform = iota
	// TransformCount passes ranks and counts through unchanged.
	TransformCount
)

// NullPolicy controls how a series' own "no data" sentinel surfaces.
type NullPolicy uint8

const (
	// NullAsMissing decodes the sentinel as Empty; forward fill bridges it.
	NullAsMissing NullPolicy = iota
	// NullAsBreak decodes the sentinel as Break; the gap stays null.
	NullAsBreak
)

// SeriesConfig declares how one named raw series is decoded.
type SeriesConfig struct {
	Key        string         // output key, e.g. "buyBox"
	Source     string         // source name in the payload, e.g. "buyboxHistory"
	Width      int            // record width: 2 (t, v) or 3 (t, v, extra)
	Transform  ValueTransform
	NullPolicy NullPolicy
}

// GraphSet is an assembled, clamped and pruned set of series ready to chart.
type GraphSet struct {
	ID        string      `json:"id,omitempty"`
	ASIN      string      `json:"asin,omitempty"`
	Name      string      `json:"name"`
	Keys      []string    `json:"keys"`
	Days      int         `json:"days"` // 0 = all history
	Points    []TimePoint `json:"points"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
}

// Series extracts one key's values in point order.
func (g *GraphSet) Series(key string) []Cell {
	out := make([]Cell, len(g.Points))
	for i, p := range g.Points {
		out[i] = p.Values[key]
	}
	return out
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and cache metadata for a command result.
type ResultStats struct {
	CacheHit   bool  `json:"cache_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
	TokensLeft int   `json:"tokens_left,omitempty"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindGraph        = "graph"
	KindGraphList    = "graph_list"
	KindFees         = "fees"
	KindFeeTable     = "fee_table"
	KindProduct      = "product"
	KindOffers       = "offers"
	KindSeller       = "seller"
	KindSellerRev    = "seller_revenue"
	KindSummary      = "summary"
	KindTable        = "table"
	KindSearchResult = "search_result"
)

// SearchResult holds the ASINs matched by a search or product-finder query.
type SearchResult struct {
	Query string   `json:"query"`
	Page  int      `json:"page"`
	ASINs []string `json:"asins"`
}

// Table is a generic tabular payload for listings and key/value views.
type Table struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}
