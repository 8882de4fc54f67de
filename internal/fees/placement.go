package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

// Calculator estimates fees from a Table.
type Calculator struct {
	Table *Table
}

// NewCalculator returns a Calculator over t, or over the built-in table
// when t is nil.
func NewCalculator(t *Table) *Calculator {
	if t == nil {
		t = DefaultTable()
	}
	return &Calculator{Table: t}
}

// ─── Placement ────────────────────────────────────────────────────────────────

// PlacementFee is the inbound placement fee for each placement option.
// All three amounts are nil when the product fits no placement class.
type PlacementFee struct {
	Class     string   `json:"class,omitempty"`
	Bracket   string   `json:"bracket,omitempty"`
	Default   bool     `json:"default,omitempty"`
	Minimal   *float64 `json:"minimal"`
	Partial   *float64 `json:"partial"`
	Optimized *float64 `json:"optimized"`
}

// Placement picks the placement class and weight bracket for d. Unknown or
// non-positive geometry gets the default bracket.
func (c *Calculator) Placement(d Dimensions) PlacementFee {
	if !d.Valid() {
		class, b := c.Table.DefaultBracket()
		fee := bracketFee(class, b)
		fee.Default = true
		return fee
	}

	in := d.Inches()
	oz := d.Ounces()
	for _, class := range c.Table.Placement {
		if !class.Fits(in, oz) {
			continue
		}
		if b, ok := class.Bracket(oz); ok {
			return bracketFee(class, b)
		}
		return PlacementFee{Class: class.Name}
	}
	return PlacementFee{}
}

// PlacementBracket returns the bracket of the named class containing oz.
func (c *Calculator) PlacementBracket(class string, oz float64) (Bracket, bool) {
	for _, pc := range c.Table.Placement {
		if pc.Name == class {
			return pc.Bracket(oz)
		}
	}
	return Bracket{}, false
}

func bracketFee(class PlacementClass, b Bracket) PlacementFee {
	return PlacementFee{
		Class:     class.Name,
		Bracket:   b.Label,
		Minimal:   amount(b.Minimal),
		Partial:   amount(b.Partial),
		Optimized: amount(b.Optimized),
	}
}

func amount(d decimal.Decimal) *float64 {
	v := d.InexactFloat64()
	return &v
}

// ─── Estimate ─────────────────────────────────────────────────────────────────

// Estimate bundles every fee for one product.
type Estimate struct {
	ASIN       string       `json:"asin,omitempty"`
	Dimensions Dimensions   `json:"dimensions"`
	Tier       SizeTier     `json:"tier"`
	Placement  PlacementFee `json:"placement"`
	Shipping   float64      `json:"shipping"`
	Storage    *StorageFee  `json:"storage"`
}

// Estimate computes placement, shipping and storage fees for d.
func (c *Calculator) Estimate(d Dimensions, months float64, dangerous bool, now time.Time) Estimate {
	e := Estimate{
		Dimensions: d,
		Tier:       Classify(d),
		Placement:  c.Placement(d),
		Shipping:   c.Shipping(d),
	}
	if s, ok := c.Storage(d, months, dangerous, now); ok {
		e.Storage = &s
	}
	return e
}
