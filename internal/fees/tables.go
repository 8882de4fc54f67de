package fees

import (
	"github.com/shopspring/decimal"
)

// ─── Rate Table ───────────────────────────────────────────────────────────────

// Bracket is one placement weight bracket covering (AboveOz, UpToOz].
type Bracket struct {
	Label     string
	AboveOz   float64
	UpToOz    float64
	Minimal   decimal.Decimal
	Partial   decimal.Decimal
	Optimized decimal.Decimal
}

// Contains reports whether oz falls inside the bracket. The upper bound
// tolerates float noise from unit conversion.
func (b Bracket) Contains(oz float64) bool {
	return oz > b.AboveOz+ozEpsilon && oz <= b.UpToOz+ozEpsilon
}

const ozEpsilon = 1e-9

// PlacementClass is a placement size class: a maximum envelope and ordered
// weight brackets.
type PlacementClass struct {
	Name     string
	Envelope [3]float64 // inches, longest first
	MaxOz    float64
	Brackets []Bracket
}

// Fits reports whether sorted sides in (longest first) and weight oz are
// inside the class envelope.
func (c PlacementClass) Fits(in [3]float64, oz float64) bool {
	return in[0] <= c.Envelope[0] && in[1] <= c.Envelope[1] && in[2] <= c.Envelope[2] &&
		oz <= c.MaxOz+ozEpsilon
}

// Bracket returns the bracket containing oz.
func (c PlacementClass) Bracket(oz float64) (Bracket, bool) {
	for _, b := range c.Brackets {
		if b.Contains(oz) {
			return b, true
		}
	}
	return Bracket{}, false
}

// Season selects the storage rate schedule.
type Season string

const (
	OffPeak Season = "off_peak"
	Peak    Season = "peak"
)

// WeekBracket bounds a storage-duration bracket. MaxWeeks of 0 is unbounded.
type WeekBracket struct {
	Label    string
	MaxWeeks float64
}

// StorageRate is a per-cubic-foot rate.
type StorageRate struct {
	Base      decimal.Decimal
	Surcharge decimal.Decimal
}

// Total is base plus surcharge.
func (r StorageRate) Total() decimal.Decimal { return r.Base.Add(r.Surcharge) }

// SeasonRates holds one season's storage schedule. Tiers[class][i] is the
// rate for WeekBrackets[i].
type SeasonRates struct {
	Tiers     map[TierClass][]StorageRate
	Dangerous map[TierClass]decimal.Decimal
}

// Table is the complete fee schedule. It is immutable once built.
type Table struct {
	Placement     []PlacementClass
	WeekBrackets  []WeekBracket
	Storage       map[Season]SeasonRates
	ShippingPerLb decimal.Decimal
	WeeksPerMonth float64
}

// DefaultBracket is the bracket used when geometry is unknown: the first
// bracket of the first placement class.
func (t *Table) DefaultBracket() (PlacementClass, Bracket) {
	c := t.Placement[0]
	return c, c.Brackets[0]
}

// WeekBracket returns the index and label of the bracket containing weeks.
func (t *Table) WeekBracket(weeks float64) (int, string) {
	for i, b := range t.WeekBrackets {
		if b.MaxWeeks == 0 || weeks <= b.MaxWeeks {
			return i, b.Label
		}
	}
	last := len(t.WeekBrackets) - 1
	return last, t.WeekBrackets[last].Label
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

// DefaultDocument returns the built-in US schedule in its YAML form.
func DefaultDocument() Document {
	return Document{
		ShippingPerLb: 0.60,
		WeeksPerMonth: 4.345,
		Placement: []ClassDoc{
			{
				Name:       "small_standard",
				EnvelopeIn: []float64{15, 12, 0.75},
				MaxOz:      16,
				Brackets: []BracketDoc{
					{Label: "16 oz or less", UpToOz: 16, Minimal: 0.30, Optimized: f64(0)},
				},
			},
			{
				Name:       "large_standard",
				EnvelopeIn: []float64{18, 14, 8},
				MaxOz:      20 * OuncesPerLb,
				Brackets: []BracketDoc{
					{Label: "12 oz or less", UpToOz: 12, Minimal: 0.34},
					{Label: "12+ oz to 1.5 lb", UpToOz: 1.5 * OuncesPerLb, Minimal: 0.41},
					{Label: "1.5+ lb to 3 lb", UpToOz: 3 * OuncesPerLb, Minimal: 0.49},
					{Label: "3+ lb to 20 lb", UpToOz: 20 * OuncesPerLb, Minimal: 0.68},
				},
			},
			{
				Name:       "large_bulky",
				EnvelopeIn: []float64{59, 33, 33},
				MaxOz:      50 * OuncesPerLb,
				Brackets: []BracketDoc{
					{Label: "5 lb or less", UpToOz: 5 * OuncesPerLb, Minimal: 1.60, Partial: f64(1.10), Optimized: f64(0)},
					{Label: "5+ lb to 12 lb", UpToOz: 12 * OuncesPerLb, Minimal: 2.40, Partial: f64(1.75)},
					{Label: "12+ lb to 28 lb", UpToOz: 28 * OuncesPerLb, Minimal: 3.50, Partial: f64(2.19)},
					{Label: "28+ lb to 42 lb", UpToOz: 42 * OuncesPerLb, Minimal: 4.95, Partial: f64(2.83)},
					{Label: "42+ lb to 50 lb", UpToOz: 50 * OuncesPerLb, Minimal: 5.95, Partial: f64(3.32)},
				},
			},
		},
		WeekBrackets: []WeekBracketDoc{
			{Label: "below_22_weeks", MaxWeeks: 22},
			{Label: "22_28_weeks", MaxWeeks: 28},
			{Label: "28_36_weeks", MaxWeeks: 36},
			{Label: "36_44_weeks", MaxWeeks: 44},
			{Label: "44_52_weeks", MaxWeeks: 52},
			{Label: "52_plus_weeks"},
		},
		Storage: map[string]SeasonDoc{
			string(OffPeak): {
				Standard:  rates(0.78, 0, 0.44, 0.76, 1.16, 1.58, 1.88),
				Oversize:  rates(0.56, 0, 0.23, 0.46, 0.63, 0.76, 1.26),
				Dangerous: DangerousDoc{Standard: 0.99, Oversize: 0.78},
			},
			string(Peak): {
				Standard:  rates(2.40, 0, 0.44, 0.76, 1.16, 1.58, 1.88),
				Oversize:  rates(1.40, 0, 0.23, 0.46, 0.63, 0.76, 1.26),
				Dangerous: DangerousDoc{Standard: 3.63, Oversize: 2.43},
			},
		},
	}
}

var defaultTable = mustBuild(DefaultDocument())

// DefaultTable returns the built-in schedule.
func DefaultTable() *Table { return defaultTable }

func mustBuild(doc Document) *Table {
	t, err := doc.Build()
	if err != nil {
		panic("fees: invalid built-in table: " + err.Error())
	}
	return t
}

func rates(base float64, surcharges ...float64) []RateDoc {
	out := make([]RateDoc, len(surcharges))
	for i, s := range surcharges {
		out[i] = RateDoc{Base: base, Surcharge: s}
	}
	return out
}

func f64(v float64) *float64 { return &v }
