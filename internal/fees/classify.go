package fees

import (
	"fmt"
	"sort"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// ─── Dimensions ───────────────────────────────────────────────────────────────

// Dimensions is a product's package geometry as Keepa reports it.
type Dimensions struct {
	LengthMM float64 `json:"length_mm"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
	WeightG  float64 `json:"weight_g"`
}

// FromProduct reads package geometry from a Keepa product, using the item
// weight when the package weight is missing.
func FromProduct(p *model.Product) Dimensions {
	return Dimensions{
		LengthMM: float64(p.PackageLength),
		WidthMM:  float64(p.PackageWidth),
		HeightMM: float64(p.PackageHeight),
		WeightG:  float64(p.Weight()),
	}
}

// Valid reports whether every side and the weight are positive and finite.
func (d Dimensions) Valid() bool {
	return positive(d.LengthMM) && positive(d.WidthMM) && positive(d.HeightMM) && positive(d.WeightG)
}

// Inches returns the three sides in inches, longest first.
func (d Dimensions) Inches() [3]float64 {
	s := []float64{MMToInch(d.LengthMM), MMToInch(d.WidthMM), MMToInch(d.HeightMM)}
	sort.Sort(sort.Reverse(sort.Float64Slice(s)))
	return [3]float64{s[0], s[1], s[2]}
}

func (d Dimensions) Pounds() float64 { return GramsToPounds(d.WeightG) }

func (d Dimensions) Ounces() float64 { return GramsToOunces(d.WeightG) }

// CubicFeet returns the package volume.
func (d Dimensions) CubicFeet() float64 {
	in := d.Inches()
	return in[0] * in[1] * in[2] / CubicInPerFt
}

// Metric renders the geometry as "L x W x H cm, W g".
func (d Dimensions) Metric() string {
	return fmt.Sprintf("%.1f x %.1f x %.1f cm, %.0f g",
		MMToCM(d.LengthMM), MMToCM(d.WidthMM), MMToCM(d.HeightMM), d.WeightG)
}

// Imperial renders the geometry as "L x W x H in, W lb (W oz)".
func (d Dimensions) Imperial() string {
	return fmt.Sprintf("%.2f x %.2f x %.2f in, %.2f lb (%.1f oz)",
		MMToInch(d.LengthMM), MMToInch(d.WidthMM), MMToInch(d.HeightMM), d.Pounds(), d.Ounces())
}

// ─── Size Tiers ───────────────────────────────────────────────────────────────

// SizeTier is a fulfillment size tier.
type SizeTier int

const (
	SmallStandard SizeTier = iota
	LargeStandard
	LargeBulky
	Oversize
)

func (t SizeTier) String() string {
	switch t {
	case SmallStandard:
		return "small_standard"
	case LargeStandard:
		return "large_standard"
	case LargeBulky:
		return "large_bulky"
	default:
		return "oversize"
	}
}

// MarshalText renders the tier name in JSON and YAML output.
func (t SizeTier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// TierClass is the coarse classification storage rates are keyed by.
type TierClass string

const (
	TierStandard TierClass = "standard"
	TierOversize TierClass = "oversize"
)

// Class collapses a tier into its storage class.
func (t SizeTier) Class() TierClass {
	if t == SmallStandard || t == LargeStandard {
		return TierStandard
	}
	return TierOversize
}

// Classify assigns d to the first matching size tier:
//
//	small standard  ≤ 1 lb,  15 × 12 × 0.75 in
//	large standard  ≤ 20 lb, 18 × 14 × 8 in
//	large bulky     ≤ 50 lb, 59 × 33 × 33 in, length + girth ≤ 130 in
//	oversize        everything else
//
// Sides are compared longest to longest.
func Classify(d Dimensions) SizeTier {
	in := d.Inches()
	l, m, s := in[0], in[1], in[2]
	lb := d.Pounds()

	switch {
	case lb <= 1 && l <= 15 && m <= 12 && s <= 0.75:
		return SmallStandard
	case lb <= 20 && l <= 18 && m <= 14 && s <= 8:
		return LargeStandard
	case lb <= 50 && l <= 59 && m <= 33 && s <= 33 && l+2*(m+s) <= 130:
		return LargeBulky
	default:
		return Oversize
	}
}
