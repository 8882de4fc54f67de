// Package fees classifies products into fulfillment size tiers and estimates
// FBA placement, shipping and storage fees from a static rate table.
// Every function here is pure: bad geometry never panics or errors, it
// falls through to a default bracket or a missing (nil) fee.
package fees

import "math"

// ─── Unit Conversion ──────────────────────────────────────────────────────────

const (
	MMPerInch     = 25.4
	GramsPerOunce = 28.349523125
	GramsPerPound = 453.59237
	OuncesPerLb   = 16.0
	CubicInPerFt  = 1728.0
)

func MMToInch(mm float64) float64 { return mm / MMPerInch }

func MMToCM(mm float64) float64 { return mm / 10 }

func GramsToPounds(g float64) float64 { return g / GramsPerPound }

func GramsToOunces(g float64) float64 { return g / GramsPerOunce }

func OuncesToPounds(oz float64) float64 { return oz / OuncesPerLb }

// positive reports whether v is a usable measurement.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
