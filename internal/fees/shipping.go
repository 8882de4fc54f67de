package fees

import "github.com/shopspring/decimal"

// Shipping estimates inbound shipping as weight in pounds times the
// per-pound rate. Unknown weight costs 0.
func (c *Calculator) Shipping(d Dimensions) float64 {
	if !positive(d.WeightG) {
		return 0
	}
	return decimal.NewFromFloat(d.Pounds()).Mul(c.Table.ShippingPerLb).InexactFloat64()
}
