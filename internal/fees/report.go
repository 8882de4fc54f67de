package fees

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// ─── Tabular views ────────────────────────────────────────────────────────────

// PlacementReport lists every placement bracket of t, one row per bracket.
func (t *Table) PlacementReport() *model.Table {
	out := &model.Table{
		Title:   "Inbound placement fees",
		Headers: []string{"class", "envelope in", "bracket", "weight oz", "minimal", "partial", "optimized"},
	}
	for _, c := range t.Placement {
		env := fmt.Sprintf("%s × %s × %s", trim(c.Envelope[0]), trim(c.Envelope[1]), trim(c.Envelope[2]))
		for _, b := range c.Brackets {
			out.Rows = append(out.Rows, []string{
				c.Name,
				env,
				b.Label,
				fmt.Sprintf("%s – %s", trim(b.AboveOz), trim(b.UpToOz)),
				b.Minimal.StringFixed(2),
				optional2(b.Partial),
				optional2(b.Optimized),
			})
		}
	}
	return out
}

// StorageReport lists the per-cubic-foot storage rates of t by season,
// tier class and week bracket, followed by the dangerous-goods rates.
func (t *Table) StorageReport() *model.Table {
	out := &model.Table{
		Title:   fmt.Sprintf("Monthly storage per cubic foot (%s weeks/month, shipping %s/lb)", trim(t.WeeksPerMonth), t.ShippingPerLb.StringFixed(2)),
		Headers: []string{"season", "class", "bracket", "base", "surcharge", "total"},
	}
	seasons := make([]string, 0, len(t.Storage))
	for s := range t.Storage {
		seasons = append(seasons, string(s))
	}
	sort.Strings(seasons)

	for _, s := range seasons {
		sr := t.Storage[Season(s)]
		for _, class := range []TierClass{TierStandard, TierOversize} {
			for i, r := range sr.Tiers[class] {
				label := strconv.Itoa(i)
				if i < len(t.WeekBrackets) {
					label = t.WeekBrackets[i].Label
				}
				out.Rows = append(out.Rows, []string{
					s, string(class), label,
					r.Base.StringFixed(2), r.Surcharge.StringFixed(2), r.Total().StringFixed(2),
				})
			}
		}
		for _, class := range []TierClass{TierStandard, TierOversize} {
			rate := sr.Dangerous[class]
			out.Rows = append(out.Rows, []string{s, string(class), "dangerous", rate.StringFixed(2), "0.00", rate.StringFixed(2)})
		}
	}
	return out
}

func trim(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional2(d decimal.Decimal) string {
	if d.IsZero() {
		return "."
	}
	return d.StringFixed(2)
}
