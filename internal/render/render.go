// Package render converts Result values into human-readable or machine-parseable
// output. Every payload kind is first projected into headers and rows; the
// table, CSV/TSV and Markdown writers share that projection, while JSON and
// JSONL encode the typed payload directly.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/sellerscope/internal/analyze"
	"github.com/derickschaefer/sellerscope/internal/fees"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/product"
	"github.com/derickschaefer/sellerscope/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every supported --format value.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// ValidFormat reports whether f is a supported format.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one record per line: whole graphs (the format the chart
// commands read back), slice elements, or the whole payload for single objects.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch d := result.Data.(type) {
	case *model.GraphSet:
		return enc.Encode(d)
	case []model.GraphSet:
		return encodeEach(enc, d)
	case []product.Summary:
		return encodeEach(enc, d)
	case []fees.Estimate:
		return encodeEach(enc, d)
	case []analyze.Summary:
		return encodeEach(enc, d)
	case []analyze.TrendResult:
		return encodeEach(enc, d)
	case *product.OfferSet:
		return encodeEach(enc, d.Offers)
	default:
		return enc.Encode(result.Data)
	}
}

func encodeEach[T any](enc *json.Encoder, items []T) error {
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// ─── Projection ───────────────────────────────────────────────────────────────

// grid is a rendered payload: an optional caption, headers and rows.
type grid struct {
	caption string
	headers []string
	rows    [][]string
}

// project turns a result payload into one or more grids. ok is false for
// payloads with no tabular form; callers fall back to JSON.
func project(result *model.Result) ([]grid, bool) {
	switch d := result.Data.(type) {
	case *model.GraphSet:
		return []grid{graphGrid(d)}, true
	case []model.GraphSet:
		out := make([]grid, len(d))
		for i := range d {
			out[i] = graphGrid(&d[i])
		}
		return out, true
	case *model.Table:
		return []grid{{caption: d.Title, headers: d.Headers, rows: d.Rows}}, true
	case *model.SearchResult:
		return []grid{searchGrid(d)}, true
	case []analyze.Summary:
		return []grid{summaryGrid(d)}, true
	case []analyze.TrendResult:
		return []grid{trendGrid(d)}, true
	case []fees.Estimate:
		return []grid{feesGrid(d)}, true
	case []product.Summary:
		if len(d) == 1 {
			return []grid{productDetail(&d[0])}, true
		}
		return []grid{productGrid(d)}, true
	case *product.OfferSet:
		return []grid{offersGrid(d)}, true
	case *product.SellerSummary:
		return sellerGrids(d), true
	case *product.SellerRevenue:
		return []grid{revenueGrid(d)}, true
	}
	return nil, false
}

func graphGrid(g *model.GraphSet) grid {
	gr := grid{headers: append([]string{"date"}, g.Keys...)}
	if g.ASIN != "" {
		gr.caption = g.ASIN + " " + g.Name
	}
	for _, p := range g.Points {
		row := make([]string, 0, len(g.Keys)+1)
		row = append(row, util.FormatDate(p.Date(time.Local)))
		for _, k := range g.Keys {
			row = append(row, util.FormatValue(p.Values[k].Ptr()))
		}
		gr.rows = append(gr.rows, row)
	}
	return gr
}

func searchGrid(sr *model.SearchResult) grid {
	gr := grid{caption: fmt.Sprintf("Results for %q", sr.Query), headers: []string{"#", "ASIN"}}
	for i, a := range sr.ASINs {
		gr.rows = append(gr.rows, []string{strconv.Itoa(i + 1), a})
	}
	return gr
}

func summaryGrid(ss []analyze.Summary) grid {
	gr := grid{headers: []string{"key", "count", "missing", "min", "mean", "median", "max", "first", "last", "change%"}}
	for _, s := range ss {
		gr.rows = append(gr.rows, []string{
			s.Key,
			strconv.Itoa(s.Count),
			strconv.Itoa(s.Missing),
			num(s.Min), num(s.Mean), num(s.Median), num(s.Max),
			num(s.First), num(s.Last), num(s.ChangePct),
		})
	}
	return gr
}

func trendGrid(ts []analyze.TrendResult) grid {
	gr := grid{headers: []string{"key", "method", "direction", "slope/day", "slope/30d", "r2"}}
	for _, t := range ts {
		gr.rows = append(gr.rows, []string{
			t.Key, string(t.Method), t.Direction,
			num(t.Slope), num(t.SlopePer30d), num(t.R2),
		})
	}
	return gr
}

func feesGrid(es []fees.Estimate) grid {
	gr := grid{headers: []string{"asin", "tier", "placement", "minimal", "partial", "optimized", "shipping", "storage", "bracket"}}
	for _, e := range es {
		storage, bracket := ".", ""
		if e.Storage != nil {
			storage = money(e.Storage.Fee)
			bracket = e.Storage.Bracket
		}
		gr.rows = append(gr.rows, []string{
			e.ASIN,
			e.Tier.String(),
			e.Placement.Bracket,
			util.FormatMoney(e.Placement.Minimal),
			util.FormatMoney(e.Placement.Partial),
			util.FormatMoney(e.Placement.Optimized),
			money(e.Shipping),
			storage,
			bracket,
		})
	}
	return gr
}

func productGrid(ps []product.Summary) grid {
	gr := grid{headers: []string{"asin", "title", "brand", "sale", "buy box", "rank", "offers", "tier", "history"}}
	for _, s := range ps {
		gr.rows = append(gr.rows, []string{
			s.ASIN,
			util.Truncate(s.Title, 40),
			s.Brand,
			money(s.Info.SalePrice),
			util.FormatMoney(s.Info.BuyBox),
			intPtr(s.Info.SalesRank),
			intPtr(s.Info.OfferCount),
			s.Fees.Tier.String(),
			fmt.Sprintf("%dd", s.HistoryDays),
		})
	}
	return gr
}

func productDetail(s *product.Summary) grid {
	gr := grid{headers: []string{"field", "value"}}
	add := func(k, v string) {
		if v != "" {
			gr.rows = append(gr.rows, []string{k, v})
		}
	}
	add("ASIN", s.ASIN)
	add("Title", util.Truncate(s.Title, 80))
	add("Brand", s.Brand)
	add("Category", s.Category)
	add("Buy Box Seller", s.SellerID)
	if s.Reviews.Rating != nil {
		add("Rating", fmt.Sprintf("%.1f (%s reviews)", *s.Reviews.Rating, intPtr(s.Reviews.Count)))
	}
	add("Sale Price", money(s.Info.SalePrice))
	add("Buy Box", optMoney(s.Info.BuyBox))
	add("Amazon", optMoney(s.Info.AmazonPrice))
	add("New", optMoney(s.Info.NewPrice))
	add("List", optMoney(s.Info.ListPrice))
	if s.Info.SalesRank != nil {
		add("Sales Rank", intPtr(s.Info.SalesRank))
	}
	if s.Info.OfferCount != nil {
		add("Offers", intPtr(s.Info.OfferCount))
	}
	if s.Info.MonthlySold > 0 {
		add("Monthly Sold", strconv.Itoa(s.Info.MonthlySold))
	}
	add("Length", s.Dimensions.Length)
	add("Width", s.Dimensions.Width)
	add("Height", s.Dimensions.Height)
	add("Weight", s.Dimensions.Weight)
	add("Size Tier", s.Fees.Tier.String())
	add("FBA Fee", optMoney(s.Fees.FBAFee))
	if s.Fees.ReferralFeePercent != nil {
		add("Referral", fmt.Sprintf("%.0f%%", *s.Fees.ReferralFeePercent*100))
	}
	add("Inbound Shipping", optMoney(s.Fees.InboundShipping))
	pl := s.Fees.Placement
	if pl.Minimal != nil {
		add("Placement", fmt.Sprintf("%s / %s: %s minimal, %s partial, %s optimized",
			pl.Class, pl.Bracket, util.FormatMoney(pl.Minimal), util.FormatMoney(pl.Partial), util.FormatMoney(pl.Optimized)))
	}
	if st := s.Fees.Storage; st != nil {
		add("Storage (1 mo)", fmt.Sprintf("%s (%s, %s)", money(st.Fee), st.Season, st.Bracket))
	}
	add("History", fmt.Sprintf("%d days", s.HistoryDays))
	if s.Graph != nil {
		add("Graph Points", strconv.Itoa(len(s.Graph.Points)))
	}
	return gr
}

func offersGrid(set *product.OfferSet) grid {
	gr := grid{
		caption: fmt.Sprintf("%s: %d offers (%d AMZ, %d FBA, %d FBM)", set.ASIN, set.Total, set.Amazon, set.FBA, set.FBM),
		headers: []string{"seller", "type", "price", "stock", "name", "rating"},
	}
	for _, o := range set.Offers {
		name, rating := "", ""
		if o.Seller != nil {
			name = o.Seller.Name
			rating = fmt.Sprintf("%.1f (%d)", o.Seller.Rating, o.Seller.RatingCount)
		}
		gr.rows = append(gr.rows, []string{
			o.SellerID,
			string(o.Type),
			util.FormatMoney(o.Price),
			intPtr(o.Stock),
			name,
			rating,
		})
	}
	return gr
}

func sellerGrids(s *product.SellerSummary) []grid {
	profile := grid{headers: []string{"field", "value"}}
	add := func(k, v string) {
		if v != "" {
			profile.rows = append(profile.rows, []string{k, v})
		}
	}
	add("ID", s.ID)
	add("Name", s.Name)
	add("Ships From", s.ShipsFrom)
	if s.TotalASINs != nil {
		add("Storefront ASINs", intPtr(s.TotalASINs))
	}
	if s.Rating != nil {
		add("Rating", fmt.Sprintf("%.1f (%d)", *s.Rating, s.RatingCount))
	}
	add("Scammer", strconv.FormatBool(s.Scammer))
	add("Phone", s.Phone)
	out := []grid{profile}

	if len(s.Brands) > 0 {
		g := grid{caption: "Brands", headers: []string{"brand", "products"}}
		for _, b := range s.Brands {
			g.rows = append(g.rows, []string{b.Name, strconv.Itoa(b.Count)})
		}
		out = append(out, g)
	}
	if len(s.Categories) > 0 {
		g := grid{caption: "Categories", headers: []string{"id", "name", "products"}}
		for _, c := range s.Categories {
			g.rows = append(g.rows, []string{strconv.FormatInt(c.ID, 10), c.Name, strconv.Itoa(c.Count)})
		}
		out = append(out, g)
	}
	return out
}

func revenueGrid(r *product.SellerRevenue) grid {
	return grid{
		headers: []string{"field", "value"},
		rows: [][]string{
			{"Seller", r.SellerID},
			{"Products", strconv.Itoa(r.Products)},
			{"Stock Rate", fmt.Sprintf("%.1f%%", r.StockRate)},
			{"Average Price", money(r.AveragePrice)},
			{"Monthly Sold", strconv.Itoa(r.MonthlySold)},
			{"Revenue (30d)", money(r.Revenue)},
		},
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	grids, ok := project(result)
	if !ok {
		return renderJSON(w, result)
	}
	for i, g := range grids {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if g.caption != "" {
			fmt.Fprintf(w, "%s\n\n", g.caption)
		}
		tw := tablewriter.NewWriter(w)
		tw.SetHeader(upper(g.headers))
		tw.SetBorder(true)
		tw.SetRowLine(false)
		tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAlignment(tablewriter.ALIGN_LEFT)
		tw.SetAutoWrapText(false)
		tw.SetAutoFormatHeaders(false)
		tw.AppendBulk(g.rows)
		tw.Render()
	}
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	grids, ok := project(result)
	if !ok {
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}
	for i, g := range grids {
		if i == 0 || !sameHeaders(grids[0].headers, g.headers) {
			_ = cw.Write(g.headers)
		}
		_ = cw.WriteAll(g.rows)
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	grids, ok := project(result)
	if !ok {
		return renderJSON(w, result)
	}
	for i, g := range grids {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if g.caption != "" {
			fmt.Fprintf(w, "**%s**\n\n", mdEscape(g.caption))
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(upper(g.headers), " | "))
		fmt.Fprintf(w, "|%s\n", strings.Repeat("----|", len(g.headers)))
		for _, r := range g.rows {
			cells := make([]string, len(r))
			for j, c := range r {
				cells[j] = mdEscape(c)
			}
			fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
		}
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and, in verbose mode, stats to w.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "live"
		if result.Stats.CacheHit {
			src = "store"
		}
		tokens := ""
		if result.Stats.TokensLeft > 0 {
			tokens = fmt.Sprintf(" • %d tokens left", result.Stats.TokensLeft)
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s%s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
			tokens,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// num formats a statistic rounded to four decimals.
func num(v float64) string {
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		v = math.Round(v*1e4) / 1e4
	}
	return util.FormatValue(&v)
}

func money(v float64) string {
	return util.FormatMoney(&v)
}

// optMoney is money for optional amounts, rendering nil as "".
func optMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return util.FormatMoney(v)
}

func intPtr(v *int64) string {
	if v == nil {
		return "."
	}
	return strconv.FormatInt(*v, 10)
}

func upper(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func sameHeaders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
