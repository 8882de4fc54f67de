// Package product turns raw Keepa product, offer and seller payloads into
// the summaries sellerscope prints: a product overview with fees and a
// 90-day graph, the live offer list, and seller profiles and revenue.
package product

import (
	"fmt"
	"time"

	"github.com/derickschaefer/sellerscope/internal/analyze"
	"github.com/derickschaefer/sellerscope/internal/fees"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/transform"
)

// ImageBaseURL prefixes Keepa image names.
const ImageBaseURL = "https://m.media-amazon.com/images/I/"

// SummaryGraphDays is the window of the graph embedded in a Summary.
const SummaryGraphDays = 90

// Reviews is the latest rating (0–5) and review count.
type Reviews struct {
	Rating *float64 `json:"rating,omitempty"`
	Count  *int64   `json:"count,omitempty"`
}

// Info holds the latest market figures. Prices are in currency units.
type Info struct {
	SalePrice                 float64  `json:"sale_price"`
	AmazonPrice               *float64 `json:"amazon_price,omitempty"`
	BuyBox                    *float64 `json:"buy_box,omitempty"`
	ListPrice                 *float64 `json:"list_price,omitempty"`
	NewPrice                  *float64 `json:"new_price,omitempty"`
	SalesRank                 *int64   `json:"sales_rank,omitempty"`
	OfferCount                *int64   `json:"offer_count,omitempty"`
	MonthlySold               int      `json:"monthly_sold,omitempty"`
	CompetitivePriceThreshold *float64 `json:"competitive_price_threshold,omitempty"`
}

// DimensionText is the package geometry formatted for display.
// Empty fields mean Keepa did not report that measurement.
type DimensionText struct {
	Length string `json:"length,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
	Weight string `json:"weight,omitempty"`
}

// FeeSummary combines the fees Keepa reports with locally computed ones.
type FeeSummary struct {
	FBAFee             *float64          `json:"fba_fee,omitempty"`
	ReferralFeePercent *float64          `json:"referral_fee_percent,omitempty"`
	InboundShipping    *float64          `json:"inbound_shipping,omitempty"`
	Tier               fees.SizeTier     `json:"tier"`
	Placement          fees.PlacementFee `json:"placement"`
	Storage            *fees.StorageFee  `json:"storage,omitempty"`
}

// Summary is the product overview.
type Summary struct {
	ASIN        string          `json:"asin"`
	Title       string          `json:"title,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	Category    string          `json:"category,omitempty"`
	Images      []string        `json:"images,omitempty"`
	SellerID    string          `json:"seller_id,omitempty"`
	Reviews     Reviews         `json:"reviews"`
	Info        Info            `json:"info"`
	Dimensions  DimensionText   `json:"dimensions"`
	Fees        FeeSummary      `json:"fees"`
	HistoryDays int             `json:"history_days"`
	Graph       *model.GraphSet `json:"graph,omitempty"`
}

// Summarize builds the overview for p. Storage is estimated for one month
// at now's season; the embedded graph covers the last 90 days before now.
func Summarize(p *model.Product, calc *fees.Calculator, now time.Time) Summary {
	if calc == nil {
		calc = fees.NewCalculator(nil)
	}
	s := Summary{
		ASIN:  p.ASIN,
		Title: p.Title,
		Brand: p.Brand,
	}

	for _, img := range p.Images {
		name := img.L
		if name == "" {
			name = img.M
		}
		if name != "" {
			s.Images = append(s.Images, ImageBaseURL+name)
		}
	}
	if len(p.CategoryTree) > 0 {
		s.Category = p.CategoryTree[0].Name
		if s.Category == "" {
			s.Category = "Uncategorized"
		}
	}
	if n := len(p.BuyBoxSellerIDHistory); n > 0 {
		s.SellerID = p.BuyBoxSellerIDHistory[n-1]
	}

	// Reviews
	if v, ok := latest(p.History(model.CSVRating), 1); ok {
		r := float64(v) / 10
		s.Reviews.Rating = &r
	}
	if v, ok := latest(p.History(model.CSVCountReviews), 1); ok {
		s.Reviews.Count = &v
	}

	// Info
	d := fees.FromProduct(p)
	s.Info = info(p, calc.Shipping(d))

	// Dimensions
	if p.PackageLength > 0 {
		s.Dimensions.Length = lengthText(p.PackageLength)
	}
	if p.PackageWidth > 0 {
		s.Dimensions.Width = lengthText(p.PackageWidth)
	}
	if p.PackageHeight > 0 {
		s.Dimensions.Height = lengthText(p.PackageHeight)
	}
	if p.PackageWeight > 0 {
		g := float64(p.PackageWeight)
		s.Dimensions.Weight = fmt.Sprintf("%.2f lb (%.2f oz)", fees.GramsToPounds(g), fees.GramsToOunces(g))
	}

	// Fees
	if p.FBAFees != nil && p.FBAFees.PickAndPackFee > 0 {
		v := float64(p.FBAFees.PickAndPackFee) / transform.PriceDivisor
		s.Fees.FBAFee = &v
	}
	if p.ReferralFeePercent > 0 {
		v := p.ReferralFeePercent / 100
		s.Fees.ReferralFeePercent = &v
	}
	if p.Weight() > 0 {
		v := calc.Shipping(d)
		s.Fees.InboundShipping = &v
	}
	s.Fees.Tier = fees.Classify(d)
	s.Fees.Placement = calc.Placement(d)
	if st, ok := calc.Storage(d, 1, p.Dangerous(), now); ok {
		s.Fees.Storage = &st
	}

	s.HistoryDays = analyze.HistoryDays(p)
	if len(p.CSV) > 0 {
		g := Graph(p, SummaryGraphDays, now)
		s.Graph = &g
	}
	return s
}

// Graph assembles the standard Keepa graph for p over the last days days
// (0 = all history).
func Graph(p *model.Product, days int, now time.Time) model.GraphSet {
	g := transform.Assemble(transform.KeepaGraphName, p.GraphSources(), transform.KeepaSeries, transform.Options{
		Window: transform.Window{Days: days, Now: now},
	})
	g.ASIN = p.ASIN
	return g
}

// info reads the latest market figures. shipping is added to the fallback
// sale price when there is no buy box.
func info(p *model.Product, shipping float64) Info {
	var in Info

	buyBox := p.History(model.CSVBuyBoxShipping)
	amazon := p.History(model.CSVAmazon)
	list := p.History(model.CSVListPrice)
	newPrice := p.History(model.CSVNew)

	in.BuyBox = latestPrice(buyBox, 2)
	in.AmazonPrice = latestPrice(amazon, 1)
	in.ListPrice = latestPrice(list, 1)
	in.NewPrice = latestPrice(newPrice, 1)

	if in.BuyBox != nil && *in.BuyBox > 0 {
		in.SalePrice = *in.BuyBox
	} else {
		cheapest := 0.0
		for _, c := range []*float64{in.NewPrice, in.AmazonPrice, in.ListPrice} {
			if c != nil && *c > 0 && (cheapest == 0 || *c < cheapest) {
				cheapest = *c
			}
		}
		in.SalePrice = cheapest + shipping
	}

	if v, ok := latest(p.History(model.CSVSalesRank), 1); ok {
		in.SalesRank = &v
	}
	if v, ok := latest(p.History(model.CSVCountNew), 1); ok {
		in.OfferCount = &v
	}
	in.MonthlySold = p.MonthlySold
	if p.CompetitivePriceThreshold > 0 {
		v := float64(p.CompetitivePriceThreshold) / transform.PriceDivisor
		in.CompetitivePriceThreshold = &v
	}
	return in
}

// latest returns the element offset positions from the end of s when it is
// a real value rather than a sentinel.
func latest(s model.RawSeries, offset int) (int64, bool) {
	v, ok := s.Last(offset)
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}

func latestPrice(s model.RawSeries, offset int) *float64 {
	v, ok := latest(s, offset)
	if !ok {
		return nil
	}
	f := float64(v) / transform.PriceDivisor
	return &f
}

func lengthText(mm int) string {
	return fmt.Sprintf("%.2f cm (%.2f in)", fees.MMToCM(float64(mm)), fees.MMToInch(float64(mm)))
}
