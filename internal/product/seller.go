package product

import (
	"time"

	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/transform"
)

// ─── Seller profile ───────────────────────────────────────────────────────────

// BrandCount is how many storefront products carry a brand.
type BrandCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CategoryCount is how many storefront products sit in a category.
// Name is filled by NameCategories.
type CategoryCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Count int    `json:"count"`
}

// SellerSummary is a seller profile.
type SellerSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	ShipsFrom   string          `json:"ships_from"`
	TotalASINs  *int64          `json:"total_asins,omitempty"`
	Rating      *float64        `json:"rating,omitempty"` // 0–5
	RatingCount int             `json:"rating_count,omitempty"`
	Scammer     bool            `json:"scammer"`
	Phone       string          `json:"phone,omitempty"`
	Brands      []BrandCount    `json:"brands,omitempty"`
	Categories  []CategoryCount `json:"categories,omitempty"`
}

// SummarizeSeller builds the profile of s.
func SummarizeSeller(s *model.Seller) SellerSummary {
	out := SellerSummary{
		ID:        s.SellerID,
		Name:      s.SellerName,
		ShipsFrom: "Local Warehouse",
		Scammer:   s.IsScammer,
		Phone:     s.PhoneNumber,
	}
	if s.ShipsFromChina {
		out.ShipsFrom = "China"
	}
	if len(s.TotalStorefrontAsins) > 0 {
		var n int64
		if v, ok := s.TotalStorefrontAsins.Last(1); ok && v > 0 {
			n = v
		}
		out.TotalASINs = &n
	}
	if s.CurrentRating != 0 || s.CurrentRatingCount != 0 {
		r := StarRating(s.CurrentRating)
		out.Rating = &r
		out.RatingCount = s.CurrentRatingCount
	}
	for _, b := range s.SellerBrandStatistics {
		out.Brands = append(out.Brands, BrandCount{Name: b.Brand, Count: b.ProductCount})
	}
	for _, c := range s.SellerCategoryStatistics {
		out.Categories = append(out.Categories, CategoryCount{ID: c.CatID, Count: c.ProductCount})
	}
	return out
}

// CategoryIDs returns the distinct category IDs of s, in first-seen order.
func (s *SellerSummary) CategoryIDs() []int64 {
	seen := make(map[int64]bool, len(s.Categories))
	var out []int64
	for _, c := range s.Categories {
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c.ID)
		}
	}
	return out
}

// NameCategories fills category names from a category lookup.
func (s *SellerSummary) NameCategories(cats map[int64]model.Category) {
	for i := range s.Categories {
		if c, ok := cats[s.Categories[i].ID]; ok {
			s.Categories[i].Name = c.Name
		}
	}
}

// ─── Revenue ──────────────────────────────────────────────────────────────────

// RevenueWindow is how far back SellerMetrics looks.
const RevenueWindow = 30 * 24 * time.Hour

// SellerRevenue is a seller's estimated monthly revenue over a set of
// products.
type SellerRevenue struct {
	SellerID     string  `json:"seller_id"`
	Products     int     `json:"products"` // products with in-window stock data
	StockRate    float64 `json:"stock_rate"`
	AveragePrice float64 `json:"average_price"`
	MonthlySold  int     `json:"monthly_sold"`
	Revenue      float64 `json:"revenue"`
}

// SellerMetrics estimates sellerID's revenue across products from the last
// 30 days of offer stock snapshots. For each product carrying the seller's
// offers it takes the share of snapshots with stock > 0 and the mean offer
// price in force at those snapshots. The estimate is
// (mean stock rate / 100) × Σ monthlySold × mean price.
func SellerMetrics(products []model.Product, sellerID string, now time.Time) SellerRevenue {
	out := SellerRevenue{SellerID: sellerID}
	cutoff := now.Add(-RevenueWindow).UnixMilli()

	var rates, prices []float64
	for i := range products {
		p := &products[i]
		var snapshots, inStock int
		var priceSum float64
		var priced int

		for _, o := range p.Offers {
			if o.SellerID != sellerID {
				continue
			}
			for j := 0; j+1 < len(o.StockCSV); j += 2 {
				minute, ok1 := o.StockCSV.At(j)
				stock, ok2 := o.StockCSV.At(j + 1)
				if !ok1 || !ok2 || transform.KeepaMinuteToMillis(minute) < cutoff {
					continue
				}
				snapshots++
				if stock > 0 {
					inStock++
				}
				if v, ok := priceAt(o.OfferCSV, minute); ok {
					priceSum += float64(v) / transform.PriceDivisor
					priced++
				}
			}
		}
		if snapshots == 0 {
			continue
		}

		rates = append(rates, float64(inStock)/float64(snapshots)*100)
		avg := 0.0
		if priced > 0 {
			avg = priceSum / float64(priced)
		}
		prices = append(prices, avg)
		out.MonthlySold += p.MonthlySold
	}

	out.Products = len(rates)
	if len(rates) == 0 {
		return out
	}
	out.StockRate = mean(rates)
	out.AveragePrice = mean(prices)
	out.Revenue = out.StockRate / 100 * float64(out.MonthlySold) * out.AveragePrice
	return out
}

// priceAt returns the latest positive offer price at or before minute.
// offerCSV holds (keepaMinute, price, shipping) triples in time order.
func priceAt(offerCSV model.RawSeries, minute int64) (int64, bool) {
	var price int64
	found := false
	for j := 0; j+1 < len(offerCSV); j += 3 {
		t, ok := offerCSV.At(j)
		if !ok {
			continue
		}
		if t > minute {
			break
		}
		if v, ok := offerCSV.At(j + 1); ok && v > 0 {
			price, found = v, true
		}
	}
	return price, found
}

func mean(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}
