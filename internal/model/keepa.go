package model

// ─── Keepa Entity Types ───────────────────────────────────────────────────────

// Indices into Product.CSV. Only the histories sellerscope reads are listed.
const (
	CSVAmazon         = 0
	CSVNew            = 1
	CSVSalesRank      = 3
	CSVListPrice      = 4
	CSVCountNew       = 11
	CSVRating         = 16
	CSVCountReviews   = 17
	CSVBuyBoxShipping = 18
)

// Source names used to address raw series when assembling graphs.
const (
	SourceBuyBox      = "buyboxHistory"
	SourceAmazon      = "amazonHistory"
	SourceSalesRank   = "salesRankHistory"
	SourceNewPrice    = "newPriceHistory"
	SourceOfferCount  = "offerCountHistory"
	SourceMonthlySold = "monthlySoldHistory"
)

// Image is one product image reference. L is the large variant, M the medium.
type Image struct {
	L string `json:"l"`
	M string `json:"m"`
}

// CategoryNode is one level of a product's category tree.
type CategoryNode struct {
	CatID int64  `json:"catId"`
	Name  string `json:"name"`
}

// FBAFees holds the fulfillment fees Keepa reports, in cents.
type FBAFees struct {
	PickAndPackFee int64 `json:"pickAndPackFee"`
}

// Product is the subset of a Keepa product object sellerscope consumes.
// Geometry is in millimeters and grams; prices are in cents.
type Product struct {
	ASIN                      string         `json:"asin"`
	DomainID                  int            `json:"domainId"`
	Title                     string         `json:"title"`
	Brand                     string         `json:"brand"`
	Images                    []Image        `json:"images"`
	CategoryTree              []CategoryNode `json:"categoryTree"`
	CSV                       []RawSeries    `json:"csv"`
	BuyBoxSellerIDHistory     []string       `json:"buyBoxSellerIdHistory"`
	MonthlySold               int            `json:"monthlySold"`
	MonthlySoldHistory        RawSeries      `json:"monthlySoldHistory"`
	CompetitivePriceThreshold int64          `json:"competitivePriceThreshold"`
	PackageLength             int            `json:"packageLength"`
	PackageWidth              int            `json:"packageWidth"`
	PackageHeight             int            `json:"packageHeight"`
	PackageWeight             int            `json:"packageWeight"`
	ItemWeight                int            `json:"itemWeight"`
	FBAFees                   *FBAFees       `json:"fbaFees"`
	ReferralFeePercent        float64        `json:"referralFeePercent"`
	HazardousMaterials        []interface{}  `json:"hazardousMaterials"`
	IsDangerous               bool           `json:"isDangerous"`
	Offers                    []Offer        `json:"offers"`
	LiveOffersOrder           []int          `json:"liveOffersOrder"`
}

// History returns the csv history at index, or nil when absent.
func (p *Product) History(index int) RawSeries {
	if p == nil || index < 0 || index >= len(p.CSV) {
		return nil
	}
	return p.CSV[index]
}

// Weight returns the package weight, falling back to the item weight.
func (p *Product) Weight() int {
	if p.PackageWeight > 0 {
		return p.PackageWeight
	}
	return p.ItemWeight
}

// Dangerous reports whether the product is flagged as dangerous goods.
func (p *Product) Dangerous() bool {
	return p.IsDangerous || len(p.HazardousMaterials) > 0
}

// GraphSources maps the source names used by graph series configs to the
// product's raw histories. Empty histories are omitted.
func (p *Product) GraphSources() map[string]RawSeries {
	out := make(map[string]RawSeries)
	add := func(name string, s RawSeries) {
		if len(s) > 0 {
			out[name] = s
		}
	}
	add(SourceBuyBox, p.History(CSVBuyBoxShipping))
	add(SourceAmazon, p.History(CSVAmazon))
	add(SourceSalesRank, p.History(CSVSalesRank))
	add(SourceNewPrice, p.History(CSVNew))
	add(SourceOfferCount, p.History(CSVCountNew))
	add(SourceMonthlySold, p.MonthlySoldHistory)
	return out
}

// Offer is one marketplace offer on a product.
// OfferCSV is (keepaMinute, price, shipping) triples; StockCSV is pairs.
type Offer struct {
	SellerID  string    `json:"sellerId"`
	Condition int       `json:"condition"`
	IsAmazon  bool      `json:"isAmazon"`
	IsFBA     bool      `json:"isFBA"`
	IsPrime   bool      `json:"isPrime"`
	OfferCSV  RawSeries `json:"offerCSV"`
	StockCSV  RawSeries `json:"stockCSV"`
}

// BrandStat is a seller's product count for one brand.
type BrandStat struct {
	Brand        string `json:"brand"`
	ProductCount int    `json:"productCount"`
}

// CategoryStat is a seller's product count for one category.
type CategoryStat struct {
	CatID        int64 `json:"catId"`
	ProductCount int   `json:"productCount"`
}

// Seller is the subset of a Keepa seller object sellerscope consumes.
// CurrentRating is a percentage (0–100).
type Seller struct {
	SellerID                 string         `json:"sellerId"`
	SellerName               string         `json:"sellerName"`
	CurrentRating            int            `json:"currentRating"`
	CurrentRatingCount       int            `json:"currentRatingCount"`
	ShipsFromChina           bool           `json:"shipsFromChina"`
	IsScammer                bool           `json:"isScammer"`
	HasFBA                   bool           `json:"hasFBA"`
	PhoneNumber              string         `json:"phoneNumber"`
	TotalStorefrontAsins     RawSeries      `json:"totalStorefrontAsins"`
	SellerBrandStatistics    []BrandStat    `json:"sellerBrandStatistics"`
	SellerCategoryStatistics []CategoryStat `json:"sellerCategoryStatistics"`
}

// Category is a Keepa category lookup entry.
type Category struct {
	CatID  int64  `json:"catId"`
	Name   string `json:"name"`
	Parent int64  `json:"parent"`
}
