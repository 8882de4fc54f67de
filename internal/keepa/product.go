package keepa

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// ─── Products ─────────────────────────────────────────────────────────────────

// maxProductsPerRequest is Keepa's ASIN limit for one product request.
const maxProductsPerRequest = 100

// ProductOptions selects the optional product data Keepa should include.
// Each option costs additional tokens.
type ProductOptions struct {
	Days           int // limit histories to the last N days; 0 = all
	Stats          int // include stats over the last N days
	Offers         int // number of marketplace offers to include
	OnlyLiveOffers bool
	Stock          bool
	BuyBox         bool
	History        bool
	Rating         bool
}

// ProductData is the default product request: histories, buy box and
// ratings without offers.
var ProductData = ProductOptions{Stats: 90, BuyBox: true, History: true, Rating: true}

// OfferData additionally includes live offers with stock.
var OfferData = ProductOptions{Offers: 20, OnlyLiveOffers: true, Stock: true, BuyBox: true, History: true}

func (o ProductOptions) params() url.Values {
	p := url.Values{}
	if o.Days > 0 {
		p.Set("days", strconv.Itoa(o.Days))
	}
	if o.Stats > 0 {
		p.Set("stats", strconv.Itoa(o.Stats))
	}
	if o.Offers > 0 {
		p.Set("offers", strconv.Itoa(o.Offers))
	}
	setFlag(p, "only-live-offers", o.OnlyLiveOffers)
	setFlag(p, "stock", o.Stock)
	setFlag(p, "buybox", o.BuyBox)
	setFlag(p, "history", o.History)
	setFlag(p, "rating", o.Rating)
	return p
}

func setFlag(p url.Values, name string, on bool) {
	if on {
		p.Set(name, "1")
	}
}

// GetProducts fetches products for asins, batching requests at Keepa's
// per-request limit. Products are returned in Keepa's order.
func (c *Client) GetProducts(ctx context.Context, asins []string, opts ProductOptions) ([]model.Product, error) {
	var out []model.Product
	for start := 0; start < len(asins); start += maxProductsPerRequest {
		end := start + maxProductsPerRequest
		if end > len(asins) {
			end = len(asins)
		}
		batch := asins[start:end]

		params := opts.params()
		params.Set("asin", strings.Join(batch, ","))

		var raw struct {
			Products []model.Product `json:"products"`
		}
		if err := c.get(ctx, "product", params, &raw); err != nil {
			return nil, fmt.Errorf("products %s: %w", strings.Join(batch, ","), err)
		}
		out = append(out, raw.Products...)
	}
	return out, nil
}

// GetProduct fetches a single product.
func (c *Client) GetProduct(ctx context.Context, asin string, opts ProductOptions) (*model.Product, error) {
	products, err := c.GetProducts(ctx, []string{asin}, opts)
	if err != nil {
		return nil, err
	}
	for i := range products {
		// Keepa returns a stub without histories for unknown ASINs.
		if products[i].ASIN == asin && products[i].CSV != nil {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", asin, ErrNotFound)
}

// ─── Search ───────────────────────────────────────────────────────────────────

// Search runs a keyword product search and returns the matching ASINs.
func (c *Client) Search(ctx context.Context, term string, page int) (*model.SearchResult, error) {
	params := url.Values{}
	params.Set("type", "product")
	params.Set("term", term)
	params.Set("page", strconv.Itoa(page))
	params.Set("asins-only", "1")

	var raw struct {
		ASINList []string `json:"asinList"`
	}
	if err := c.get(ctx, "search", params, &raw); err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}
	return &model.SearchResult{Query: term, Page: page, ASINs: raw.ASINList}, nil
}

// Query runs a Product Finder selection (a JSON document) and returns the
// matching ASINs.
func (c *Client) Query(ctx context.Context, selection string) (*model.SearchResult, error) {
	params := url.Values{}
	params.Set("selection", selection)

	var raw struct {
		ASINList []string `json:"asinList"`
	}
	if err := c.get(ctx, "query", params, &raw); err != nil {
		return nil, fmt.Errorf("product finder: %w", err)
	}
	return &model.SearchResult{Query: selection, ASINs: raw.ASINList}, nil
}
