package product

import (
	"strconv"
	"time"

	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/transform"
)

// AmazonSellerID is Amazon's own seller ID on amazon.com.
const AmazonSellerID = "ATVPDKIKX0DER"

// MaxSellerLookup caps how many seller IDs one offer listing enriches.
const MaxSellerLookup = 100

// conditionNew is Keepa's offer condition code for new items.
const conditionNew = 1

// SellerType says who fulfils an offer.
type SellerType string

const (
	SellerAmazon SellerType = "AMZ"
	SellerFBA    SellerType = "FBA"
	SellerFBM    SellerType = "FBM"
)

// SellerRef is the short seller profile attached to offers.
type SellerRef struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Rating      float64    `json:"rating"` // 0–5
	RatingCount int        `json:"rating_count"`
	Type        SellerType `json:"type,omitempty"`
}

// LiveOffer is one live new-condition offer.
type LiveOffer struct {
	SellerID  string     `json:"seller_id"`
	Type      SellerType `json:"type"`
	Condition int        `json:"condition"`
	Stock     *int64     `json:"stock"`
	Price     *float64   `json:"price"`
	Seller    *SellerRef `json:"seller,omitempty"`
}

// BuyBoxEntry is one change of buy-box owner. SellerID is empty when
// nobody held the buy box.
type BuyBoxEntry struct {
	Time     int64  `json:"date"` // epoch ms
	SellerID string `json:"seller_id"`
}

// OfferSet is the live offer listing for one product.
type OfferSet struct {
	ASIN          string               `json:"asin"`
	Total         int                  `json:"total"`
	Amazon        int                  `json:"amazon"`
	FBA           int                  `json:"fba"`
	FBM           int                  `json:"fbm"`
	Offers        []LiveOffer          `json:"offers"`
	BuyBoxHistory []BuyBoxEntry        `json:"buy_box_history,omitempty"`
	Sellers       map[string]SellerRef `json:"sellers,omitempty"`
}

// ExtractOffers lists p's live new-condition offers in Keepa's live order.
// FBM prices include shipping, since the buyer pays it on top. ok is false
// when the product has no live offers at all.
func ExtractOffers(p *model.Product, shipping float64) (OfferSet, bool) {
	if len(p.LiveOffersOrder) == 0 || len(p.Offers) == 0 {
		return OfferSet{}, false
	}

	set := OfferSet{ASIN: p.ASIN, Offers: []LiveOffer{}}
	for _, idx := range p.LiveOffersOrder {
		if idx < 0 || idx >= len(p.Offers) {
			continue
		}
		o := p.Offers[idx]
		if o.Condition != conditionNew {
			continue
		}

		lo := LiveOffer{SellerID: o.SellerID, Condition: o.Condition, Type: offerType(o)}
		if v, ok := o.StockCSV.Last(1); ok {
			lo.Stock = &v
		}
		if len(o.OfferCSV) >= 2 {
			if v, ok := o.OfferCSV.Last(2); ok {
				price := float64(v) / transform.PriceDivisor
				if lo.Type == SellerFBM {
					price += shipping
				}
				lo.Price = &price
			}
		}

		switch lo.Type {
		case SellerAmazon:
			set.Amazon++
		case SellerFBA:
			set.FBA++
		default:
			set.FBM++
		}
		set.Offers = append(set.Offers, lo)
	}
	set.Total = len(set.Offers)
	set.BuyBoxHistory = BuyBoxSellers(p.BuyBoxSellerIDHistory)
	return set, true
}

func offerType(o model.Offer) SellerType {
	switch {
	case o.IsAmazon:
		return SellerAmazon
	case o.IsFBA:
		return SellerFBA
	default:
		return SellerFBM
	}
}

// BuyBoxSellers decodes Keepa's buyBoxSellerIdHistory, a flat list of
// (keepaMinute, sellerId) pairs. Sentinel seller IDs become "".
// Pairs with an unparseable time are skipped.
func BuyBoxSellers(history []string) []BuyBoxEntry {
	var out []BuyBoxEntry
	for i := 0; i+1 < len(history); i += 2 {
		minute, err := strconv.ParseInt(history[i], 10, 64)
		if err != nil {
			continue
		}
		id := history[i+1]
		if id == "-1" || id == "-2" {
			id = ""
		}
		out = append(out, BuyBoxEntry{Time: transform.KeepaMinuteToMillis(minute), SellerID: id})
	}
	return out
}

// SellerIDs returns the unique seller IDs worth looking up for set: every
// offer's seller followed by buy-box holders since since. The list is
// capped at MaxSellerLookup.
func SellerIDs(set OfferSet, since time.Time) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id == "" || seen[id] || len(out) >= MaxSellerLookup {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, o := range set.Offers {
		add(o.SellerID)
	}
	cutoff := since.UnixMilli()
	for _, e := range set.BuyBoxHistory {
		if e.Time >= cutoff {
			add(e.SellerID)
		}
	}
	return out
}

// SellerTypeOf classifies a seller profile.
func SellerTypeOf(s model.Seller) SellerType {
	switch {
	case s.SellerID == AmazonSellerID:
		return SellerAmazon
	case s.HasFBA:
		return SellerFBA
	default:
		return SellerFBM
	}
}

// Ref builds the short profile of s.
func Ref(s model.Seller) SellerRef {
	return SellerRef{
		ID:          s.SellerID,
		Name:        s.SellerName,
		Rating:      StarRating(s.CurrentRating),
		RatingCount: s.CurrentRatingCount,
		Type:        SellerTypeOf(s),
	}
}

// StarRating converts a 0–100 percentage rating to a 0–5 star scale.
func StarRating(pct int) float64 {
	return float64(pct) / 100 * 5
}

// Enrich attaches seller profiles to set's offers and fills set.Sellers.
// Offers whose seller is unknown keep a nil Seller.
func Enrich(set *OfferSet, sellers map[string]model.Seller) {
	set.Sellers = make(map[string]SellerRef, len(sellers))
	for id, s := range sellers {
		if s.SellerID == "" {
			s.SellerID = id
		}
		set.Sellers[id] = Ref(s)
	}
	for i := range set.Offers {
		if ref, ok := set.Sellers[set.Offers[i].SellerID]; ok {
			set.Offers[i].Seller = &ref
		}
	}
}
