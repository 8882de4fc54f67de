package keepa

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/derickschaefer/sellerscope/internal/model"
)

// ─── Sellers ──────────────────────────────────────────────────────────────────

// GetSellers fetches seller profiles keyed by seller ID. With storefront set,
// Keepa includes the storefront ASIN history and brand/category statistics.
func (c *Client) GetSellers(ctx context.Context, ids []string, storefront bool) (map[string]model.Seller, error) {
	params := url.Values{}
	params.Set("seller", strings.Join(ids, ","))
	if storefront {
		params.Set("storefront", "1")
	}

	var raw struct {
		Sellers map[string]model.Seller `json:"sellers"`
	}
	if err := c.get(ctx, "seller", params, &raw); err != nil {
		return nil, fmt.Errorf("sellers %s: %w", strings.Join(ids, ","), err)
	}
	if raw.Sellers == nil {
		raw.Sellers = map[string]model.Seller{}
	}
	return raw.Sellers, nil
}

// GetSeller fetches one seller profile.
func (c *Client) GetSeller(ctx context.Context, id string, storefront bool) (*model.Seller, error) {
	sellers, err := c.GetSellers(ctx, []string{id}, storefront)
	if err != nil {
		return nil, err
	}
	s, ok := sellers[id]
	if !ok {
		return nil, fmt.Errorf("seller %s: %w", id, ErrNotFound)
	}
	return &s, nil
}

// ─── Categories ───────────────────────────────────────────────────────────────

// GetCategories looks up category names by ID.
func (c *Client) GetCategories(ctx context.Context, ids []int64) (map[int64]model.Category, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.FormatInt(id, 10)
	}
	params := url.Values{}
	params.Set("category", strings.Join(strs, ","))

	var raw struct {
		Categories map[string]model.Category `json:"categories"`
	}
	if err := c.get(ctx, "category", params, &raw); err != nil {
		return nil, fmt.Errorf("categories %s: %w", strings.Join(strs, ","), err)
	}

	out := make(map[int64]model.Category, len(raw.Categories))
	for k, cat := range raw.Categories {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		if cat.CatID == 0 {
			cat.CatID = id
		}
		out[id] = cat
	}
	return out, nil
}
