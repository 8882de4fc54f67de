package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/keepa"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/product"
)

var sellerCmd = &cobra.Command{
	Use:   "seller",
	Short: "Seller profiles and revenue estimates",
}

// ─── seller get ───────────────────────────────────────────────────────────────

var sellerStorefront bool

var sellerGetCmd = &cobra.Command{
	Use:   "get <SELLER_ID>",
	Short: "Seller profile: rating, ships-from, brands and categories",
	Long: `Fetches a seller profile. With --storefront Keepa also returns the
storefront ASIN count and per-brand and per-category product counts; category
names are then resolved with one extra category lookup.`,
	Example: `  sellerscope seller get A2L77EE7U53NWQ
  sellerscope seller get A2L77EE7U53NWQ --storefront --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		id := strings.TrimSpace(args[0])
		if id == "" {
			return fmt.Errorf("seller ID must not be empty")
		}
		deps, err := buildOnlineDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, err := deps.Client.GetSeller(cmd.Context(), id, sellerStorefront)
		if err != nil {
			if errors.Is(err, keepa.ErrNotFound) {
				return fmt.Errorf("seller %s not found on domain %d", id, deps.Config.Domain)
			}
			return err
		}
		if s.SellerID == "" {
			s.SellerID = id
		}
		summary := product.SummarizeSeller(s)

		var warnings []string
		if ids := summary.CategoryIDs(); len(ids) > 0 {
			cats, err := deps.Client.GetCategories(cmd.Context(), ids)
			if err != nil {
				slog.Warn("category lookup failed", "seller", id, "err", err)
				warnings = append(warnings, fmt.Sprintf("category names unavailable: %v", err))
			} else {
				summary.NameCategories(cats)
			}
		}

		result := newResult(model.KindSeller, "seller get", &summary, 1)
		result.Warnings = warnings
		return emit(cmd, deps, result, started)
	},
}

// ─── seller revenue ───────────────────────────────────────────────────────────

var (
	sellerRevenueASINs   []string
	sellerRevenueOffline bool
)

var sellerRevenueCmd = &cobra.Command{
	Use:   "revenue <SELLER_ID>",
	Short: "Estimate a seller's monthly revenue over a set of products",
	Long: `Estimates what a seller earns per month across the given products, from the
last 30 days of the seller's offer stock snapshots:

  revenue = (mean in-stock rate / 100) × Σ monthly sold × mean offer price

Products on which the seller has no stock snapshots in the window are ignored.`,
	Example: `  sellerscope seller revenue A2L77EE7U53NWQ --asins B07XJ8C8F5,B000TEST01
  sellerscope seller revenue A2L77EE7U53NWQ --asins B07XJ8C8F5 --now 2024-06-01 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		id := strings.TrimSpace(args[0])
		if id == "" {
			return fmt.Errorf("seller ID must not be empty")
		}
		if len(sellerRevenueASINs) == 0 {
			return fmt.Errorf("--asins is required")
		}
		asins, err := asinArgs(sellerRevenueASINs)
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		products, warnings, fromStore, err := loadProducts(cmd.Context(), deps, asins, productSource{
			Offline: sellerRevenueOffline,
			Opts:    keepa.OfferData,
		})
		if err != nil {
			return withWarnings(err, warnings)
		}

		rev := product.SellerMetrics(products, id, deps.Config.NowOrCurrent())
		if rev.Products == 0 {
			warnings = append(warnings, fmt.Sprintf("seller %s has no stock snapshots in the last 30 days on these products", id))
		}

		result := newResult(model.KindSellerRev, "seller revenue", &rev, rev.Products)
		result.Warnings = warnings
		result.Stats.CacheHit = fromStore
		return emit(cmd, deps, result, started)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(sellerCmd)
	sellerCmd.AddCommand(sellerGetCmd, sellerRevenueCmd)

	sellerGetCmd.Flags().BoolVar(&sellerStorefront, "storefront", false, "include storefront ASIN count and brand/category statistics")

	sellerRevenueCmd.Flags().StringSliceVar(&sellerRevenueASINs, "asins", nil, "products to estimate over (comma-separated)")
	sellerRevenueCmd.Flags().BoolVar(&sellerRevenueOffline, "offline", false, "read products from the local store instead of Keepa")
}
