package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/fees"
	"github.com/derickschaefer/sellerscope/internal/keepa"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/product"
)

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Live offers and buy-box history",
}

// ─── offers get ───────────────────────────────────────────────────────────────

var (
	offersNoSellers bool
	offersOffline   bool
)

var offersGetCmd = &cobra.Command{
	Use:   "get <ASIN>",
	Short: "Live new-condition offers with seller profiles",
	Long: `Lists a product's live new-condition offers in Keepa's order, classified
as Amazon, FBA or FBM. FBM prices include the estimated inbound shipping for
the product's weight.

Seller profiles are looked up for every offer and for buy-box holders of the
last 30 days. --no-sellers skips that lookup and saves tokens.`,
	Example: `  sellerscope offers get B07XJ8C8F5
  sellerscope offers get B07XJ8C8F5 --format json
  sellerscope offers get B07XJ8C8F5 --no-sellers`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		asins, err := asinArgs(args)
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		products, warnings, fromStore, err := loadProducts(cmd.Context(), deps, asins[:1], productSource{
			Offline: offersOffline,
			Opts:    keepa.OfferData,
		})
		if err != nil {
			return withWarnings(err, warnings)
		}
		p := &products[0]

		set, ok := product.ExtractOffers(p, deps.Fees.Shipping(fees.FromProduct(p)))
		if !ok {
			result := newResult(model.KindOffers, "offers get", &product.OfferSet{ASIN: p.ASIN, Offers: []product.LiveOffer{}}, 0)
			result.Warnings = append(warnings, fmt.Sprintf("%s: no live offers", p.ASIN))
			return emit(cmd, deps, result, started)
		}

		if !offersNoSellers && !offersOffline {
			since := deps.Config.NowOrCurrent().Add(-product.RevenueWindow)
			if ids := product.SellerIDs(set, since); len(ids) > 0 {
				sellers, err := deps.Client.GetSellers(cmd.Context(), ids, false)
				if err != nil {
					slog.Warn("seller lookup failed", "asin", p.ASIN, "err", err)
					warnings = append(warnings, fmt.Sprintf("seller lookup: %v", err))
				} else {
					product.Enrich(&set, sellers)
				}
			}
		}

		result := newResult(model.KindOffers, "offers get", &set, set.Total)
		result.Warnings = warnings
		result.Stats.CacheHit = fromStore
		return emit(cmd, deps, result, started)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(offersCmd)
	offersCmd.AddCommand(offersGetCmd)

	offersGetCmd.Flags().BoolVar(&offersNoSellers, "no-sellers", false, "skip the seller profile lookup")
	offersGetCmd.Flags().BoolVar(&offersOffline, "offline", false, "read the product from the local store (implies --no-sellers)")
}
