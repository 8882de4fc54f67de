package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/keepa"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/product"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Product overviews and ASIN discovery",
}

// ─── product get ──────────────────────────────────────────────────────────────

var (
	productGetStore   bool
	productGetOffline bool
	productGetGraph   bool
)

var productGetCmd = &cobra.Command{
	Use:   "get <ASIN...>",
	Short: "Product overview: prices, rank, reviews, dimensions and fees",
	Long: `Fetches products from Keepa and summarizes their latest prices, sales rank,
offer count, reviews, package dimensions and FBA fee estimates.

With one ASIN the table output is a field/value sheet; with several it is one
row per product. --store keeps the raw Keepa payloads in the local database so
later commands can run with --offline.`,
	Example: `  sellerscope product get B07XJ8C8F5
  sellerscope product get B07XJ8C8F5,B000TEST01 --store
  sellerscope product get B07XJ8C8F5 --format json --graph`,
	Args: cobra.MinimumNArgs(1),
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

		products, warnings, fromStore, err := loadProducts(cmd.Context(), deps, asins, productSource{
			Offline: productGetOffline,
			Save:    productGetStore && !productGetOffline,
			Opts:    keepa.ProductData,
		})
		if err != nil {
			return withWarnings(err, warnings)
		}

		now := deps.Config.NowOrCurrent()
		out := make([]product.Summary, len(products))
		for i := range products {
			out[i] = product.Summarize(&products[i], deps.Fees, now)
			if !productGetGraph {
				out[i].Graph = nil
			}
		}

		result := newResult(model.KindProduct, "product get", out, len(out))
		result.Warnings = warnings
		result.Stats.CacheHit = fromStore
		return emit(cmd, deps, result, started)
	},
}

// ─── product search ───────────────────────────────────────────────────────────

var productSearchPage int

var productSearchCmd = &cobra.Command{
	Use:   "search <term...>",
	Short: "Keyword search; returns matching ASINs",
	Example: `  sellerscope product search wireless earbuds
  sellerscope product search "yoga mat" --page 2 --format jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		if productSearchPage < 0 {
			return fmt.Errorf("--page must be 0 or greater")
		}
		deps, err := buildOnlineDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		sr, err := deps.Client.Search(cmd.Context(), strings.Join(args, " "), productSearchPage)
		if err != nil {
			return err
		}
		result := newResult(model.KindSearchResult, "product search", sr, len(sr.ASINs))
		if len(sr.ASINs) == 0 {
			result.Warnings = []string{"no products matched"}
		}
		return emit(cmd, deps, result, started)
	},
}

// ─── product find ─────────────────────────────────────────────────────────────

var productFindCmd = &cobra.Command{
	Use:   "find <selection-json|->",
	Short: "Run a Keepa Product Finder selection; returns matching ASINs",
	Long: `Runs a Product Finder query. The selection is a JSON object in Keepa's
Product Finder format, given inline or read from stdin with "-".`,
	Example: `  sellerscope product find '{"current_SALES_lte": 5000, "rootCategory": 172282, "perPage": 50}'
  cat selection.json | sellerscope product find -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		selection := args[0]
		if selection == "-" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading selection: %w", err)
			}
			selection = string(b)
		}
		var probe map[string]interface{}
		if err := json.Unmarshal([]byte(selection), &probe); err != nil {
			return fmt.Errorf("selection must be a JSON object: %w", err)
		}
		compact, err := json.Marshal(probe)
		if err != nil {
			return err
		}

		deps, err := buildOnlineDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		sr, err := deps.Client.Query(cmd.Context(), string(compact))
		if err != nil {
			return err
		}
		result := newResult(model.KindSearchResult, "product find", sr, len(sr.ASINs))
		if len(sr.ASINs) == 0 {
			result.Warnings = []string{"no products matched"}
		}
		return emit(cmd, deps, result, started)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(productCmd)
	productCmd.AddCommand(productGetCmd, productSearchCmd, productFindCmd)

	productGetCmd.Flags().BoolVar(&productGetStore, "store", false, "keep the raw Keepa payloads in the local database")
	productGetCmd.Flags().BoolVar(&productGetOffline, "offline", false, "read products from the local store instead of Keepa")
	productGetCmd.Flags().BoolVar(&productGetGraph, "graph", false, "include 90 days of graph data (json/jsonl output)")

	productSearchCmd.Flags().IntVar(&productSearchPage, "page", 0, "result page, starting at 0")
}
