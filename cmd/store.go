package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/product"
	"github.com/derickschaefer/sellerscope/internal/store"
	"github.com/derickschaefer/sellerscope/internal/util"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect locally stored products",
	Long: `Commands for inspecting the Keepa products kept in the local database.

Use 'sellerscope product get <ASIN> --store' or 'graph get --save' to keep products.
Use 'sellerscope cache stats' for bucket-level storage stats.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products stored for the current domain",
	Example: `  sellerscope store list
  sellerscope store list --domain de --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}

		infos, err := st.ListProducts(deps.Config.Domain)
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No products in local database for this domain.")
			fmt.Fprintln(cmd.ErrOrStderr(), "  Use: sellerscope product get <ASIN...> --store")
			return nil
		}
		return emit(cmd, deps, newResult(model.KindTable, "store list", productTable(infos), len(infos)), started)
	},
}

func productTable(infos []store.ProductInfo) *model.Table {
	t := &model.Table{Headers: []string{"asin", "domain", "title", "fetched_at"}}
	for _, p := range infos {
		t.Rows = append(t.Rows, []string{
			p.ASIN,
			strconv.Itoa(p.Domain),
			util.Truncate(p.Title, 50),
			p.FetchedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return t
}

// ─── store get ────────────────────────────────────────────────────────────────

var storeGetRaw bool

var storeGetCmd = &cobra.Command{
	Use:   "get <ASIN>",
	Short: "Read a stored product",
	Long: `Reads a stored product and prints its overview, as 'product get' would.
--raw prints the stored Keepa payload as indented JSON instead.`,
	Example: `  sellerscope store get B07XJ8C8F5
  sellerscope store get B07XJ8C8F5 --raw > product.json
  sellerscope store get B07XJ8C8F5 --raw | sellerscope graph build`,
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
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}

		sp, ok, err := st.GetProduct(deps.Config.Domain, asins[0])
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if !ok {
			return fmt.Errorf("%s is not stored for domain %d\n\n  Use: sellerscope product get %s --store", asins[0], deps.Config.Domain, asins[0])
		}

		if storeGetRaw {
			w, closeFn, err := outputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeFn()
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(sp.Product)
		}

		summary := product.Summarize(&sp.Product, deps.Fees, deps.Config.NowOrCurrent())
		summary.Graph = nil
		result := newResult(model.KindProduct, "store get "+asins[0], []product.Summary{summary}, 1)
		result.Stats.CacheHit = true
		result.Warnings = []string{fmt.Sprintf("stored %s", sp.FetchedAt.Local().Format("2006-01-02 15:04"))}
		return emit(cmd, deps, result, started)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd, storeGetCmd)

	storeGetCmd.Flags().BoolVar(&storeGetRaw, "raw", false, "print the stored Keepa payload as JSON")
}
