package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/fees"
	"github.com/derickschaefer/sellerscope/internal/keepa"
	"github.com/derickschaefer/sellerscope/internal/model"
)

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Estimate FBA placement, shipping and storage fees",
	Long: `Fee commands classify package geometry into an Amazon size tier and price
inbound placement (minimal / partial / optimized split), inbound shipping, and
monthly storage for the season in force at --now.

Rates come from the built-in US schedule unless fee_table in config.json (or
SELLERSCOPE_FEE_TABLE) points at a YAML override. Print the schedule with
'sellerscope fees table --yaml' to start one.`,
}

// ─── fees calc ────────────────────────────────────────────────────────────────

var (
	feesLength    float64
	feesWidth     float64
	feesHeight    float64
	feesWeight    float64
	feesMonths    float64
	feesDangerous bool
)

var feesCalcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Fees for a package given its dimensions (mm) and weight (g)",
	Example: `  sellerscope fees calc --length 300 --width 200 --height 100 --weight 2000
  sellerscope fees calc --length 300 --width 200 --height 100 --weight 2000 --months 6 --now 2024-11-01
  sellerscope fees calc --length 120 --width 80 --height 15 --weight 340 --dangerous --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		if feesMonths <= 0 {
			return fmt.Errorf("--months must be positive")
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		d := fees.Dimensions{LengthMM: feesLength, WidthMM: feesWidth, HeightMM: feesHeight, WeightG: feesWeight}
		e := deps.Fees.Estimate(d, feesMonths, feesDangerous, deps.Config.NowOrCurrent())

		result := newResult(model.KindFees, "fees calc", []fees.Estimate{e}, 1)
		if !d.Valid() {
			result.Warnings = append(result.Warnings, "dimensions or weight missing: placement uses the default bracket, storage is unavailable")
		}
		return emit(cmd, deps, result, started)
	},
}

// ─── fees get ─────────────────────────────────────────────────────────────────

var feesGetOffline bool

var feesGetCmd = &cobra.Command{
	Use:   "get <ASIN...>",
	Short: "Fees for products, using their Keepa package geometry",
	Example: `  sellerscope fees get B07XJ8C8F5
  sellerscope fees get B07XJ8C8F5 B000TEST01 --months 3 --format csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		if feesMonths <= 0 {
			return fmt.Errorf("--months must be positive")
		}
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
			Offline: feesGetOffline,
			Opts:    keepa.ProductData,
		})
		if err != nil {
			return withWarnings(err, warnings)
		}

		now := deps.Config.NowOrCurrent()
		out := make([]fees.Estimate, len(products))
		for i := range products {
			p := &products[i]
			out[i] = deps.Fees.Estimate(fees.FromProduct(p), feesMonths, p.Dangerous(), now)
			out[i].ASIN = p.ASIN
			if !out[i].Dimensions.Valid() {
				warnings = append(warnings, fmt.Sprintf("%s: Keepa has no package geometry", p.ASIN))
			}
		}

		result := newResult(model.KindFees, "fees get", out, len(out))
		result.Warnings = warnings
		result.Stats.CacheHit = fromStore
		return emit(cmd, deps, result, started)
	},
}

// ─── fees table ───────────────────────────────────────────────────────────────

var (
	feesTableSection string
	feesTableYAML    bool
)

var feesTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the fee schedule in use",
	Example: `  sellerscope fees table
  sellerscope fees table --section storage --format md
  sellerscope fees table --yaml > fees.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		table := deps.Fees.Table
		if feesTableYAML {
			w, closeFn, err := outputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeFn()
			return fees.WriteDocument(w, table.Document())
		}

		var t *model.Table
		switch feesTableSection {
		case "placement":
			t = table.PlacementReport()
		case "storage":
			t = table.StorageReport()
		default:
			return fmt.Errorf("invalid --section %q (valid: placement, storage)", feesTableSection)
		}
		return emit(cmd, deps, newResult(model.KindFeeTable, "fees table", t, len(t.Rows)), started)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(feesCmd)
	feesCmd.AddCommand(feesCalcCmd, feesGetCmd, feesTableCmd)

	f := feesCalcCmd.Flags()
	f.Float64Var(&feesLength, "length", 0, "package length in millimetres")
	f.Float64Var(&feesWidth, "width", 0, "package width in millimetres")
	f.Float64Var(&feesHeight, "height", 0, "package height in millimetres")
	f.Float64Var(&feesWeight, "weight", 0, "package weight in grams")
	f.BoolVar(&feesDangerous, "dangerous", false, "price storage at the dangerous-goods rate")

	for _, c := range []*cobra.Command{feesCalcCmd, feesGetCmd} {
		c.Flags().Float64Var(&feesMonths, "months", 1, "months of storage to estimate")
	}
	feesGetCmd.Flags().BoolVar(&feesGetOffline, "offline", false, "read products from the local store instead of Keepa")

	feesTableCmd.Flags().StringVar(&feesTableSection, "section", "placement", "schedule to print: placement|storage")
	feesTableCmd.Flags().BoolVar(&feesTableYAML, "yaml", false, "write the schedule as an editable YAML fee table")
}
