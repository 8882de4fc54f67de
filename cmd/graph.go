package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/sellerscope/internal/analyze"
	"github.com/derickschaefer/sellerscope/internal/app"
	"github.com/derickschaefer/sellerscope/internal/chart"
	"github.com/derickschaefer/sellerscope/internal/keepa"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/pipeline"
	"github.com/derickschaefer/sellerscope/internal/product"
	"github.com/derickschaefer/sellerscope/internal/store"
	"github.com/derickschaefer/sellerscope/internal/util"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build chartable graph series from Keepa product history",
	Long: `Graph commands decode Keepa's compact history arrays into one row per
timestamp, forward-fill gaps, and clamp the result to a day window ending today.

Series: buyBox, amazon, salesRank, newPrice, offerCount, monthlySold.

Pipeline examples:
  sellerscope graph get B07XJ8C8F5 --format jsonl
  cat product.json | sellerscope graph build --days 30 | sellerscope chart plot --key salesRank`,
}

// ─── graph get ───────────────────────────────────────────────────────────────

var (
	graphGetDays    string
	graphGetSave    bool
	graphGetOffline bool
)

var graphGetCmd = &cobra.Command{
	Use:   "get <ASIN...>",
	Short: "Fetch products and assemble their graph series",
	Example: `  sellerscope graph get B07XJ8C8F5
  sellerscope graph get B07XJ8C8F5 B000TEST01 --days 30 --format csv
  sellerscope graph get B07XJ8C8F5 --days all --save
  sellerscope graph get B07XJ8C8F5 --offline`,
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

		days, err := dayWindow(cmd, graphGetDays, deps)
		if err != nil {
			return err
		}

		products, warnings, fromStore, err := loadProducts(cmd.Context(), deps, asins, productSource{
			Offline: graphGetOffline,
			Save:    graphGetSave && !graphGetOffline,
			Opts:    keepa.ProductData,
		})
		if err != nil {
			return withWarnings(err, warnings)
		}

		graphs, err := assembleGraphs(cmd.Context(), deps, products, days)
		if err != nil {
			return err
		}

		if graphGetSave {
			s, err := deps.RequireStore()
			if err != nil {
				return err
			}
			for i := range graphs {
				id, err := s.PutGraph(graphs[i])
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: saving graph: %v", graphs[i].ASIN, err))
					continue
				}
				graphs[i].ID = id
				slog.Info("graph saved", "asin", graphs[i].ASIN, "id", id)
			}
		}

		points := 0
		for _, g := range graphs {
			points += len(g.Points)
		}
		result := newResult(model.KindGraph, "graph get", graphs, points)
		result.Warnings = warnings
		result.Stats.CacheHit = fromStore
		return emit(cmd, deps, result, started)
	},
}

// assembleGraphs builds one graph per product in parallel, keeping order.
func assembleGraphs(ctx context.Context, deps *app.Deps, products []model.Product, days int) ([]model.GraphSet, error) {
	now := deps.Config.NowOrCurrent()
	graphs := make([]model.GraphSet, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(deps))
	for i := range products {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			graphs[i] = product.Graph(&products[i], days, now)
			slog.Debug("graph assembled", "asin", products[i].ASIN, "points", len(graphs[i].Points))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return graphs, nil
}

// withWarnings appends per-item warnings to a batch error.
func withWarnings(err error, warnings []string) error {
	if len(warnings) == 0 {
		return err
	}
	return fmt.Errorf("%w\n  %s", err, strings.Join(warnings, "\n  "))
}

// ─── graph build ─────────────────────────────────────────────────────────────

var graphBuildDays string

var graphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble graphs from raw Keepa product JSON on stdin (writes graph JSONL)",
	Long: `Reads Keepa product JSON from stdin and writes one graph per line.

Input may be a single product object, an array of products, a Keepa product
response ({"products": [...]}), or any sequence of those. No API key is needed.`,
	Example: `  cat product.json | sellerscope graph build
  curl -s "https://api.keepa.com/product?key=$KEEPA_API_KEY&domain=1&asin=B07XJ8C8F5" \
    | sellerscope graph build --days 30 | sellerscope chart plot`,
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := pipeline.ReadProducts(cmd.InOrStdin())
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		days, err := dayWindow(cmd, graphBuildDays, deps)
		if err != nil {
			return err
		}
		graphs, err := assembleGraphs(cmd.Context(), deps, products, days)
		if err != nil {
			return err
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		return pipeline.WriteGraphs(w, graphs)
	},
}

// ─── graph png ───────────────────────────────────────────────────────────────

var (
	graphPNGDays    string
	graphPNGKeys    []string
	graphPNGOffline bool
	graphPNGWidth   int
	graphPNGHeight  int
)

var graphPNGCmd = &cobra.Command{
	Use:   "png <ASIN>",
	Short: "Render a product's graph as a PNG line chart",
	Long: `Render a product's graph as a PNG line chart.

The image is written to --out. Without --out it goes to stdout, which must
be redirected to a file or pipe.`,
	Example: `  sellerscope graph png B07XJ8C8F5 --out price.png
  sellerscope graph png B07XJ8C8F5 --keys salesRank --days 365 > rank.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if globalFlags.Out == "" && pipeline.IsTTY() {
			return fmt.Errorf("graph png needs --out <file.png> or a redirected stdout")
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

		days, err := dayWindow(cmd, graphPNGDays, deps)
		if err != nil {
			return err
		}
		products, warnings, _, err := loadProducts(cmd.Context(), deps, asins, productSource{
			Offline: graphPNGOffline,
			Opts:    keepa.ProductData,
		})
		if err != nil {
			return withWarnings(err, warnings)
		}

		g := product.Graph(&products[0], days, deps.Config.NowOrCurrent())
		title := products[0].ASIN
		if products[0].Title != "" {
			title += " " + util.Truncate(products[0].Title, 60)
		}
		img, err := chart.PNG(&g, graphPNGKeys, chart.PNGOptions{
			Title:  title,
			Width:  graphPNGWidth,
			Height: graphPNGHeight,
		})
		if err != nil {
			return err
		}
		if globalFlags.Out == "" {
			_, err := cmd.OutOrStdout().Write(img)
			return err
		}
		if err := os.WriteFile(globalFlags.Out, img, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", globalFlags.Out, err)
		}
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s (%d points, %s)\n",
				globalFlags.Out, len(g.Points), strings.Join(graphPNGKeys, ", "))
		}
		return nil
	},
}

// ─── graph summary / trend ───────────────────────────────────────────────────

var (
	graphSummaryDays    string
	graphSummaryOffline bool
	graphTrendKey       string
	graphTrendMethod    string
)

// graphsFromArgsOrStdin assembles graphs for ASIN args, or reads graph JSONL
// from stdin when no ASIN is given.
func graphsFromArgsOrStdin(cmd *cobra.Command, deps *app.Deps, args []string, days string, offline bool) ([]model.GraphSet, []string, error) {
	if len(args) == 0 {
		if !pipeline.StdinIsPiped() {
			return nil, nil, fmt.Errorf("give an ASIN or pipe graph JSONL on stdin")
		}
		graphs, err := pipeline.ReadGraphs(cmd.InOrStdin())
		return graphs, nil, err
	}
	asins, err := asinArgs(args)
	if err != nil {
		return nil, nil, err
	}
	n, err := dayWindow(cmd, days, deps)
	if err != nil {
		return nil, nil, err
	}
	products, warnings, _, err := loadProducts(cmd.Context(), deps, asins, productSource{
		Offline: offline,
		Opts:    keepa.ProductData,
	})
	if err != nil {
		return nil, nil, withWarnings(err, warnings)
	}
	graphs, err := assembleGraphs(cmd.Context(), deps, products, n)
	return graphs, warnings, err
}

var graphSummaryCmd = &cobra.Command{
	Use:   "summary [ASIN...]",
	Short: "Descriptive statistics for each graph series",
	Example: `  sellerscope graph summary B07XJ8C8F5
  sellerscope graph summary B07XJ8C8F5 --days 365 --format md
  cat product.json | sellerscope graph build | sellerscope graph summary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		graphs, warnings, err := graphsFromArgsOrStdin(cmd, deps, args, graphSummaryDays, graphSummaryOffline)
		if err != nil {
			return err
		}
		var out []analyze.Summary
		for i := range graphs {
			for _, s := range analyze.SummarizeGraph(&graphs[i]) {
				if graphs[i].ASIN != "" && len(graphs) > 1 {
					s.Key = graphs[i].ASIN + " " + s.Key
				}
				out = append(out, s)
			}
		}
		result := newResult(model.KindSummary, "graph summary", out, len(out))
		result.Warnings = warnings
		return emit(cmd, deps, result, started)
	},
}

var graphTrendCmd = &cobra.Command{
	Use:   "trend [ASIN...]",
	Short: "Fit a trend line to one graph series",
	Example: `  sellerscope graph trend B07XJ8C8F5 --key salesRank
  sellerscope graph trend B07XJ8C8F5 --key buyBox --method theil-sen --days 365`,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		method := analyze.TrendMethod(graphTrendMethod)
		if method != analyze.TrendLinear && method != analyze.TrendTheilSen {
			return fmt.Errorf("invalid --method %q (valid: linear, theil-sen)", graphTrendMethod)
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		graphs, warnings, err := graphsFromArgsOrStdin(cmd, deps, args, graphSummaryDays, graphSummaryOffline)
		if err != nil {
			return err
		}
		var out []analyze.TrendResult
		for i := range graphs {
			if !chart.HasKey(&graphs[i], graphTrendKey) {
				return fmt.Errorf("graph %s has no series %q", graphs[i].ASIN, graphTrendKey)
			}
			tr, err := analyze.Trend(graphTrendKey, graphs[i].Points, method)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", graphs[i].ASIN, err))
				continue
			}
			if graphs[i].ASIN != "" && len(graphs) > 1 {
				tr.Key = graphs[i].ASIN + " " + tr.Key
			}
			out = append(out, tr)
		}
		result := newResult(model.KindSummary, "graph trend", out, len(out))
		result.Warnings = warnings
		return emit(cmd, deps, result, started)
	},
}

// ─── graph list / show / delete ──────────────────────────────────────────────

var graphListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved graph snapshots",
	Example: `  sellerscope graph list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		s, err := deps.RequireStore()
		if err != nil {
			return err
		}
		infos, err := s.ListGraphs()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		result := newResult(model.KindGraphList, "graph list", graphTable(infos), len(infos))
		result.Stats.CacheHit = true
		if len(infos) == 0 {
			result.Warnings = []string{"no saved graphs (use: sellerscope graph get <ASIN> --save)"}
		}
		return emit(cmd, deps, result, started)
	},
}

func graphTable(infos []store.GraphInfo) *model.Table {
	t := &model.Table{Headers: []string{"id", "asin", "name", "days", "points", "created at"}}
	for _, gi := range infos {
		days := "all"
		if gi.Days > 0 {
			days = fmt.Sprintf("%d", gi.Days)
		}
		t.Rows = append(t.Rows, []string{
			gi.ID, gi.ASIN, gi.Name, days, fmt.Sprintf("%d", gi.Points),
			gi.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return t
}

var graphShowCmd = &cobra.Command{
	Use:   "show <ID>",
	Short: "Print a saved graph snapshot",
	Example: `  sellerscope graph show 6f1c2b0e-4a3d-4b8e-9b41-2f0d8c7e5a10
  sellerscope graph show 6f1c2b0e-4a3d-4b8e-9b41-2f0d8c7e5a10 --format jsonl | sellerscope chart plot`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		s, err := deps.RequireStore()
		if err != nil {
			return err
		}
		g, ok, err := s.GetGraph(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no saved graph with id %s", args[0])
		}
		result := newResult(model.KindGraph, "graph show", &g, len(g.Points))
		result.Stats.CacheHit = true
		return emit(cmd, deps, result, started)
	},
}

var graphDeleteCmd = &cobra.Command{
	Use:   "delete <ID...>",
	Short: "Delete saved graph snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		s, err := deps.RequireStore()
		if err != nil {
			return err
		}
		var missing []string
		for _, id := range args {
			ok, err := s.DeleteGraph(id)
			if err != nil {
				return err
			}
			if !ok {
				missing = append(missing, id)
				continue
			}
			if !globalFlags.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted graph %s\n", id)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("no saved graph with id %s", strings.Join(missing, ", "))
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(graphGetCmd, graphBuildCmd, graphPNGCmd, graphSummaryCmd,
		graphTrendCmd, graphListCmd, graphShowCmd, graphDeleteCmd)

	const daysHelp = `day window ending today: a number of days or "all" (default: config default_days, 90)`

	graphGetCmd.Flags().StringVar(&graphGetDays, "days", "", daysHelp)
	graphGetCmd.Flags().BoolVar(&graphGetSave, "save", false, "store the product payloads and save each graph as a snapshot")
	graphGetCmd.Flags().BoolVar(&graphGetOffline, "offline", false, "read products from the local store instead of Keepa")

	graphBuildCmd.Flags().StringVar(&graphBuildDays, "days", "", daysHelp)

	graphPNGCmd.Flags().StringVar(&graphPNGDays, "days", "", daysHelp)
	graphPNGCmd.Flags().StringSliceVar(&graphPNGKeys, "keys", chart.PriceKeys, "series to draw")
	graphPNGCmd.Flags().BoolVar(&graphPNGOffline, "offline", false, "read the product from the local store instead of Keepa")
	graphPNGCmd.Flags().IntVar(&graphPNGWidth, "width", 900, "image width in pixels")
	graphPNGCmd.Flags().IntVar(&graphPNGHeight, "height", 500, "image height in pixels")

	for _, c := range []*cobra.Command{graphSummaryCmd, graphTrendCmd} {
		c.Flags().StringVar(&graphSummaryDays, "days", "", daysHelp)
		c.Flags().BoolVar(&graphSummaryOffline, "offline", false, "read products from the local store instead of Keepa")
	}
	graphTrendCmd.Flags().StringVar(&graphTrendKey, "key", "buyBox", "series to fit")
	graphTrendCmd.Flags().StringVar(&graphTrendMethod, "method", string(analyze.TrendLinear), "regression: linear|theil-sen")
}
