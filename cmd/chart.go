package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/chart"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/pipeline"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render graph series as ASCII charts (reads graph JSONL from stdin)",
	Long: `Chart commands read graph JSONL from stdin, one graph per line, and render one
key of each graph to the terminal.

Pipeline examples:
  sellerscope graph get B07XJ8C8F5 --days 180 --format jsonl | sellerscope chart plot
  sellerscope graph get B07XJ8C8F5 --format jsonl | sellerscope chart plot --key salesRank
  sellerscope graph show 3f2a... --format jsonl | sellerscope chart bar --bucket-days 30`,
}

var chartKey string

// ─── chart bar ───────────────────────────────────────────────────────────────

var (
	chartBarWidth      int
	chartBarMaxBars    int
	chartBarBucketDays int
)

var chartBarCmd = &cobra.Command{
	Use:   "bar",
	Short: "Horizontal bar chart, one bar per time bucket",
	Long: `Renders a horizontal bar chart with one labeled bar per time bucket. Each bar
shows the last non-null value in its bucket, dated at the bucket start.

Negative values extend left from a zero baseline. Null points are skipped.`,
	Example: `  sellerscope graph get B07XJ8C8F5 --days 365 --format jsonl | sellerscope chart bar --bucket-days 30
  sellerscope graph get B07XJ8C8F5 --format jsonl | sellerscope chart bar --key offerCount --max-bars 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachGraph(cmd.InOrStdin(), func(g *model.GraphSet) error {
			return chart.Bar(cmd.OutOrStdout(), g, chartKey, chart.BarOptions{
				Width:      chartBarWidth,
				BucketDays: chartBarBucketDays,
				MaxBars:    chartBarMaxBars,
				Location:   time.Local,
			})
		})
	},
}

// ─── chart plot ──────────────────────────────────────────────────────────────

var (
	chartPlotWidth  int
	chartPlotHeight int
	chartPlotTitle  string
)

var chartPlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Multi-line ASCII chart with labeled axes",
	Long: `Renders a multi-line chart with Y-axis tick labels and X-axis date labels.

Null values appear as gaps in the curve, not zeros. Width auto-detects from
$COLUMNS (falls back to 80). Override with --width and --height.`,
	Example: `  sellerscope graph get B07XJ8C8F5 --format jsonl | sellerscope chart plot
  sellerscope graph get B07XJ8C8F5 --format jsonl | sellerscope chart plot --key salesRank --height 8
  sellerscope graph build < product.json | sellerscope chart plot --title "Buy box"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachGraph(cmd.InOrStdin(), func(g *model.GraphSet) error {
			return chart.Plot(cmd.OutOrStdout(), g, chartKey, chart.PlotOptions{
				Width:    chartPlotWidth,
				Height:   chartPlotHeight,
				Title:    chartPlotTitle,
				Location: time.Local,
			})
		})
	},
}

// eachGraph reads graph JSONL from r and calls fn for every graph, with a
// blank line between charts.
func eachGraph(r io.Reader, fn func(g *model.GraphSet) error) error {
	graphs, err := pipeline.ReadGraphs(r)
	if err != nil {
		return err
	}
	if len(graphs) == 0 {
		return fmt.Errorf("no graphs on stdin (pipe in 'graph get --format jsonl')")
	}
	for i := range graphs {
		if !chart.HasKey(&graphs[i], chartKey) {
			return fmt.Errorf("%s: graph has no key %q (keys: %v)", graphs[i].ASIN, chartKey, graphs[i].Keys)
		}
		if err := fn(&graphs[i]); err != nil {
			return fmt.Errorf("%s: %w", graphs[i].ASIN, err)
		}
	}
	return nil
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.AddCommand(chartBarCmd)
	chartCmd.AddCommand(chartPlotCmd)

	chartCmd.PersistentFlags().StringVar(&chartKey, "key", "buyBox",
		"graph key to render (buyBox, amazon, newPrice, salesRank, offerCount, monthlySold)")

	// bar flags
	chartBarCmd.Flags().IntVar(&chartBarWidth, "width", 0,
		"total chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartBarCmd.Flags().IntVar(&chartBarMaxBars, "max-bars", 0,
		"maximum bars to render, keeping the most recent (0 = no limit)")
	chartBarCmd.Flags().IntVar(&chartBarBucketDays, "bucket-days", 7,
		"days per bar")

	// plot flags
	chartPlotCmd.Flags().IntVar(&chartPlotWidth, "width", 0,
		"chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartPlotCmd.Flags().IntVar(&chartPlotHeight, "height", 12,
		"chart height in rows")
	chartPlotCmd.Flags().StringVar(&chartPlotTitle, "title", "",
		"chart title (default: ASIN and key)")

	chartCmd.SilenceUsage = true
	chartBarCmd.SilenceUsage = true
	chartPlotCmd.SilenceUsage = true
}
