package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/sellerscope/internal/app"
	"github.com/derickschaefer/sellerscope/internal/keepa"
	"github.com/derickschaefer/sellerscope/internal/model"
	"github.com/derickschaefer/sellerscope/internal/render"
	"github.com/derickschaefer/sellerscope/internal/util"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns def, or the --out file when one is set. The returned
// close function is always non-nil.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// newResult wraps a payload in a Result envelope.
func newResult(kind, command string, data interface{}, items int) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats:       model.ResultStats{Items: items},
	}
}

// emit renders result in the resolved format, then prints warnings and
// stats on stderr. --quiet suppresses everything but errors.
func emit(cmd *cobra.Command, deps *app.Deps, result *model.Result, started time.Time) error {
	if deps != nil && deps.Client != nil {
		result.Stats.TokensLeft = deps.Client.TokensLeft()
	}
	result.Stats.DurationMs = time.Since(started).Milliseconds()
	if globalFlags.Quiet {
		return nil
	}

	cfgFormat := ""
	if deps != nil {
		cfgFormat = deps.Config.Format
	}
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := render.Render(w, result, resolveFormat(cfgFormat)); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	render.PrintFooter(cmd.ErrOrStderr(), result, globalFlags.Verbose)
	return nil
}

// ─── Product loading ──────────────────────────────────────────────────────────

// productSource selects where loadProducts reads from.
type productSource struct {
	Offline bool // read only from the local store
	Save    bool // write fetched products to the local store
	Opts    keepa.ProductOptions
}

// loadProducts fetches products for asins concurrently, at most
// Config.Concurrency at a time. Per-ASIN failures become warnings; the
// returned products keep the order of asins. fromStore is true when every
// product came from the local store.
func loadProducts(ctx context.Context, deps *app.Deps, asins []string, src productSource) (products []model.Product, warnings []string, fromStore bool, err error) {
	if src.Offline || src.Save {
		if _, err := deps.RequireStore(); err != nil {
			return nil, nil, false, err
		}
	}
	if !src.Offline {
		if err := deps.Config.Validate(); err != nil {
			return nil, nil, false, err
		}
	}

	results := make([]*model.Product, len(asins))
	errs := make([]error, len(asins))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(deps))
	for i, asin := range asins {
		i, asin := i, asin
		g.Go(func() error {
			if src.Offline {
				sp, ok, err := deps.Store.GetProduct(deps.Config.Domain, asin)
				switch {
				case err != nil:
					errs[i] = err
				case !ok:
					errs[i] = fmt.Errorf("not in local store (fetch it with --save first)")
				default:
					results[i] = &sp.Product
				}
				return nil
			}
			p, err := deps.Client.GetProduct(gctx, asin, src.Opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, false, err
	}
	if ctx.Err() != nil {
		return nil, nil, false, ctx.Err()
	}

	for i, p := range results {
		if errs[i] != nil {
			if errors.Is(errs[i], keepa.ErrNotFound) {
				warnings = append(warnings, fmt.Sprintf("%s: no Keepa data", asins[i]))
			} else {
				warnings = append(warnings, fmt.Sprintf("%s: %v", asins[i], errs[i]))
			}
			continue
		}
		if src.Save {
			if err := deps.Store.PutProduct(deps.Config.Domain, *p); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: saving: %v", asins[i], err))
			} else {
				slog.Info("product saved", "asin", p.ASIN, "domain", deps.Config.Domain)
			}
		}
		products = append(products, *p)
	}
	if len(products) == 0 {
		return nil, warnings, false, fmt.Errorf("no products loaded")
	}
	return products, warnings, src.Offline, nil
}

func concurrency(deps *app.Deps) int {
	if deps.Config.Concurrency <= 0 {
		return 4
	}
	return deps.Config.Concurrency
}

// asinArgs validates and de-duplicates ASIN arguments.
func asinArgs(args []string) ([]string, error) {
	asins, err := util.NormalizeASINs(args)
	if err != nil {
		return nil, err
	}
	if len(asins) == 0 {
		return nil, fmt.Errorf("at least one ASIN is required")
	}
	return asins, nil
}

// dayWindow parses a --days flag, falling back to the configured default
// when the flag was not set.
func dayWindow(cmd *cobra.Command, flag string, deps *app.Deps) (int, error) {
	if !cmd.Flags().Changed("days") {
		return deps.Config.DefaultDays, nil
	}
	return util.ParseDays(flag)
}

// ─── Tables ───────────────────────────────────────────────────────────────────

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
