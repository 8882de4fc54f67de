package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local data store",
	Long: `Commands for inspecting and clearing the local bbolt database.

The local store keeps Keepa products fetched with --store or --save and graph
snapshots saved with 'graph get --save'. It is an intentional data store, not a
transparent cache: data persists until you explicitly clear it.`,
}

// ─── cache stats ──────────────────────────────────────────────────────────────

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  sellerscope cache stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}

		stats, err := st.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n\n", st.Path())
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── cache clear ──────────────────────────────────────────────────────────────

var cacheClearAll bool

var cacheClearCmd = &cobra.Command{
	Use:   "clear [bucket]",
	Short: "Delete entries from the local store",
	Long: `Delete entries from one bucket, or from all with --all.

Buckets: products, graphs.

bbolt does not shrink the database file after clearing. Free pages are reused
on the next write. Run 'sellerscope cache compact' to reclaim disk space.`,
	Example: `  sellerscope cache clear --all
  sellerscope cache clear products
  sellerscope cache clear graphs`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: store.AllBuckets,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheClearAll && len(args) == 0 {
			return fmt.Errorf("specify a bucket or --all\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}
		if cacheClearAll && len(args) > 0 {
			return fmt.Errorf("--all and a bucket name are mutually exclusive")
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

		if cacheClearAll {
			if err := st.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			fmt.Fprintln(cmd.OutOrStdout(), "  Run 'sellerscope cache compact' to reclaim disk space.")
			return nil
		}

		if err := st.ClearBucket(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", args[0])
		fmt.Fprintln(cmd.OutOrStdout(), "  Run 'sellerscope cache compact' to reclaim disk space.")
		return nil
	},
}

// ─── cache compact ────────────────────────────────────────────────────────────

var cacheCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact rewrites the bbolt database to a new file, recovering space freed by
prior 'cache clear' operations, then swaps the new file into place.

bbolt never shrinks the database file on its own; deleted pages go to an
internal freelist and are reused on future writes.`,
	Example: `  sellerscope cache compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		st, err := deps.RequireStore()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Compacting %s ...\n", st.Path())
		before, after, err := st.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Compaction complete\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  Before: %s\n", humanBytes(before))
		fmt.Fprintf(cmd.OutOrStdout(), "  After:  %s\n", humanBytes(after))
		if saved := before - after; saved > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  Saved:  %s\n", humanBytes(saved))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheCompactCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "clear all buckets")
}
