// Package cmd implements the sellerscope CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/app"
	"github.com/derickschaefer/sellerscope/internal/config"
	"github.com/derickschaefer/sellerscope/internal/render"
	"github.com/derickschaefer/sellerscope/internal/util"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	APIKey      string
	Domain      string
	Format      string
	Out         string
	Timeout     string
	Concurrency int
	Rate        float64
	Quiet       bool
	Verbose     bool
	Debug       bool
	Now         string
	DB          string
}

// rootCmd is the base command. Running `sellerscope` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "sellerscope",
	Short: "Amazon product history and FBA fee CLI",
	Long: `sellerscope turns Keepa product histories into chartable graph series and
estimates Amazon FBA placement, shipping and storage fees.

Get a Keepa API key at: https://keepa.com/#!api

Quick start:
  sellerscope config init                 # create a config.json with your API key
  sellerscope graph get B07XJ8C8F5        # 90 days of price, rank and offer history
  sellerscope fees calc --length 300 --width 200 --height 100 --weight 2000`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute is the entry point called by main.
func Execute() {
	registerCompletions()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs the process-wide slog handler on stderr.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	switch {
	case globalFlags.Debug:
		level = slog.LevelDebug
	case globalFlags.Verbose:
		level = slog.LevelInfo
	case globalFlags.Quiet:
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if globalFlags.Format != "" && !render.ValidFormat(globalFlags.Format) {
		return fmt.Errorf("invalid --format %q (valid: %v)", globalFlags.Format, render.Formats)
	}
	return nil
}

// loadConfig resolves config and applies the remaining global flag
// overrides. It never requires an API key.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.APIKey, globalFlags.Domain)
	if err != nil {
		return nil, err
	}

	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("--timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if globalFlags.DB != "" {
		cfg.DBPath = globalFlags.DB
	}
	if globalFlags.Now != "" {
		now, err := util.ParseNow(globalFlags.Now)
		if err != nil {
			return nil, fmt.Errorf("--now: %w", err)
		}
		cfg.Now = now
	}
	return cfg, nil
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

// buildOnlineDeps is buildDeps for commands that call Keepa.
func buildOnlineDeps() (*app.Deps, error) {
	deps, err := buildDeps()
	if err != nil {
		return nil, err
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	return deps, nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.APIKey, "api-key", "",
		"Keepa API key (overrides env KEEPA_API_KEY and config.json)")
	pf.StringVar(&globalFlags.Domain, "domain", "",
		"Amazon marketplace: com|co.uk|de|fr|co.jp|ca|it|es|in|com.mx or a Keepa domain ID (default: com)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel requests for batch operations (default: 4)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 2.0)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show store/timing stats after output and log progress")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses (API key redacted)")
	pf.StringVar(&globalFlags.Now, "now", "",
		"evaluate day windows and storage seasons at this time (RFC 3339 or YYYY-MM-DD)")
	pf.StringVar(&globalFlags.DB, "db", "",
		"path to the local bbolt database (overrides SELLERSCOPE_DB_PATH)")
}
