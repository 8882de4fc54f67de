package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/sellerscope/internal/config"
	"github.com/derickschaefer/sellerscope/internal/render"
	"github.com/derickschaefer/sellerscope/internal/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sellerscope configuration",
	Long:  `Read and write sellerscope configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Edit it and set your api_key to get started.")
		fmt.Fprintln(out, "  Get a Keepa API key at: https://keepa.com/#!api")
		return nil
	},
}

var configShowSecrets bool

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"get"},
	Short:   "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		apiKey := cfg.RedactedAPIKey()
		if configShowSecrets {
			apiKey = cfg.APIKey
		}
		if apiKey == "" {
			apiKey = "(not set)"
		}
		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		feeTable := cfg.FeeTable
		if feeTable == "" {
			feeTable = "(built-in US schedule)"
		}

		if resolveFormat(cfg.Format) == render.FormatJSON {
			type configOut struct {
				APIKey      string  `json:"api_key"`
				Domain      int     `json:"domain"`
				Format      string  `json:"default_format"`
				Timeout     string  `json:"timeout"`
				Concurrency int     `json:"concurrency"`
				Rate        float64 `json:"rate"`
				BaseURL     string  `json:"base_url"`
				DBPath      string  `json:"db_path"`
				DefaultDays int     `json:"default_days"`
				FeeTable    string  `json:"fee_table"`
				ConfigFile  string  `json:"config_file"`
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(configOut{
				APIKey:      apiKey,
				Domain:      cfg.Domain,
				Format:      cfg.Format,
				Timeout:     cfg.Timeout.String(),
				Concurrency: cfg.Concurrency,
				Rate:        cfg.Rate,
				BaseURL:     cfg.BaseURL,
				DBPath:      cfg.DBPath,
				DefaultDays: cfg.DefaultDays,
				FeeTable:    feeTable,
				ConfigFile:  src,
			})
		}

		printKVTable(cmd.OutOrStdout(), [][]string{
			{"api_key", apiKey},
			{"domain", fmt.Sprintf("%d (%s)", cfg.Domain, domainName(cfg.Domain))},
			{"default_format", cfg.Format},
			{"timeout", cfg.Timeout.String()},
			{"concurrency", strconv.Itoa(cfg.Concurrency)},
			{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
			{"base_url", cfg.BaseURL},
			{"db_path", cfg.DBPath},
			{"default_days", config.Days(cfg.DefaultDays).String()},
			{"fee_table", feeTable},
			{"config_file", src},
		})
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  sellerscope config set api_key abc123
  sellerscope config set domain de
  sellerscope config set default_days all
  sellerscope config set fee_table ./fees.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		f, path, err := loadConfigFile()
		if err != nil {
			path = config.DefaultConfigFile
			tmpl := config.Template()
			f = &tmpl
		}

		switch key {
		case "api_key":
			f.APIKey = val
		case "domain":
			if _, err := config.ParseDomain(val); err != nil {
				return err
			}
			f.Domain = val
		case "default_format", "format":
			if !render.ValidFormat(val) {
				return fmt.Errorf("invalid format %q (valid: %s)", val, strings.Join(render.Formats, ", "))
			}
			f.DefaultFormat = val
		case "timeout":
			f.Timeout = val
		case "concurrency":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return fmt.Errorf("concurrency must be a positive integer")
			}
			f.Concurrency = n
		case "rate":
			r, err := strconv.ParseFloat(val, 64)
			if err != nil || r <= 0 {
				return fmt.Errorf("rate must be a positive number")
			}
			f.Rate = r
		case "base_url":
			f.BaseURL = val
		case "db_path":
			f.DBPath = val
		case "default_days":
			if strings.TrimSpace(val) == "" {
				return fmt.Errorf("default_days must be a number of days or \"all\"")
			}
			n, err := util.ParseDays(val)
			if err != nil {
				return err
			}
			f.DefaultDays = config.NewDays(n)
		case "fee_table":
			f.FeeTable = val
		default:
			return fmt.Errorf("unknown config key: %q\n\nValid keys: api_key, domain, default_format, timeout, concurrency, rate, base_url, db_path, default_days, fee_table", key)
		}

		if err := config.WriteFile(path, *f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configSetCmd)

	configShowCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "show API key in plain text")
}

// loadConfigFile reads config.json from cwd; used by configSetCmd.
func loadConfigFile() (*config.File, string, error) {
	path := config.DefaultConfigFile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var f config.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", err
	}
	return &f, path, nil
}

func domainName(id int) string {
	for name, d := range config.Domains {
		if d == id {
			return "amazon." + name
		}
	}
	return "unknown"
}

// printKVTable renders a two-column key/value table using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}
