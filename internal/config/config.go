// Package config handles loading and resolving sellerscope configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags --api-key, --domain
//  2. Environment variables KEEPA_API_KEY, KEEPA_DOMAIN, SELLERSCOPE_DB_PATH,
//     SELLERSCOPE_FEE_TABLE
//  3. config.json in the current working directory
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/derickschaefer/sellerscope/internal/util"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultFormat      = "table"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultRate        = 2.0
	DefaultDomain      = 1
	DefaultDays        = 90
	DefaultBaseURL     = "https://api.keepa.com/"
	EnvAPIKey          = "KEEPA_API_KEY"
	EnvDomain          = "KEEPA_DOMAIN"
	EnvDBPath          = "SELLERSCOPE_DB_PATH"
	EnvFeeTable        = "SELLERSCOPE_FEE_TABLE"
)

// Domains maps marketplace names to Keepa domain IDs.
var Domains = map[string]int{
	"com":    1,
	"co.uk":  2,
	"de":     3,
	"fr":     4,
	"co.jp":  5,
	"ca":     6,
	"it":     8,
	"es":     9,
	"in":     10,
	"com.mx": 11,
}

// ParseDomain accepts a Keepa domain ID ("1") or a marketplace TLD ("com",
// "amazon.de").
func ParseDomain(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		for _, id := range Domains {
			if id == n {
				return n, nil
			}
		}
		return 0, fmt.Errorf("unknown domain id %d", n)
	}
	s = strings.TrimPrefix(s, "amazon.")
	if id, ok := Domains[s]; ok {
		return id, nil
	}
	names := make([]string, 0, len(Domains))
	for k := range Domains {
		names = append(names, k)
	}
	sort.Strings(names)
	return 0, fmt.Errorf("unknown domain %q (valid: %s)", s, strings.Join(names, ", "))
}

// File is the on-disk representation of config.json.
type File struct {
	APIKey        string  `json:"api_key"`
	Domain        string  `json:"domain"`
	DefaultFormat string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Concurrency   int     `json:"concurrency"`
	Rate          float64 `json:"rate"`
	BaseURL       string  `json:"base_url"`
	DBPath        string  `json:"db_path"`
	DefaultDays   *Days   `json:"default_days,omitempty"`
	FeeTable      string  `json:"fee_table"`
}

// Days is a day window in config.json: a number of days, or "all" for the
// full history. Both 0 and "all" mean all.
type Days int

// NewDays returns a *Days for use in a File.
func NewDays(n int) *Days {
	d := Days(n)
	return &d
}

func (d *Days) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("default_days: expected a number or \"all\"")
		}
		s = strconv.Itoa(n)
	}
	n, err := util.ParseDays(s)
	if err != nil {
		return err
	}
	*d = Days(n)
	return nil
}

func (d Days) MarshalJSON() ([]byte, error) {
	if d == 0 {
		return []byte(`"all"`), nil
	}
	return strconv.AppendInt(nil, int64(d), 10), nil
}

// String renders d for display.
func (d Days) String() string {
	if d == 0 {
		return "all"
	}
	return strconv.Itoa(int(d))
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	APIKey      string
	Domain      int
	Format      string
	Timeout     time.Duration
	Concurrency int
	Rate        float64
	BaseURL     string
	DBPath      string
	DefaultDays int    // 0 = all history
	FeeTable    string // path to a YAML fee-table override; empty = built-in
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Now     time.Time
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources.
// flagAPIKey and flagDomain are the values of --api-key and --domain
// (empty string if not set).
func Load(flagAPIKey, flagDomain string) (*Config, error) {
	cfg := &Config{
		Domain:      DefaultDomain,
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Rate:        DefaultRate,
		BaseURL:     DefaultBaseURL,
		DefaultDays: DefaultDays,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		if err := applyFile(cfg, f, path); err != nil {
			return nil, err
		}
	}

	// Layer 2: environment variables
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvDomain); v != "" {
		d, err := ParseDomain(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvDomain, err)
		}
		cfg.Domain = d
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvFeeTable); v != "" {
		cfg.FeeTable = v
	}

	// Layer 3: CLI flags (highest priority)
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagDomain != "" {
		d, err := ParseDomain(flagDomain)
		if err != nil {
			return nil, fmt.Errorf("--domain: %w", err)
		}
		cfg.Domain = d
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".sellerscope", "sellerscope.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if fields required for Keepa calls are missing.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New(
			"Keepa API key not found.\n\n" +
				"Set it one of these ways:\n" +
				"  1. CLI flag:        sellerscope --api-key YOUR_KEY ...\n" +
				"  2. Environment:     export KEEPA_API_KEY=YOUR_KEY\n" +
				"  3. config.json:     {\"api_key\": \"YOUR_KEY\"}\n\n" +
				"Get a key at https://keepa.com/#!api",
		)
	}
	return nil
}

// RedactedAPIKey returns the API key with most characters replaced by asterisks.
// Safe for logging and display.
func (c *Config) RedactedAPIKey() string {
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return c.APIKey[:2] + "****" + c.APIKey[len(c.APIKey)-2:]
}

// NowOrCurrent returns the --now override, or the current time.
func (c *Config) NowOrCurrent() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s", path)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) error {
	cfg.ConfigPath = path
	if f.APIKey != "" {
		cfg.APIKey = f.APIKey
	}
	if f.Domain != "" {
		d, err := ParseDomain(f.Domain)
		if err != nil {
			return fmt.Errorf("%s: domain: %w", path, err)
		}
		cfg.Domain = d
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.DefaultDays != nil {
		cfg.DefaultDays = int(*f.DefaultDays)
	}
	if f.FeeTable != "" {
		cfg.FeeTable = f.FeeTable
	}
	return nil
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `sellerscope config init`.
func Template() File {
	return File{
		APIKey:        "",
		Domain:        "com",
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Concurrency:   DefaultConcurrency,
		Rate:          DefaultRate,
		BaseURL:       DefaultBaseURL,
		DefaultDays:   NewDays(DefaultDays),
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
