package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/sellerscope/internal/config"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// writeConfig writes a config.json into dir and changes the working directory
// to dir for the duration of the test.
func writeConfig(t *testing.T, dir string, f config.File) {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// clearEnv blanks every sellerscope environment variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvDomain, "")
	t.Setenv(config.EnvDBPath, "")
	t.Setenv(config.EnvFeeTable, "")
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != config.DefaultFormat {
		t.Errorf("Format: expected %q, got %q", config.DefaultFormat, cfg.Format)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout: expected %v, got %v", config.DefaultTimeout, cfg.Timeout)
	}
	if cfg.Concurrency != config.DefaultConcurrency {
		t.Errorf("Concurrency: expected %d, got %d", config.DefaultConcurrency, cfg.Concurrency)
	}
	if cfg.Rate != config.DefaultRate {
		t.Errorf("Rate: expected %g, got %g", config.DefaultRate, cfg.Rate)
	}
	if cfg.Domain != 1 {
		t.Errorf("Domain: expected 1, got %d", cfg.Domain)
	}
	if cfg.DefaultDays != 90 {
		t.Errorf("DefaultDays: expected 90, got %d", cfg.DefaultDays)
	}
	if cfg.BaseURL != config.DefaultBaseURL {
		t.Errorf("BaseURL: expected %q, got %q", config.DefaultBaseURL, cfg.BaseURL)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should have a default (home dir based) value")
	}
	if cfg.FeeTable != "" {
		t.Errorf("FeeTable should default to the built-in table, got %q", cfg.FeeTable)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath should be empty without config.json, got %q", cfg.ConfigPath)
	}
}

// ─── config.json ──────────────────────────────────────────────────────────────

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{
		APIKey:        "file-key",
		Domain:        "de",
		DefaultFormat: "json",
		Timeout:       "10s",
		Concurrency:   2,
		Rate:          0.5,
		BaseURL:       "http://localhost:9999/",
		DBPath:        "/tmp/x.db",
		DefaultDays:   config.NewDays(30),
		FeeTable:      "fees.yaml",
	})

	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "file-key" || cfg.Domain != 3 || cfg.Format != "json" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Timeout != 10*time.Second || cfg.Concurrency != 2 || cfg.Rate != 0.5 {
		t.Errorf("unexpected tuning: %+v", cfg)
	}
	if cfg.BaseURL != "http://localhost:9999/" || cfg.DBPath != "/tmp/x.db" {
		t.Errorf("unexpected paths: %+v", cfg)
	}
	if cfg.DefaultDays != 30 || cfg.FeeTable != "fees.yaml" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.ConfigPath, "config.json") {
		t.Errorf("ConfigPath should be recorded, got %q", cfg.ConfigPath)
	}
}

func TestLoadInvalidTimeoutIgnored(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{Timeout: "soon"})

	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("invalid timeout should fall back to default, got %v", cfg.Timeout)
	}
}

func TestLoadInvalidDomainInFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{Domain: "moon"})

	if _, err := config.Load("", ""); err == nil {
		t.Error("expected error for unknown domain in config.json")
	}
}

func TestLoadDefaultDaysAll(t *testing.T) {
	for _, raw := range []string{`"all"`, `0`, `"ALL"`} {
		clearEnv(t)
		dir := t.TempDir()
		body := `{"default_days": ` + raw + `}`
		if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		chdir(t, dir)

		cfg, err := config.Load("", "")
		if err != nil {
			t.Fatalf("%s: Load: %v", raw, err)
		}
		if cfg.DefaultDays != 0 {
			t.Errorf("%s: DefaultDays = %d, want 0 (all)", raw, cfg.DefaultDays)
		}
	}
}

func TestLoadDefaultDaysString(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"default_days": "45"}`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultDays != 45 {
		t.Errorf("DefaultDays = %d, want 45", cfg.DefaultDays)
	}
}

func TestDaysJSON(t *testing.T) {
	b, err := json.Marshal(config.File{DefaultDays: config.NewDays(0)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"default_days":"all"`) {
		t.Errorf("0 days should encode as \"all\": %s", b)
	}
	var f config.File
	if err := json.Unmarshal(b, &f); err != nil || f.DefaultDays == nil || *f.DefaultDays != 0 {
		t.Errorf("round trip: %v %v", f.DefaultDays, err)
	}
}

// ─── Environment / flags ──────────────────────────────────────────────────────

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{APIKey: "file-key", Domain: "com", DBPath: "/tmp/file.db"})
	t.Setenv(config.EnvAPIKey, "env-key")
	t.Setenv(config.EnvDomain, "co.uk")
	t.Setenv(config.EnvDBPath, "/tmp/env.db")
	t.Setenv(config.EnvFeeTable, "/tmp/fees.yaml")

	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "env-key" || cfg.Domain != 2 || cfg.DBPath != "/tmp/env.db" || cfg.FeeTable != "/tmp/fees.yaml" {
		t.Errorf("environment should win over config.json: %+v", cfg)
	}
}

func TestLoadFlagsOverrideEnvAndFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{APIKey: "file-key", Domain: "com"})
	t.Setenv(config.EnvAPIKey, "env-key")
	t.Setenv(config.EnvDomain, "de")

	cfg, err := config.Load("flag-key", "10")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "flag-key" || cfg.Domain != 10 {
		t.Errorf("flags should win: key=%q domain=%d", cfg.APIKey, cfg.Domain)
	}
}

func TestLoadFlagEmptyDoesNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvAPIKey, "env-key")
	chdir(t, t.TempDir())

	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("empty flag should not override env, got %q", cfg.APIKey)
	}
}

func TestLoadBadDomainFlag(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	if _, err := config.Load("", "7"); err == nil {
		t.Error("expected error for unknown domain id 7")
	}
}

// ─── ParseDomain ──────────────────────────────────────────────────────────────

func TestParseDomain(t *testing.T) {
	cases := map[string]int{
		"1":         1,
		"com":       1,
		"amazon.de": 3,
		"CO.JP":     5,
		" 11 ":      11,
		"com.mx":    11,
	}
	for in, want := range cases {
		got, err := config.ParseDomain(in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %d, got %d", in, want, got)
		}
	}
	for _, bad := range []string{"", "moon", "0", "7"} {
		if _, err := config.ParseDomain(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

// ─── Validate / Redact ────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	if err := (&config.Config{APIKey: "k"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := (&config.Config{}).Validate()
	if err == nil {
		t.Fatal("expected error without API key")
	}
	if !strings.Contains(err.Error(), "API key") || !strings.Contains(err.Error(), config.EnvAPIKey) {
		t.Errorf("error should explain how to set the key: %v", err)
	}
}

func TestRedactedAPIKey(t *testing.T) {
	cfg := &config.Config{APIKey: "abcdef123456"}
	got := cfg.RedactedAPIKey()
	if got != "ab****56" {
		t.Errorf("expected ab****56, got %q", got)
	}
	if strings.Contains(got, "cdef1234") {
		t.Error("redacted key must not contain the plaintext middle")
	}
	if (&config.Config{APIKey: "abcd"}).RedactedAPIKey() != "****" {
		t.Error("short keys should be fully masked")
	}
}

func TestNowOrCurrent(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	if got := (&config.Config{Now: fixed}).NowOrCurrent(); !got.Equal(fixed) {
		t.Errorf("expected override %s, got %s", fixed, got)
	}
	if got := (&config.Config{}).NowOrCurrent(); time.Since(got) > time.Minute {
		t.Errorf("expected current time, got %s", got)
	}
}

// ─── Template / WriteFile ─────────────────────────────────────────────────────

func TestWriteFileRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	tmpl := config.Template()
	tmpl.APIKey = "written-key"
	if err := config.WriteFile(filepath.Join(dir, "config.json"), tmpl); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	chdir(t, dir)

	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "written-key" || cfg.Domain != 1 || cfg.DefaultDays != config.DefaultDays {
		t.Errorf("round trip lost values: %+v", cfg)
	}
}

func TestWriteFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := config.WriteFile(path, config.Template()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %o", perm)
	}
}

func TestTemplateDefaults(t *testing.T) {
	tmpl := config.Template()
	if tmpl.APIKey != "" {
		t.Error("template should not carry an API key")
	}
	if tmpl.Domain != "com" || tmpl.BaseURL != config.DefaultBaseURL || tmpl.DefaultFormat != config.DefaultFormat {
		t.Errorf("unexpected template: %+v", tmpl)
	}
}
