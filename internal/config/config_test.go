package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Source.URL != "https://www.rse.rw/" {
		t.Errorf("url = %q", cfg.Source.URL)
	}
	if cfg.RowTimeout() != 20*time.Second {
		t.Errorf("row timeout = %v, want 20s", cfg.RowTimeout())
	}
	if cfg.SettleDelay() != 2*time.Second {
		t.Errorf("settle = %v, want 2s", cfg.SettleDelay())
	}
	if cfg.Interval() != 300*time.Second {
		t.Errorf("interval = %v, want 300s", cfg.Interval())
	}
	if cfg.Sections.Equities.Tab != "" {
		t.Error("equities section should be active on load, no tab selector")
	}
	if got := cfg.Sections.Bonds.Columns["yield"]; got != 5 {
		t.Errorf("bond yield column = %d, want 5", got)
	}
	if got := cfg.Sections.Stats.Tab; got != "a[href='#tab-2']" {
		t.Errorf("stats tab = %q", got)
	}
}

func TestLoad_FileAndColumnOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
source:
  url: https://example.test/
sections:
  bonds:
    columns:
      security: 0
      maturity: 1
      coupon: 2
      yield: 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.URL != "https://example.test/" {
		t.Errorf("url = %q", cfg.Source.URL)
	}
	if got := cfg.Sections.Bonds.Columns["security"]; got != 0 {
		t.Errorf("bond security column = %d, want override 0", got)
	}
	// Untouched sections still get defaults.
	if got := cfg.Sections.Equities.Columns["price"]; got != 1 {
		t.Errorf("equity price column = %d, want default 1", got)
	}
}

func TestLoad_RowsOverrideKeepsDefaultTab(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
sections:
  bonds:
    rows: div#tab-5 table.listings tbody tr
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sections.Bonds.Rows != "div#tab-5 table.listings tbody tr" {
		t.Errorf("bonds rows = %q", cfg.Sections.Bonds.Rows)
	}
	// Overriding one field of a section must not drop the others'
	// defaults, or the tab would never be activated.
	if cfg.Sections.Bonds.Tab != "a[href='#tab-5']" {
		t.Errorf("bonds tab = %q, want default anchor", cfg.Sections.Bonds.Tab)
	}
	if got := cfg.Sections.Bonds.Columns["yield"]; got != 5 {
		t.Errorf("bond yield column = %d, want default 5", got)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RSE_URL", "https://override.test/")
	t.Setenv("SCRAPE_INTERVAL_SECS", "60")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.URL != "https://override.test/" {
		t.Errorf("url = %q", cfg.Source.URL)
	}
	if cfg.Interval() != time.Minute {
		t.Errorf("interval = %v, want 1m", cfg.Interval())
	}
}
