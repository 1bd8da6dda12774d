package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SectionConfig describes how to locate one tabbed section of the source
// page and which cell index holds which field. Keeping the index→field
// mapping here means a layout change on the page is a config edit, not a
// code change.
type SectionConfig struct {
	Tab     string         `yaml:"tab"`  // tab anchor selector; empty = active on load
	Rows    string         `yaml:"rows"` // row selector within the section
	Columns map[string]int `yaml:"columns"`
}

// Config holds all application configuration.
type Config struct {
	Source struct {
		URL            string `yaml:"url"`
		RowTimeoutSecs int    `yaml:"row_timeout_secs"`
		SettleSecs     int    `yaml:"settle_secs"`
	} `yaml:"source"`
	Browser struct {
		UserAgent string `yaml:"user_agent"`
		Headful   bool   `yaml:"headful"` // headless unless set
	} `yaml:"browser"`
	Schedule struct {
		IntervalSecs int `yaml:"interval_secs"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Debug struct {
		SnapshotPath string `yaml:"snapshot_path"`
	} `yaml:"debug"`
	Sections struct {
		Equities SectionConfig `yaml:"equities"`
		Stats    SectionConfig `yaml:"stats"`
		Bonds    SectionConfig `yaml:"bonds"`
	} `yaml:"sections"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("RSE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SCRAPE_INTERVAL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Schedule.IntervalSecs = n
		}
	}
	if v := os.Getenv("SCRAPER_USER_AGENT"); v != "" {
		cfg.Browser.UserAgent = v
	}

	// Defaults
	if cfg.Source.URL == "" {
		cfg.Source.URL = "https://www.rse.rw/"
	}
	if cfg.Source.RowTimeoutSecs == 0 {
		cfg.Source.RowTimeoutSecs = 20
	}
	if cfg.Source.SettleSecs == 0 {
		cfg.Source.SettleSecs = 2
	}
	if cfg.Schedule.IntervalSecs == 0 {
		cfg.Schedule.IntervalSecs = 300
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/rsewatch.db"
	}
	if cfg.Debug.SnapshotPath == "" {
		cfg.Debug.SnapshotPath = "data/debug.html"
	}
	if cfg.Browser.UserAgent == "" {
		cfg.Browser.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	}
	applySectionDefaults(&cfg.Sections.Equities, "", "div#tab-1 table tbody tr", map[string]int{
		"symbol": 0, "price": 1, "change": 3, "volume": 4, "high": 5, "low": 6,
	})
	applySectionDefaults(&cfg.Sections.Stats, "a[href='#tab-2']", "div#tab-2 table tbody tr", map[string]int{
		"label": 0, "value": 1,
	})
	applySectionDefaults(&cfg.Sections.Bonds, "a[href='#tab-5']", "div#tab-5 table tbody tr", map[string]int{
		"security": 1, "maturity": 3, "coupon": 4, "yield": 5,
	})

	return cfg, nil
}

func applySectionDefaults(sec *SectionConfig, tab, rows string, columns map[string]int) {
	if sec.Tab == "" {
		sec.Tab = tab
	}
	if sec.Rows == "" {
		sec.Rows = rows
	}
	if sec.Columns == nil {
		sec.Columns = columns
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	if c.Schedule.IntervalSecs <= 0 {
		return fmt.Errorf("schedule.interval_secs must be positive")
	}
	if c.Source.RowTimeoutSecs <= 0 {
		return fmt.Errorf("source.row_timeout_secs must be positive")
	}
	return nil
}

// RowTimeout returns the bounded wait for section rows to appear.
func (c *Config) RowTimeout() time.Duration {
	return time.Duration(c.Source.RowTimeoutSecs) * time.Second
}

// SettleDelay returns the pause after a tab activation before the
// section's DOM is queryable.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Source.SettleSecs) * time.Second
}

// Interval returns the scrape cadence.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalSecs) * time.Second
}
