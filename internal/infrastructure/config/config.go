package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`

	Scan struct {
		TopLimit          int      `toml:"top_limit"`
		Concurrency       int      `toml:"concurrency"`
		BatchDelayMs      int      `toml:"batch_delay_ms"`
		MinSpreadPct      float64  `toml:"min_spread_pct"`
		RescanIntervalSec int      `toml:"rescan_interval_sec"`
		StartDelayMs      int      `toml:"start_delay_ms"`
		QuoteCurrencies   []string `toml:"quote_currencies"`
		DEXHints          []string `toml:"dex_hints"`
	} `toml:"scan"`

	Gecko struct {
		BaseURL            string  `toml:"base_url"`
		APIKey             string  `toml:"api_key"`
		TimeoutSec         int     `toml:"timeout_sec"`
		RequestsPerSec     float64 `toml:"requests_per_sec"`
		Burst              int     `toml:"burst"`
		PerPageMax         int     `toml:"per_page_max"`
		BreakerFailures    int     `toml:"breaker_failures"`
		BreakerCooldownSec int     `toml:"breaker_cooldown_sec"`
	} `toml:"gecko"`

	Console struct {
		Enabled *bool `toml:"enabled"` // nil = on
	} `toml:"console"`

	Feed struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"feed"`

	Redis struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Password   string `toml:"password"`
		DB         int    `toml:"db"`
		Prefix     string `toml:"prefix"`
		Channel    string `toml:"channel"`
		TTLSeconds int    `toml:"ttl_seconds"`
	} `toml:"redis"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes a TOML document held in memory.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Scan.TopLimit == 0 {
		cfg.Scan.TopLimit = 40
	}
	if cfg.Scan.Concurrency == 0 {
		cfg.Scan.Concurrency = 3
	}
	if cfg.Scan.BatchDelayMs == 0 {
		cfg.Scan.BatchDelayMs = 700
	}
	if cfg.Scan.MinSpreadPct == 0 {
		cfg.Scan.MinSpreadPct = 1.0
	}
	if cfg.Scan.RescanIntervalSec == 0 {
		cfg.Scan.RescanIntervalSec = 60
	}
	if cfg.Scan.QuoteCurrencies == nil {
		cfg.Scan.QuoteCurrencies = []string{"USDT", "USDC"}
	}

	if cfg.Gecko.BaseURL == "" {
		cfg.Gecko.BaseURL = "https://api.coingecko.com"
	}
	if cfg.Gecko.TimeoutSec == 0 {
		cfg.Gecko.TimeoutSec = 10
	}
	if cfg.Gecko.Burst == 0 {
		cfg.Gecko.Burst = 1
	}
	if cfg.Gecko.PerPageMax == 0 {
		cfg.Gecko.PerPageMax = 250
	}
	if cfg.Gecko.BreakerFailures == 0 {
		cfg.Gecko.BreakerFailures = 5
	}
	if cfg.Gecko.BreakerCooldownSec == 0 {
		cfg.Gecko.BreakerCooldownSec = 30
	}

	if cfg.Feed.Addr == "" {
		cfg.Feed.Addr = ":8090"
	}

	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "spreadscan"
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = cfg.Redis.Prefix + ":board:pub"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/spreadscan.db"
	}
}

func validate(cfg *Config) error {
	cfg.Scan.QuoteCurrencies = normalizeSymbols(cfg.Scan.QuoteCurrencies)
	if len(cfg.Scan.QuoteCurrencies) == 0 {
		return errors.New("scan.quote_currencies is empty")
	}
	if cfg.Scan.TopLimit < 0 {
		return errors.New("scan.top_limit must be positive")
	}
	if cfg.Scan.Concurrency < 0 {
		return errors.New("scan.concurrency must be positive")
	}
	if cfg.Scan.BatchDelayMs < 0 || cfg.Scan.StartDelayMs < 0 {
		return errors.New("scan delays must not be negative")
	}
	if cfg.Scan.MinSpreadPct < 0 {
		return errors.New("scan.min_spread_pct must not be negative")
	}
	if cfg.Scan.RescanIntervalSec < 0 {
		return errors.New("scan.rescan_interval_sec must be positive")
	}

	u, err := url.Parse(cfg.Gecko.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("gecko.base_url malformed: %q", cfg.Gecko.BaseURL)
	}
	if cfg.Gecko.PerPageMax < 0 || cfg.Gecko.PerPageMax > 250 {
		return errors.New("gecko.per_page_max must be within 1..250")
	}
	if cfg.Gecko.RequestsPerSec < 0 {
		return errors.New("gecko.requests_per_sec must not be negative")
	}

	if cfg.Feed.Enabled && strings.TrimSpace(cfg.Feed.Addr) == "" {
		return errors.New("feed.addr empty but enabled")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	if cfg.SQLite.Enabled && strings.TrimSpace(cfg.SQLite.Path) == "" {
		return errors.New("sqlite.path empty but enabled")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	return nil
}

// ConsoleEnabled reports whether the console sink is on (default true).
func (c *Config) ConsoleEnabled() bool {
	return c.Console.Enabled == nil || *c.Console.Enabled
}

func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Scan.BatchDelayMs) * time.Millisecond
}

func (c *Config) StartDelay() time.Duration {
	return time.Duration(c.Scan.StartDelayMs) * time.Millisecond
}

func (c *Config) RescanInterval() time.Duration {
	return time.Duration(c.Scan.RescanIntervalSec) * time.Second
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
