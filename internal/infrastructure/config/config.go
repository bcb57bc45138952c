package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvCrawlConcurrency overrides crawl.concurrency when set to a positive integer.
const EnvCrawlConcurrency = "NAVWATCH_CRAWL_CONCURRENCY"

type Config struct {
	App struct {
		LogLevel  string `toml:"log_level"`
		LogFormat string `toml:"log_format"` // console | json
	} `toml:"app"`

	Source struct {
		BaseURL           string  `toml:"base_url"`
		FundPath          string  `toml:"fund_path"`
		UserAgent         string  `toml:"user_agent"`
		AcceptLanguage    string  `toml:"accept_language"`
		PageTimeoutSec    int     `toml:"page_timeout_sec"`
		APITimeoutSec     int     `toml:"api_timeout_sec"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		Burst             int     `toml:"burst"`
	} `toml:"source"`

	Extract struct {
		InsufficientPoints int     `toml:"insufficient_points"`
		TableScanBelow     int     `toml:"table_scan_below"`
		GenericMin         float64 `toml:"generic_min"`
		TableMin           float64 `toml:"table_min"`
		TableMax           float64 `toml:"table_max"`
		ReturnMin          float64 `toml:"return_min"`
		ReturnMax          float64 `toml:"return_max"`
		LiteralMin         int     `toml:"literal_min"`
		LiteralMax         int     `toml:"literal_max"`
	} `toml:"extract"`

	Browser struct {
		Enabled        bool   `toml:"enabled"`
		ExecPath       string `toml:"exec_path"`
		Headless       *bool  `toml:"headless"`
		TimeoutSec     int    `toml:"timeout_sec"`
		SettleDelaySec int    `toml:"settle_delay_sec"`
	} `toml:"browser"`

	Crawl struct {
		Concurrency int `toml:"concurrency"`
	} `toml:"crawl"`

	Schedule struct {
		Enabled    bool   `toml:"enabled"`
		Hour       int    `toml:"hour"`
		Minute     int    `toml:"minute"`
		RunOnStart bool   `toml:"run_on_start"`
		Timezone   string `toml:"timezone"`
	} `toml:"schedule"`

	Roster struct {
		Path string `toml:"path"`
	} `toml:"roster"`

	Storage struct {
		JSONFile struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"jsonfile"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled     bool   `toml:"enabled"`
			Addr        string `toml:"addr"`
			Password    string `toml:"password"`
			DB          int    `toml:"db"`
			Prefix      string `toml:"prefix"`
			TTLSeconds  int    `toml:"ttl_seconds"`
			EventStream string `toml:"event_stream"`
			EventChan   string `toml:"event_channel"`
		} `toml:"redis"`
	} `toml:"storage"`

	HTTP struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"http"`

	Metrics struct {
		Enabled   bool   `toml:"enabled"`
		Namespace string `toml:"namespace"`
	} `toml:"metrics"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes a TOML document held in memory.
func Parse(doc string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(doc, &cfg); err != nil {
		return nil, err
	}
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config) error {
	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return err
	}
	return validate(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "console"
	}

	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "https://fmarket.vn"
	}
	if cfg.Source.FundPath == "" {
		cfg.Source.FundPath = "/quy/{code}"
	}
	if cfg.Source.AcceptLanguage == "" {
		cfg.Source.AcceptLanguage = "vi-VN,vi;q=0.9"
	}
	if cfg.Source.PageTimeoutSec <= 0 {
		cfg.Source.PageTimeoutSec = 20
	}
	if cfg.Source.APITimeoutSec <= 0 {
		cfg.Source.APITimeoutSec = 10
	}

	if cfg.Extract.InsufficientPoints <= 0 {
		cfg.Extract.InsufficientPoints = 1
	}
	if cfg.Extract.TableScanBelow <= 0 {
		cfg.Extract.TableScanBelow = 10
	}
	if cfg.Extract.GenericMin <= 0 {
		cfg.Extract.GenericMin = 100
	}
	if cfg.Extract.TableMin <= 0 {
		cfg.Extract.TableMin = 1000
	}
	if cfg.Extract.TableMax <= 0 {
		cfg.Extract.TableMax = 1000000
	}
	if cfg.Extract.ReturnMin == 0 && cfg.Extract.ReturnMax == 0 {
		cfg.Extract.ReturnMin = -50
		cfg.Extract.ReturnMax = 200
	}
	if cfg.Extract.LiteralMin <= 0 {
		cfg.Extract.LiteralMin = 100
	}
	if cfg.Extract.LiteralMax <= 0 {
		cfg.Extract.LiteralMax = 50000
	}

	if cfg.Browser.Headless == nil {
		on := true
		cfg.Browser.Headless = &on
	}
	if cfg.Browser.TimeoutSec <= 0 {
		cfg.Browser.TimeoutSec = 30
	}
	if cfg.Browser.SettleDelaySec <= 0 {
		cfg.Browser.SettleDelaySec = 3
	}

	if cfg.Crawl.Concurrency <= 0 {
		cfg.Crawl.Concurrency = 3
	}

	if cfg.Schedule.Hour == 0 && cfg.Schedule.Minute == 0 {
		cfg.Schedule.Hour = 9
	}

	if cfg.Roster.Path == "" {
		cfg.Roster.Path = "configs/funds.json"
	}

	if !cfg.Storage.JSONFile.Enabled && !cfg.Storage.SQLite.Enabled &&
		!cfg.Storage.Postgres.Enabled && !cfg.Storage.Redis.Enabled {
		cfg.Storage.JSONFile.Enabled = true
	}
	if cfg.Storage.JSONFile.Path == "" {
		cfg.Storage.JSONFile.Path = "data/nav-history.json"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/navwatch.db"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "navwatch"
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "navwatch"
	}
}

func applyEnv(cfg *Config) error {
	raw := strings.TrimSpace(os.Getenv(EnvCrawlConcurrency))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %q", EnvCrawlConcurrency, raw)
	}
	cfg.Crawl.Concurrency = n
	return nil
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.App.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("app.log_format must be console or json, got %q", cfg.App.LogFormat)
	}
	if !strings.Contains(cfg.Source.FundPath, "{code}") {
		return errors.New("source.fund_path must contain {code}")
	}
	if cfg.Extract.TableMin >= cfg.Extract.TableMax {
		return errors.New("extract.table_min must be below extract.table_max")
	}
	if cfg.Extract.ReturnMin >= cfg.Extract.ReturnMax {
		return errors.New("extract.return_min must be below extract.return_max")
	}
	if cfg.Extract.LiteralMin >= cfg.Extract.LiteralMax {
		return errors.New("extract.literal_min must be below extract.literal_max")
	}
	if cfg.Schedule.Hour < 0 || cfg.Schedule.Hour > 23 || cfg.Schedule.Minute < 0 || cfg.Schedule.Minute > 59 {
		return fmt.Errorf("schedule time %02d:%02d is invalid", cfg.Schedule.Hour, cfg.Schedule.Minute)
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	return nil
}
