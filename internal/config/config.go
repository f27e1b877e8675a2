package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	DatabaseURL string
	RedisURL    string

	HTTPAddr string

	ChessComBaseURL string
	LichessBaseURL  string

	ImportMonthsBack       int
	ImportFetchConcurrency int
	ImportFetchTimeout     time.Duration

	SnapshotDir string
}

// fileConfig mirrors AppConfig for the optional CONFIG_FILE overlay.
// Environment variables win over file values.
type fileConfig struct {
	DatabaseURL            string `yaml:"database_url"`
	RedisURL               string `yaml:"redis_url"`
	HTTPAddr               string `yaml:"http_addr"`
	ChessComBaseURL        string `yaml:"chesscom_base_url"`
	LichessBaseURL         string `yaml:"lichess_base_url"`
	ImportMonthsBack       int    `yaml:"import_months_back"`
	ImportFetchConcurrency int    `yaml:"import_fetch_concurrency"`
	ImportFetchTimeout     string `yaml:"import_fetch_timeout"`
	SnapshotDir            string `yaml:"snapshot_dir"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:               ":8080",
		ChessComBaseURL:        "https://api.chess.com/pub",
		LichessBaseURL:         "https://lichess.org/api",
		ImportMonthsBack:       3,
		ImportFetchConcurrency: 3,
		ImportFetchTimeout:     30 * time.Second,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESSCOM_BASE_URL")); v != "" {
		cfg.ChessComBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LICHESS_BASE_URL")); v != "" {
		cfg.LichessBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("IMPORT_MONTHS_BACK")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ImportMonthsBack = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("IMPORT_FETCH_CONCURRENCY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ImportFetchConcurrency = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("IMPORT_FETCH_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ImportFetchTimeout = d
		}
	}
	cfg.SnapshotDir = firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_DIR")), cfg.SnapshotDir)

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func applyFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.DatabaseURL != "" {
		cfg.DatabaseURL = fc.DatabaseURL
	}
	if fc.RedisURL != "" {
		cfg.RedisURL = fc.RedisURL
	}
	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if fc.ChessComBaseURL != "" {
		cfg.ChessComBaseURL = fc.ChessComBaseURL
	}
	if fc.LichessBaseURL != "" {
		cfg.LichessBaseURL = fc.LichessBaseURL
	}
	if fc.ImportMonthsBack > 0 {
		cfg.ImportMonthsBack = fc.ImportMonthsBack
	}
	if fc.ImportFetchConcurrency > 0 {
		cfg.ImportFetchConcurrency = fc.ImportFetchConcurrency
	}
	if fc.ImportFetchTimeout != "" {
		d, err := time.ParseDuration(fc.ImportFetchTimeout)
		if err != nil {
			return fmt.Errorf("parse import_fetch_timeout: %w", err)
		}
		cfg.ImportFetchTimeout = d
	}
	if fc.SnapshotDir != "" {
		cfg.SnapshotDir = fc.SnapshotDir
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
