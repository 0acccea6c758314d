package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIKey          string
	WorkspaceID     string
	APIURL          string
	AuthMode        string
	Port            string
	Timezone        string
	Location        *time.Location
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	PageSize        int
	Concurrency     int
	CacheSize       int
	CacheTTL        time.Duration
}

// fileConfig is the optional YAML file named by CLICKBOARD_CONFIG. Values in
// the environment win over values in the file.
type fileConfig struct {
	APIKey          string `yaml:"api_key"`
	WorkspaceID     string `yaml:"workspace_id"`
	APIURL          string `yaml:"api_url"`
	AuthMode        string `yaml:"auth_mode"`
	Port            string `yaml:"port"`
	Timezone        string `yaml:"timezone"`
	RefreshInterval string `yaml:"refresh_interval"`
	RequestTimeout  string `yaml:"request_timeout"`
	PageSize        int    `yaml:"page_size"`
	Concurrency     int    `yaml:"concurrency"`
	CacheSize       int    `yaml:"cache_size"`
	CacheTTL        string `yaml:"cache_ttl"`
}

func Load() (*Config, error) {
	var file fileConfig
	if path := os.Getenv("CLICKBOARD_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		APIKey:          envOrDefault("CLICKBOARD_API_KEY", file.APIKey),
		WorkspaceID:     envOrDefault("CLICKBOARD_WORKSPACE_ID", file.WorkspaceID),
		APIURL:          envOrDefault("CLICKBOARD_API_URL", orDefault(file.APIURL, "https://app.linklyhq.com")),
		AuthMode:        strings.ToLower(envOrDefault("CLICKBOARD_AUTH_MODE", orDefault(file.AuthMode, "bearer"))),
		Port:            envOrDefault("CLICKBOARD_PORT", orDefault(file.Port, "8080")),
		Timezone:        envOrDefault("CLICKBOARD_TIMEZONE", orDefault(file.Timezone, "UTC")),
		RefreshInterval: parseDuration("CLICKBOARD_REFRESH_INTERVAL", fileDuration(file.RefreshInterval, 5*time.Minute)),
		RequestTimeout:  parseDuration("CLICKBOARD_REQUEST_TIMEOUT", fileDuration(file.RequestTimeout, 30*time.Second)),
		PageSize:        parseInt("CLICKBOARD_PAGE_SIZE", orDefaultInt(file.PageSize, 100)),
		Concurrency:     parseInt("CLICKBOARD_CONCURRENCY", orDefaultInt(file.Concurrency, 8)),
		CacheSize:       parseInt("CLICKBOARD_CACHE_SIZE", orDefaultInt(file.CacheSize, 1000)),
		CacheTTL:        parseDuration("CLICKBOARD_CACHE_TTL", fileDuration(file.CacheTTL, time.Minute)),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("CLICKBOARD_API_KEY is required")
	}
	if cfg.WorkspaceID == "" {
		return nil, fmt.Errorf("CLICKBOARD_WORKSPACE_ID is required")
	}
	if cfg.AuthMode != "bearer" && cfg.AuthMode != "query" {
		return nil, fmt.Errorf("CLICKBOARD_AUTH_MODE must be bearer or query")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("CLICKBOARD_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("CLICKBOARD_REFRESH_INTERVAL must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("CLICKBOARD_REQUEST_TIMEOUT must be positive")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("CLICKBOARD_PAGE_SIZE must be positive")
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("CLICKBOARD_CONCURRENCY must be positive")
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("CLICKBOARD_CACHE_SIZE must be positive")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CLICKBOARD_CACHE_TTL must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orDefaultInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func fileDuration(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
