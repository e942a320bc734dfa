// Package common provides shared utilities for Bolsa
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Bolsa
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Archive     ArchiveConfig   `toml:"archive"`
	Clients     ClientsConfig   `toml:"clients"`
	Cache       CacheConfig     `toml:"cache"`
	History     HistoryConfig   `toml:"history"`
	Locator     LocatorConfig   `toml:"locator"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the Record Store backend.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "badger" (default) or "surrealdb"
	Path      string `toml:"path"`    // badger directory
	Address   string `toml:"address"` // surrealdb ws address
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// Location returns a human readable location of the configured store.
func (c *StorageConfig) Location() string {
	if c.Backend == "surrealdb" {
		return c.Address
	}
	return c.Path
}

// ArchiveConfig holds the local .dat archive settings
type ArchiveConfig struct {
	Dir        string `toml:"dir"`
	SaveRemote bool   `toml:"save_remote"` // archive successful remote downloads
	Workers    int    `toml:"workers"`     // bulk loader concurrency
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	BVC BVCConfig `toml:"bvc"`
}

// BVCConfig holds the exchange download endpoint configuration
type BVCConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
	Disabled  bool   `toml:"disabled"`
}

// GetTimeout parses and returns the timeout duration
func (c *BVCConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// CacheConfig bounds the two in-memory caches
type CacheConfig struct {
	RecordCapacity int    `toml:"record_capacity"`
	QueryCapacity  int    `toml:"query_capacity"`
	QueryTTL       string `toml:"query_ttl"`
}

// GetQueryTTL parses and returns the query cache TTL
func (c *CacheConfig) GetQueryTTL() time.Duration {
	d, err := time.ParseDuration(c.QueryTTL)
	if err != nil || d <= 0 {
		return FreshnessQueryResult
	}
	return d
}

// HistoryConfig holds the redenomination rule
type HistoryConfig struct {
	RedenominationCutover string  `toml:"redenomination_cutover"` // YYYYMMDD
	RedenominationDivisor float64 `toml:"redenomination_divisor"`
}

// LocatorConfig bounds the populated-day search
type LocatorConfig struct {
	MaxLookback int `toml:"max_lookback"`
}

// SchedulerConfig drives the background jobs
type SchedulerConfig struct {
	Interval    string `toml:"interval"`
	PreloadDays int    `toml:"preload_days"`
	WarmCache   bool   `toml:"warm_cache"`
}

// GetInterval parses and returns the scheduler interval
func (c *SchedulerConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return FreshnessLatestDay
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"` // "console" or "json"
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "badger",
			Path:      "data/store",
			Address:   "ws://localhost:8000/rpc",
			Username:  "root",
			Password:  "root",
			Namespace: "bolsa",
			Database:  "bolsa",
		},
		Archive: ArchiveConfig{
			Dir:        "data_cache",
			SaveRemote: true,
			Workers:    4,
		},
		Clients: ClientsConfig{
			BVC: BVCConfig{
				BaseURL:   "https://www.bolsadecaracas.com",
				RateLimit: 2,
				Timeout:   "10s",
			},
		},
		Cache: CacheConfig{
			RecordCapacity: 100,
			QueryCapacity:  100,
			QueryTTL:       "1h",
		},
		History: HistoryConfig{
			RedenominationCutover: "20250727",
			RedenominationDivisor: 1000,
		},
		Locator: LocatorConfig{
			MaxLookback: 10,
		},
		Scheduler: SchedulerConfig{
			Interval:    "1h",
			PreloadDays: 30,
			WarmCache:   true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/bolsa.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env values only fill variables not already set in the process
	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BOLSA_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("BOLSA_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("BOLSA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("BOLSA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("BOLSA_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "store")
		config.Archive.Dir = filepath.Join(path, "data_cache")
	}

	if v := os.Getenv("BOLSA_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("BOLSA_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("BOLSA_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("BOLSA_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	if v := os.Getenv("BOLSA_ARCHIVE_DIR"); v != "" {
		config.Archive.Dir = v
	}

	if v := os.Getenv("BOLSA_BVC_BASE_URL"); v != "" {
		config.Clients.BVC.BaseURL = v
	}
	if v := os.Getenv("BOLSA_BVC_DISABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Clients.BVC.Disabled = b
		}
	}

	if v := os.Getenv("BOLSA_QUERY_TTL"); v != "" {
		config.Cache.QueryTTL = v
	}
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "", "badger", "surrealdb":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.History.RedenominationDivisor <= 0 {
		return fmt.Errorf("redenomination divisor must be positive, got %v", c.History.RedenominationDivisor)
	}
	if len(c.History.RedenominationCutover) != 8 {
		return fmt.Errorf("redenomination cutover must be YYYYMMDD, got %q", c.History.RedenominationCutover)
	}
	if _, err := time.Parse("20060102", c.History.RedenominationCutover); err != nil {
		return fmt.Errorf("redenomination cutover must be YYYYMMDD, got %q", c.History.RedenominationCutover)
	}
	if c.Cache.RecordCapacity < 0 || c.Cache.QueryCapacity < 0 {
		return fmt.Errorf("cache capacities must not be negative")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
