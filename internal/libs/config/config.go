// Package config provides application configuration from defaults, an
// optional YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreWAL      = "wal"
	StorePostgres = "postgres"
)

// Search engines
const (
	EngineMatcher = "matcher"
	EngineBleve   = "bleve"
)

// Similarity scorers
const (
	ScorerHeuristic = "heuristic"
	ScorerEdit      = "edit"
)

// ConfigFileEnv names the environment variable holding a config file path
const ConfigFileEnv = "TOURSTACK_CONFIG"

// Config holds application configuration
type Config struct {
	APIHost     string `mapstructure:"api_host"`
	APIPort     string `mapstructure:"api_port"`
	LogLevel    string `mapstructure:"log_level"`
	DatabaseURL string `mapstructure:"database_url"`

	Store            string `mapstructure:"store"`
	DataDir          string `mapstructure:"data_dir"`
	WALSyncImmediate bool   `mapstructure:"wal_sync_immediate"`

	SearchEngine string `mapstructure:"search_engine"`
	SearchScorer string `mapstructure:"search_scorer"`
	SearchLimit  int    `mapstructure:"search_limit"`
	SuggestMax   int    `mapstructure:"suggest_max"`

	APIURL       string        `mapstructure:"api_url"`
	SeedDir      string        `mapstructure:"seed_dir"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	Debounce     time.Duration `mapstructure:"debounce"`
}

var defaults = map[string]any{
	"api_host":           "0.0.0.0",
	"api_port":           "8080",
	"log_level":          "info",
	"database_url":       "",
	"store":              StoreWAL,
	"data_dir":           "./data",
	"wal_sync_immediate": true,
	"search_engine":      EngineMatcher,
	"search_scorer":      ScorerHeuristic,
	"search_limit":       50,
	"suggest_max":        5,
	"api_url":            "http://localhost:8080",
	"seed_dir":           "./seed",
	"sync_interval":      5 * time.Minute,
	"debounce":           300 * time.Millisecond,
}

// Load reads configuration from defaults, the config file and the environment,
// in increasing order of precedence
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tourstack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Try to read config file (it's okay if it doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Store = strings.ToLower(cfg.Store)
	cfg.SearchEngine = strings.ToLower(cfg.SearchEngine)
	cfg.SearchScorer = strings.ToLower(cfg.SearchScorer)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and limits
func (c *Config) Validate() error {
	if !slices.Contains([]string{StoreMemory, StoreFile, StoreWAL, StorePostgres}, c.Store) {
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.Store == StorePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	if !slices.Contains([]string{EngineMatcher, EngineBleve}, c.SearchEngine) {
		return fmt.Errorf("unknown SEARCH_ENGINE %q", c.SearchEngine)
	}
	if !slices.Contains([]string{ScorerHeuristic, ScorerEdit}, c.SearchScorer) {
		return fmt.Errorf("unknown SEARCH_SCORER %q", c.SearchScorer)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.SearchLimit)
	}
	if c.SuggestMax <= 0 {
		return fmt.Errorf("SUGGEST_MAX must be positive, got %d", c.SuggestMax)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %s", c.SyncInterval)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("DEBOUNCE must not be negative, got %s", c.Debounce)
	}
	return nil
}

// Addr returns the listen address of the API server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.APIHost, c.APIPort)
}
