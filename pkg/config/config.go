/*
Package config manages TOML config for strindex.

The [index] section carries the capacity and search defaults that the
composite index is constructed with; the remaining sections drive the
developer harness (IPC server, CLI, logging, metrics endpoint).
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bastiangx/strindex/internal/utils"
	"github.com/charmbracelet/log"
)

// ErrInvalidConfig marks configuration that would produce a broken index.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the entire config structure
type Config struct {
	Index   IndexConfig   `toml:"index"`
	Server  ServerConfig  `toml:"server"`
	CLI     CliConfig     `toml:"cli"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// IndexConfig holds the capacities and defaults of the search index.
type IndexConfig struct {
	FilterSize        int     `toml:"filter_size"`
	HashCount         int     `toml:"hash_count"`
	MaxResults        int     `toml:"max_results"`
	FuzzyThreshold    float64 `toml:"fuzzy_threshold"`
	HybridThreshold   int     `toml:"hybrid_threshold"`
	DefaultSearchType string  `toml:"default_search_type"`
	EnableFuzzy       bool    `toml:"enable_fuzzy"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxLimit int `toml:"max_limit"`
	MinQuery int `toml:"min_query"`
	MaxQuery int `toml:"max_query"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	ShowTimings  bool `toml:"show_timings"`
}

// LogConfig selects the global log level and formatter.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			FilterSize:        100000,
			HashCount:         4,
			MaxResults:        50,
			FuzzyThreshold:    0.6,
			HybridThreshold:   5,
			DefaultSearchType: "prefix",
			EnableFuzzy:       false,
		},
		Server: ServerConfig{
			MaxLimit: 200,
			MinQuery: 1,
			MaxQuery: 256,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
			ShowTimings:  true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// Validate checks the numeric ranges the index depends on.
func (c IndexConfig) Validate() error {
	switch {
	case c.FilterSize <= 0:
		return fmt.Errorf("%w: filter_size must be positive, got %d", ErrInvalidConfig, c.FilterSize)
	case c.HashCount <= 0:
		return fmt.Errorf("%w: hash_count must be positive, got %d", ErrInvalidConfig, c.HashCount)
	case c.MaxResults <= 0:
		return fmt.Errorf("%w: max_results must be positive, got %d", ErrInvalidConfig, c.MaxResults)
	case c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1:
		return fmt.Errorf("%w: fuzzy_threshold must be within [0, 1], got %v", ErrInvalidConfig, c.FuzzyThreshold)
	case c.HybridThreshold < 0:
		return fmt.Errorf("%w: hybrid_threshold must not be negative, got %d", ErrInvalidConfig, c.HybridThreshold)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if c.Server.MaxLimit <= 0 {
		return fmt.Errorf("%w: server.max_limit must be positive, got %d", ErrInvalidConfig, c.Server.MaxLimit)
	}
	if c.Server.MinQuery < 0 || (c.Server.MaxQuery > 0 && c.Server.MaxQuery < c.Server.MinQuery) {
		return fmt.Errorf("%w: server query bounds [%d, %d] are inconsistent", ErrInvalidConfig, c.Server.MinQuery, c.Server.MaxQuery)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalidConfig)
	}
	return nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "strindex")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "strindex")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/strindex/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		log.Warnf("Failed to create config directory for %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file on top of the defaults. A file that
// does not decode cleanly is salvaged section by section; the result is
// validated either way.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config = tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	return config, nil
}

// tryPartialParse keeps every recognizable value and defaults the rest.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		extractIndexConfig(section, &config.Index)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	if section, ok := utils.ExtractSection(tempConfig, "log"); ok {
		if val, ok := utils.ExtractString(section, "level"); ok {
			config.Log.Level = val
		}
		if val, ok := utils.ExtractString(section, "format"); ok {
			config.Log.Format = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "metrics"); ok {
		if val, ok := utils.ExtractBool(section, "enabled"); ok {
			config.Metrics.Enabled = val
		}
		if val, ok := utils.ExtractString(section, "addr"); ok {
			config.Metrics.Addr = val
		}
	}
	return config
}

func extractIndexConfig(data map[string]any, index *IndexConfig) {
	if val, ok := utils.ExtractInt64(data, "filter_size"); ok {
		index.FilterSize = val
	}
	if val, ok := utils.ExtractInt64(data, "hash_count"); ok {
		index.HashCount = val
	}
	if val, ok := utils.ExtractInt64(data, "max_results"); ok {
		index.MaxResults = val
	}
	if val, ok := utils.ExtractFloat(data, "fuzzy_threshold"); ok {
		index.FuzzyThreshold = val
	}
	if val, ok := utils.ExtractInt64(data, "hybrid_threshold"); ok {
		index.HybridThreshold = val
	}
	if val, ok := utils.ExtractString(data, "default_search_type"); ok {
		index.DefaultSearchType = val
	}
	if val, ok := utils.ExtractBool(data, "enable_fuzzy"); ok {
		index.EnableFuzzy = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_query"); ok {
		server.MinQuery = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query"); ok {
		server.MaxQuery = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "show_timings"); ok {
		cli.ShowTimings = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
