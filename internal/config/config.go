// Package config handles configuration loading for finbridge.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	// Provider is an explicit default-provider override ("finnhub",
	// "financialdatasets", "yahoo"). Empty means resolve from available
	// credentials.
	Provider string `mapstructure:"provider" yaml:"provider"`

	Finnhub           FinnhubConfig           `mapstructure:"finnhub"           yaml:"finnhub"`
	FinancialDatasets FinancialDatasetsConfig `mapstructure:"financialdatasets" yaml:"financialdatasets"`
	API               APIConfig               `mapstructure:"api"               yaml:"api"`
	Logging           LoggingConfig           `mapstructure:"logging"           yaml:"logging"`
}

// FinnhubConfig holds Finnhub credentials. The API key is required for the
// provider to be selectable; its absence never fails startup.
type FinnhubConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// FinancialDatasetsConfig holds Financial Datasets credentials. The key is
// optional: without one the provider still serves its free-tier tickers.
type FinancialDatasetsConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.finbridge/config.yaml (home directory)
//  3. /etc/finbridge/config.yaml (system)
//
// Environment variables override config file values.
// Format: FINBRIDGE_<SECTION>_<KEY>, e.g. FINBRIDGE_FINNHUB_API_KEY.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".finbridge"))
	v.AddConfigPath("/etc/finbridge")

	v.SetEnvPrefix("FINBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found: fine, use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("FINBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// FINNHUB_API_KEY and FINANCIAL_DATASETS_API_KEY are honored without the
// FINBRIDGE_ prefix, matching the provider vendors' own conventions.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("FINBRIDGE_FINNHUB_API_KEY"); key != "" {
		cfg.Finnhub.APIKey = key
	}
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" && cfg.Finnhub.APIKey == "" {
		cfg.Finnhub.APIKey = key
	}
	if key := os.Getenv("FINBRIDGE_FINANCIALDATASETS_API_KEY"); key != "" {
		cfg.FinancialDatasets.APIKey = key
	}
	if key := os.Getenv("FINANCIAL_DATASETS_API_KEY"); key != "" && cfg.FinancialDatasets.APIKey == "" {
		cfg.FinancialDatasets.APIKey = key
	}
	if p := os.Getenv("FINBRIDGE_PROVIDER"); p != "" {
		cfg.Provider = strings.ToLower(p)
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
