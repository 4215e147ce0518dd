// Package config provides configuration loading and validation for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (BALANCE_ENGINE_WORKERS etc.).
const EnvPrefix = "BALANCE"

// Config is the complete application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Accounts   []AccountPattern `mapstructure:"accounts"`
	Rules      []RuleConfig     `mapstructure:"rules"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the knowledge database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EngineConfig tunes the batch pipeline.
type EngineConfig struct {
	Workers         int           `mapstructure:"workers"`
	DocumentTimeout time.Duration `mapstructure:"document_timeout"`
	SnapshotRetries int           `mapstructure:"snapshot_retries"`
}

// CacheConfig tunes the knowledge read cache.
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	Cleanup time.Duration `mapstructure:"cleanup"`
}

// ExtractionConfig holds column and sign defaults for the field extractor.
type ExtractionConfig struct {
	// DefaultColumns maps a document type to its 1-based fallback value column.
	DefaultColumns map[string]int `mapstructure:"default_columns"`
	// DefaultColumnName is looked up in header lines before falling back to a position.
	DefaultColumnName string `mapstructure:"default_column_name"`
	// ColumnNames lists header labels that identify a header line.
	ColumnNames []string `mapstructure:"column_names"`
	// NegativeFilenameMarkers flag a document whose amounts are negative balances.
	NegativeFilenameMarkers []string `mapstructure:"negative_filename_markers"`
}

// AccountPattern describes how a ledger account identifier is recognised.
// Pair marks the asset/liability accounts whose joint presence makes a combined excerpt.
type AccountPattern struct {
	Name    string `mapstructure:"name"`
	Pattern string `mapstructure:"pattern"`
	Class   string `mapstructure:"class"`
	Pair    bool   `mapstructure:"pair"`
}

// RuleConfig is the configuration form of a reconciliation rule.
// Tolerance is a decimal string; an empty tolerance is a misconfiguration.
type RuleConfig struct {
	ID            string   `mapstructure:"id"`
	Description   string   `mapstructure:"description"`
	TaxClass      string   `mapstructure:"tax_class"`
	Tolerance     string   `mapstructure:"tolerance"`
	TaxTags       []string `mapstructure:"tax_tags"`
	FibuAccounts  []string `mapstructure:"fibu_accounts"`
	NegateTax     bool     `mapstructure:"negate_tax"`
	Informational bool     `mapstructure:"informational"`
}

// Load reads configuration from v on top of Default and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()

	// Slices are replaced wholesale; decoding onto the defaults would keep stale tail elements.
	if v.IsSet("rules") {
		cfg.Rules = nil
	}
	if v.IsSet("accounts") {
		cfg.Accounts = nil
	}
	if v.IsSet("extraction.column_names") {
		cfg.Extraction.ColumnNames = nil
	}
	if v.IsSet("extraction.negative_filename_markers") {
		cfg.Extraction.NegativeFilenameMarkers = nil
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	cfg.Database.Path = DatabasePath(v, cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewViper returns a viper instance wired to the standard config locations and environment.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(ExpandPath(cfgFile))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".config", "balance"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	return v, nil
}

// DatabasePath resolves the knowledge database location.
// It follows this precedence:
// 1. Viper configuration (config file or BALANCE_DATABASE_PATH)
// 2. BALANCE_DB environment variable
// 3. The supplied fallback
func DatabasePath(v *viper.Viper, fallback string) string {
	if p := v.GetString("database.path"); p != "" {
		return ExpandPath(p)
	}
	if p := os.Getenv(EnvPrefix + "_DB"); p != "" {
		return ExpandPath(p)
	}
	return ExpandPath(fallback)
}
