package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/common"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	v, err := NewViper(writeConfig(t, "logging:\n  level: info\n"))
	require.NoError(t, err)
	v.Set("database.path", "/tmp/balance-test.db")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 5*time.Second, cfg.Engine.DocumentTimeout)
	assert.Equal(t, ColumnPolitischeGemeinde, cfg.Extraction.DefaultColumnName)
	assert.Equal(t, 3, cfg.Extraction.DefaultColumns["JA"])
	assert.Len(t, cfg.Rules, 3)
	assert.Equal(t, DefaultTolerance, cfg.Rules[0].Tolerance)
	assert.Equal(t, "/tmp/balance-test.db", cfg.Database.Path)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
engine:
  workers: 2
  document_timeout: 250ms
extraction:
  negative_filename_markers: ["Negativ"]
rules:
  - id: R805
    description: custom
    tax_tags: [current_year_total]
    tax_class: asset
    fibu_accounts: ["1012.00"]
    tolerance: "0.05"
`)
	v, err := NewViper(path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.DocumentTimeout)
	assert.Equal(t, []string{"Negativ"}, cfg.Extraction.NegativeFilenameMarkers)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "0.05", cfg.Rules[0].Tolerance)
	assert.Equal(t, []string{"current_year_total"}, cfg.Rules[0].TaxTags)
	// Untouched sections keep their defaults.
	assert.Len(t, cfg.Accounts, 3)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("BALANCE_ENGINE_WORKERS", "7")

	v, err := NewViper(writeConfig(t, "engine:\n  workers: 2\n"))
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		wantErr error
		name    string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.Engine.Workers = 0 },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "no document timeout",
			mutate:  func(c *Config) { c.Engine.DocumentTimeout = 0 },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "no accounts",
			mutate:  func(c *Config) { c.Accounts = nil },
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "broken account pattern",
			mutate:  func(c *Config) { c.Accounts[0].Pattern = "[" },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "unknown account class",
			mutate:  func(c *Config) { c.Accounts[0].Class = "equity" },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "no rules",
			mutate:  func(c *Config) { c.Rules = nil },
			wantErr: common.ErrRuleMisconfiguration,
		},
		{
			name:    "zero default column",
			mutate:  func(c *Config) { c.Extraction.DefaultColumns["SR"] = 0 },
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, common.IsFatal(err))
		})
	}
}

func TestDatabasePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Run("viper value wins", func(t *testing.T) {
		t.Setenv("BALANCE_DB", "/env/knowledge.db")
		v := viper.New()
		v.Set("database.path", "~/custom.db")
		assert.Equal(t, filepath.Join(home, "custom.db"), DatabasePath(v, "/fallback.db"))
	})

	t.Run("environment variable", func(t *testing.T) {
		t.Setenv("BALANCE_DB", "/env/knowledge.db")
		assert.Equal(t, "/env/knowledge.db", DatabasePath(viper.New(), "/fallback.db"))
	})

	t.Run("fallback", func(t *testing.T) {
		t.Setenv("BALANCE_DB", "")
		assert.Equal(t, "/fallback.db", DatabasePath(viper.New(), "/fallback.db"))
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("BALANCE_TEST_DIR", "/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, ":memory:", ExpandPath(":memory:"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "a", "b.db"), ExpandPath("~/a/b.db"))
	assert.Equal(t, "/data/k.db", ExpandPath("$BALANCE_TEST_DIR/k.db"))
}

func TestEnsureParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureParentDir(filepath.Join(dir, "k.db")))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	require.NoError(t, EnsureParentDir(":memory:"))
}
