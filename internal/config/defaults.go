package config

import "time"

// Default column names found in municipal tax statements.
const (
	ColumnPolitischeGemeinde = "Politische Gemeinde"
	ColumnRefKirche          = "ref. Kirche"
	ColumnKathKirche         = "kath. Kirche"
	ColumnSekundarschule     = "Sekundarschule"
)

// DefaultTolerance is the MATCH tolerance in CHF used by the built-in rules.
const DefaultTolerance = "0.01"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Database: DatabaseConfig{
			Path: "~/.local/share/balance/knowledge.db",
		},
		Engine: EngineConfig{
			Workers:         4,
			DocumentTimeout: 5 * time.Second,
			SnapshotRetries: 3,
		},
		Cache: CacheConfig{
			TTL:     5 * time.Minute,
			Cleanup: 10 * time.Minute,
		},
		Extraction: ExtractionConfig{
			DefaultColumnName: ColumnPolitischeGemeinde,
			DefaultColumns: map[string]int{
				"JA":   3,
				"SR":   3,
				"NAST": 3,
			},
			ColumnNames: []string{
				"Total",
				ColumnPolitischeGemeinde,
				"Gemeinde",
				ColumnRefKirche,
				ColumnKathKirche,
				ColumnSekundarschule,
			},
			NegativeFilenameMarkers: []string{"Minusbetrag"},
		},
		Accounts: []AccountPattern{
			{Name: "Steuerforderungen", Pattern: `1012\.\d{2}`, Class: "asset", Pair: true},
			{Name: "Steuerverpflichtungen", Pattern: `2002\.\d{2}`, Class: "liability", Pair: true},
			{Name: "Steuerertrag", Pattern: `4000\.\d{2}`, Class: "revenue"},
		},
		Rules: DefaultRules(),
	}
}

// DefaultRules returns the standard Restanzen reconciliation rules.
func DefaultRules() []RuleConfig {
	balanceTags := []string{
		"current_year_total",
		"prior_year_reversal",
		"prior_year_new_booking",
		"nachsteuer_total",
	}
	return []RuleConfig{
		{
			ID:           "R805",
			Description:  "Steuerforderungen (Konto 1012.00) vs. Steuerabrechnungen (positive Restanzen)",
			TaxTags:      balanceTags,
			TaxClass:     "asset",
			FibuAccounts: []string{"1012.00"},
			Tolerance:    DefaultTolerance,
		},
		{
			ID:           "R806",
			Description:  "Steuerverpflichtungen (Konto 2002.00) vs. Steuerabrechnungen (negative Restanzen)",
			TaxTags:      balanceTags,
			TaxClass:     "liability",
			NegateTax:    true,
			FibuAccounts: []string{"2002.00"},
			Tolerance:    DefaultTolerance,
		},
		{
			ID:            "R807",
			Description:   "Steuerertrag (Konto 4000.00) vs. Steuerabrechnung (informativ)",
			TaxTags:       []string{"assessment_total"},
			TaxClass:      "any",
			FibuAccounts:  []string{"4000.00"},
			Tolerance:     DefaultTolerance,
			Informational: true,
		},
	}
}
