package config

import (
	"fmt"
	"regexp"

	"github.com/Veraticus/the-books-must-balance/internal/common"
)

var validClasses = map[string]bool{
	"asset":     true,
	"liability": true,
	"revenue":   true,
}

// Validate checks the non-rule parts of the configuration.
// Rule semantics are checked by the reconcile package when rules are built.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("%w: engine.workers must be positive", common.ErrInvalidConfig)
	}
	if c.Engine.DocumentTimeout <= 0 {
		return fmt.Errorf("%w: engine.document_timeout must be positive", common.ErrInvalidConfig)
	}
	if len(c.Accounts) == 0 {
		return fmt.Errorf("%w: at least one account pattern is required", common.ErrMissingConfig)
	}
	for _, a := range c.Accounts {
		if a.Name == "" || a.Pattern == "" {
			return fmt.Errorf("%w: account pattern needs name and pattern", common.ErrInvalidConfig)
		}
		if _, err := regexp.Compile(a.Pattern); err != nil {
			return fmt.Errorf("%w: account %s: %v", common.ErrInvalidConfig, a.Name, err)
		}
		if !validClasses[a.Class] {
			return fmt.Errorf("%w: account %s has unknown class %q", common.ErrInvalidConfig, a.Name, a.Class)
		}
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("%w: no rules configured", common.ErrRuleMisconfiguration)
	}
	for docType, col := range c.Extraction.DefaultColumns {
		if col < 1 {
			return fmt.Errorf("%w: default column for %s must be >= 1", common.ErrInvalidConfig, docType)
		}
	}
	return nil
}
