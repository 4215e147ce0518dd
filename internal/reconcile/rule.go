// Package reconcile evaluates reconciliation rules over extracted line items.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Rule compares a set of tax-side items with the end balances of ledger accounts.
type Rule struct {
	Tolerance     decimal.Decimal
	ID            string
	Description   string
	TaxClass      model.BalanceClass
	TaxTags       []model.ItemTag
	FibuAccounts  []string
	NegateTax     bool
	Informational bool
}

// selectsTax reports whether a tax-side item counts towards this rule.
func (r Rule) selectsTax(it model.ExtractedItem) bool {
	if it.Side != model.SideTax {
		return false
	}
	if r.TaxClass != model.ClassAny && it.Class != r.TaxClass {
		return false
	}
	for _, tag := range r.TaxTags {
		if it.Tag == tag {
			return true
		}
	}
	return false
}

// selectsFibu reports whether a ledger item counts towards this rule.
func (r Rule) selectsFibu(it model.ExtractedItem) bool {
	if it.Side != model.SideFibu {
		return false
	}
	for _, acc := range r.FibuAccounts {
		if it.Account == acc {
			return true
		}
	}
	return false
}

var knownTags = map[model.ItemTag]bool{
	model.TagCurrentYearTotal:    true,
	model.TagPriorYearReversal:   true,
	model.TagPriorYearNewBooking: true,
	model.TagNachsteuerTotal:     true,
	model.TagAssessmentTotal:     true,
}

// RulesFromConfig converts and validates configured rules.
func RulesFromConfig(cfgs []config.RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(cfgs))
	for i, c := range cfgs {
		name := c.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if strings.TrimSpace(c.Tolerance) == "" {
			return nil, fmt.Errorf("%w: rule %s has no tolerance", common.ErrRuleMisconfiguration, name)
		}
		tol, err := decimal.NewFromString(strings.TrimSpace(c.Tolerance))
		if err != nil {
			return nil, fmt.Errorf("%w: rule %s tolerance %q: %v", common.ErrRuleMisconfiguration, name, c.Tolerance, err)
		}

		class := model.BalanceClass(c.TaxClass)
		if class == "" {
			class = model.ClassAny
		}

		tags := make([]model.ItemTag, len(c.TaxTags))
		for j, tag := range c.TaxTags {
			tags[j] = model.ItemTag(tag)
		}

		rules = append(rules, Rule{
			ID:            c.ID,
			Description:   c.Description,
			TaxTags:       tags,
			TaxClass:      class,
			FibuAccounts:  append([]string(nil), c.FibuAccounts...),
			Tolerance:     tol,
			NegateTax:     c.NegateTax,
			Informational: c.Informational,
		})
	}

	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// ValidateRules checks that every rule is complete and that no two rules claim the
// same ledger account or the same (tag, class) combination of tax items.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: no rules configured", common.ErrRuleMisconfiguration)
	}

	ids := make(map[string]bool, len(rules))
	accountOwner := make(map[string]string)
	claimOwner := make(map[string]string)

	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return err
		}
		if ids[r.ID] {
			return fmt.Errorf("%w: duplicate rule id %s", common.ErrRuleMisconfiguration, r.ID)
		}
		ids[r.ID] = true

		for _, acc := range r.FibuAccounts {
			if owner, ok := accountOwner[acc]; ok {
				return fmt.Errorf("%w: account %s claimed by %s and %s", common.ErrRuleMisconfiguration, acc, owner, r.ID)
			}
			accountOwner[acc] = r.ID
		}

		for _, tag := range r.TaxTags {
			for _, class := range claimedClasses(r.TaxClass) {
				key := string(tag) + "/" + string(class)
				if owner, ok := claimOwner[key]; ok {
					return fmt.Errorf("%w: %s items of class %s claimed by %s and %s",
						common.ErrRuleMisconfiguration, tag, class, owner, r.ID)
				}
				claimOwner[key] = r.ID
			}
		}
	}
	return nil
}

func validateRule(r Rule) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: rule without id", common.ErrRuleMisconfiguration)
	}
	if r.Tolerance.IsNegative() {
		return fmt.Errorf("%w: rule %s has a negative tolerance", common.ErrRuleMisconfiguration, r.ID)
	}
	if len(r.FibuAccounts) == 0 {
		return fmt.Errorf("%w: rule %s has no ledger account", common.ErrRuleMisconfiguration, r.ID)
	}
	if len(r.TaxTags) == 0 {
		return fmt.Errorf("%w: rule %s has no tax tags", common.ErrRuleMisconfiguration, r.ID)
	}
	switch r.TaxClass {
	case model.ClassAsset, model.ClassLiability, model.ClassAny:
	default:
		return fmt.Errorf("%w: rule %s has unknown tax class %q", common.ErrRuleMisconfiguration, r.ID, r.TaxClass)
	}
	for _, tag := range r.TaxTags {
		if !knownTags[tag] {
			return fmt.Errorf("%w: rule %s has unknown tax tag %q", common.ErrRuleMisconfiguration, r.ID, tag)
		}
	}
	return nil
}

// claimedClasses expands "any" into the concrete classes a tax item can carry.
func claimedClasses(c model.BalanceClass) []model.BalanceClass {
	if c == model.ClassAny {
		return []model.BalanceClass{model.ClassAsset, model.ClassLiability}
	}
	return []model.BalanceClass{c}
}

// sortItems orders items canonically so that summation does not depend on input order.
func sortItems(items []model.ExtractedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortKey() < items[j].SortKey()
	})
}
