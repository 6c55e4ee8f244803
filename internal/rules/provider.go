package rules

import (
	"context"

	"github.com/pkg/errors"

	"tuition-pricing-service/internal/entity"
)

// Provider serves discount rules from a loaded rule pack.
type Provider struct {
	rules []entity.DiscountRule
}

func NewProvider(rules []entity.DiscountRule) *Provider {
	return &Provider{rules: rules}
}

// NewFileProvider loads the rule pack at path. An empty path yields a provider with no rules.
func NewFileProvider(path string) (*Provider, error) {
	if path == "" {
		return NewProvider(nil), nil
	}
	rules, err := LoadRulePack(path)
	if err != nil {
		return nil, err
	}
	return NewProvider(rules), nil
}

// GetApplicableRules returns the rules whose condition holds for dctx.
// Sibling thresholds are left to the caller.
func (p *Provider) GetApplicableRules(ctx context.Context, dctx entity.DiscountContext) ([]entity.DiscountRule, error) {
	vars := dctx.Vars()
	out := make([]entity.DiscountRule, 0, len(p.rules))
	for _, rule := range p.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := Evaluate(rule.Condition, vars)
		if err != nil {
			return nil, errors.Wrapf(err, "discount rule %s", rule.ID)
		}
		if ok {
			out = append(out, rule)
		}
	}
	return out, nil
}
