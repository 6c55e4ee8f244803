package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tuition-pricing-service/internal/entity"
	"tuition-pricing-service/internal/money"
)

// TaxStacking decides what an exclusive tax is computed on.
type TaxStacking string

const (
	// TaxStackingCascading computes each exclusive tax on the price including earlier exclusive taxes.
	TaxStackingCascading TaxStacking = "cascading"
	// TaxStackingParallel computes every exclusive tax on the discounted price.
	TaxStackingParallel TaxStacking = "parallel"
)

func ParseTaxStacking(s string) (TaxStacking, error) {
	switch TaxStacking(strings.ToLower(strings.TrimSpace(s))) {
	case "", TaxStackingCascading:
		return TaxStackingCascading, nil
	case TaxStackingParallel:
		return TaxStackingParallel, nil
	}
	return "", fmt.Errorf("unknown tax stacking %q", s)
}

// Options are the calculation settings shared by every request.
type Options struct {
	Currency    string
	Rounding    money.RoundingMode
	TaxStacking TaxStacking
}

// breakdownInput is everything a breakdown depends on, already resolved and validated.
// Subjects are in request order.
type breakdownInput struct {
	subjects     []entity.Subject
	rules        []entity.DiscountRule
	taxes        []entity.TaxConfiguration
	siblingCount int
	at           time.Time
}

func subjectPricing(subjects []entity.Subject, rounder money.Rounder) ([]entity.SubjectPricing, decimal.Decimal) {
	pricing := make([]entity.SubjectPricing, 0, len(subjects))
	total := decimal.Zero
	for _, s := range subjects {
		price := rounder.Round(s.BasePrice)
		pricing = append(pricing, entity.SubjectPricing{
			SubjectID: s.ID,
			BasePrice: price,
			IsFree:    s.IsFree,
		})
		if !s.IsFree {
			total = total.Add(price)
		}
	}
	return pricing, total
}

// calculateBreakdown is a pure function of its input: the same input always yields the same breakdown.
func calculateBreakdown(in breakdownInput, opts Options) entity.PricingBreakdown {
	rounder := money.NewRounder(opts.Rounding)

	pricing, totalBase := subjectPricing(in.subjects, rounder)
	discounts, totalDiscount := applyDiscounts(in.rules, in.siblingCount, totalBase, rounder)
	afterDiscount := money.NonNegative(totalBase.Sub(totalDiscount))
	taxes, totalTax, exclusiveTax := applyTaxes(in.taxes, in.at, afterDiscount, opts.TaxStacking, rounder)

	return entity.PricingBreakdown{
		SubjectPricing:      pricing,
		TotalBasePrice:      totalBase,
		AppliedDiscounts:    discounts,
		TotalDiscountAmount: totalDiscount,
		PriceAfterDiscount:  afterDiscount,
		AppliedTaxes:        taxes,
		TotalTaxAmount:      totalTax,
		FinalAmount:         money.Sum(afterDiscount, exclusiveTax),
		Currency:            opts.Currency,
	}
}

// applyDiscounts applies rules in order to a running price. Each amount is clamped so the
// running price never goes below zero; rules that end up granting nothing are not recorded.
func applyDiscounts(rules []entity.DiscountRule, siblingCount int, totalBase decimal.Decimal, rounder money.Rounder) ([]entity.AppliedDiscount, decimal.Decimal) {
	applied := []entity.AppliedDiscount{}
	if !totalBase.IsPositive() {
		return applied, decimal.Zero
	}

	eligible := make([]entity.DiscountRule, 0, len(rules))
	for _, r := range rules {
		if r.SiblingThresholdMet(siblingCount) {
			eligible = append(eligible, r)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Order != eligible[j].Order {
			return eligible[i].Order < eligible[j].Order
		}
		return eligible[i].ID < eligible[j].ID
	})

	running := totalBase
	total := decimal.Zero
	for _, r := range eligible {
		base := running
		if r.ApplyToOriginalBase {
			base = totalBase
		}
		amount := money.NonNegative(money.Min(r.Amount(base, rounder), running))
		if amount.IsZero() {
			continue
		}
		running = running.Sub(amount)
		total = total.Add(amount)
		applied = append(applied, entity.AppliedDiscount{
			DiscountRuleID: r.ID,
			DiscountType:   r.Type,
			ValueType:      r.ValueType,
			DiscountValue:  r.Value,
			DiscountAmount: amount,
			Description:    r.Description,
		})
	}
	return applied, total
}

// applyTaxes stacks the configurations effective at `at` over price. Inclusive taxes are
// extracted from the running price and leave it unchanged. Exclusive taxes add to the final amount.
func applyTaxes(configs []entity.TaxConfiguration, at time.Time, price decimal.Decimal, stacking TaxStacking, rounder money.Rounder) ([]entity.AppliedTax, decimal.Decimal, decimal.Decimal) {
	effective := make([]entity.TaxConfiguration, 0, len(configs))
	for _, c := range configs {
		if c.EffectiveAt(at) {
			effective = append(effective, c)
		}
	}
	sort.SliceStable(effective, func(i, j int) bool {
		if effective[i].Order != effective[j].Order {
			return effective[i].Order < effective[j].Order
		}
		return effective[i].Code < effective[j].Code
	})

	applied := make([]entity.AppliedTax, 0, len(effective))
	running := price
	total := decimal.Zero
	exclusive := decimal.Zero
	for _, c := range effective {
		var amount decimal.Decimal
		if c.IsInclusive {
			amount = rounder.IncludedPercent(running, c.Rate)
		} else {
			amount = rounder.Percent(running, c.Rate)
			exclusive = exclusive.Add(amount)
			if stacking != TaxStackingParallel {
				running = running.Add(amount)
			}
		}
		total = total.Add(amount)
		applied = append(applied, entity.AppliedTax{
			TaxConfigurationID: c.ID,
			TaxType:            c.Type,
			TaxCode:            c.Code,
			TaxRate:            c.Rate,
			TaxAmount:          amount,
			IsInclusive:        c.IsInclusive,
		})
	}
	return applied, total, exclusive
}
