package entity

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"tuition-pricing-service/internal/money"
)

// DiscountType is the closed set of discount rule kinds.
type DiscountType string

const (
	DiscountTypeSibling DiscountType = "sibling"
	DiscountTypeOther   DiscountType = "other"
)

func ParseDiscountType(s string) (DiscountType, error) {
	switch t := DiscountType(s); t {
	case DiscountTypeSibling, DiscountTypeOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown discount type %q", s)
}

// DiscountValueType says how DiscountRule.Value is read.
type DiscountValueType string

const (
	ValuePercentage DiscountValueType = "percentage"
	ValueFlat       DiscountValueType = "flat"
)

func ParseDiscountValueType(s string) (DiscountValueType, error) {
	switch t := DiscountValueType(s); t {
	case ValuePercentage, ValueFlat:
		return t, nil
	}
	return "", fmt.Errorf("unknown discount value type %q", s)
}

// DiscountRule is a read-only discount definition supplied by a DiscountRuleProvider.
type DiscountRule struct {
	ID          string            `json:"id"`
	Type        DiscountType      `json:"type"`
	ValueType   DiscountValueType `json:"valueType"`
	Value       decimal.Decimal   `json:"value"`
	Description string            `json:"description"`
	Order       int               `json:"order"`

	// MinSiblings is the sibling count a sibling rule needs before it applies (at least 1).
	MinSiblings int `json:"minSiblings,omitempty"`
	// ApplyToOriginalBase computes the amount against totalBasePrice instead of the running price.
	ApplyToOriginalBase bool `json:"applyToOriginalBase,omitempty"`
	// Condition is an optional JSONLogic expression over DiscountContext.
	Condition json.RawMessage `json:"condition,omitempty"`
}

// SiblingThresholdMet reports whether a rule's sibling requirement holds for siblingCount.
// Rules that are not sibling rules have no such requirement.
func (r DiscountRule) SiblingThresholdMet(siblingCount int) bool {
	switch r.Type {
	case DiscountTypeSibling:
		min := r.MinSiblings
		if min < 1 {
			min = 1
		}
		return siblingCount >= min
	case DiscountTypeOther:
		return true
	}
	return false
}

// Amount is the rounded discount the rule grants against base, before clamping.
func (r DiscountRule) Amount(base decimal.Decimal, rounder money.Rounder) decimal.Decimal {
	switch r.ValueType {
	case ValuePercentage:
		return rounder.Percent(base, r.Value)
	case ValueFlat:
		return rounder.Round(r.Value)
	}
	return decimal.Zero
}

// DiscountContext is what discount applicability is decided on.
type DiscountContext struct {
	StudentID          string          `json:"studentId"`
	ClassID            string          `json:"classId"`
	SubjectIDs         []string        `json:"subjectIds"`
	SubjectCount       int             `json:"subjectCount"`
	TotalBasePrice     decimal.Decimal `json:"totalBasePrice"`
	SiblingCount       int             `json:"siblingCount"`
	TotalSiblingsPrice decimal.Decimal `json:"totalSiblingsPrice"`
}

// Vars flattens the context into plain JSON values for rule conditions.
func (c DiscountContext) Vars() map[string]interface{} {
	base, _ := c.TotalBasePrice.Float64()
	siblings, _ := c.TotalSiblingsPrice.Float64()
	return map[string]interface{}{
		"studentId":          c.StudentID,
		"classId":            c.ClassID,
		"subjectIds":         c.SubjectIDs,
		"subjectCount":       c.SubjectCount,
		"totalBasePrice":     base,
		"siblingCount":       c.SiblingCount,
		"totalSiblingsPrice": siblings,
	}
}
