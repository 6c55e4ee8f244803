package entity

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuition-pricing-service/internal/apperror"
	"tuition-pricing-service/internal/money"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var e *apperror.Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, apperror.KindValidation, e.Kind)
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = f.Error
	}
	return out
}

func TestPricingRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       PricingRequest
		wantField string
	}{
		{name: "missing student", req: PricingRequest{ClassID: "c1", SubjectIDs: []string{"s1"}}, wantField: "studentId"},
		{name: "blank class", req: PricingRequest{StudentID: "st1", ClassID: "  ", SubjectIDs: []string{"s1"}}, wantField: "classId"},
		{name: "no subjects", req: PricingRequest{StudentID: "st1", ClassID: "c1"}, wantField: "subjectIds"},
		{name: "empty subjects", req: PricingRequest{StudentID: "st1", ClassID: "c1", SubjectIDs: []string{}}, wantField: "subjectIds"},
		{name: "duplicate subjects", req: PricingRequest{StudentID: "st1", ClassID: "c1", SubjectIDs: []string{"s1", "s1"}}, wantField: "subjectIds"},
		{name: "blank subject", req: PricingRequest{StudentID: "st1", ClassID: "c1", SubjectIDs: []string{"s1", " "}}, wantField: "subjectIds[1]"},
		{name: "self sibling", req: PricingRequest{StudentID: "st1", ClassID: "c1", SubjectIDs: []string{"s1"}, SiblingIDs: []string{"st2", "st1"}}, wantField: "siblingIds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			require.Error(t, err)
			assert.Contains(t, fieldErrors(t, err), tt.wantField)
		})
	}
}

func TestPricingRequest_ValidateNormalizes(t *testing.T) {
	req := PricingRequest{
		StudentID:  " st1 ",
		ClassID:    "c1",
		SubjectIDs: []string{" s1", "s2 "},
		SiblingIDs: []string{"st2", "st3", " st2"},
	}
	require.NoError(t, req.Validate())
	assert.Equal(t, "st1", req.StudentID)
	assert.Equal(t, []string{"s1", "s2"}, req.SubjectIDs)
	assert.Equal(t, []string{"st2", "st3"}, req.SiblingIDs)
}

func TestPricingRequest_ValidateLeavesCallerSlices(t *testing.T) {
	subjects := []string{" s1", "s2 "}
	siblings := []string{" st2", "st3"}
	req := PricingRequest{StudentID: "st1", ClassID: "c1", SubjectIDs: subjects, SiblingIDs: siblings}

	require.NoError(t, req.Validate())
	assert.Equal(t, []string{"s1", "s2"}, req.SubjectIDs)
	assert.Equal(t, []string{" s1", "s2 "}, subjects)
	assert.Equal(t, []string{" st2", "st3"}, siblings)
}

func TestDiscountRule_SiblingThresholdMet(t *testing.T) {
	sibling := DiscountRule{Type: DiscountTypeSibling}
	assert.False(t, sibling.SiblingThresholdMet(0))
	assert.True(t, sibling.SiblingThresholdMet(1))

	sibling.MinSiblings = 2
	assert.False(t, sibling.SiblingThresholdMet(1))
	assert.True(t, sibling.SiblingThresholdMet(2))

	other := DiscountRule{Type: DiscountTypeOther, MinSiblings: 3}
	assert.True(t, other.SiblingThresholdMet(0))
}

func TestDiscountRule_Amount(t *testing.T) {
	r := money.NewRounder(money.RoundHalfEven)
	pct := DiscountRule{ValueType: ValuePercentage, Value: decimal.NewFromInt(10)}
	assert.Equal(t, "100", pct.Amount(decimal.NewFromInt(1000), r).String())

	flat := DiscountRule{ValueType: ValueFlat, Value: decimal.RequireFromString("49.999")}
	assert.Equal(t, "50", flat.Amount(decimal.NewFromInt(1000), r).String())
}

func TestParseEnums(t *testing.T) {
	_, err := ParseDiscountType("loyalty")
	assert.Error(t, err)
	dt, err := ParseDiscountType("sibling")
	require.NoError(t, err)
	assert.Equal(t, DiscountTypeSibling, dt)

	_, err = ParseDiscountValueType("ratio")
	assert.Error(t, err)

	tt, err := ParseTaxType("service_tax")
	require.NoError(t, err)
	assert.Equal(t, TaxTypeServiceTax, tt)
	_, err = ParseTaxType("sales")
	assert.Error(t, err)
}

func TestTaxConfiguration_EffectiveAt(t *testing.T) {
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	cfg := TaxConfiguration{IsActive: true, ValidFrom: from, ValidTo: &to}

	assert.False(t, cfg.EffectiveAt(from.Add(-time.Second)))
	assert.True(t, cfg.EffectiveAt(from))
	assert.True(t, cfg.EffectiveAt(to.Add(-time.Second)))
	assert.False(t, cfg.EffectiveAt(to))

	cfg.ValidTo = nil
	assert.True(t, cfg.EffectiveAt(to.AddDate(10, 0, 0)))

	cfg.IsActive = false
	assert.False(t, cfg.EffectiveAt(from))
}

func TestTaxConfiguration_Check(t *testing.T) {
	tests := []struct {
		name    string
		typ     TaxType
		rate    string
		wantErr bool
	}{
		{name: "valid", typ: TaxTypeGST, rate: "18"},
		{name: "zero rate", typ: TaxTypeCustom, rate: "0"},
		{name: "unknown type", typ: TaxType("sales"), rate: "5", wantErr: true},
		{name: "negative rate", typ: TaxTypeVAT, rate: "-200", wantErr: true},
		{name: "negative inclusive rate", typ: TaxTypeGST, rate: "-100", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := TaxConfiguration{ID: "t1", Type: tt.typ, Rate: decimal.RequireFromString(tt.rate)}
			if tt.wantErr {
				assert.Error(t, cfg.Check())
			} else {
				assert.NoError(t, cfg.Check())
			}
		})
	}
}
