package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TaxType is the closed set of tax kinds.
type TaxType string

const (
	TaxTypeGST        TaxType = "gst"
	TaxTypeServiceTax TaxType = "service_tax"
	TaxTypeVAT        TaxType = "vat"
	TaxTypeIncomeTax  TaxType = "income_tax"
	TaxTypeCustom     TaxType = "custom"
)

func ParseTaxType(s string) (TaxType, error) {
	switch t := TaxType(s); t {
	case TaxTypeGST, TaxTypeServiceTax, TaxTypeVAT, TaxTypeIncomeTax, TaxTypeCustom:
		return t, nil
	}
	return "", fmt.Errorf("unknown tax type %q", s)
}

// TaxConfiguration is a read-only tax definition administered outside the engine.
type TaxConfiguration struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Type        TaxType         `json:"type" db:"type"`
	Rate        decimal.Decimal `json:"rate" db:"rate"` // percentage
	Code        string          `json:"code" db:"code"`
	ValidFrom   time.Time       `json:"validFrom" db:"valid_from"`
	ValidTo     *time.Time      `json:"validTo,omitempty" db:"valid_to"` // exclusive
	IsActive    bool            `json:"isActive" db:"is_active"`
	Order       int             `json:"order" db:"sort_order"`
	IsInclusive bool            `json:"isInclusive" db:"is_inclusive"`
	Description string          `json:"description" db:"description"`
}

// EffectiveAt reports whether the configuration participates in a calculation made at t.
func (c TaxConfiguration) EffectiveAt(t time.Time) bool {
	if !c.IsActive {
		return false
	}
	if t.Before(c.ValidFrom) {
		return false
	}
	return c.ValidTo == nil || t.Before(*c.ValidTo)
}

// Check rejects a configuration that cannot be priced with: an unknown type or a negative rate.
func (c TaxConfiguration) Check() error {
	if _, err := ParseTaxType(string(c.Type)); err != nil {
		return fmt.Errorf("tax configuration %s: %w", c.ID, err)
	}
	if c.Rate.IsNegative() {
		return fmt.Errorf("tax configuration %s: negative rate %s", c.ID, c.Rate.String())
	}
	return nil
}

/*
Mysql Schema:

CREATE TABLE tax_configurations (
	id VARCHAR(64) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	type VARCHAR(20) NOT NULL,
	rate DECIMAL(7,4) NOT NULL,
	code VARCHAR(64) NOT NULL UNIQUE,
	valid_from DATETIME NOT NULL,
	valid_to DATETIME NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	sort_order INT NOT NULL DEFAULT 0,
	is_inclusive BOOLEAN NOT NULL DEFAULT FALSE,
	description TEXT NOT NULL
);
*/
