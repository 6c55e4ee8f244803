package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingRequest is the input of a calculation.
type PricingRequest struct {
	StudentID  string   `json:"studentId" validate:"required"`
	ClassID    string   `json:"classId" validate:"required"`
	SubjectIDs []string `json:"subjectIds" validate:"required,min=1,unique,dive,required"`
	SiblingIDs []string `json:"siblingIds" validate:"omitempty,dive,required"`
}

type SubjectPricing struct {
	SubjectID string          `json:"subjectId"`
	BasePrice decimal.Decimal `json:"basePrice"`
	IsFree    bool            `json:"isFree"`
}

type AppliedDiscount struct {
	DiscountRuleID string            `json:"discountRuleId"`
	DiscountType   DiscountType      `json:"discountType"`
	ValueType      DiscountValueType `json:"valueType"`
	DiscountValue  decimal.Decimal   `json:"discountValue"`
	DiscountAmount decimal.Decimal   `json:"discountAmount"`
	Description    string            `json:"description"`
}

type AppliedTax struct {
	TaxConfigurationID string          `json:"taxConfigurationId"`
	TaxType            TaxType         `json:"taxType"`
	TaxCode            string          `json:"taxCode"`
	TaxRate            decimal.Decimal `json:"taxRate"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	IsInclusive        bool            `json:"isInclusive"`
}

// PricingBreakdown is the itemized outcome of a calculation.
//
//	totalBasePrice      = Σ basePrice of non-free subjects
//	priceAfterDiscount  = totalBasePrice - totalDiscountAmount
//	finalAmount         = priceAfterDiscount + Σ exclusive taxAmount
//	totalTaxAmount      = Σ taxAmount, inclusive or not
type PricingBreakdown struct {
	SubjectPricing      []SubjectPricing  `json:"subjectPricing"`
	TotalBasePrice      decimal.Decimal   `json:"totalBasePrice"`
	AppliedDiscounts    []AppliedDiscount `json:"appliedDiscounts"`
	TotalDiscountAmount decimal.Decimal   `json:"totalDiscountAmount"`
	PriceAfterDiscount  decimal.Decimal   `json:"priceAfterDiscount"`
	AppliedTaxes        []AppliedTax      `json:"appliedTaxes"`
	TotalTaxAmount      decimal.Decimal   `json:"totalTaxAmount"`
	FinalAmount         decimal.Decimal   `json:"finalAmount"`
	Currency            string            `json:"currency"`
}

type SiblingInfo struct {
	SiblingCount       int              `json:"siblingCount"`
	SiblingIDs         []string         `json:"siblingIds"`
	TotalSiblingsPrice *decimal.Decimal `json:"totalSiblingsPrice,omitempty"`
}

// PricingResult is what a calculation returns and what a snapshot stores.
type PricingResult struct {
	SnapshotID       string           `json:"snapshotId"`
	PricingBreakdown PricingBreakdown `json:"pricingBreakdown"`
	SiblingInfo      SiblingInfo      `json:"siblingInfo"`
	CalculatedAt     time.Time        `json:"calculatedAt"`
}

// PricingSnapshot is the persisted, immutable record of one calculation.
// Payload holds the serialized PricingResult exactly as it was returned.
type PricingSnapshot struct {
	SnapshotID   string    `db:"snapshot_id"`
	StudentID    string    `db:"student_id"`
	ClassID      string    `db:"class_id"`
	CalculatedAt time.Time `db:"calculated_at"`
	Payload      []byte    `db:"payload"`
}

const SnapshotCreated = "snapshot.created"

// SnapshotEvent is published after a snapshot has been persisted.
type SnapshotEvent struct {
	EventID     string          `json:"eventId"`
	Type        string          `json:"type"`
	SnapshotID  string          `json:"snapshotId"`
	StudentID   string          `json:"studentId"`
	ClassID     string          `json:"classId"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
	Currency    string          `json:"currency"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

/*
Mysql Schema (one table per shard):

CREATE TABLE pricing_snapshots (
	snapshot_id CHAR(26) PRIMARY KEY,
	student_id VARCHAR(64) NOT NULL,
	class_id VARCHAR(64) NOT NULL,
	calculated_at DATETIME(6) NOT NULL,
	payload MEDIUMTEXT NOT NULL
);
*/
