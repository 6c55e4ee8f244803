package entity

import "github.com/shopspring/decimal"

// Subject is a priced unit of study offered within a class.
type Subject struct {
	ID        string          `json:"id" db:"id"`
	ClassID   string          `json:"classId" db:"class_id"`
	Name      string          `json:"name" db:"name"`
	BasePrice decimal.Decimal `json:"basePrice" db:"base_price"`
	IsFree    bool            `json:"isFree" db:"is_free"` // excluded from discountable/taxable totals
}

type Class struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	IsActive bool   `json:"isActive" db:"is_active"`
}

type Student struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	IsActive bool   `json:"isActive" db:"is_active"`
}

/*
Mysql Schema:

CREATE TABLE classes (
	id VARCHAR(64) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE subjects (
	id VARCHAR(64) PRIMARY KEY,
	class_id VARCHAR(64) NOT NULL REFERENCES classes(id),
	name VARCHAR(255) NOT NULL,
	base_price DECIMAL(12,2) NOT NULL,
	is_free BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE enrollments (
	student_id VARCHAR(64) NOT NULL,
	subject_id VARCHAR(64) NOT NULL,
	status VARCHAR(20) NOT NULL, -- pending, active, withdrawn
	PRIMARY KEY (student_id, subject_id)
);
*/
