package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

// RetryDelay is the pause between attempts of a failed statement.
var RetryDelay = 1 * time.Second

var catalogTables = []string{
	`
		CREATE TABLE IF NOT EXISTS classes (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		);
	`,
	`
		CREATE TABLE IF NOT EXISTS students (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		);
	`,
	`
		CREATE TABLE IF NOT EXISTS subjects (
			id VARCHAR(64) PRIMARY KEY,
			class_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			base_price DECIMAL(12,2) NOT NULL,
			is_free BOOLEAN NOT NULL DEFAULT FALSE
		);
	`,
	`
		CREATE TABLE IF NOT EXISTS enrollments (
			student_id VARCHAR(64) NOT NULL,
			subject_id VARCHAR(64) NOT NULL,
			status VARCHAR(20) NOT NULL,
			PRIMARY KEY (student_id, subject_id)
		);
	`,
	`
		CREATE TABLE IF NOT EXISTS tax_configurations (
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
	`,
}

const snapshotTable = `
		CREATE TABLE IF NOT EXISTS pricing_snapshots (
			snapshot_id CHAR(26) PRIMARY KEY,
			student_id VARCHAR(64) NOT NULL,
			class_id VARCHAR(64) NOT NULL,
			calculated_at DATETIME(6) NOT NULL,
			payload MEDIUMTEXT NOT NULL
		);
	`

// AutoMigrateCatalog creates the catalog and tax tables if they do not exist.
func AutoMigrateCatalog(retries int, db *sql.DB) error {
	for _, query := range catalogTables {
		if err := execWithRetry(retries, query, db); err != nil {
			return err
		}
	}
	return nil
}

// AutoMigrateSnapshots creates the pricing_snapshots table on every shard if it does not exist.
func AutoMigrateSnapshots(retries int, dbs ...*sql.DB) error {
	return execWithRetry(retries, snapshotTable, dbs...)
}

func execWithRetry(retries int, query string, dbs ...*sql.DB) error {
	for i, db := range dbs {
		_, err := db.Exec(query)
		if err != nil {
			// Retry creating the table
			for attempt := 0; attempt < retries; attempt++ {
				time.Sleep(RetryDelay)
				_, err = db.Exec(query)
				if err == nil {
					break
				}
			}
		}
		if err != nil {
			return fmt.Errorf("migrating database #%d: %w", i, err)
		}
	}
	return nil
}
