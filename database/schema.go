// database/schema.go
package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Destination tables. One table per dataset, single-column string primary
// key (the natural key), a nullable WGS84 point column, and audit
// timestamps. created_at is written once on first insert and never updated.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS crime_incidents (
		incident_number VARCHAR(50) NOT NULL,
		offense_code INT NULL,
		offense_code_group VARCHAR(100) NULL,
		offense_description VARCHAR(200) NULL,
		district VARCHAR(20) NULL,
		reporting_area VARCHAR(20) NULL,
		shooting BOOLEAN NOT NULL DEFAULT FALSE,
		occurred_on_date DATETIME NULL,
		` + "`year`" + ` INT NULL,
		` + "`month`" + ` INT NULL,
		day_of_week VARCHAR(10) NULL,
		` + "`hour`" + ` INT NULL,
		street VARCHAR(200) NULL,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		location POINT SRID 4326 NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (incident_number),
		INDEX idx_crime_occurred (occurred_on_date),
		INDEX idx_crime_offense_group (offense_code_group),
		INDEX idx_crime_district (district),
		INDEX idx_crime_latlon (latitude, longitude)
	)`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		case_enquiry_id VARCHAR(50) NOT NULL,
		open_dt DATETIME NULL,
		target_dt DATETIME NULL,
		closed_dt DATETIME NULL,
		case_status VARCHAR(50) NULL,
		case_title VARCHAR(300) NULL,
		subject VARCHAR(200) NULL,
		reason TEXT NULL,
		` + "`type`" + ` VARCHAR(200) NULL,
		department VARCHAR(100) NULL,
		submittedphoto TEXT NULL,
		closedphoto TEXT NULL,
		ward VARCHAR(50) NULL,
		neighborhood VARCHAR(100) NULL,
		address VARCHAR(300) NULL,
		zipcode VARCHAR(10) NULL,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		location POINT SRID 4326 NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (case_enquiry_id),
		INDEX idx_sr_open (open_dt),
		INDEX idx_sr_status (case_status),
		INDEX idx_sr_neighborhood (neighborhood),
		INDEX idx_sr_latlon (latitude, longitude)
	)`,
	`CREATE TABLE IF NOT EXISTS building_violations (
		case_no VARCHAR(50) NOT NULL,
		status VARCHAR(50) NULL,
		status_dttm DATETIME NULL,
		code VARCHAR(50) NULL,
		description TEXT NULL,
		address VARCHAR(300) NULL,
		ward VARCHAR(50) NULL,
		sam_id VARCHAR(50) NULL,
		value DOUBLE NULL,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		location POINT SRID 4326 NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (case_no),
		INDEX idx_violation_status (status),
		INDEX idx_violation_status_dttm (status_dttm),
		INDEX idx_violation_latlon (latitude, longitude)
	)`,
	`CREATE TABLE IF NOT EXISTS food_inspections (
		record_id VARCHAR(50) NOT NULL,
		businessname VARCHAR(300) NULL,
		licenseno VARCHAR(50) NULL,
		violstatus VARCHAR(50) NULL,
		violdesc TEXT NULL,
		viollevel VARCHAR(50) NULL,
		statusdate DATETIME NULL,
		address VARCHAR(300) NULL,
		city VARCHAR(100) NULL,
		state VARCHAR(10) NULL,
		zip VARCHAR(10) NULL,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		location POINT SRID 4326 NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (record_id),
		INDEX idx_food_business (businessname, statusdate),
		INDEX idx_food_violation (viollevel, violstatus),
		INDEX idx_food_latlon (latitude, longitude)
	)`,
}

// EnsureSchema creates the destination tables if they do not exist yet.
func EnsureSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	log.Println("INFO Database: schema ensured for all dataset tables.")
	return nil
}
