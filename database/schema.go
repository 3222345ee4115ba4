// database/schema.go
package database

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Schema bootstrap. Every statement is idempotent (IF NOT EXISTS) so startup
// can run them unconditionally; uniqueness keys here are what the upsert
// statements in record_store.go rely on.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS zones (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		ptid BIGINT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_zones_name (name)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS interfaces (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		point_id BIGINT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_interfaces_name (name)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS data_sources (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		report_code VARCHAR(16) NOT NULL DEFAULT '',
		dataset_name VARCHAR(64) NOT NULL DEFAULT '',
		category VARCHAR(32) NOT NULL DEFAULT '',
		update_frequency VARCHAR(16) NOT NULL DEFAULT '',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		last_scraped_at DATETIME NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_data_sources_name (name)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS scraping_jobs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id CHAR(36) NOT NULL,
		source_name VARCHAR(64) NOT NULL,
		target_date DATE NOT NULL,
		status VARCHAR(16) NOT NULL,
		rows_scraped INT NOT NULL DEFAULT 0,
		rows_inserted INT NOT NULL DEFAULT 0,
		rows_updated INT NOT NULL DEFAULT 0,
		error_message TEXT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NULL,
		KEY idx_jobs_source_date (source_name, target_date, status),
		KEY idx_jobs_status (status)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS scraping_logs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		job_id BIGINT NOT NULL,
		level VARCHAR(16) NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_logs_job (job_id),
		CONSTRAINT fk_logs_job FOREIGN KEY (job_id) REFERENCES scraping_jobs(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS realtime_lbmp (` + zonalPriceColumns + `) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS dayahead_lbmp (` + zonalPriceColumns + `) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS timeweighted_lbmp (` + zonalPriceColumns + `) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS realtime_load (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		` + "`timestamp`" + ` DATETIME NOT NULL,
		zone_id BIGINT NOT NULL,
		time_zone VARCHAR(8) NOT NULL DEFAULT '',
		load_mw DOUBLE NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_load_ts_zone (` + "`timestamp`" + `, zone_id),
		CONSTRAINT fk_load_zone FOREIGN KEY (zone_id) REFERENCES zones(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS load_forecast (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		` + "`timestamp`" + ` DATETIME NOT NULL,
		zone_id BIGINT NOT NULL,
		forecast_mw DOUBLE NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_forecast_ts_zone (` + "`timestamp`" + `, zone_id),
		CONSTRAINT fk_forecast_zone FOREIGN KEY (zone_id) REFERENCES zones(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS interface_flows (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		` + "`timestamp`" + ` DATETIME NOT NULL,
		interface_id BIGINT NOT NULL,
		flow_mwh DOUBLE NULL,
		positive_limit_mwh DOUBLE NULL,
		negative_limit_mwh DOUBLE NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_flows_ts_iface (` + "`timestamp`" + `, interface_id),
		CONSTRAINT fk_flows_iface FOREIGN KEY (interface_id) REFERENCES interfaces(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS ancillary_services (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		` + "`timestamp`" + ` DATETIME NOT NULL,
		zone_id BIGINT NOT NULL,
		market VARCHAR(16) NOT NULL,
		service VARCHAR(32) NOT NULL,
		price DOUBLE NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_asp_ts_zone_mkt_svc (` + "`timestamp`" + `, zone_id, market, service),
		CONSTRAINT fk_asp_zone FOREIGN KEY (zone_id) REFERENCES zones(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS fuel_mix (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		` + "`timestamp`" + ` DATETIME NOT NULL,
		fuel_type VARCHAR(64) NOT NULL,
		gen_mw DOUBLE NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_fuel_ts_type (` + "`timestamp`" + `, fuel_type)
	) ENGINE=InnoDB`,
}

// The three LBMP tables share one column layout; only the table name differs.
const zonalPriceColumns = `
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		` + "`timestamp`" + ` DATETIME NOT NULL,
		zone_id BIGINT NOT NULL,
		lbmp DOUBLE NULL,
		marginal_cost_losses DOUBLE NULL,
		marginal_cost_congestion DOUBLE NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_ts_zone (` + "`timestamp`" + `, zone_id),
		FOREIGN KEY (zone_id) REFERENCES zones(id)
	`

// EnsureSchema creates any missing tables. Safe to call on every startup.
func EnsureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	log.Info("Database: schema ensured")
	return nil
}
