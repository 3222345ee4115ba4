// database/source_store.go
package database

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/models"
)

// EnsureSources mirrors the configured registry into the data_sources table
// so operators can read per-source freshness from the database. Rows are
// upserted by name; last_scraped_at is owned by the pipeline and never
// touched here.
func EnsureSources(sources []models.DataSourceConfig) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	stmt, err := DB.Prepare(`
		INSERT INTO data_sources (name, report_code, dataset_name, category, update_frequency, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			report_code = VALUES(report_code),
			dataset_name = VALUES(dataset_name),
			category = VALUES(category),
			update_frequency = VALUES(update_frequency),
			is_active = VALUES(is_active)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare data_sources upsert: %w", err)
	}
	defer stmt.Close()

	for _, src := range sources {
		if _, err := stmt.Exec(src.Name, src.ReportCode, src.DatasetName, src.Category, src.Frequency, src.Active); err != nil {
			return fmt.Errorf("failed to upsert data source %s: %w", src.Name, err)
		}
	}

	log.Infof("Database: ensured %d data source rows", len(sources))
	return nil
}

// UpdateSourceLastScraped stamps a source after a completed run.
func UpdateSourceLastScraped(sourceName string) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	_, err := DB.Exec("UPDATE data_sources SET last_scraped_at = NOW() WHERE name = ?", sourceName)
	if err != nil {
		return fmt.Errorf("failed to update last_scraped_at for %s: %w", sourceName, err)
	}
	return nil
}

// GetDataSources retrieves all data source rows.
func GetDataSources() ([]models.DataSource, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	rows, err := DB.Query(`
		SELECT id, name, report_code, dataset_name, category, update_frequency,
		       is_active, last_scraped_at, created_at
		FROM data_sources
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query data_sources: %w", err)
	}
	defer rows.Close()

	var sources []models.DataSource
	for rows.Next() {
		var s models.DataSource
		var lastScraped sql.NullTime
		if err := rows.Scan(&s.ID, &s.Name, &s.ReportCode, &s.DatasetName, &s.Category,
			&s.UpdateFrequency, &s.IsActive, &lastScraped, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan data_source row: %w", err)
		}
		if lastScraped.Valid {
			s.LastScrapedAt = &lastScraped.Time
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data_source rows: %w", err)
	}
	return sources, nil
}
