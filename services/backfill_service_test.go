// services/backfill_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwehner/nyiso-scrape/config"
	"github.com/kwehner/nyiso-scrape/models"
	"github.com/kwehner/nyiso-scrape/scraper"
)

// expectFailedDay sets up the job rows for one backfill day whose download
// finds nothing upstream.
func expectFailedDay(mock sqlmock.Sqlmock, date string, jobID int64) {
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("rt_fuel_mix", date, models.JobStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO scraping_jobs").
		WillReturnResult(sqlmock.NewResult(jobID, 1))
	mock.ExpectExec("UPDATE scraping_jobs SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE scraping_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scraping_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func expectSkippedDay(mock sqlmock.Sqlmock, date string) {
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("rt_fuel_mix", date, models.JobStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
}

func TestBackfillRangeMixedOutcomes(t *testing.T) {
	mock := setupIngestTest(t, fuelMixSource())
	stubFetch(t, nil, fmt.Errorf("no file: %w", scraper.ErrNotAvailable))

	expectFailedDay(mock, "2024-03-14", 21)
	expectSkippedDay(mock, "2024-03-15")
	expectFailedDay(mock, "2024-03-16", 22)

	summary, err := BackfillRange("rt_fuel_mix",
		time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Days)
	assert.Equal(t, 0, summary.Completed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillRangeSingleDayCompleted(t *testing.T) {
	mock := setupIngestTest(t, fuelMixSource())
	stubFetch(t, []byte(fuelMixCSV), nil)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO scraping_jobs").
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectExec("UPDATE scraping_jobs SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scraping_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO scraping_logs").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO fuel_mix")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	mock.ExpectExec("UPDATE scraping_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE data_sources SET last_scraped_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scraping_logs").WillReturnResult(sqlmock.NewResult(3, 1))

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	summary, err := BackfillRange("rt_fuel_mix", day, day)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Days)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillRangeInverted(t *testing.T) {
	setupIngestTest(t, fuelMixSource())

	_, err := BackfillRange("rt_fuel_mix",
		time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inverted")
}

func TestBackfillRangeUnknownSource(t *testing.T) {
	setupIngestTest(t, fuelMixSource())

	_, err := BackfillRange("no_such_source",
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown data source")
}

func TestBackfillAllRunsActiveSourcesOnly(t *testing.T) {
	mock := setupIngestTest(t, fuelMixSource())
	stubFetch(t, nil, scraper.ErrNotAvailable)

	inactive := fuelMixSource()
	inactive.Name = "dam_zonal_lbmp"
	inactive.Active = false
	config.AppConfig.Sources = append(config.AppConfig.Sources, inactive)

	expectSkippedDay(mock, "2024-03-15")

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	summaries, err := BackfillAll(day, day)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "rt_fuel_mix", summaries[0].SourceName)
	assert.Equal(t, 1, summaries[0].Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}
