// database/job_store_test.go
package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwehner/nyiso-scrape/models"
)

func TestCreateJob(t *testing.T) {
	mock := newMockDB(t)
	targetDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO scraping_jobs").
		WithArgs("run-1", "dam_zonal_lbmp", "2024-03-15", models.JobStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	job, err := CreateJob("dam_zonal_lbmp", targetDate, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), job.ID)
	assert.Equal(t, "run-1", job.RunID)
	assert.Equal(t, "dam_zonal_lbmp", job.SourceName)
	assert.Equal(t, targetDate, job.TargetDate)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.False(t, job.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkJobRunning(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec("UPDATE scraping_jobs SET status").
		WithArgs(models.JobStatusRunning, int64(7), models.JobStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, MarkJobRunning(7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkJobCompleted(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec("UPDATE scraping_jobs").
		WithArgs(models.JobStatusCompleted, 120, 118, 2, int64(7), models.JobStatusPending, models.JobStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, MarkJobCompleted(7, 120, 118, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkJobCompletedAlreadyFinalized(t *testing.T) {
	mock := newMockDB(t)

	// The guarded WHERE matches nothing once the job left pending/running.
	mock.ExpectExec("UPDATE scraping_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := MarkJobCompleted(7, 120, 118, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already finalized")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkJobFailed(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec("UPDATE scraping_jobs").
		WithArgs(models.JobStatusFailed, 10, "csv file is empty", int64(9), models.JobStatusPending, models.JobStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, MarkJobFailed(9, 10, "csv file is empty"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasCompletedJob(t *testing.T) {
	mock := newMockDB(t)
	targetDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("dam_zonal_lbmp", "2024-03-15", models.JobStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	done, err := HasCompletedJob("dam_zonal_lbmp", targetDate)
	require.NoError(t, err)
	assert.True(t, done)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("dam_zonal_lbmp", "2024-03-16", models.JobStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	done, err = HasCompletedJob("dam_zonal_lbmp", targetDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasActiveJob(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("rt_fuel_mix", models.JobStatusPending, models.JobStatusRunning).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	active, err := HasActiveJob("rt_fuel_mix")
	require.NoError(t, err)
	assert.True(t, active)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("rt_fuel_mix", models.JobStatusPending, models.JobStatusRunning).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	active, err = HasActiveJob("rt_fuel_mix")
	require.NoError(t, err)
	assert.False(t, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendJobLog(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO scraping_logs").
		WithArgs(int64(7), "info", "downloaded 51234 bytes").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, AppendJobLog(7, "info", "downloaded 51234 bytes"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "run_id", "source_name", "target_date", "status",
		"rows_scraped", "rows_inserted", "rows_updated",
		"error_message", "started_at", "completed_at",
	})
}

func TestGetRecentJobsClampsLimit(t *testing.T) {
	mock := newMockDB(t)
	started := time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC)
	completed := started.Add(3 * time.Second)
	target := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	// Out-of-range limits fall back to the default of 50.
	mock.ExpectQuery("SELECT id, run_id, source_name").
		WithArgs(50).
		WillReturnRows(jobRows().
			AddRow(8, "run-2", "rt_fuel_mix", target, models.JobStatusFailed,
				0, 0, 0, "file not yet available", started, completed).
			AddRow(7, "run-1", "dam_zonal_lbmp", target, models.JobStatusCompleted,
				120, 118, 2, nil, started, nil))

	jobs, err := GetRecentJobs(0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, int64(8), jobs[0].ID)
	require.NotNil(t, jobs[0].ErrorMessage)
	assert.Equal(t, "file not yet available", *jobs[0].ErrorMessage)
	require.NotNil(t, jobs[0].CompletedAt)
	assert.Equal(t, completed, *jobs[0].CompletedAt)

	assert.Equal(t, models.JobStatusCompleted, jobs[1].Status)
	assert.Equal(t, 118, jobs[1].RowsInserted)
	assert.Nil(t, jobs[1].ErrorMessage)
	assert.Nil(t, jobs[1].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestJobForSource(t *testing.T) {
	mock := newMockDB(t)
	started := time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC)
	target := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, run_id, source_name").
		WithArgs("dam_zonal_lbmp").
		WillReturnRows(jobRows().
			AddRow(7, "run-1", "dam_zonal_lbmp", target, models.JobStatusRunning,
				0, 0, 0, nil, started, nil))

	job, err := GetLatestJobForSource("dam_zonal_lbmp")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, models.JobStatusRunning, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestJobForSourceNone(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery("SELECT id, run_id, source_name").
		WithArgs("never_ran").
		WillReturnRows(jobRows())

	job, err := GetLatestJobForSource("never_ran")
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobLogs(t *testing.T) {
	mock := newMockDB(t)
	created := time.Date(2024, 3, 15, 7, 0, 1, 0, time.UTC)

	mock.ExpectQuery("SELECT id, job_id, level, message").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "level", "message", "created_at"}).
			AddRow(1, 7, "info", "downloaded 51234 bytes", created).
			AddRow(2, 7, "info", "parsed 120 rows (0 skipped)", created.Add(time.Second)))

	entries, err := GetJobLogs(7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "downloaded 51234 bytes", entries[0].Message)
	assert.Equal(t, int64(7), entries[1].JobID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
