// database/job_store.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kwehner/nyiso-scrape/models"
)

// CreateJob inserts a new job row in pending state and returns it with the
// generated id filled in.
func CreateJob(sourceName string, targetDate time.Time, runID string) (*models.ScrapeJob, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	startedAt := time.Now()
	res, err := DB.Exec(`
		INSERT INTO scraping_jobs (run_id, source_name, target_date, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, runID, sourceName, targetDate.Format("2006-01-02"), models.JobStatusPending, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job for %s: %w", sourceName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new job id for %s: %w", sourceName, err)
	}

	return &models.ScrapeJob{
		ID:         id,
		RunID:      runID,
		SourceName: sourceName,
		TargetDate: targetDate,
		Status:     models.JobStatusPending,
		StartedAt:  startedAt,
	}, nil
}

// MarkJobRunning moves a pending job to running.
func MarkJobRunning(jobID int64) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	_, err := DB.Exec("UPDATE scraping_jobs SET status = ? WHERE id = ? AND status = ?",
		models.JobStatusRunning, jobID, models.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark job %d running: %w", jobID, err)
	}
	return nil
}

// MarkJobCompleted finalizes a job with its counters. A job already
// finalized is left untouched and reported as an error: finalization
// happens exactly once.
func MarkJobCompleted(jobID int64, scraped, inserted, updated int) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	res, err := DB.Exec(`
		UPDATE scraping_jobs
		SET status = ?, rows_scraped = ?, rows_inserted = ?, rows_updated = ?, completed_at = NOW()
		WHERE id = ? AND status IN (?, ?)
	`, models.JobStatusCompleted, scraped, inserted, updated, jobID, models.JobStatusPending, models.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job %d completed: %w", jobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %d was already finalized", jobID)
	}
	return nil
}

// MarkJobFailed finalizes a job with the triggering error's message.
func MarkJobFailed(jobID int64, scraped int, errMsg string) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	res, err := DB.Exec(`
		UPDATE scraping_jobs
		SET status = ?, rows_scraped = ?, error_message = ?, completed_at = NOW()
		WHERE id = ? AND status IN (?, ?)
	`, models.JobStatusFailed, scraped, errMsg, jobID, models.JobStatusPending, models.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job %d failed: %w", jobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %d was already finalized", jobID)
	}
	return nil
}

// HasCompletedJob reports whether a completed job already exists for the
// (source, target date) pair. The scheduler and backfill use this to skip
// re-fetching immutable historical files.
func HasCompletedJob(sourceName string, targetDate time.Time) (bool, error) {
	if DB == nil {
		return false, fmt.Errorf("database connection is not initialized")
	}
	var count int
	err := DB.QueryRow(`
		SELECT COUNT(*) FROM scraping_jobs
		WHERE source_name = ? AND target_date = ? AND status = ?
	`, sourceName, targetDate.Format("2006-01-02"), models.JobStatusCompleted).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check completed jobs for %s: %w", sourceName, err)
	}
	return count > 0, nil
}

// HasActiveJob reports whether the source has a pending or running job.
// This is the overlap guard: the check goes through the store rather than an
// in-memory lock so that redundant scheduler processes stay correct.
func HasActiveJob(sourceName string) (bool, error) {
	if DB == nil {
		return false, fmt.Errorf("database connection is not initialized")
	}
	var count int
	err := DB.QueryRow(`
		SELECT COUNT(*) FROM scraping_jobs
		WHERE source_name = ? AND status IN (?, ?)
	`, sourceName, models.JobStatusPending, models.JobStatusRunning).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active jobs for %s: %w", sourceName, err)
	}
	return count > 0, nil
}

// AppendJobLog attaches one diagnostic line to a job. Log rows are
// append-only and never block the pipeline: callers ignore the error beyond
// logging it.
func AppendJobLog(jobID int64, level, message string) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	_, err := DB.Exec("INSERT INTO scraping_logs (job_id, level, message) VALUES (?, ?, ?)",
		jobID, level, message)
	if err != nil {
		return fmt.Errorf("failed to append log for job %d: %w", jobID, err)
	}
	return nil
}

// GetRecentJobs returns the newest jobs across all sources.
func GetRecentJobs(limit int) ([]models.ScrapeJob, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := DB.Query(`
		SELECT id, run_id, source_name, target_date, status,
		       rows_scraped, rows_inserted, rows_updated,
		       error_message, started_at, completed_at
		FROM scraping_jobs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// GetLatestJobForSource returns the newest job for one source, or nil when
// the source has never run.
func GetLatestJobForSource(sourceName string) (*models.ScrapeJob, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	rows, err := DB.Query(`
		SELECT id, run_id, source_name, target_date, status,
		       rows_scraped, rows_inserted, rows_updated,
		       error_message, started_at, completed_at
		FROM scraping_jobs
		WHERE source_name = ?
		ORDER BY id DESC
		LIMIT 1
	`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest job for %s: %w", sourceName, err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// GetJobLogs returns a job's diagnostic lines, oldest first.
func GetJobLogs(jobID int64) ([]models.ScrapeLogEntry, error) {
	if DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	rows, err := DB.Query(`
		SELECT id, job_id, level, message, created_at
		FROM scraping_logs
		WHERE job_id = ?
		ORDER BY id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs for job %d: %w", jobID, err)
	}
	defer rows.Close()

	var entries []models.ScrapeLogEntry
	for rows.Next() {
		var e models.ScrapeLogEntry
		if err := rows.Scan(&e.ID, &e.JobID, &e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log rows: %w", err)
	}
	return entries, nil
}

func scanJobs(rows *sql.Rows) ([]models.ScrapeJob, error) {
	var jobs []models.ScrapeJob
	for rows.Next() {
		var j models.ScrapeJob
		var errMsg sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&j.ID, &j.RunID, &j.SourceName, &j.TargetDate, &j.Status,
			&j.RowsScraped, &j.RowsInserted, &j.RowsUpdated,
			&errMsg, &j.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		if errMsg.Valid {
			j.ErrorMessage = &errMsg.String
		}
		if completedAt.Valid {
			j.CompletedAt = &completedAt.Time
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return jobs, nil
}
