// models/job.go
package models

import "time"

// Job lifecycle states. A job is created pending, moves to running right
// before the fetch, and is finalized exactly once as completed or failed.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// ScrapeJob records one pipeline run for a (source, target date) pair.
// Counters: RowsScraped is every data row seen in the file (parsed plus
// skipped); RowsInserted/RowsUpdated come back from the store writer.
// A finalized job is never mutated again.
type ScrapeJob struct {
	ID           int64      `db:"id" json:"id"`
	RunID        string     `db:"run_id" json:"run_id"` // UUID, correlates log lines across processes
	SourceName   string     `db:"source_name" json:"source_name"`
	TargetDate   time.Time  `db:"target_date" json:"target_date"`
	Status       string     `db:"status" json:"status"`
	RowsScraped  int        `db:"rows_scraped" json:"rows_scraped"`
	RowsInserted int        `db:"rows_inserted" json:"rows_inserted"`
	RowsUpdated  int        `db:"rows_updated" json:"rows_updated"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// ScrapeLogEntry is one append-only diagnostic line attached to a job.
type ScrapeLogEntry struct {
	ID        int64     `db:"id" json:"id"`
	JobID     int64     `db:"job_id" json:"job_id"`
	Level     string    `db:"level" json:"level"` // info/warning/error
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DataSource mirrors one registry entry into the database so operators can
// see per-source freshness without reading config files.
type DataSource struct {
	ID              int64      `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	ReportCode      string     `db:"report_code" json:"report_code"`
	DatasetName     string     `db:"dataset_name" json:"dataset_name"`
	Category        string     `db:"category" json:"category"`
	UpdateFrequency string     `db:"update_frequency" json:"update_frequency"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	LastScrapedAt   *time.Time `db:"last_scraped_at" json:"last_scraped_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
