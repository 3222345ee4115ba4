// models/api_models.go
package models

// ScrapeTriggerResponse is returned by the admin trigger endpoint once the
// background run has been kicked off.
type ScrapeTriggerResponse struct {
	Status     string `json:"status"` // "started"
	SourceName string `json:"source_name"`
	TargetDate string `json:"target_date"` // "YYYY-MM-DD"
	Force      bool   `json:"force,omitempty"`
}

// BackfillTriggerResponse acknowledges a background date-range run.
type BackfillTriggerResponse struct {
	Status     string `json:"status"` // "started"
	SourceName string `json:"source_name"`
	FromDate   string `json:"from_date"`
	ToDate     string `json:"to_date"`
}
