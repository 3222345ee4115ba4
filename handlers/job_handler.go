// handlers/job_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/database"
	"github.com/kwehner/nyiso-scrape/models"
)

// Re-defining these helpers here for now. Consider moving to a common utils package.
func respondWithJSON_Job(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("JobHandler: marshalling JSON response: %v", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError_Job(w http.ResponseWriter, code int, message string) {
	log.Warnf("JobHandler: API error %d: %s", code, message)
	respondWithJSON_Job(w, code, map[string]string{"error": message})
}

// GetJobsHandler lists recent scrape jobs, newest first.
// Expects GET to /api/jobs?limit=50
func GetJobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError_Job(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			respondWithError_Job(w, http.StatusBadRequest, "Invalid 'limit' query parameter")
			return
		}
		limit = parsed
	}

	jobs, err := database.GetRecentJobs(limit)
	if err != nil {
		respondWithError_Job(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list jobs: %v", err))
		return
	}
	if jobs == nil {
		jobs = []models.ScrapeJob{}
	}
	respondWithJSON_Job(w, http.StatusOK, jobs)
}

// GetLatestJobHandler returns the newest job for one source.
// Expects GET to /api/jobs/latest?source=<name>
func GetLatestJobHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError_Job(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	sourceName := r.URL.Query().Get("source")
	if sourceName == "" {
		respondWithError_Job(w, http.StatusBadRequest, "Missing 'source' query parameter")
		return
	}

	job, err := database.GetLatestJobForSource(sourceName)
	if err != nil {
		respondWithError_Job(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get latest job for %s: %v", sourceName, err))
		return
	}
	if job == nil {
		respondWithError_Job(w, http.StatusNotFound, fmt.Sprintf("No jobs recorded for source '%s'", sourceName))
		return
	}
	respondWithJSON_Job(w, http.StatusOK, job)
}

// GetJobLogsHandler returns the log lines attached to one job.
// Expects GET to /api/jobs/logs?job_id=123
func GetJobLogsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError_Job(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	jobIDStr := r.URL.Query().Get("job_id")
	if jobIDStr == "" {
		respondWithError_Job(w, http.StatusBadRequest, "Missing 'job_id' query parameter")
		return
	}
	jobID, err := strconv.ParseInt(jobIDStr, 10, 64)
	if err != nil || jobID <= 0 {
		respondWithError_Job(w, http.StatusBadRequest, "Invalid 'job_id' query parameter")
		return
	}

	logs, err := database.GetJobLogs(jobID)
	if err != nil {
		respondWithError_Job(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get logs for job %d: %v", jobID, err))
		return
	}
	if logs == nil {
		logs = []models.ScrapeLogEntry{}
	}
	respondWithJSON_Job(w, http.StatusOK, logs)
}
