// handlers/scrape_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/config"
	"github.com/kwehner/nyiso-scrape/models"
	"github.com/kwehner/nyiso-scrape/services"
)

// Service entry points as variables so tests can intercept the background runs.
var (
	runScrape     = services.RunScrape
	backfillRange = services.BackfillRange
	backfillAll   = services.BackfillAll
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Handler: marshalling JSON response: %v", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	log.Warnf("Handler: API error %d: %s", code, message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

// TriggerScrapeHandler fires one pipeline run in the background.
// Expects POST to /api/admin/scrape?source=<name>&date=YYYY-MM-DD&force=true
// date defaults to today, force defaults to false.
func TriggerScrapeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	sourceName := r.URL.Query().Get("source")
	if sourceName == "" {
		respondWithError(w, http.StatusBadRequest, "Missing 'source' query parameter")
		return
	}
	if _, ok := config.SourceByName(sourceName); !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown source '%s'", sourceName))
		return
	}

	targetDate := time.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date format for 'date'. Use YYYY-MM-DD.")
			return
		}
		targetDate = parsed
	}

	force := false
	if forceStr := r.URL.Query().Get("force"); forceStr != "" {
		parsed, err := strconv.ParseBool(forceStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid value for 'force'. Use true or false.")
			return
		}
		force = parsed
	}

	log.Infof("Handler: received scrape trigger for %s on %s (force=%v)",
		sourceName, targetDate.Format("2006-01-02"), force)

	go func() {
		job, err := runScrape(sourceName, targetDate, force)
		if err != nil {
			log.Errorf("Handler: triggered scrape for %s failed: %v", sourceName, err)
			return
		}
		if job == nil {
			log.Infof("Handler: triggered scrape for %s skipped (already completed)", sourceName)
		}
	}()

	respondWithJSON(w, http.StatusAccepted, models.ScrapeTriggerResponse{
		Status:     "started",
		SourceName: sourceName,
		TargetDate: targetDate.Format("2006-01-02"),
		Force:      force,
	})
}

// TriggerBackfillHandler fires a date-range run in the background.
// Expects POST to /api/admin/backfill?source=<name|all>&from=YYYY-MM-DD&to=YYYY-MM-DD
func TriggerBackfillHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	sourceName := r.URL.Query().Get("source")
	if sourceName == "" {
		respondWithError(w, http.StatusBadRequest, "Missing 'source' query parameter (a source name, or 'all')")
		return
	}
	if sourceName != "all" {
		if _, ok := config.SourceByName(sourceName); !ok {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Unknown source '%s'", sourceName))
			return
		}
	}

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		respondWithError(w, http.StatusBadRequest, "Missing 'from' or 'to' query parameter")
		return
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date format for 'from'. Use YYYY-MM-DD.")
		return
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date format for 'to'. Use YYYY-MM-DD.")
		return
	}
	if to.Before(from) {
		respondWithError(w, http.StatusBadRequest, "'to' must not be before 'from'")
		return
	}

	log.Infof("Handler: received backfill trigger for %s from %s to %s", sourceName, fromStr, toStr)

	go func() {
		var err error
		if sourceName == "all" {
			_, err = backfillAll(from, to)
		} else {
			_, err = backfillRange(sourceName, from, to)
		}
		if err != nil {
			log.Errorf("Handler: triggered backfill for %s failed: %v", sourceName, err)
		}
	}()

	respondWithJSON(w, http.StatusAccepted, models.BackfillTriggerResponse{
		Status:     "started",
		SourceName: sourceName,
		FromDate:   fromStr,
		ToDate:     toStr,
	})
}
