// handlers/source_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/database"
	"github.com/kwehner/nyiso-scrape/models"
)

// Re-defining these helpers here for now. Consider moving to a common utils package.
func respondWithJSON_Source(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("SourceHandler: marshalling JSON response: %v", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError_Source(w http.ResponseWriter, code int, message string) {
	log.Warnf("SourceHandler: API error %d: %s", code, message)
	respondWithJSON_Source(w, code, map[string]string{"error": message})
}

// GetSourcesHandler lists the data source registry rows, including when each
// source last completed a scrape.
// Expects GET to /api/sources
func GetSourcesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError_Source(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	sources, err := database.GetDataSources()
	if err != nil {
		respondWithError_Source(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list sources: %v", err))
		return
	}
	if sources == nil {
		sources = []models.DataSource{}
	}
	respondWithJSON_Source(w, http.StatusOK, sources)
}

// GetZonesHandler lists the known pricing/load zones.
// Expects GET to /api/zones
func GetZonesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError_Source(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	zones, err := database.GetZones()
	if err != nil {
		respondWithError_Source(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list zones: %v", err))
		return
	}
	if zones == nil {
		zones = []models.Zone{}
	}
	respondWithJSON_Source(w, http.StatusOK, zones)
}
