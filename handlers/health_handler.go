// handlers/health_handler.go
package handlers

import (
	"net/http"

	"github.com/kwehner/nyiso-scrape/database"
)

// HealthCheckHandler reports whether the service can reach its database.
// Expects GET to /api/health
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	if database.DB == nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "not initialized",
		})
		return
	}
	if err := database.DB.Ping(); err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "up",
	})
}
